package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	apperrors "github.com/metabridge/graph-connector/internal/errors"
	"github.com/metabridge/graph-connector/internal/graph"
	"github.com/metabridge/graph-connector/internal/service"
)

func TestMessengerProfileHandler_PersistentMenu(t *testing.T) {
	target := service.Target{UserID: "17841400000000000", AccessToken: "IGQV-token"}
	accounts := &mockAccounts{}
	accounts.On("GetAccount", mock.Anything, testAccountID).Return(instagramAccount(), nil)

	t.Run("set decodes menus", func(t *testing.T) {
		profiles := &mockProfiles{}
		profiles.On("SetPersistentMenu", mock.Anything, target, mock.MatchedBy(func(menus []service.PersistentMenu) bool {
			return len(menus) == 1 && menus[0].Locale == "default" && len(menus[0].CallToActions) == 1
		})).Return(graph.JSON{"result": "success"}, nil)

		body := `[{"locale":"default","composer_input_disabled":false,"call_to_actions":[{"type":"postback","title":"Help","payload":"HELP"}]}]`
		rec := httptest.NewRecorder()
		newAPIRouter(accounts, &mockInstagramAPI{}, profiles).ServeHTTP(rec,
			httptest.NewRequest(http.MethodPut, "/api/accounts/"+testAccountID+"/persistent-menu", strings.NewReader(body)))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "success")
		profiles.AssertExpectations(t)
	})

	t.Run("validation error is 400", func(t *testing.T) {
		profiles := &mockProfiles{}
		profiles.On("SetPersistentMenu", mock.Anything, target, mock.Anything).
			Return(nil, apperrors.ValidationError("Maximum 5 call to actions allowed per menu"))

		rec := httptest.NewRecorder()
		newAPIRouter(accounts, &mockInstagramAPI{}, profiles).ServeHTTP(rec,
			httptest.NewRequest(http.MethodPut, "/api/accounts/"+testAccountID+"/persistent-menu", strings.NewReader(`[]`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
	})

	t.Run("get and delete", func(t *testing.T) {
		profiles := &mockProfiles{}
		profiles.On("GetPersistentMenu", mock.Anything, target).Return(graph.JSON{"data": []any{}}, nil)
		profiles.On("DeletePersistentMenu", mock.Anything, target).Return(graph.JSON{"result": "success"}, nil)
		router := newAPIRouter(accounts, &mockInstagramAPI{}, profiles)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/accounts/"+testAccountID+"/persistent-menu", nil))
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/accounts/"+testAccountID+"/persistent-menu", nil))
		assert.Equal(t, http.StatusOK, rec.Code)

		profiles.AssertExpectations(t)
	})
}

func TestMessengerProfileHandler_IceBreakers(t *testing.T) {
	target := service.Target{UserID: "17841400000000000", AccessToken: "IGQV-token"}
	accounts := &mockAccounts{}
	accounts.On("GetAccount", mock.Anything, testAccountID).Return(instagramAccount(), nil)
	profiles := &mockProfiles{}
	profiles.On("SetIceBreakers", mock.Anything, target, mock.MatchedBy(func(ib []service.IceBreaker) bool {
		return len(ib) == 1 && ib[0].CallToActions[0].Question == "Opening hours?"
	})).Return(graph.JSON{"result": "success"}, nil)
	profiles.On("GetIceBreakers", mock.Anything, target).Return(graph.JSON{"data": []any{}}, nil)
	profiles.On("DeleteIceBreakers", mock.Anything, target).
		Return(nil, apperrors.External("instagram", service.ErrMessengerProfile))
	router := newAPIRouter(accounts, &mockInstagramAPI{}, profiles)

	body := `[{"locale":"default","call_to_actions":[{"question":"Opening hours?","payload":"HOURS"}]}]`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/accounts/"+testAccountID+"/ice-breakers", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/accounts/"+testAccountID+"/ice-breakers", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/accounts/"+testAccountID+"/ice-breakers", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	profiles.AssertExpectations(t)
}
