package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/metabridge/graph-connector/internal/errors"
	"github.com/metabridge/graph-connector/internal/model"
	"github.com/metabridge/graph-connector/internal/service"
)

func newOAuthRouter(fb *mockFacebookAuth, ig *mockInstagramAuth) http.Handler {
	r := chi.NewRouter()
	r.Mount("/auth", NewOAuthHandler(fb, ig, nil).Routes())
	return r
}

func TestOAuthHandler_Authorize(t *testing.T) {
	t.Run("redirects to instagram dialog", func(t *testing.T) {
		ig := &mockInstagramAuth{}
		ig.On("GetAuthorizationURL", mock.Anything, mock.MatchedBy(func(req service.AuthRequest) bool {
			return req.SourceIP == "203.0.113.9" && len(req.Scopes) == 0
		})).Return("https://www.instagram.com/oauth/authorize?state=s1", nil)

		req := httptest.NewRequest(http.MethodGet, "/auth/instagram", nil)
		req.Header.Set("X-Real-IP", "203.0.113.9")
		rec := httptest.NewRecorder()
		newOAuthRouter(&mockFacebookAuth{}, ig).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "https://www.instagram.com/oauth/authorize?state=s1", rec.Header().Get("Location"))
		ig.AssertExpectations(t)
	})

	t.Run("passes requested scopes", func(t *testing.T) {
		fb := &mockFacebookAuth{}
		fb.On("GetAuthorizationURL", mock.Anything, mock.MatchedBy(func(req service.AuthRequest) bool {
			return assert.ObjectsAreEqual([]string{"pages_show_list", "pages_messaging"}, req.Scopes)
		})).Return("https://www.facebook.com/v19.0/dialog/oauth", nil)

		req := httptest.NewRequest(http.MethodGet, "/auth/facebook?scope=pages_show_list,pages_messaging", nil)
		rec := httptest.NewRecorder()
		newOAuthRouter(fb, &mockInstagramAuth{}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		fb.AssertExpectations(t)
	})

	t.Run("not configured returns 501", func(t *testing.T) {
		fb := &mockFacebookAuth{}
		fb.On("GetAuthorizationURL", mock.Anything, mock.Anything).Return("", service.ErrProviderNotConfigured)

		req := httptest.NewRequest(http.MethodGet, "/auth/facebook", nil)
		rec := httptest.NewRecorder()
		newOAuthRouter(fb, &mockInstagramAuth{}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotImplemented, rec.Code)
	})

	t.Run("unknown provider returns 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/twitter", nil)
		rec := httptest.NewRecorder()
		newOAuthRouter(&mockFacebookAuth{}, &mockInstagramAuth{}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestOAuthHandler_Callback(t *testing.T) {
	t.Run("instagram success returns account", func(t *testing.T) {
		ig := &mockInstagramAuth{}
		ig.On("HandleCallback", mock.Anything, "C", "S").Return(&model.Account{
			ID:          "6f1c2a9e-8d4b-4c1e-9a7f-2b3c4d5e6f70",
			Provider:    model.ProviderInstagram,
			ExternalID:  "U",
			AccessToken: "secret-token",
			Permissions: strPtr("a,b"),
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/auth/instagram/callback?code=C&state=S", nil)
		rec := httptest.NewRecorder()
		newOAuthRouter(&mockFacebookAuth{}, ig).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "secret-token")

		var body struct {
			Provider string         `json:"provider"`
			Account  map[string]any `json:"account"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "instagram", body.Provider)
		assert.Equal(t, "U", body.Account["externalId"])
		assert.Equal(t, "a,b", body.Account["permissions"])
	})

	t.Run("facebook success returns pages", func(t *testing.T) {
		fb := &mockFacebookAuth{}
		fb.On("HandleCallback", mock.Anything, "C", "S").Return([]*model.Account{
			{Provider: model.ProviderFacebook, ExternalID: "P1"},
			{Provider: model.ProviderFacebook, ExternalID: "P2"},
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/auth/facebook/callback?code=C&state=S", nil)
		rec := httptest.NewRecorder()
		newOAuthRouter(fb, &mockInstagramAuth{}).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Accounts []map[string]any `json:"accounts"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Len(t, body.Accounts, 2)
	})

	t.Run("error statuses", func(t *testing.T) {
		tests := []struct {
			name string
			err  error
			want int
		}{
			{"invalid state", apperrors.InvalidState(), http.StatusBadRequest},
			{"missing code", apperrors.MissingRequired("code"), http.StatusBadRequest},
			{"upstream failure", apperrors.External("instagram", fmt.Errorf("%w: boom", service.ErrTokenExchange)), http.StatusBadGateway},
			{"database failure", apperrors.Database(fmt.Errorf("conn reset")), http.StatusInternalServerError},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				ig := &mockInstagramAuth{}
				ig.On("HandleCallback", mock.Anything, mock.Anything, mock.Anything).Return(nil, tc.err)

				req := httptest.NewRequest(http.MethodGet, "/auth/instagram/callback?code=C&state=S", nil)
				rec := httptest.NewRecorder()
				newOAuthRouter(&mockFacebookAuth{}, ig).ServeHTTP(rec, req)

				assert.Equal(t, tc.want, rec.Code)
			})
		}
	})

	t.Run("provider denial skips exchange", func(t *testing.T) {
		ig := &mockInstagramAuth{}

		req := httptest.NewRequest(http.MethodGet,
			"/auth/instagram/callback?error=access_denied&error_reason=user_denied&state=S", nil)
		rec := httptest.NewRecorder()
		newOAuthRouter(&mockFacebookAuth{}, ig).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "user_denied")
		ig.AssertNotCalled(t, "HandleCallback", mock.Anything, mock.Anything, mock.Anything)
	})
}
