package service

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/metabridge/graph-connector/internal/errors"
)

var testTarget = Target{UserID: "17841400000000001", AccessToken: "PAGE-TOKEN"}

func boolPtr(b bool) *bool {
	return &b
}

func TestValidatePersistentMenu(t *testing.T) {
	valid := CreateLocalizedMenu("default", false, []MenuButton{
		CreateURLButton("Shop", "https://shop.example.com", ""),
		CreatePostbackButton("Talk to us", "TALK"),
	})

	tests := []struct {
		name    string
		menus   []PersistentMenu
		wantErr string
	}{
		{name: "valid", menus: []PersistentMenu{valid}},
		{name: "empty list", menus: []PersistentMenu{}},
		{name: "null list", menus: nil, wantErr: "persistent_menu must be an array"},
		{
			name:    "missing locale",
			menus:   []PersistentMenu{{ComposerInputDisabled: boolPtr(false), CallToActions: []MenuButton{}}},
			wantErr: "each menu must have a locale",
		},
		{
			name:    "missing composer_input_disabled",
			menus:   []PersistentMenu{{Locale: "default", CallToActions: []MenuButton{}}},
			wantErr: "each menu must have composer_input_disabled",
		},
		{
			name:    "missing call_to_actions",
			menus:   []PersistentMenu{{Locale: "default", ComposerInputDisabled: boolPtr(true)}},
			wantErr: "each menu must have a call_to_actions array",
		},
		{
			name: "six buttons",
			menus: []PersistentMenu{CreateLocalizedMenu("default", false, []MenuButton{
				CreatePostbackButton("1", "1"), CreatePostbackButton("2", "2"), CreatePostbackButton("3", "3"),
				CreatePostbackButton("4", "4"), CreatePostbackButton("5", "5"), CreatePostbackButton("6", "6"),
			})},
			wantErr: "menu cannot have more than 5 items",
		},
		{
			name:    "unknown type",
			menus:   []PersistentMenu{CreateLocalizedMenu("default", false, []MenuButton{{Type: "phone_number", Title: "Call"}})},
			wantErr: "invalid button type",
		},
		{
			name:    "empty title",
			menus:   []PersistentMenu{CreateLocalizedMenu("default", false, []MenuButton{CreatePostbackButton("", "P")})},
			wantErr: "each button must have a title",
		},
		{
			name:    "title too long",
			menus:   []PersistentMenu{CreateLocalizedMenu("default", false, []MenuButton{CreatePostbackButton(strings.Repeat("a", 31), "P")})},
			wantErr: "button title cannot exceed 30 characters",
		},
		{
			name:  "multibyte title of 30 characters",
			menus: []PersistentMenu{CreateLocalizedMenu("ko_KR", false, []MenuButton{CreatePostbackButton(strings.Repeat("메", 30), "P")})},
		},
		{
			name:    "web_url without url",
			menus:   []PersistentMenu{CreateLocalizedMenu("default", false, []MenuButton{{Type: ButtonTypeWebURL, Title: "Shop", WebviewHeightRatio: "full"}})},
			wantErr: "web_url buttons require a url",
		},
		{
			name:    "web_url without ratio",
			menus:   []PersistentMenu{CreateLocalizedMenu("default", false, []MenuButton{{Type: ButtonTypeWebURL, Title: "Shop", URL: "https://shop.example.com"}})},
			wantErr: "web_url buttons require webview_height_ratio",
		},
		{
			name:    "postback without payload",
			menus:   []PersistentMenu{CreateLocalizedMenu("default", false, []MenuButton{CreatePostbackButton("Help", "")})},
			wantErr: "postback buttons require a payload",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePersistentMenu(tc.menus)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateIceBreakers(t *testing.T) {
	tests := []struct {
		name        string
		iceBreakers []IceBreaker
		wantErr     string
	}{
		{
			name:        "valid",
			iceBreakers: []IceBreaker{CreateIceBreaker("default", []IceBreakerAction{CreateIceBreakerAction("Opening hours?", "HOURS")})},
		},
		{
			name:        "null list",
			iceBreakers: nil,
			wantErr:     "ice_breakers must be an array",
		},
		{
			name:        "missing locale",
			iceBreakers: []IceBreaker{{CallToActions: []IceBreakerAction{}}},
			wantErr:     "each ice breaker must have a locale",
		},
		{
			name:        "missing call_to_actions",
			iceBreakers: []IceBreaker{{Locale: "default"}},
			wantErr:     "each ice breaker must have a call_to_actions array",
		},
		{
			name: "five questions",
			iceBreakers: []IceBreaker{CreateIceBreaker("default", []IceBreakerAction{
				CreateIceBreakerAction("q1", "p1"), CreateIceBreakerAction("q2", "p2"), CreateIceBreakerAction("q3", "p3"),
				CreateIceBreakerAction("q4", "p4"), CreateIceBreakerAction("q5", "p5"),
			})},
			wantErr: "each ice breaker cannot have more than 4 questions",
		},
		{
			name:        "empty question",
			iceBreakers: []IceBreaker{CreateIceBreaker("default", []IceBreakerAction{CreateIceBreakerAction("", "P")})},
			wantErr:     "each action must have a question",
		},
		{
			name:        "empty payload",
			iceBreakers: []IceBreaker{CreateIceBreaker("default", []IceBreakerAction{CreateIceBreakerAction("Q?", "")})},
			wantErr:     "each action must have a payload",
		},
		{
			name:        "question too long",
			iceBreakers: []IceBreaker{CreateIceBreaker("default", []IceBreakerAction{CreateIceBreakerAction(strings.Repeat("q", 101), "P")})},
			wantErr:     "question cannot exceed 100 characters",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateIceBreakers(tc.iceBreakers)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestMessengerProfile_RejectsBeforeNetwork(t *testing.T) {
	server := newGraphServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"success"}`))
	})
	svc := NewMessengerProfileService(server.client("v19.0"))
	ctx := context.Background()

	buttons := make([]MenuButton, 0, 6)
	for i := 0; i < 6; i++ {
		buttons = append(buttons, CreatePostbackButton("Option", "OPT"))
	}
	_, err := svc.SetPersistentMenu(ctx, testTarget, []PersistentMenu{CreateLocalizedMenu("default", false, buttons)})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	actions := make([]IceBreakerAction, 0, 5)
	for i := 0; i < 5; i++ {
		actions = append(actions, CreateIceBreakerAction("Question?", "Q"))
	}
	_, err = svc.SetIceBreakers(ctx, testTarget, []IceBreaker{CreateIceBreaker("default", actions)})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	_, err = svc.SetPersistentMenu(ctx, testTarget, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	_, err = svc.SetIceBreakers(ctx, testTarget, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	assert.Equal(t, 0, server.count())
}

func TestMessengerProfile_RequiresTarget(t *testing.T) {
	server := newGraphServer(t, refreshNeverCalled(t))
	svc := NewMessengerProfileService(server.client("v19.0"))
	ctx := context.Background()

	_, err := svc.GetPersistentMenu(ctx, Target{UserID: "1"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMissingRequired))
	assert.Contains(t, err.Error(), "Access token is required")

	_, err = svc.DeleteIceBreakers(ctx, Target{AccessToken: "T"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Instagram user ID is required")

	assert.Equal(t, 0, server.count())
}

// echoProfileServer stores whatever is POSTed and returns it on GET, the way
// the Graph API reports the current messenger profile.
func echoProfileServer(t *testing.T) *graphServer {
	var (
		mu      sync.Mutex
		current = map[string]json.RawMessage{}
	)
	return newGraphServer(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.Method {
		case http.MethodPost:
			var body map[string]json.RawMessage
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			for k, v := range body {
				if k != "platform" {
					current[k] = v
				}
			}
			w.Write([]byte(`{"result":"success"}`))
		case http.MethodGet:
			field := r.URL.Query().Get("fields")
			data, _ := json.Marshal(map[string]any{"data": []map[string]json.RawMessage{{field: current[field]}}})
			w.Write(data)
		case http.MethodDelete:
			delete(current, "persistent_menu")
			w.Write([]byte(`{"result":"success"}`))
		}
	})
}

func TestMessengerProfile_PersistentMenuRoundTrip(t *testing.T) {
	server := echoProfileServer(t)
	svc := NewMessengerProfileService(server.client("v19.0"))
	ctx := context.Background()

	menu := CreateLocalizedMenu("default", false, []MenuButton{
		CreateURLButton("Shop now", "https://shop.example.com", "tall"),
		CreatePostbackButton("Talk to an agent", "AGENT"),
	})

	result, err := svc.SetPersistentMenu(ctx, testTarget, []PersistentMenu{menu})
	require.NoError(t, err)
	assert.Equal(t, "success", result.String("result"))

	setReq, setBody := server.request(0)
	assert.Equal(t, http.MethodPost, setReq.Method)
	assert.Equal(t, "/v19.0/17841400000000001/messenger_profile", setReq.URL.Path)
	assert.Equal(t, "PAGE-TOKEN", setReq.URL.Query().Get("access_token"))
	assert.Equal(t, "application/json", setReq.Header.Get("Content-Type"))
	assert.Contains(t, setBody, `"platform":"instagram"`)

	got, err := svc.GetPersistentMenu(ctx, testTarget)
	require.NoError(t, err)

	getReq, _ := server.request(1)
	assert.Equal(t, "persistent_menu", getReq.URL.Query().Get("fields"))
	assert.Equal(t, "instagram", getReq.URL.Query().Get("platform"))

	data := got.Objects("data")
	require.Len(t, data, 1)
	var menus []PersistentMenu
	require.NoError(t, json.Unmarshal(data[0].Marshal(), &struct {
		Menus *[]PersistentMenu `json:"persistent_menu"`
	}{&menus}))
	require.Len(t, menus, 1)
	assert.Equal(t, "default", menus[0].Locale)
	assert.Len(t, menus[0].CallToActions, 2)
	assert.Equal(t, "tall", menus[0].CallToActions[0].WebviewHeightRatio)

	_, err = svc.DeletePersistentMenu(ctx, testTarget)
	require.NoError(t, err)
	delReq, _ := server.request(2)
	assert.Equal(t, http.MethodDelete, delReq.Method)
	assert.Equal(t, "persistent_menu", delReq.URL.Query().Get("fields"))
}

func TestMessengerProfile_IceBreakers(t *testing.T) {
	server := echoProfileServer(t)
	svc := NewMessengerProfileService(server.client("v19.0"))
	ctx := context.Background()

	iceBreakers := []IceBreaker{CreateIceBreaker("default", []IceBreakerAction{
		CreateIceBreakerAction("What are your hours?", "HOURS"),
		CreateIceBreakerAction("Where are you?", "LOCATION"),
	})}

	_, err := svc.SetIceBreakers(ctx, testTarget, iceBreakers)
	require.NoError(t, err)
	_, setBody := server.request(0)
	assert.Contains(t, setBody, `"ice_breakers":[{"locale":"default"`)

	got, err := svc.GetIceBreakers(ctx, testTarget)
	require.NoError(t, err)
	assert.Contains(t, string(got.Marshal()), "What are your hours?")

	_, err = svc.DeleteIceBreakers(ctx, testTarget)
	require.NoError(t, err)
	delReq, delBody := server.request(2)
	assert.Equal(t, http.MethodDelete, delReq.Method)
	assert.Equal(t, "instagram", delReq.URL.Query().Get("platform"))
	assert.JSONEq(t, `{"fields":["ice_breakers"]}`, delBody)
}

func TestMessengerProfile_UpstreamError(t *testing.T) {
	server := newGraphServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","type":"OAuthException","code":190}}`))
	})
	svc := NewMessengerProfileService(server.client("v19.0"))

	_, err := svc.GetIceBreakers(context.Background(), testTarget)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeExternal))
	assert.ErrorIs(t, err, ErrMessengerProfile)
}
