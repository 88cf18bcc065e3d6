package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/metabridge/graph-connector/internal/audit"
	apperrors "github.com/metabridge/graph-connector/internal/errors"
	"github.com/metabridge/graph-connector/internal/httputil"
	"github.com/metabridge/graph-connector/internal/metrics"
	"github.com/metabridge/graph-connector/internal/model"
	"github.com/metabridge/graph-connector/internal/service"
	"github.com/metabridge/graph-connector/internal/util"
)

type FacebookAuth interface {
	GetAuthorizationURL(ctx context.Context, req service.AuthRequest) (string, error)
	HandleCallback(ctx context.Context, code, state string) ([]*model.Account, error)
}

type InstagramAuth interface {
	GetAuthorizationURL(ctx context.Context, req service.AuthRequest) (string, error)
	HandleCallback(ctx context.Context, code, state string) (*model.Account, error)
}

type OAuthHandler struct {
	facebook  FacebookAuth
	instagram InstagramAuth
	metrics   *metrics.Metrics
}

func NewOAuthHandler(facebook FacebookAuth, instagram InstagramAuth, m *metrics.Metrics) *OAuthHandler {
	return &OAuthHandler{
		facebook:  facebook,
		instagram: instagram,
		metrics:   m,
	}
}

func (h *OAuthHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/{provider}", h.Authorize)
	r.Get("/{provider}/callback", h.Callback)

	return r
}

// GET /auth/{provider}
func (h *OAuthHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	provider, ok := model.ParseProvider(chi.URLParam(r, "provider"))
	if !ok {
		httputil.WriteError(w, apperrors.NotFound("OAuth provider"))
		return
	}

	req := service.AuthRequest{
		Scopes:   util.SplitScopes(r.URL.Query().Get("scope")),
		SourceIP: audit.ClientIP(r),
	}

	var (
		authURL string
		err     error
	)
	switch provider {
	case model.ProviderFacebook:
		authURL, err = h.facebook.GetAuthorizationURL(r.Context(), req)
	case model.ProviderInstagram:
		authURL, err = h.instagram.GetAuthorizationURL(r.Context(), req)
	}
	if err != nil {
		if errors.Is(err, service.ErrProviderNotConfigured) {
			writeJSON(w, http.StatusNotImplemented, map[string]string{
				"error": provider.String() + " OAuth not configured",
			})
			return
		}
		writeServiceError(w, r, err, "failed to build authorization URL")
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:     audit.EventOAuthStart,
		Provider: provider.String(),
	})
	http.Redirect(w, r, authURL, http.StatusFound)
}

// GET /auth/{provider}/callback
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	provider, ok := model.ParseProvider(chi.URLParam(r, "provider"))
	if !ok {
		httputil.WriteError(w, apperrors.NotFound("OAuth provider"))
		return
	}

	q := r.URL.Query()
	if denied := q.Get("error"); denied != "" {
		log.Warn().
			Str("provider", provider.String()).
			Str("error", denied).
			Str("reason", q.Get("error_reason")).
			Msg("OAuth error from provider")
		h.fail(r, provider, denied)
		httputil.WriteError(w, apperrors.New(apperrors.ErrCodeUnauthorized, "Authorization was denied").
			WithDetails(map[string]string{
				"error":       denied,
				"reason":      q.Get("error_reason"),
				"description": q.Get("error_description"),
			}))
		return
	}

	code, state := q.Get("code"), q.Get("state")

	var (
		result map[string]any
		err    error
	)
	switch provider {
	case model.ProviderFacebook:
		var accounts []*model.Account
		accounts, err = h.facebook.HandleCallback(r.Context(), code, state)
		result = map[string]any{"provider": provider, "accounts": accounts}
	case model.ProviderInstagram:
		var account *model.Account
		account, err = h.instagram.HandleCallback(r.Context(), code, state)
		result = map[string]any{"provider": provider, "account": account}
	}
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeInvalidState) {
			audit.LogFromRequest(r, audit.Event{
				Type:     audit.EventInvalidState,
				Provider: provider.String(),
			})
		}
		h.fail(r, provider, string(apperrors.GetCode(err)))
		writeServiceError(w, r, err, "OAuth callback failed")
		return
	}

	h.metrics.RecordOAuthCallback(provider.String(), "success")
	audit.LogFromRequest(r, audit.Event{
		Type:     audit.EventOAuthSuccess,
		Provider: provider.String(),
	})
	log.Info().Str("provider", provider.String()).Msg("OAuth callback completed")

	writeJSON(w, http.StatusOK, result)
}

func (h *OAuthHandler) fail(r *http.Request, provider model.Provider, reason string) {
	h.metrics.RecordOAuthCallback(provider.String(), "failure")
	audit.LogFromRequest(r, audit.Event{
		Type:     audit.EventOAuthFailure,
		Provider: provider.String(),
		Details:  map[string]interface{}{"reason": reason},
	})
}
