package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/metabridge/graph-connector/internal/errors"
	"github.com/metabridge/graph-connector/internal/graph"
	"github.com/metabridge/graph-connector/internal/model"
	"github.com/metabridge/graph-connector/internal/service"
)

type AccountReader interface {
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	ListAccounts(ctx context.Context, provider *model.Provider, limit, offset int) (*service.AccountList, error)
	GetProfile(ctx context.Context, account *model.Account) (*model.Profile, error)
}

// InstagramAPI is the subset of service.InstagramService served over /api.
type InstagramAPI interface {
	GetProfileInfo(ctx context.Context, accessToken string) (graph.JSON, error)
	GetUserMedia(ctx context.Context, creds service.Credentials) (graph.JSON, error)
	GetMediaDetails(ctx context.Context, mediaID, accessToken string) (graph.JSON, error)
	ExchangeForLongLivedToken(ctx context.Context, shortLivedToken string) (graph.JSON, error)
	RefreshAccountToken(ctx context.Context, accountID string) (*model.Account, error)
	LinkWithFacebookPage(ctx context.Context, accountID, pageID string) (*model.Account, error)
}

type AccountHandler struct {
	accounts  AccountReader
	instagram InstagramAPI
}

func NewAccountHandler(accounts AccountReader, instagram InstagramAPI) *AccountHandler {
	return &AccountHandler{accounts: accounts, instagram: instagram}
}

// Routes is mounted under /api behind admin auth.
func (h *AccountHandler) Routes(r chi.Router) {
	r.Get("/accounts", h.ListAccounts)
	r.Get("/accounts/{id}", h.GetAccount)
	r.Get("/accounts/{id}/profile", h.GetProfile)
	r.Get("/accounts/{id}/media", h.ListMedia)
	r.Get("/accounts/{id}/media/{mediaId}", h.GetMedia)
	r.Post("/accounts/{id}/token/refresh", h.RefreshToken)
	r.Put("/accounts/{id}/link", h.LinkPage)
	r.Post("/tokens/exchange", h.ExchangeToken)
}

// GET /api/accounts?provider=&limit=&offset=
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	var provider *model.Provider
	if raw := r.URL.Query().Get("provider"); raw != "" {
		p := model.Provider(raw)
		provider = &p
	}
	page := ParsePagination(r)

	list, err := h.accounts.ListAccounts(r.Context(), provider, page.Limit, page.Offset)
	if err != nil {
		writeServiceError(w, r, err, "failed to list accounts")
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// GET /api/accounts/{id}
// The stored profile snapshot is included when one exists.
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, "failed to get account")
		return
	}

	profile, err := h.accounts.GetProfile(r.Context(), account)
	if err != nil {
		writeServiceError(w, r, err, "failed to get profile snapshot")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"account": account,
		"profile": profile,
	})
}

// GET /api/accounts/{id}/profile
func (h *AccountHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	account, ok := h.instagramAccount(w, r)
	if !ok {
		return
	}

	profile, err := h.instagram.GetProfileInfo(r.Context(), account.AccessToken)
	if err != nil {
		writeServiceError(w, r, err, "failed to fetch profile")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// GET /api/accounts/{id}/media
func (h *AccountHandler) ListMedia(w http.ResponseWriter, r *http.Request) {
	account, ok := h.instagramAccount(w, r)
	if !ok {
		return
	}

	media, err := h.instagram.GetUserMedia(r.Context(), service.CredentialsFor(account))
	if err != nil {
		writeServiceError(w, r, err, "failed to fetch media")
		return
	}

	writeJSON(w, http.StatusOK, media)
}

// GET /api/accounts/{id}/media/{mediaId}
func (h *AccountHandler) GetMedia(w http.ResponseWriter, r *http.Request) {
	account, ok := h.instagramAccount(w, r)
	if !ok {
		return
	}

	media, err := h.instagram.GetMediaDetails(r.Context(), chi.URLParam(r, "mediaId"), account.AccessToken)
	if err != nil {
		writeServiceError(w, r, err, "failed to fetch media details")
		return
	}

	writeJSON(w, http.StatusOK, media)
}

// POST /api/accounts/{id}/token/refresh
func (h *AccountHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	account, err := h.instagram.RefreshAccountToken(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, "failed to refresh token")
		return
	}

	writeJSON(w, http.StatusOK, account)
}

// PUT /api/accounts/{id}/link
func (h *AccountHandler) LinkPage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FacebookPageID string `json:"facebookPageId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err, "invalid link request")
		return
	}

	account, err := h.instagram.LinkWithFacebookPage(r.Context(), chi.URLParam(r, "id"), req.FacebookPageID)
	if err != nil {
		writeServiceError(w, r, err, "failed to link Facebook page")
		return
	}

	writeJSON(w, http.StatusOK, account)
}

// POST /api/tokens/exchange
func (h *AccountHandler) ExchangeToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessToken string `json:"accessToken"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err, "invalid exchange request")
		return
	}

	token, err := h.instagram.ExchangeForLongLivedToken(r.Context(), req.AccessToken)
	if err != nil {
		writeServiceError(w, r, err, "failed to exchange token")
		return
	}

	writeJSON(w, http.StatusOK, token)
}

func (h *AccountHandler) instagramAccount(w http.ResponseWriter, r *http.Request) (*model.Account, bool) {
	return loadAccount(w, r, h.accounts, model.ProviderInstagram)
}

// loadAccount resolves {id} and, when want is set, rejects accounts of another provider.
func loadAccount(w http.ResponseWriter, r *http.Request, accounts AccountReader, want model.Provider) (*model.Account, bool) {
	account, err := accounts.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, "failed to get account")
		return nil, false
	}
	if want != "" && account.Provider != want {
		writeServiceError(w, r, apperrors.InvalidInput("account", "not a "+want.String()+" account"), "provider mismatch")
		return nil, false
	}
	return account, true
}
