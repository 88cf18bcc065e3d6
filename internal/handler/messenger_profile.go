package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/metabridge/graph-connector/internal/graph"
	"github.com/metabridge/graph-connector/internal/model"
	"github.com/metabridge/graph-connector/internal/service"
)

type MessengerProfiles interface {
	SetPersistentMenu(ctx context.Context, target service.Target, menus []service.PersistentMenu) (graph.JSON, error)
	GetPersistentMenu(ctx context.Context, target service.Target) (graph.JSON, error)
	DeletePersistentMenu(ctx context.Context, target service.Target) (graph.JSON, error)
	SetIceBreakers(ctx context.Context, target service.Target, iceBreakers []service.IceBreaker) (graph.JSON, error)
	GetIceBreakers(ctx context.Context, target service.Target) (graph.JSON, error)
	DeleteIceBreakers(ctx context.Context, target service.Target) (graph.JSON, error)
}

type MessengerProfileHandler struct {
	accounts AccountReader
	profiles MessengerProfiles
}

func NewMessengerProfileHandler(accounts AccountReader, profiles MessengerProfiles) *MessengerProfileHandler {
	return &MessengerProfileHandler{accounts: accounts, profiles: profiles}
}

// Routes is mounted under /api behind admin auth.
func (h *MessengerProfileHandler) Routes(r chi.Router) {
	r.Get("/accounts/{id}/persistent-menu", h.GetPersistentMenu)
	r.Put("/accounts/{id}/persistent-menu", h.SetPersistentMenu)
	r.Delete("/accounts/{id}/persistent-menu", h.DeletePersistentMenu)
	r.Get("/accounts/{id}/ice-breakers", h.GetIceBreakers)
	r.Put("/accounts/{id}/ice-breakers", h.SetIceBreakers)
	r.Delete("/accounts/{id}/ice-breakers", h.DeleteIceBreakers)
}

func (h *MessengerProfileHandler) GetPersistentMenu(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "failed to get persistent menu", h.profiles.GetPersistentMenu)
}

// PUT /api/accounts/{id}/persistent-menu
// Body is the persistent_menu array.
func (h *MessengerProfileHandler) SetPersistentMenu(w http.ResponseWriter, r *http.Request) {
	var menus []service.PersistentMenu
	if err := decodeJSON(r, &menus); err != nil {
		writeServiceError(w, r, err, "invalid persistent menu")
		return
	}
	h.serve(w, r, "failed to set persistent menu", func(ctx context.Context, t service.Target) (graph.JSON, error) {
		return h.profiles.SetPersistentMenu(ctx, t, menus)
	})
}

func (h *MessengerProfileHandler) DeletePersistentMenu(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "failed to delete persistent menu", h.profiles.DeletePersistentMenu)
}

func (h *MessengerProfileHandler) GetIceBreakers(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "failed to get ice breakers", h.profiles.GetIceBreakers)
}

// PUT /api/accounts/{id}/ice-breakers
// Body is the ice_breakers array.
func (h *MessengerProfileHandler) SetIceBreakers(w http.ResponseWriter, r *http.Request) {
	var iceBreakers []service.IceBreaker
	if err := decodeJSON(r, &iceBreakers); err != nil {
		writeServiceError(w, r, err, "invalid ice breakers")
		return
	}
	h.serve(w, r, "failed to set ice breakers", func(ctx context.Context, t service.Target) (graph.JSON, error) {
		return h.profiles.SetIceBreakers(ctx, t, iceBreakers)
	})
}

func (h *MessengerProfileHandler) DeleteIceBreakers(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "failed to delete ice breakers", h.profiles.DeleteIceBreakers)
}

func (h *MessengerProfileHandler) serve(
	w http.ResponseWriter,
	r *http.Request,
	failMsg string,
	call func(ctx context.Context, target service.Target) (graph.JSON, error),
) {
	account, ok := loadAccount(w, r, h.accounts, model.ProviderInstagram)
	if !ok {
		return
	}

	result, err := call(r.Context(), service.TargetFor(account))
	if err != nil {
		writeServiceError(w, r, err, failMsg)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
