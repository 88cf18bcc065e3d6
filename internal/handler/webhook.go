package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/metabridge/graph-connector/internal/audit"
	"github.com/metabridge/graph-connector/internal/httputil"
	"github.com/metabridge/graph-connector/internal/metrics"
	"github.com/metabridge/graph-connector/internal/model"
	"github.com/metabridge/graph-connector/internal/service"
	"github.com/metabridge/graph-connector/internal/util"
)

const (
	webhookAck   = "EVENT_RECEIVED"
	webhookError = "ERROR_PROCESSING"
)

// WebhookHandler receives Meta webhook deliveries for one provider.
type WebhookHandler struct {
	provider    model.Provider
	verifyToken string
	processor   service.MessageProcessor
	metrics     *metrics.Metrics
}

func NewWebhookHandler(
	provider model.Provider,
	verifyToken string,
	processor service.MessageProcessor,
	m *metrics.Metrics,
) *WebhookHandler {
	return &WebhookHandler{
		provider:    provider,
		verifyToken: verifyToken,
		processor:   processor,
		metrics:     m,
	}
}

func (h *WebhookHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Verify)
	r.Post("/", h.Receive)

	return r
}

// GET /webhooks/{provider}
// Meta sends hub.challenge and hub.verify_token; some proxies rewrite the
// dots to underscores, so both spellings are accepted.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	challenge := queryEither(r, "hub.challenge", "hub_challenge")
	token := queryEither(r, "hub.verify_token", "hub_verify_token")

	if h.verifyToken != "" && challenge != "" && util.ConstantTimeEqual(token, h.verifyToken) {
		log.Info().Str("provider", h.provider.String()).Msg("webhook verified")
		audit.LogFromRequest(r, audit.Event{
			Type:     audit.EventWebhookVerify,
			Provider: h.provider.String(),
		})
		httputil.WriteText(w, http.StatusOK, challenge)
		return
	}

	log.Warn().
		Str("provider", h.provider.String()).
		Bool("challengePresent", challenge != "").
		Bool("tokenPresent", token != "").
		Msg("webhook verification failed")
	audit.LogFromRequest(r, audit.Event{
		Type:     audit.EventWebhookVerifyFailed,
		Provider: h.provider.String(),
	})
	httputil.WriteText(w, http.StatusForbidden, "Forbidden")
}

// POST /webhooks/{provider}
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error().Err(err).Str("provider", h.provider.String()).Msg("failed to read webhook body")
		h.metrics.RecordWebhookEvent(h.provider.String(), "error")
		httputil.WriteText(w, http.StatusInternalServerError, webhookError)
		return
	}

	log.Debug().Str("provider", h.provider.String()).Int("bytes", len(body)).Msg("webhook event received")

	if err := h.process(r, body); err != nil {
		event := log.Error().Err(err).Str("provider", h.provider.String())
		if json.Valid(body) {
			event = event.RawJSON("payload", body)
		} else {
			event = event.Str("payload", string(body))
		}
		event.Msg("error processing webhook")
		h.metrics.RecordWebhookEvent(h.provider.String(), "error")
		httputil.WriteText(w, http.StatusInternalServerError, webhookError)
		return
	}

	h.metrics.RecordWebhookEvent(h.provider.String(), "received")
	httputil.WriteText(w, http.StatusOK, webhookAck)
}

func (h *WebhookHandler) process(r *http.Request, body []byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("webhook processor panic: %v", rec)
		}
	}()
	return h.processor.ProcessWebhookPayload(r.Context(), h.provider, body)
}

func queryEither(r *http.Request, keys ...string) string {
	q := r.URL.Query()
	for _, k := range keys {
		if v := q.Get(k); v != "" {
			return v
		}
	}
	return ""
}
