package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/metabridge/graph-connector/internal/audit"
	"github.com/metabridge/graph-connector/internal/model"
	"github.com/metabridge/graph-connector/internal/util"
)

const HubSignatureHeader = "X-Hub-Signature-256"

// HubSignatureMiddleware verifies Meta's X-Hub-Signature-256 header on webhook
// deliveries. GET verification requests carry no body and pass through.
type HubSignatureMiddleware struct {
	appSecret string
	provider  model.Provider
}

func NewHubSignatureMiddleware(provider model.Provider, appSecret string) *HubSignatureMiddleware {
	return &HubSignatureMiddleware{appSecret: appSecret, provider: provider}
}

func (m *HubSignatureMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}
		if m.appSecret == "" {
			log.Warn().
				Str("provider", m.provider.String()).
				Msg("webhook signature verification bypassed: app secret is not configured")
			next.ServeHTTP(w, r)
			return
		}

		signature := r.Header.Get(HubSignatureHeader)
		if signature == "" {
			m.reject(w, r, "missing signature")
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
					"error": "Request body too large",
				})
				return
			}
			log.Error().Err(err).Msg("signature middleware: failed to read body")
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "Failed to read request body",
			})
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		if !util.VerifyHubSignature(m.appSecret, body, signature) {
			m.reject(w, r, "invalid signature")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *HubSignatureMiddleware) reject(w http.ResponseWriter, r *http.Request, reason string) {
	audit.LogFromRequest(r, audit.Event{
		Type:     audit.EventSignatureFailure,
		Provider: m.provider.String(),
		Details:  map[string]interface{}{"reason": reason},
	})
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"error": "Invalid signature",
	})
}
