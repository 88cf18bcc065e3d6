package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/metabridge/graph-connector/internal/errors"
	"github.com/metabridge/graph-connector/internal/httputil"
	"github.com/metabridge/graph-connector/internal/model"
	"github.com/metabridge/graph-connector/internal/sse"
)

const (
	DefaultReplay = 20
	MaxReplay     = 100
)

// EventStream is satisfied by sse.Broker.
type EventStream interface {
	Subscribe(provider string) *sse.Client
	Unsubscribe(client *sse.Client)
	ClientCount(provider string) int
}

type RecentEvents interface {
	FindRecent(ctx context.Context, provider model.Provider, limit int) ([]model.WebhookEvent, error)
}

// EventsHandler streams stored webhook events of one provider as server-sent events.
type EventsHandler struct {
	stream    EventStream
	events    RecentEvents
	heartbeat time.Duration
}

func NewEventsHandler(stream EventStream, events RecentEvents) *EventsHandler {
	return &EventsHandler{
		stream:    stream,
		events:    events,
		heartbeat: sse.HeartbeatInterval,
	}
}

// Routes is mounted under /api behind admin auth.
func (h *EventsHandler) Routes(r chi.Router) {
	r.Get("/events/{provider}", h.ServeHTTP)
}

// GET /api/events/{provider}?replay=N
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	provider, ok := model.ParseProvider(chi.URLParam(r, "provider"))
	if !ok {
		httputil.WriteError(w, apperrors.NotFound("Provider"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// Subscribe before replaying so nothing published in between is lost.
	client := h.stream.Subscribe(provider.String())
	defer h.stream.Unsubscribe(client)

	log.Info().
		Str("provider", provider.String()).
		Int("clients", h.stream.ClientCount(provider.String())).
		Msg("sse connection established")

	ctx := r.Context()

	replayed, err := h.sendRecentEvents(ctx, w, flusher, provider, replayLimit(r))
	if err != nil {
		log.Error().Err(err).Str("provider", provider.String()).Msg("failed to replay webhook events")
	}

	h.sendEvent(w, flusher, "connected", map[string]any{"provider": provider})

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("provider", provider.String()).Msg("sse connection closed by client")
			return

		case <-client.Done:
			log.Info().Str("provider", provider.String()).Msg("sse connection closed by broker")
			return

		case event := <-client.Events:
			// Published while the replay ran; already sent.
			if id := eventID(event); id != "" && replayed[id] {
				delete(replayed, id)
				continue
			}
			if err := h.sendRawEvent(w, flusher, event); err != nil {
				log.Error().Err(err).Msg("failed to send event")
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				log.Debug().Str("provider", provider.String()).Msg("heartbeat failed, closing connection")
				return
			}
			flusher.Flush()
		}
	}
}

// sendRecentEvents replays stored events oldest first and returns the ids it sent.
func (h *EventsHandler) sendRecentEvents(
	ctx context.Context,
	w http.ResponseWriter,
	flusher http.Flusher,
	provider model.Provider,
	limit int,
) (map[string]bool, error) {
	if limit == 0 {
		return nil, nil
	}
	events, err := h.events.FindRecent(ctx, provider, limit)
	if err != nil {
		return nil, err
	}

	sent := make(map[string]bool, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		event := sse.Event{Type: "webhook_event", Data: events[i].ToPublishData()}
		if err := h.sendRawEvent(w, flusher, event); err != nil {
			return sent, err
		}
		sent[events[i].ID] = true
	}
	return sent, nil
}

func eventID(event sse.Event) string {
	var data struct {
		ID string `json:"id"`
	}
	if json.Unmarshal(event.Data, &data) != nil {
		return ""
	}
	return data.ID
}

func replayLimit(r *http.Request) int {
	raw := r.URL.Query().Get("replay")
	if raw == "" {
		return DefaultReplay
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return DefaultReplay
	}
	if n > MaxReplay {
		return MaxReplay
	}
	return n
}

func (h *EventsHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return h.sendRawEvent(w, flusher, sse.Event{Type: eventType, Data: jsonData})
}

func (h *EventsHandler) sendRawEvent(w http.ResponseWriter, flusher http.Flusher, event sse.Event) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", event.Type); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", event.Data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
