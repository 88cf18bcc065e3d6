package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/metabridge/graph-connector/internal/database"
	"github.com/metabridge/graph-connector/internal/model"
	"github.com/metabridge/graph-connector/internal/redis"
	"github.com/metabridge/graph-connector/internal/repository"
)

var ErrMalformedPayload = errors.New("malformed webhook payload")

// MessageProcessor consumes raw webhook deliveries.
type MessageProcessor interface {
	ProcessWebhookPayload(ctx context.Context, provider model.Provider, raw []byte) error
}

// EventPublisher fans stored events out to subscribers.
type EventPublisher interface {
	PublishEvent(ctx context.Context, channel string, payload []byte) error
}

type webhookPayload struct {
	Object string         `json:"object"`
	Entry  []webhookEntry `json:"entry"`
}

type webhookEntry struct {
	ID        flexID            `json:"id"`
	Time      int64             `json:"time"`
	Messaging []json.RawMessage `json:"messaging"`
	Changes   []json.RawMessage `json:"changes"`
}

type messagingItem struct {
	Sender    *participant `json:"sender"`
	Recipient *participant `json:"recipient"`
	Timestamp int64        `json:"timestamp"`
	Message   *struct {
		MID    string `json:"mid"`
		Text   string `json:"text"`
		IsEcho bool   `json:"is_echo"`
	} `json:"message"`
	Postback *struct {
		MID     string `json:"mid"`
		Title   string `json:"title"`
		Payload string `json:"payload"`
	} `json:"postback"`
	Read     json.RawMessage `json:"read"`
	Reaction *struct {
		MID string `json:"mid"`
	} `json:"reaction"`
}

type participant struct {
	ID flexID `json:"id"`
}

// flexID accepts ids sent either as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// MessageService stores webhook messaging events and publishes them to Redis.
type MessageService struct {
	db        database.TxRunner
	eventRepo repository.WebhookEventRepository
	publisher EventPublisher
}

func NewMessageService(db database.TxRunner, eventRepo repository.WebhookEventRepository, publisher EventPublisher) *MessageService {
	return &MessageService{db: db, eventRepo: eventRepo, publisher: publisher}
}

func (s *MessageService) ProcessWebhookPayload(ctx context.Context, provider model.Provider, raw []byte) error {
	var payload webhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if payload.Object == "" || payload.Entry == nil {
		return fmt.Errorf("%w: object and entry are required", ErrMalformedPayload)
	}

	events, err := parseEvents(provider, payload)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		log.Debug().Str("provider", provider.String()).Str("object", payload.Object).Msg("webhook delivery without events")
		return nil
	}

	stored := make([]*model.WebhookEvent, 0, len(events))
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.eventRepo.WithTx(tx)
		for _, event := range events {
			created, err := repo.Create(ctx, event)
			if err != nil {
				return fmt.Errorf("store webhook event: %w", err)
			}
			stored = append(stored, created)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, provider, stored)

	log.Info().
		Str("provider", provider.String()).
		Str("object", payload.Object).
		Int("events", len(stored)).
		Msg("webhook events stored")
	return nil
}

func (s *MessageService) publish(ctx context.Context, provider model.Provider, events []*model.WebhookEvent) {
	if s.publisher == nil {
		return
	}
	channel := redis.WebhookChannel(provider.String())
	for _, event := range events {
		if err := s.publisher.PublishEvent(ctx, channel, event.ToPublishData()); err != nil {
			log.Warn().Err(err).Str("eventId", event.ID).Str("channel", channel).Msg("failed to publish webhook event")
		}
	}
}

func parseEvents(provider model.Provider, payload webhookPayload) ([]*model.WebhookEvent, error) {
	var events []*model.WebhookEvent
	for _, entry := range payload.Entry {
		for _, raw := range entry.Messaging {
			var item messagingItem
			if err := json.Unmarshal(raw, &item); err != nil {
				return nil, fmt.Errorf("%w: messaging item: %v", ErrMalformedPayload, err)
			}
			events = append(events, messagingEvent(provider, payload.Object, string(entry.ID), item, raw))
		}
		for _, raw := range entry.Changes {
			event := newEvent(provider, payload.Object, string(entry.ID), model.EventTypeChange, raw)
			event.OccurredAt = fromMillis(entry.Time)
			events = append(events, event)
		}
	}
	return events, nil
}

func messagingEvent(provider model.Provider, object, entryID string, item messagingItem, raw json.RawMessage) *model.WebhookEvent {
	event := newEvent(provider, object, entryID, model.EventTypeUnknown, raw)
	if item.Sender != nil {
		event.SenderID = optString(string(item.Sender.ID))
	}
	if item.Recipient != nil {
		event.RecipientID = optString(string(item.Recipient.ID))
	}
	event.OccurredAt = fromMillis(item.Timestamp)

	switch {
	case item.Message != nil:
		event.EventType = model.EventTypeMessage
		if item.Message.IsEcho {
			event.EventType = model.EventTypeEcho
		}
		event.MessageID = optString(item.Message.MID)
		event.Text = optString(item.Message.Text)
	case item.Postback != nil:
		event.EventType = model.EventTypePostback
		event.MessageID = optString(item.Postback.MID)
		event.Text = optString(item.Postback.Payload)
	case len(item.Read) > 0 && string(item.Read) != "null":
		event.EventType = model.EventTypeRead
	case item.Reaction != nil:
		event.EventType = model.EventTypeReaction
		event.MessageID = optString(item.Reaction.MID)
	}
	return event
}

func newEvent(provider model.Provider, object, entryID string, eventType model.WebhookEventType, raw json.RawMessage) *model.WebhookEvent {
	return &model.WebhookEvent{
		ID:        uuid.NewString(),
		Provider:  provider,
		Object:    object,
		EntryID:   entryID,
		EventType: eventType,
		Payload:   raw,
	}
}

func fromMillis(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
