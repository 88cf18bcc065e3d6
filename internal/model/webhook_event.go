package model

import (
	"encoding/json"
	"time"
)

type WebhookEvent struct {
	ID          string           `db:"id" json:"id"`
	Provider    Provider         `db:"provider" json:"provider"`
	Object      string           `db:"object" json:"object"`
	EntryID     string           `db:"entry_id" json:"entryId"`
	SenderID    *string          `db:"sender_id" json:"senderId,omitempty"`
	RecipientID *string          `db:"recipient_id" json:"recipientId,omitempty"`
	EventType   WebhookEventType `db:"event_type" json:"eventType"`
	MessageID   *string          `db:"message_id" json:"messageId,omitempty"`
	Text        *string          `db:"text" json:"text,omitempty"`
	Payload     json.RawMessage  `db:"payload" json:"payload"`
	OccurredAt  *time.Time       `db:"occurred_at" json:"occurredAt,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"createdAt"`
}

// ToPublishData returns the JSON published on the provider's event channel.
func (e *WebhookEvent) ToPublishData() json.RawMessage {
	data, _ := json.Marshal(map[string]any{
		"id":          e.ID,
		"provider":    e.Provider,
		"object":      e.Object,
		"entryId":     e.EntryID,
		"senderId":    e.SenderID,
		"recipientId": e.RecipientID,
		"eventType":   e.EventType,
		"messageId":   e.MessageID,
		"text":        e.Text,
		"occurredAt":  e.OccurredAt,
		"payload":     e.Payload,
	})
	return data
}
