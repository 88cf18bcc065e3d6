package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/metabridge/graph-connector/internal/model"
)

type WebhookEventRepository interface {
	Create(ctx context.Context, event *model.WebhookEvent) (*model.WebhookEvent, error)
	FindRecent(ctx context.Context, provider model.Provider, limit int) ([]model.WebhookEvent, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	WithTx(tx *sqlx.Tx) WebhookEventRepository
}

type webhookEventRepo struct {
	db sqlxDB
}

func NewWebhookEventRepository(db *sqlx.DB) WebhookEventRepository {
	return &webhookEventRepo{db: db}
}

func (r *webhookEventRepo) WithTx(tx *sqlx.Tx) WebhookEventRepository {
	return &webhookEventRepo{db: tx}
}

func (r *webhookEventRepo) Create(ctx context.Context, event *model.WebhookEvent) (*model.WebhookEvent, error) {
	var created model.WebhookEvent
	err := r.db.GetContext(ctx, &created, `
		INSERT INTO webhook_events (
			id, provider, object, entry_id, sender_id, recipient_id,
			event_type, message_id, text, payload, occurred_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING *
	`, event.ID, event.Provider, event.Object, event.EntryID, event.SenderID, event.RecipientID,
		event.EventType, event.MessageID, event.Text, event.Payload, event.OccurredAt)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *webhookEventRepo) FindRecent(ctx context.Context, provider model.Provider, limit int) ([]model.WebhookEvent, error) {
	var events []model.WebhookEvent
	err := r.db.SelectContext(ctx, &events, `
		SELECT * FROM webhook_events
		WHERE provider = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, provider, limit)
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *webhookEventRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM webhook_events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
