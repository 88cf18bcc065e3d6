package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/metabridge/graph-connector/internal/model"
)

// OAuthStateRepository persists single-use OAuth state tokens.
type OAuthStateRepository interface {
	Create(ctx context.Context, params model.CreateOAuthStateParams) (*model.OAuthState, error)
	// Consume removes the state and returns it, or nil when no such state exists
	// for the provider. Expiry is left to the caller.
	Consume(ctx context.Context, state string, provider model.Provider) (*model.OAuthState, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type oauthStateRepo struct {
	db sqlxDB
}

func NewOAuthStateRepository(db *sqlx.DB) OAuthStateRepository {
	return &oauthStateRepo{db: db}
}

func (r *oauthStateRepo) Create(ctx context.Context, params model.CreateOAuthStateParams) (*model.OAuthState, error) {
	var oauthState model.OAuthState
	err := r.db.GetContext(ctx, &oauthState, `
		INSERT INTO oauth_states (state, provider, source_ip, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, params.State, params.Provider, params.SourceIP, params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &oauthState, nil
}

func (r *oauthStateRepo) Consume(ctx context.Context, state string, provider model.Provider) (*model.OAuthState, error) {
	var oauthState model.OAuthState
	err := r.db.GetContext(ctx, &oauthState, `
		DELETE FROM oauth_states
		WHERE state = $1 AND provider = $2
		RETURNING *
	`, state, provider)
	return HandleNotFound(&oauthState, err)
}

func (r *oauthStateRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM oauth_states WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
