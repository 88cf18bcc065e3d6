package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/metabridge/graph-connector/internal/model"
)

type AccountRepository interface {
	FindByID(ctx context.Context, id string) (*model.Account, error)
	FindByExternalID(ctx context.Context, provider model.Provider, externalID string) (*model.Account, error)
	FindByAccessToken(ctx context.Context, provider model.Provider, accessToken string) (*model.Account, error)
	FindAll(ctx context.Context, provider *model.Provider, limit, offset int) ([]model.Account, error)
	Upsert(ctx context.Context, params model.UpsertAccountParams) (*model.Account, error)
	UpdateToken(ctx context.Context, id string, params model.UpdateTokenParams) (*model.Account, error)
	LinkPage(ctx context.Context, id, pageID string) (*model.Account, error)
	Count(ctx context.Context, provider *model.Provider) (int, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) AccountRepository
}

type accountRepo struct {
	db sqlxDB
}

// sqlxDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type sqlxDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func NewAccountRepository(db *sqlx.DB) AccountRepository {
	return &accountRepo{db: db}
}

func (r *accountRepo) WithTx(tx *sqlx.Tx) AccountRepository {
	return &accountRepo{db: tx}
}

func (r *accountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		SELECT * FROM meta_accounts WHERE id = $1
	`, id)
	return HandleNotFound(&account, err)
}

func (r *accountRepo) FindByExternalID(ctx context.Context, provider model.Provider, externalID string) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		SELECT * FROM meta_accounts
		WHERE provider = $1 AND external_id = $2
	`, provider, externalID)
	return HandleNotFound(&account, err)
}

func (r *accountRepo) FindByAccessToken(ctx context.Context, provider model.Provider, accessToken string) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		SELECT * FROM meta_accounts
		WHERE provider = $1 AND access_token = $2
		ORDER BY updated_at DESC
		LIMIT 1
	`, provider, accessToken)
	return HandleNotFound(&account, err)
}

func (r *accountRepo) FindAll(ctx context.Context, provider *model.Provider, limit, offset int) ([]model.Account, error) {
	var accounts []model.Account
	err := r.db.SelectContext(ctx, &accounts, `
		SELECT * FROM meta_accounts
		WHERE ($1::text IS NULL OR provider = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, provider, limit, offset)
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// Upsert inserts or updates the account keyed by (provider, external_id).
// linked_page_id is never touched here so an existing page link survives re-authorization.
func (r *accountRepo) Upsert(ctx context.Context, params model.UpsertAccountParams) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		INSERT INTO meta_accounts (
			provider, external_id, name, access_token, permissions,
			instagram_business_account_id, token_obtained_at, token_expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (provider, external_id) DO UPDATE SET
			name = EXCLUDED.name,
			access_token = EXCLUDED.access_token,
			permissions = EXCLUDED.permissions,
			instagram_business_account_id = EXCLUDED.instagram_business_account_id,
			token_obtained_at = EXCLUDED.token_obtained_at,
			token_expires_at = EXCLUDED.token_expires_at,
			updated_at = NOW()
		RETURNING *
	`, params.Provider, params.ExternalID, params.Name, params.AccessToken, params.Permissions,
		params.InstagramBusinessAccountID, params.TokenObtainedAt, params.TokenExpiresAt)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepo) UpdateToken(ctx context.Context, id string, params model.UpdateTokenParams) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		UPDATE meta_accounts SET
			access_token = $2,
			token_obtained_at = $3,
			token_expires_at = $4,
			updated_at = $5
		WHERE id = $1
		RETURNING *
	`, id, params.AccessToken, params.TokenObtainedAt, params.TokenExpiresAt, time.Now())
	return HandleNotFound(&account, err)
}

func (r *accountRepo) LinkPage(ctx context.Context, id, pageID string) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, `
		UPDATE meta_accounts SET
			linked_page_id = $2,
			updated_at = $3
		WHERE id = $1 AND provider = $4
		RETURNING *
	`, id, pageID, time.Now(), model.ProviderInstagram)
	return HandleNotFound(&account, err)
}

func (r *accountRepo) Count(ctx context.Context, provider *model.Provider) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM meta_accounts
		WHERE ($1::text IS NULL OR provider = $1)
	`, provider)
	return count, err
}
