package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/metabridge/graph-connector/internal/model"
)

type ProfileRepository interface {
	FindByExternalID(ctx context.Context, provider model.Provider, externalID string) (*model.Profile, error)
	Upsert(ctx context.Context, params model.UpsertProfileParams) (*model.Profile, error)
	WithTx(tx *sqlx.Tx) ProfileRepository
}

type profileRepo struct {
	db sqlxDB
}

func NewProfileRepository(db *sqlx.DB) ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) WithTx(tx *sqlx.Tx) ProfileRepository {
	return &profileRepo{db: tx}
}

func (r *profileRepo) FindByExternalID(ctx context.Context, provider model.Provider, externalID string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.GetContext(ctx, &profile, `
		SELECT * FROM account_profiles
		WHERE provider = $1 AND external_id = $2
	`, provider, externalID)
	return HandleNotFound(&profile, err)
}

func (r *profileRepo) Upsert(ctx context.Context, params model.UpsertProfileParams) (*model.Profile, error) {
	raw := params.RawAPIResponse
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	var profile model.Profile
	err := r.db.GetContext(ctx, &profile, `
		INSERT INTO account_profiles (
			provider, external_id, profile_name, user_id, username, profile_picture, bio,
			account_type, followers_count, follows_count, media_count, website,
			last_synced_at, raw_api_response
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (provider, external_id) DO UPDATE SET
			profile_name = EXCLUDED.profile_name,
			user_id = EXCLUDED.user_id,
			username = EXCLUDED.username,
			profile_picture = EXCLUDED.profile_picture,
			bio = EXCLUDED.bio,
			account_type = EXCLUDED.account_type,
			followers_count = EXCLUDED.followers_count,
			follows_count = EXCLUDED.follows_count,
			media_count = EXCLUDED.media_count,
			website = EXCLUDED.website,
			last_synced_at = EXCLUDED.last_synced_at,
			raw_api_response = EXCLUDED.raw_api_response,
			updated_at = NOW()
		RETURNING *
	`, params.Provider, params.ExternalID, params.ProfileName, params.UserID, params.Username,
		params.ProfilePicture, params.Bio, params.AccountType, params.FollowersCount,
		params.FollowsCount, params.MediaCount, params.Website, params.LastSyncedAt, raw)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
