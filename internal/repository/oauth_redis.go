package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/metabridge/graph-connector/internal/model"
	"github.com/metabridge/graph-connector/internal/redis"
)

type redisOAuthStateRepo struct {
	client goredis.Cmdable
	now    func() time.Time
}

// NewRedisOAuthStateRepository stores states as JSON values that expire with the state.
func NewRedisOAuthStateRepository(client goredis.Cmdable) OAuthStateRepository {
	return &redisOAuthStateRepo{client: client, now: time.Now}
}

func (r *redisOAuthStateRepo) Create(ctx context.Context, params model.CreateOAuthStateParams) (*model.OAuthState, error) {
	now := r.now()
	ttl := params.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return nil, fmt.Errorf("oauth state already expired")
	}

	oauthState := &model.OAuthState{
		ID:        uuid.NewString(),
		State:     params.State,
		Provider:  params.Provider,
		SourceIP:  params.SourceIP,
		ExpiresAt: params.ExpiresAt,
		CreatedAt: now,
	}
	data, err := json.Marshal(oauthState)
	if err != nil {
		return nil, err
	}

	key := redis.OAuthStateKey(string(params.Provider), params.State)
	ok, err := r.client.SetNX(ctx, key, data, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("oauth state already exists")
	}
	return oauthState, nil
}

func (r *redisOAuthStateRepo) Consume(ctx context.Context, state string, provider model.Provider) (*model.OAuthState, error) {
	data, err := r.client.GetDel(ctx, redis.OAuthStateKey(string(provider), state)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var oauthState model.OAuthState
	if err := json.Unmarshal(data, &oauthState); err != nil {
		return nil, fmt.Errorf("decode oauth state: %w", err)
	}
	return &oauthState, nil
}

// DeleteExpired is a no-op: keys carry their own TTL.
func (r *redisOAuthStateRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}
