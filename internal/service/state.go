package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/metabridge/graph-connector/internal/errors"
	"github.com/metabridge/graph-connector/internal/model"
	"github.com/metabridge/graph-connector/internal/repository"
	"github.com/metabridge/graph-connector/internal/util"
)

// StateService issues and consumes single-use OAuth state tokens.
type StateService struct {
	repo repository.OAuthStateRepository
	ttl  time.Duration
	now  func() time.Time
}

func NewStateService(repo repository.OAuthStateRepository, ttl time.Duration) *StateService {
	return &StateService{repo: repo, ttl: ttl, now: time.Now}
}

// Issue persists state for provider, generating a fresh token when state is empty.
func (s *StateService) Issue(ctx context.Context, provider model.Provider, sourceIP, state string) (string, error) {
	if state == "" {
		generated, err := util.GenerateStateToken()
		if err != nil {
			return "", fmt.Errorf("generate state: %w", err)
		}
		state = generated
	}

	_, err := s.repo.Create(ctx, model.CreateOAuthStateParams{
		State:     state,
		Provider:  provider,
		SourceIP:  sourceIP,
		ExpiresAt: s.now().Add(s.ttl),
	})
	if err != nil {
		return "", fmt.Errorf("persist oauth state: %w", err)
	}
	return state, nil
}

// Consume deletes the state and fails with INVALID_STATE when it is unknown,
// belongs to another provider or has expired. A state can be consumed once.
func (s *StateService) Consume(ctx context.Context, provider model.Provider, state string) error {
	if state == "" {
		return apperrors.InvalidState()
	}

	stored, err := s.repo.Consume(ctx, state, provider)
	if err != nil {
		return fmt.Errorf("consume oauth state: %w", err)
	}
	if stored == nil {
		log.Warn().Str("provider", provider.String()).Msg("unknown OAuth state")
		return apperrors.InvalidState()
	}
	if stored.IsExpired(s.now()) {
		log.Warn().
			Str("provider", provider.String()).
			Time("expiresAt", stored.ExpiresAt).
			Msg("expired OAuth state")
		return apperrors.InvalidState()
	}
	return nil
}

// Purge removes expired states; it backs the cleanup job.
func (s *StateService) Purge(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx)
}
