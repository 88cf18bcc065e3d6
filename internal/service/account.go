package service

import (
	"context"

	apperrors "github.com/metabridge/graph-connector/internal/errors"
	"github.com/metabridge/graph-connector/internal/model"
	"github.com/metabridge/graph-connector/internal/repository"
	"github.com/metabridge/graph-connector/internal/util"
)

const (
	DefaultAccountListLimit = 50
	MaxAccountListLimit     = 200
)

type AccountService struct {
	accountRepo repository.AccountRepository
	profileRepo repository.ProfileRepository
}

func NewAccountService(accountRepo repository.AccountRepository, profileRepo repository.ProfileRepository) *AccountService {
	return &AccountService{accountRepo: accountRepo, profileRepo: profileRepo}
}

func (s *AccountService) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	if !util.IsValidUUID(id) {
		return nil, apperrors.NotFound("Account")
	}
	account, err := s.accountRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if account == nil {
		return nil, apperrors.NotFound("Account")
	}
	return account, nil
}

type AccountList struct {
	Items  []model.Account `json:"items"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// ListAccounts pages through connected accounts, optionally for one provider.
func (s *AccountService) ListAccounts(ctx context.Context, provider *model.Provider, limit, offset int) (*AccountList, error) {
	if provider != nil && !provider.Valid() {
		return nil, apperrors.InvalidInput("provider", "must be facebook or instagram")
	}
	if limit <= 0 {
		limit = DefaultAccountListLimit
	}
	if limit > MaxAccountListLimit {
		limit = MaxAccountListLimit
	}
	if offset < 0 {
		offset = 0
	}

	accounts, err := s.accountRepo.FindAll(ctx, provider, limit, offset)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	total, err := s.accountRepo.Count(ctx, provider)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if accounts == nil {
		accounts = []model.Account{}
	}

	return &AccountList{Items: accounts, Total: total, Limit: limit, Offset: offset}, nil
}

// GetProfile returns the stored profile snapshot of an account.
func (s *AccountService) GetProfile(ctx context.Context, account *model.Account) (*model.Profile, error) {
	profile, err := s.profileRepo.FindByExternalID(ctx, account.Provider, account.ExternalID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if profile == nil {
		return nil, apperrors.NotFound("Profile")
	}
	return profile, nil
}
