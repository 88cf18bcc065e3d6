package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/metabridge/graph-connector/internal/graph"
	"github.com/metabridge/graph-connector/internal/model"
	"github.com/metabridge/graph-connector/internal/service"
)

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) ProcessWebhookPayload(ctx context.Context, provider model.Provider, raw []byte) error {
	args := m.Called(ctx, provider, raw)
	return args.Error(0)
}

type panickingProcessor struct{}

func (panickingProcessor) ProcessWebhookPayload(ctx context.Context, provider model.Provider, raw []byte) error {
	panic("boom")
}

type mockFacebookAuth struct {
	mock.Mock
}

func (m *mockFacebookAuth) GetAuthorizationURL(ctx context.Context, req service.AuthRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockFacebookAuth) HandleCallback(ctx context.Context, code, state string) ([]*model.Account, error) {
	args := m.Called(ctx, code, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Account), args.Error(1)
}

type mockInstagramAuth struct {
	mock.Mock
}

func (m *mockInstagramAuth) GetAuthorizationURL(ctx context.Context, req service.AuthRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockInstagramAuth) HandleCallback(ctx context.Context, code, state string) (*model.Account, error) {
	args := m.Called(ctx, code, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

type mockAccounts struct {
	mock.Mock
}

func (m *mockAccounts) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *mockAccounts) ListAccounts(ctx context.Context, provider *model.Provider, limit, offset int) (*service.AccountList, error) {
	args := m.Called(ctx, provider, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AccountList), args.Error(1)
}

func (m *mockAccounts) GetProfile(ctx context.Context, account *model.Account) (*model.Profile, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

type mockInstagramAPI struct {
	mock.Mock
}

func (m *mockInstagramAPI) json(args mock.Arguments) (graph.JSON, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(graph.JSON), args.Error(1)
}

func (m *mockInstagramAPI) GetProfileInfo(ctx context.Context, accessToken string) (graph.JSON, error) {
	return m.json(m.Called(ctx, accessToken))
}

func (m *mockInstagramAPI) GetUserMedia(ctx context.Context, creds service.Credentials) (graph.JSON, error) {
	return m.json(m.Called(ctx, creds))
}

func (m *mockInstagramAPI) GetMediaDetails(ctx context.Context, mediaID, accessToken string) (graph.JSON, error) {
	return m.json(m.Called(ctx, mediaID, accessToken))
}

func (m *mockInstagramAPI) ExchangeForLongLivedToken(ctx context.Context, shortLivedToken string) (graph.JSON, error) {
	return m.json(m.Called(ctx, shortLivedToken))
}

func (m *mockInstagramAPI) RefreshAccountToken(ctx context.Context, accountID string) (*model.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *mockInstagramAPI) LinkWithFacebookPage(ctx context.Context, accountID, pageID string) (*model.Account, error) {
	args := m.Called(ctx, accountID, pageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

type mockProfiles struct {
	mock.Mock
}

func (m *mockProfiles) json(args mock.Arguments) (graph.JSON, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(graph.JSON), args.Error(1)
}

func (m *mockProfiles) SetPersistentMenu(ctx context.Context, target service.Target, menus []service.PersistentMenu) (graph.JSON, error) {
	return m.json(m.Called(ctx, target, menus))
}

func (m *mockProfiles) GetPersistentMenu(ctx context.Context, target service.Target) (graph.JSON, error) {
	return m.json(m.Called(ctx, target))
}

func (m *mockProfiles) DeletePersistentMenu(ctx context.Context, target service.Target) (graph.JSON, error) {
	return m.json(m.Called(ctx, target))
}

func (m *mockProfiles) SetIceBreakers(ctx context.Context, target service.Target, iceBreakers []service.IceBreaker) (graph.JSON, error) {
	return m.json(m.Called(ctx, target, iceBreakers))
}

func (m *mockProfiles) GetIceBreakers(ctx context.Context, target service.Target) (graph.JSON, error) {
	return m.json(m.Called(ctx, target))
}

func (m *mockProfiles) DeleteIceBreakers(ctx context.Context, target service.Target) (graph.JSON, error) {
	return m.json(m.Called(ctx, target))
}

func strPtr(s string) *string {
	return &s
}
