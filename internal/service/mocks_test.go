package service

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/metabridge/graph-connector/internal/database"
	"github.com/metabridge/graph-connector/internal/graph"
	"github.com/metabridge/graph-connector/internal/model"
	"github.com/metabridge/graph-connector/internal/repository"
)

type mockAccountRepo struct {
	mock.Mock
}

func (m *mockAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *mockAccountRepo) FindByExternalID(ctx context.Context, provider model.Provider, externalID string) (*model.Account, error) {
	args := m.Called(ctx, provider, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *mockAccountRepo) FindByAccessToken(ctx context.Context, provider model.Provider, accessToken string) (*model.Account, error) {
	args := m.Called(ctx, provider, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *mockAccountRepo) FindAll(ctx context.Context, provider *model.Provider, limit, offset int) ([]model.Account, error) {
	args := m.Called(ctx, provider, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Account), args.Error(1)
}

func (m *mockAccountRepo) Upsert(ctx context.Context, params model.UpsertAccountParams) (*model.Account, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *mockAccountRepo) UpdateToken(ctx context.Context, id string, params model.UpdateTokenParams) (*model.Account, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *mockAccountRepo) LinkPage(ctx context.Context, id, pageID string) (*model.Account, error) {
	args := m.Called(ctx, id, pageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *mockAccountRepo) Count(ctx context.Context, provider *model.Provider) (int, error) {
	args := m.Called(ctx, provider)
	return args.Int(0), args.Error(1)
}

func (m *mockAccountRepo) WithTx(tx *sqlx.Tx) repository.AccountRepository {
	return m
}

type mockProfileRepo struct {
	mock.Mock
}

func (m *mockProfileRepo) FindByExternalID(ctx context.Context, provider model.Provider, externalID string) (*model.Profile, error) {
	args := m.Called(ctx, provider, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

func (m *mockProfileRepo) Upsert(ctx context.Context, params model.UpsertProfileParams) (*model.Profile, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

func (m *mockProfileRepo) WithTx(tx *sqlx.Tx) repository.ProfileRepository {
	return m
}

type mockEventRepo struct {
	mock.Mock
}

func (m *mockEventRepo) Create(ctx context.Context, event *model.WebhookEvent) (*model.WebhookEvent, error) {
	args := m.Called(ctx, event)
	if fn, ok := args.Get(0).(func(context.Context, *model.WebhookEvent) *model.WebhookEvent); ok {
		return fn(ctx, event), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WebhookEvent), args.Error(1)
}

func (m *mockEventRepo) FindRecent(ctx context.Context, provider model.Provider, limit int) ([]model.WebhookEvent, error) {
	args := m.Called(ctx, provider, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.WebhookEvent), args.Error(1)
}

func (m *mockEventRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockEventRepo) WithTx(tx *sqlx.Tx) repository.WebhookEventRepository {
	return m
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishEvent(ctx context.Context, channel string, payload []byte) error {
	args := m.Called(ctx, channel, payload)
	return args.Error(0)
}

// fakeTx runs the function with a nil tx; mock repositories ignore it.
type fakeTx struct {
	calls int
}

func (f *fakeTx) WithTx(ctx context.Context, fn database.TxFunc) error {
	f.calls++
	return fn(nil)
}

// memoryStateRepo is an in-memory OAuthStateRepository.
type memoryStateRepo struct {
	mu     sync.Mutex
	states map[string]model.OAuthState
}

func newMemoryStateRepo() *memoryStateRepo {
	return &memoryStateRepo{states: make(map[string]model.OAuthState)}
}

func (r *memoryStateRepo) Create(ctx context.Context, params model.CreateOAuthStateParams) (*model.OAuthState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := model.OAuthState{
		ID:        params.State,
		State:     params.State,
		Provider:  params.Provider,
		SourceIP:  params.SourceIP,
		ExpiresAt: params.ExpiresAt,
		CreatedAt: time.Now(),
	}
	r.states[string(params.Provider)+":"+params.State] = s
	return &s, nil
}

func (r *memoryStateRepo) Consume(ctx context.Context, state string, provider model.Provider) (*model.OAuthState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := string(provider) + ":" + state
	s, ok := r.states[key]
	if !ok {
		return nil, nil
	}
	delete(r.states, key)
	return &s, nil
}

func (r *memoryStateRepo) DeleteExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, s := range r.states {
		if s.IsExpired(time.Now()) {
			delete(r.states, k)
			n++
		}
	}
	return n, nil
}

// graphServer is a fake Graph API recording every request it receives.
type graphServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []*http.Request
	bodies   []string
}

func newGraphServer(t *testing.T, handler http.HandlerFunc) *graphServer {
	t.Helper()
	gs := &graphServer{}
	gs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		gs.mu.Lock()
		gs.requests = append(gs.requests, r.Clone(r.Context()))
		gs.bodies = append(gs.bodies, string(body))
		gs.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(gs.Close)
	return gs
}

func (gs *graphServer) count() int {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return len(gs.requests)
}

func (gs *graphServer) request(i int) (*http.Request, string) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return gs.requests[i], gs.bodies[i]
}

func (gs *graphServer) client(version string) *graph.Client {
	return graph.NewClient(graph.Options{
		Provider: "test",
		BaseURL:  gs.URL,
		Version:  version,
		Timeout:  5 * time.Second,
	})
}

func strPtr(s string) *string {
	return &s
}
