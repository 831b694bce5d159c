package services

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/oryx-ai/conductor/internal/core/domain"
	"github.com/oryx-ai/conductor/internal/core/ports"
	"github.com/oryx-ai/conductor/internal/store"
	"github.com/oryx-ai/conductor/internal/store/model"
)

// MockProvider implements ports.Provider (plus Streamer) for testing.
type MockProvider struct {
	mock.Mock
	ProviderID   string
	ProviderType string
}

func (m *MockProvider) ID() string   { return m.ProviderID }
func (m *MockProvider) Type() string { return m.ProviderType }

func (m *MockProvider) Initialize(cfg domain.ProviderConfig) error {
	return nil
}

func (m *MockProvider) Validate(ctx context.Context, key string) ports.KeyStatus {
	args := m.Called(ctx, key)
	return args.Get(0).(ports.KeyStatus)
}

func (m *MockProvider) Complete(ctx context.Context, prompt string, params domain.ModelParams) (*ports.Completion, error) {
	args := m.Called(ctx, prompt, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.Completion), args.Error(1)
}

func (m *MockProvider) Stream(ctx context.Context, prompt string, params domain.ModelParams) (<-chan ports.StreamChunk, error) {
	args := m.Called(ctx, prompt, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan ports.StreamChunk), args.Error(1)
}

// chunkChan builds a pre-filled closed stream channel for mock expectations.
func chunkChan(chunks ...ports.StreamChunk) <-chan ports.StreamChunk {
	ch := make(chan ports.StreamChunk, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	return ch
}

// fakeRepo is an in-memory store.Repository. It keeps the service tests off
// sqlite; the sqlite package has its own coverage.
type fakeRepo struct {
	mu        sync.Mutex
	scopes    map[string]model.ScopeRecord
	rules     map[string]model.RuleRecord
	providers map[string]model.ProviderRecord
	usage     []model.UsageLog

	failWrites bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		scopes:    make(map[string]model.ScopeRecord),
		rules:     make(map[string]model.RuleRecord),
		providers: make(map[string]model.ProviderRecord),
	}
}

var _ store.Repository = (*fakeRepo)(nil)

func (f *fakeRepo) Scopes() store.ScopeRepository       { return (*fakeScopes)(f) }
func (f *fakeRepo) Rules() store.RuleRepository         { return (*fakeRules)(f) }
func (f *fakeRepo) Providers() store.ProviderRepository { return (*fakeProviders)(f) }
func (f *fakeRepo) Usage() store.UsageRepository        { return (*fakeUsage)(f) }

func (f *fakeRepo) WithTx(ctx context.Context, fn func(repo store.Repository) error) error {
	return fn(f)
}

func (f *fakeRepo) Close() error { return nil }

type errWrite struct{}

func (errWrite) Error() string { return "write refused" }

type fakeScopes fakeRepo

func (f *fakeScopes) Insert(ctx context.Context, rec *model.ScopeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errWrite{}
	}
	f.scopes[rec.ID] = *rec
	return nil
}

func (f *fakeScopes) Update(ctx context.Context, rec *model.ScopeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errWrite{}
	}
	f.scopes[rec.ID] = *rec
	return nil
}

func (f *fakeScopes) Delete(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return false, errWrite{}
	}
	_, ok := f.scopes[id]
	delete(f.scopes, id)
	return ok, nil
}

func (f *fakeScopes) List(ctx context.Context) ([]model.ScopeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.ScopeRecord, 0, len(f.scopes))
	for _, rec := range f.scopes {
		out = append(out, rec)
	}
	return out, nil
}

type fakeRules fakeRepo

func (f *fakeRules) Upsert(ctx context.Context, rec *model.RuleRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errWrite{}
	}
	f.rules[rec.ID] = *rec
	return nil
}

func (f *fakeRules) Delete(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rules[id]
	delete(f.rules, id)
	return ok, nil
}

func (f *fakeRules) List(ctx context.Context) ([]model.RuleRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.RuleRecord, 0, len(f.rules))
	for _, rec := range f.rules {
		out = append(out, rec)
	}
	return out, nil
}

type fakeProviders fakeRepo

func (f *fakeProviders) Upsert(ctx context.Context, rec *model.ProviderRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errWrite{}
	}
	f.providers[rec.ID] = *rec
	return nil
}

func (f *fakeProviders) List(ctx context.Context) ([]model.ProviderRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.ProviderRecord, 0, len(f.providers))
	for _, rec := range f.providers {
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeProviders) SetEnabled(ctx context.Context, id string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.providers[id]
	if !ok {
		return errWrite{}
	}
	rec.IsEnabled = enabled
	f.providers[id] = rec
	return nil
}

type fakeUsage fakeRepo

func (f *fakeUsage) Log(ctx context.Context, rec *model.UsageLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errWrite{}
	}
	f.usage = append(f.usage, *rec)
	return nil
}

func (f *fakeUsage) GetRecent(ctx context.Context, limit int) ([]model.UsageLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > len(f.usage) {
		limit = len(f.usage)
	}
	return append([]model.UsageLog(nil), f.usage[len(f.usage)-limit:]...), nil
}

func (f *fakeUsage) GetDailyStats(ctx context.Context, days int) ([]model.DailyStats, error) {
	return nil, nil
}
