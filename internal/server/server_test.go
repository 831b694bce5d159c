package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oryx-ai/conductor/internal/config"
	"github.com/oryx-ai/conductor/internal/core/services"
	_ "github.com/oryx-ai/conductor/internal/provider/openai"
	"github.com/oryx-ai/conductor/internal/store"
	"github.com/oryx-ai/conductor/internal/store/model"
	"github.com/oryx-ai/conductor/pkg/api"
)

// stubRepo is an in-memory store.Repository for wiring the HTTP surface.
type stubRepo struct {
	mu        sync.Mutex
	scopes    map[string]model.ScopeRecord
	rules     map[string]model.RuleRecord
	providers map[string]model.ProviderRecord
	usage     []model.UsageLog
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		scopes:    make(map[string]model.ScopeRecord),
		rules:     make(map[string]model.RuleRecord),
		providers: make(map[string]model.ProviderRecord),
	}
}

func (r *stubRepo) Scopes() store.ScopeRepository       { return (*stubScopes)(r) }
func (r *stubRepo) Rules() store.RuleRepository         { return (*stubRules)(r) }
func (r *stubRepo) Providers() store.ProviderRepository { return (*stubProviders)(r) }
func (r *stubRepo) Usage() store.UsageRepository        { return (*stubUsage)(r) }

func (r *stubRepo) WithTx(ctx context.Context, fn func(repo store.Repository) error) error {
	return fn(r)
}
func (r *stubRepo) Close() error { return nil }

type stubScopes stubRepo

func (s *stubScopes) Insert(_ context.Context, rec *model.ScopeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scopes[rec.ID] = *rec
	return nil
}

func (s *stubScopes) Update(_ context.Context, rec *model.ScopeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scopes[rec.ID] = *rec
	return nil
}

func (s *stubScopes) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.scopes[id]
	delete(s.scopes, id)
	return ok, nil
}

func (s *stubScopes) List(_ context.Context) ([]model.ScopeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ScopeRecord, 0, len(s.scopes))
	for _, rec := range s.scopes {
		out = append(out, rec)
	}
	return out, nil
}

type stubRules stubRepo

func (s *stubRules) Upsert(_ context.Context, rec *model.RuleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rec.ID] = *rec
	return nil
}

func (s *stubRules) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rules[id]
	delete(s.rules, id)
	return ok, nil
}

func (s *stubRules) List(_ context.Context) ([]model.RuleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.RuleRecord, 0, len(s.rules))
	for _, rec := range s.rules {
		out = append(out, rec)
	}
	return out, nil
}

type stubProviders stubRepo

func (s *stubProviders) Upsert(_ context.Context, rec *model.ProviderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[rec.ID] = *rec
	return nil
}

func (s *stubProviders) List(_ context.Context) ([]model.ProviderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ProviderRecord, 0, len(s.providers))
	for _, rec := range s.providers {
		out = append(out, rec)
	}
	return out, nil
}

func (s *stubProviders) SetEnabled(_ context.Context, id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.providers[id]
	if !ok {
		return nil
	}
	rec.IsEnabled = enabled
	s.providers[id] = rec
	return nil
}

type stubUsage stubRepo

func (s *stubUsage) Log(_ context.Context, rec *model.UsageLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = append(s.usage, *rec)
	return nil
}

func (s *stubUsage) GetRecent(_ context.Context, limit int) ([]model.UsageLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > len(s.usage) {
		limit = len(s.usage)
	}
	out := make([]model.UsageLog, limit)
	copy(out, s.usage[len(s.usage)-limit:])
	return out, nil
}

func (s *stubUsage) GetDailyStats(_ context.Context, _ int) ([]model.DailyStats, error) {
	return nil, nil
}

func newTestServer(t *testing.T, apiKeys []string) (http.Handler, *stubRepo) {
	t.Helper()
	log := zap.NewNop()
	repo := newStubRepo()

	registry := services.NewRegistry(log)
	classifier, err := services.NewClassifier(services.DefaultRules(), registry, log)
	require.NoError(t, err)

	scopes, err := services.NewScopeManager(context.Background(), repo, log)
	require.NoError(t, err)

	router := services.NewRouter(classifier, registry, repo.Usage(), nil, services.RouterConfig{}, log)

	cfg := &config.Config{}
	cfg.Server.Env = "test"
	cfg.Server.APIKeys = apiKeys
	cfg.RateLimit.RequestsPerSecond = 10000
	cfg.RateLimit.Burst = 10000

	srv := New(cfg, log, Deps{
		Router:     router,
		Classifier: classifier,
		Registry:   registry,
		Scopes:     scopes,
		Repo:       repo,
		Version:    "test",
	})
	return srv.Handler(), repo
}

func doJSON(t *testing.T, h http.Handler, method, path, key string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer = bytes.NewBuffer(nil)
	if payload != nil {
		require.NoError(t, json.NewEncoder(body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthIsPublic(t *testing.T) {
	h, _ := newTestServer(t, []string{"secret"})

	rec := doJSON(t, h, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var health api.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
}

func TestAuthRequiredOnAPI(t *testing.T) {
	h, _ := newTestServer(t, []string{"secret"})

	rec := doJSON(t, h, "GET", "/v1/scopes", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, "GET", "/v1/scopes", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, "GET", "/v1/scopes", "secret", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthDisabledWithoutKeys(t *testing.T) {
	h, _ := newTestServer(t, nil)

	rec := doJSON(t, h, "GET", "/v1/scopes", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestScopeCreateValidation(t *testing.T) {
	h, _ := newTestServer(t, nil)

	rec := doJSON(t, h, "POST", "/v1/scopes", "", map[string]interface{}{
		"name": "bad",
		"type": "banana",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// RFC 9457 problem body from the error middleware.
	assert.Contains(t, rec.Header().Get("Content-Type"), "json")
	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.NotEmpty(t, problem["title"])
}

func TestScopeCreateAndFetch(t *testing.T) {
	h, _ := newTestServer(t, nil)

	rec := doJSON(t, h, "POST", "/v1/scopes", "", api.CreateScopeRequest{
		Name: "docs-chat",
		Type: "chat",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)

	rec = doJSON(t, h, "GET", "/v1/scopes/"+id, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, "GET", "/v1/scopes/ghost", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouteExhaustionIsNotAnHTTPError(t *testing.T) {
	// No providers are registered, so routing must exhaust; the response is
	// still 200 with success=false.
	h, _ := newTestServer(t, nil)

	rec := doJSON(t, h, "POST", "/v1/route", "", api.RouteRequest{Prompt: "Say hi"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.RouteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
	assert.NotEmpty(t, resp.RequestID)
}

func TestRouteRejectsEmptyPrompt(t *testing.T) {
	h, _ := newTestServer(t, nil)

	rec := doJSON(t, h, "POST", "/v1/route", "", map[string]interface{}{"prompt": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetKeyPersistsCredential(t *testing.T) {
	h, repo := newTestServer(t, nil)

	rec := doJSON(t, h, "POST", "/v1/providers", "", api.RegisterProviderRequest{
		ID:      "gpt",
		Type:    "openai",
		Name:    "GPT",
		Enabled: true,
		APIKey:  "sk-initial",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	repo.mu.Lock()
	stored := repo.providers["gpt"]
	repo.mu.Unlock()
	assert.Equal(t, "sk-initial", stored.Credential)

	// Keys set over the API must survive a restart, so SetKey writes
	// through to the store.
	rec = doJSON(t, h, "PUT", "/v1/providers/gpt/key", "", api.SetAPIKeyRequest{APIKey: "sk-rotated"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	repo.mu.Lock()
	stored = repo.providers["gpt"]
	repo.mu.Unlock()
	assert.Equal(t, "sk-rotated", stored.Credential)

	// No read path ever exposes the credential.
	rec = doJSON(t, h, "GET", "/v1/providers", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "sk-rotated")
	assert.NotContains(t, rec.Body.String(), "sk-initial")
}
