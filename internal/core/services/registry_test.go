package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oryx-ai/conductor/internal/core/domain"
	"github.com/oryx-ai/conductor/internal/core/ports"
)

func TestRegistry_RegisterAndScrub(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	require.NoError(t, r.Register(domain.ProviderConfig{
		ID:         "openai-main",
		Type:       "openai",
		Enabled:    true,
		Credential: "sk-secret",
	}, nil))

	// Duplicate id rejected
	assert.Error(t, r.Register(domain.ProviderConfig{ID: "openai-main"}, nil))
	// Empty id rejected
	assert.Error(t, r.Register(domain.ProviderConfig{}, nil))

	cfg, ok := r.LLMByID("openai-main")
	require.True(t, ok)
	assert.Empty(t, cfg.Credential, "credential must never leave the registry")

	for _, c := range r.AvailableLLMs() {
		assert.Empty(t, c.Credential)
	}

	// The router-facing internal read keeps the credential.
	full, ok := r.configFor("openai-main")
	require.True(t, ok)
	assert.Equal(t, "sk-secret", full.Credential)
}

func TestRegistry_AvailableLLMsExcludesDisabled(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	require.NoError(t, r.Register(domain.ProviderConfig{ID: "a", Enabled: true}, nil))
	require.NoError(t, r.Register(domain.ProviderConfig{ID: "b", Enabled: false}, nil))
	require.NoError(t, r.Register(domain.ProviderConfig{ID: "c", Enabled: true}, nil))

	available := r.AvailableLLMs()
	require.Len(t, available, 2)
	assert.Equal(t, "a", available[0].ID)
	assert.Equal(t, "c", available[1].ID)
}

func TestRegistry_SetUserAPIKey(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	adapter := &MockProvider{ProviderID: "p1", ProviderType: "openai"}
	require.NoError(t, r.Register(domain.ProviderConfig{ID: "p1", Enabled: true}, adapter))

	require.NoError(t, r.SetUserAPIKey("p1", "sk-new"))

	full, _ := r.configFor("p1")
	assert.Equal(t, "sk-new", full.Credential)

	assert.True(t, domain.IsNotFound(r.SetUserAPIKey("ghost", "sk-x")))
}

func TestRegistry_ValidateAPIKeyCollapsesTriState(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	adapter := &MockProvider{ProviderID: "p1", ProviderType: "openai"}
	require.NoError(t, r.Register(domain.ProviderConfig{ID: "p1", Enabled: true}, adapter))

	ctx := context.Background()

	adapter.On("Validate", mock.Anything, "good").Return(ports.KeyValid).Once()
	assert.True(t, r.ValidateAPIKey(ctx, "p1", "good"))

	adapter.On("Validate", mock.Anything, "bad").Return(ports.KeyInvalid).Once()
	assert.False(t, r.ValidateAPIKey(ctx, "p1", "bad"))

	// Unreachable reads as invalid on this surface.
	adapter.On("Validate", mock.Anything, "any").Return(ports.KeyUnreachable).Once()
	assert.False(t, r.ValidateAPIKey(ctx, "p1", "any"))

	assert.False(t, r.ValidateAPIKey(ctx, "missing", "key"))
	adapter.AssertExpectations(t)
}

func TestRegistry_UpdateLLMConfig(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	require.NoError(t, r.Register(domain.ProviderConfig{
		ID:         "p1",
		Name:       "Old",
		Enabled:    true,
		Credential: "sk-secret",
		Extra:      map[string]string{"keep": "1"},
	}, nil))

	name := "New"
	enabled := false
	cfg, err := r.UpdateLLMConfig("p1", domain.ProviderPatch{
		Name:    &name,
		Enabled: &enabled,
		Extra:   map[string]string{"added": "2"},
	})
	require.NoError(t, err)

	assert.Equal(t, "New", cfg.Name)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "1", cfg.Extra["keep"])
	assert.Equal(t, "2", cfg.Extra["added"])
	assert.Empty(t, cfg.Credential)

	// Patch does not clobber the stored credential.
	full, _ := r.configFor("p1")
	assert.Equal(t, "sk-secret", full.Credential)

	_, err = r.UpdateLLMConfig("ghost", domain.ProviderPatch{})
	assert.True(t, domain.IsNotFound(err))
}

func TestRegistry_SetEnabled(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	require.NoError(t, r.Register(domain.ProviderConfig{ID: "p1", Enabled: true}, nil))

	require.NoError(t, r.SetEnabled("p1", false))
	assert.Empty(t, r.AvailableLLMs())

	require.NoError(t, r.SetEnabled("p1", true))
	assert.Len(t, r.AvailableLLMs(), 1)

	assert.True(t, domain.IsNotFound(r.SetEnabled("ghost", true)))
}
