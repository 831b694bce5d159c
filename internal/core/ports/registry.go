package ports

import (
	"context"

	"github.com/oryx-ai/conductor/internal/core/domain"
)

// ProviderRegistry holds the catalogue of configured providers and their
// enabled/credential state.
type ProviderRegistry interface {
	// AvailableLLMs returns all enabled providers, credentials scrubbed.
	AvailableLLMs() []domain.ProviderConfig

	// LLMByID returns a provider config (credential scrubbed), or false.
	LLMByID(id string) (*domain.ProviderConfig, bool)

	// AdapterFor returns the live adapter for an id, if one is registered.
	AdapterFor(id string) (Provider, bool)

	// SetUserAPIKey binds a tenant-scoped credential without validating it.
	SetUserAPIKey(providerID, key string) error

	// ValidateAPIKey round-trips the key to the vendor. Transport failures
	// read as false; callers cannot tell "wrong key" from "unreachable"
	// (known limitation, kept deliberately).
	ValidateAPIKey(ctx context.Context, providerID, key string) bool

	// UpdateLLMConfig shallow-merges a patch; the id never changes.
	UpdateLLMConfig(providerID string, patch domain.ProviderPatch) (*domain.ProviderConfig, error)

	// SetEnabled flips a provider in or out of routing eligibility.
	SetEnabled(providerID string, enabled bool) error
}
