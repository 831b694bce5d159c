package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/oryx-ai/conductor/internal/core/domain"
	"github.com/oryx-ai/conductor/internal/core/ports"
)

// Registry holds the catalogue of configured providers and their live
// adapters. Credentials never leave it: every read hands out a scrubbed
// copy.
type Registry struct {
	mu       sync.RWMutex
	configs  map[string]domain.ProviderConfig
	adapters map[string]ports.Provider
	logger   *zap.Logger
}

var _ ports.ProviderRegistry = (*Registry)(nil)

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		configs:  make(map[string]domain.ProviderConfig),
		adapters: make(map[string]ports.Provider),
		logger:   logger,
	}
}

// Register installs a provider config with its adapter. Ids are unique
// across the registry.
func (r *Registry) Register(cfg domain.ProviderConfig, adapter ports.Provider) error {
	if cfg.ID == "" {
		return domain.ValidationError(map[string]string{"id": "must not be empty"})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.configs[cfg.ID]; exists {
		return domain.BadRequestError(fmt.Sprintf("provider %q already registered", cfg.ID))
	}

	if adapter != nil {
		if err := adapter.Initialize(cfg); err != nil {
			return domain.InternalError(fmt.Sprintf("provider %q failed to initialize", cfg.ID), err)
		}
	}

	r.configs[cfg.ID] = cfg
	r.adapters[cfg.ID] = adapter
	r.logger.Info("provider registered",
		zap.String("id", cfg.ID),
		zap.String("type", cfg.Type),
		zap.Bool("enabled", cfg.Enabled),
	)
	return nil
}

// AvailableLLMs returns all enabled providers, credentials scrubbed, in
// stable id order.
func (r *Registry) AvailableLLMs() []domain.ProviderConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ProviderConfig, 0, len(r.configs))
	for _, cfg := range r.configs {
		if cfg.Enabled {
			out = append(out, scrub(cfg))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LLMByID returns a scrubbed copy of one provider config.
func (r *Registry) LLMByID(id string) (*domain.ProviderConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.configs[id]
	if !ok {
		return nil, false
	}
	c := scrub(cfg)
	return &c, true
}

// AdapterFor returns the live adapter for an id.
func (r *Registry) AdapterFor(id string) (ports.Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.adapters[id]
	if !ok || p == nil {
		return nil, false
	}
	return p, true
}

// SetUserAPIKey binds a tenant-scoped credential to a provider without
// validating it; validation is a separate explicit call.
func (r *Registry) SetUserAPIKey(providerID, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.configs[providerID]
	if !ok {
		return domain.NotFoundError(fmt.Sprintf("provider %q not found", providerID))
	}
	cfg.Credential = key
	r.configs[providerID] = cfg

	if adapter := r.adapters[providerID]; adapter != nil {
		if err := adapter.Initialize(cfg); err != nil {
			return domain.InternalError(fmt.Sprintf("provider %q failed to re-initialize", providerID), err)
		}
	}
	return nil
}

// ValidateAPIKey round-trips the key to the vendor. A transport failure reads
// as false, same as a rejected key; callers cannot tell "invalid" from
// "unreachable" here. The tri-state lives on the adapter and is logged,
// not surfaced.
func (r *Registry) ValidateAPIKey(ctx context.Context, providerID, key string) bool {
	r.mu.RLock()
	adapter := r.adapters[providerID]
	r.mu.RUnlock()

	if adapter == nil {
		return false
	}

	switch adapter.Validate(ctx, key) {
	case ports.KeyValid:
		return true
	case ports.KeyUnreachable:
		r.logger.Warn("key validation endpoint unreachable; reporting invalid",
			zap.String("provider", providerID))
		return false
	default:
		return false
	}
}

// UpdateLLMConfig shallow-merges a patch into the stored config. The id is
// immutable.
func (r *Registry) UpdateLLMConfig(providerID string, patch domain.ProviderPatch) (*domain.ProviderConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.configs[providerID]
	if !ok {
		return nil, domain.NotFoundError(fmt.Sprintf("provider %q not found", providerID))
	}

	if patch.Name != nil {
		cfg.Name = *patch.Name
	}
	if patch.Description != nil {
		cfg.Description = *patch.Description
	}
	if patch.Capabilities != nil {
		cfg.Capabilities = append([]string(nil), *patch.Capabilities...)
	}
	if patch.DefaultParams != nil {
		cfg.DefaultParams = *patch.DefaultParams
	}
	if patch.Enabled != nil {
		cfg.Enabled = *patch.Enabled
	}
	if patch.Cost != nil {
		cfg.Cost = *patch.Cost
	}
	if patch.BaseURL != nil {
		cfg.BaseURL = *patch.BaseURL
	}
	if patch.Model != nil {
		cfg.Model = *patch.Model
	}
	for k, v := range patch.Extra {
		if cfg.Extra == nil {
			cfg.Extra = map[string]string{}
		}
		cfg.Extra[k] = v
	}

	r.configs[providerID] = cfg
	c := scrub(cfg)
	return &c, nil
}

// SetEnabled flips routing eligibility. Disabled providers are never
// selected by the Router.
func (r *Registry) SetEnabled(providerID string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.configs[providerID]
	if !ok {
		return domain.NotFoundError(fmt.Sprintf("provider %q not found", providerID))
	}
	cfg.Enabled = enabled
	r.configs[providerID] = cfg
	r.logger.Info("provider eligibility changed",
		zap.String("id", providerID), zap.Bool("enabled", enabled))
	return nil
}

// configFor returns the stored config with the credential intact, for the
// Router's internal use only.
func (r *Registry) configFor(id string) (domain.ProviderConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[id]
	return cfg, ok
}

func scrub(cfg domain.ProviderConfig) domain.ProviderConfig {
	cfg.Credential = ""
	return cfg
}
