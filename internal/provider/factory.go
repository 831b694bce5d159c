// Package provider holds the vendor adapter factory. Vendor packages
// register a constructor at init time; the wiring layer resolves adapters by
// the config's type field and never imports vendor packages directly.
package provider

import (
	"fmt"
	"sync"

	"github.com/oryx-ai/conductor/internal/core/domain"
	"github.com/oryx-ai/conductor/internal/core/ports"
)

// Constructor builds an adapter for one provider config.
type Constructor func(cfg domain.ProviderConfig) (ports.Provider, error)

var (
	mu           sync.RWMutex
	constructors = make(map[string]Constructor)
)

// Register installs a constructor for a provider type. Called from vendor
// package init functions.
func Register(providerType string, ctor Constructor) {
	mu.Lock()
	defer mu.Unlock()
	constructors[providerType] = ctor
}

// New resolves the config's type to a registered constructor.
func New(cfg domain.ProviderConfig) (ports.Provider, error) {
	mu.RLock()
	ctor, ok := constructors[cfg.Type]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
	return ctor(cfg)
}
