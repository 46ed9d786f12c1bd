package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ProviderRegistry maps platforms to their single provider adapter. A
// platform has at most one registered adapter; registering a second is an
// error rather than a replacement.
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[Platform]Provider
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{providers: make(map[Platform]Provider)}
}

func (r *ProviderRegistry) Register(provider Provider) error {
	if provider == nil {
		return fmt.Errorf("core: provider is nil")
	}
	if strings.TrimSpace(provider.ID()) == "" {
		return fmt.Errorf("core: provider id is required")
	}
	platform := provider.Platform()
	if err := platform.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, exists := r.providers[platform]; exists {
		return fmt.Errorf("core: platform %s already served by provider %s", platform, existing.ID())
	}
	r.providers[platform] = provider
	return nil
}

func (r *ProviderRegistry) Get(platform Platform) (Provider, bool) {
	if platform.Validate() != nil {
		return nil, false
	}
	r.mu.RLock()
	provider, ok := r.providers[platform]
	r.mu.RUnlock()
	return provider, ok
}

func (r *ProviderRegistry) List() []Provider {
	r.mu.RLock()
	keys := make([]string, 0, len(r.providers))
	byPlatform := make(map[string]Provider, len(r.providers))
	for platform, provider := range r.providers {
		keys = append(keys, string(platform))
		byPlatform[string(platform)] = provider
	}
	r.mu.RUnlock()
	sort.Strings(keys)
	providers := make([]Provider, 0, len(keys))
	for _, key := range keys {
		providers = append(providers, byPlatform[key])
	}
	return providers
}

var _ Registry = (*ProviderRegistry)(nil)
