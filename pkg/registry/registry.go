// Copyright 2025 Reown RPC Proxy
//
// Package registry holds the static, immutable-after-construction set of
// configured upstream providers and answers chain-support queries for the
// selector and proxy engine.

package registry

import (
	"fmt"
	"sync"

	"github.com/reown-rpc-proxy/gateway/pkg/types"
)

// Registry is the set of configured providers, built once at startup from
// the provider catalog and never mutated after Freeze is called.
type Registry struct {
	mu sync.RWMutex

	providers map[types.ProviderKind]*types.Provider
	byChain   map[types.ChainId][]types.ProviderKind
	byChainWS map[types.ChainId][]types.ProviderKind

	frozen bool
}

// New returns an empty registry ready for Register calls.
func New() *Registry {
	return &Registry{
		providers: make(map[types.ProviderKind]*types.Provider),
		byChain:   make(map[types.ChainId][]types.ProviderKind),
		byChainWS: make(map[types.ChainId][]types.ProviderKind),
	}
}

// Register adds a provider instance to the registry. Register must only be
// called during composition, before Freeze; it panics otherwise so a wiring
// bug surfaces immediately rather than racing with request-path readers.
func (r *Registry) Register(p *types.Provider) error {
	if p == nil {
		return fmt.Errorf("registry: provider cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		panic("registry: Register called after Freeze")
	}
	if _, exists := r.providers[p.Kind]; exists {
		return fmt.Errorf("registry: provider already registered for kind %s", p.Kind)
	}

	r.providers[p.Kind] = p
	for chain := range p.Supports {
		r.byChain[chain] = append(r.byChain[chain], p.Kind)
	}
	for chain := range p.SupportsWS {
		r.byChainWS[chain] = append(r.byChainWS[chain], p.Kind)
	}
	return nil
}

// Freeze marks composition complete. Called once by the composition root
// after all providers are registered.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// ForChain returns the candidate providers that support HTTP JSON-RPC for
// chain, in registration order. The caller (the selector) is responsible
// for weighted ordering.
func (r *Registry) ForChain(chain types.ChainId) []*types.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := r.byChain[chain]
	out := make([]*types.Provider, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, r.providers[k])
	}
	return out
}

// ForChainWS returns the candidate providers that support WebSocket
// subscriptions for chain, in registration order.
func (r *Registry) ForChainWS(chain types.ChainId) []*types.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := r.byChainWS[chain]
	out := make([]*types.Provider, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, r.providers[k])
	}
	return out
}

// SupportsChain reports whether any registered provider serves chain over
// HTTP JSON-RPC.
func (r *Registry) SupportsChain(chain types.ChainId) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byChain[chain]) > 0
}

// SupportsChainWS reports whether any registered provider serves chain over
// WebSocket.
func (r *Registry) SupportsChainWS(chain types.ChainId) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byChainWS[chain]) > 0
}

// Chains returns every chain with at least one HTTP provider, for the
// /supported-chains endpoint.
func (r *Registry) Chains() []types.ChainId {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.ChainId, 0, len(r.byChain))
	for chain := range r.byChain {
		out = append(out, chain)
	}
	return out
}

// AllProviders returns every registered provider, for ChainSupportMap to
// build the index the weight table is seeded from.
func (r *Registry) AllProviders() []*types.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*types.Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	return out
}
