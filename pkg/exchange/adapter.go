// Copyright 2025 Reown RPC Proxy
//
// Package exchange defines the adapter capability every fiat on-ramp
// integration implements, and the concrete Binance, Coinbase, and
// TestExchange variants.

package exchange

import (
	"context"

	"github.com/reown-rpc-proxy/gateway/pkg/types"
)

// BuyParams describes a requested purchase handed to GetBuyURL.
type BuyParams struct {
	ProjectID   string
	Asset       types.CAIP19Asset
	Amount      string
	Recipient   string
	SessionID   string
}

// StatusParams identifies a previously created session for GetBuyStatus.
type StatusParams struct {
	SessionID string
}

// Adapter is the capability set every exchange integration implements. Each
// variant holds its own credentials and HTTP client and shares no state
// with the others.
type Adapter interface {
	// ID is stable and used as the ledger row's exchange_id.
	ID() string
	Name() string
	IsAssetSupported(asset types.CAIP19Asset) bool
	GetBuyURL(ctx context.Context, params BuyParams) (string, error)
	GetBuyStatus(ctx context.Context, params StatusParams) (types.BuyStatusResult, error)
}

// Registry resolves an exchange_id to its Adapter for the reconciler loop.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds a registry from the given adapters, keyed by ID().
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.ID()] = a
	}
	return r
}

// Get returns the adapter for exchangeID, or false if none is registered.
func (r *Registry) Get(exchangeID string) (Adapter, bool) {
	a, ok := r.adapters[exchangeID]
	return a, ok
}

// ForAsset returns every adapter that supports asset, for the
// buy-url-issuing entrypoint to offer a choice of venue.
func (r *Registry) ForAsset(asset types.CAIP19Asset) []Adapter {
	out := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		if a.IsAssetSupported(asset) {
			out = append(out, a)
		}
	}
	return out
}
