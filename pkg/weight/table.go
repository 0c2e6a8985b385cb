// Copyright 2025 Reown RPC Proxy
//
// Package weight holds the lock-free selection-weight table the selector
// reads on every request, and the background task that recomputes it.

package weight

import (
	"sync/atomic"

	"github.com/reown-rpc-proxy/gateway/pkg/types"
)

// Table is an immutable-shaped map of atomic weight cells: the set of
// (chain, kind) keys is fixed at construction from the registry, so the
// selector's hot path never takes a lock — it only loads an *atomic.Int64.
type Table struct {
	cells map[types.ChainId]map[types.ProviderKind]*atomic.Int64
}

// NewTable builds a table with one cell per (chain, kind) pair the
// registry currently knows about, each starting at types.WeightNormal
// until a refresh tick observes that pair.
func NewTable(chains map[types.ChainId][]types.ProviderKind) *Table {
	t := &Table{cells: make(map[types.ChainId]map[types.ProviderKind]*atomic.Int64, len(chains))}
	for chain, kinds := range chains {
		perChain := make(map[types.ProviderKind]*atomic.Int64, len(kinds))
		for _, kind := range kinds {
			cell := &atomic.Int64{}
			cell.Store(int64(types.WeightNormal))
			perChain[kind] = cell
		}
		t.cells[chain] = perChain
	}
	return t
}

// Weight returns the current weight for (chain, kind), or MinWeight if the
// pair is not in the table (e.g. a provider that supports the chain but
// hasn't been through a refresh cycle yet is seeded by NewTable, so this
// path is only hit for genuinely unregistered pairs).
func (t *Table) Weight(chain types.ChainId, kind types.ProviderKind) types.Weight {
	perChain, ok := t.cells[chain]
	if !ok {
		return types.MinWeight
	}
	cell, ok := perChain[kind]
	if !ok {
		return types.MinWeight
	}
	return types.Weight(cell.Load())
}

// Update overwrites the weight for (chain, kind) if the pair already has a
// cell. It is a no-op for pairs the table was never built with, since the
// cell set is fixed at construction.
func (t *Table) Update(chain types.ChainId, kind types.ProviderKind, w types.Weight) {
	perChain, ok := t.cells[chain]
	if !ok {
		return
	}
	cell, ok := perChain[kind]
	if !ok {
		return
	}
	cell.Store(int64(w.Clamp()))
}

// Snapshot returns a copy of the current weights for every cell.
func (t *Table) Snapshot() map[types.ChainId]map[types.ProviderKind]types.Weight {
	out := make(map[types.ChainId]map[types.ProviderKind]types.Weight, len(t.cells))
	for chain, perChain := range t.cells {
		copied := make(map[types.ProviderKind]types.Weight, len(perChain))
		for kind, cell := range perChain {
			copied[kind] = types.Weight(cell.Load())
		}
		out[chain] = copied
	}
	return out
}
