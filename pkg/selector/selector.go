// Copyright 2025 Reown RPC Proxy
//
// Package selector draws a weighted-random, duplicate-free candidate order
// for one proxy request.

package selector

import (
	"math/rand/v2"

	"github.com/reown-rpc-proxy/gateway/pkg/registry"
	"github.com/reown-rpc-proxy/gateway/pkg/types"
	"github.com/reown-rpc-proxy/gateway/pkg/weight"
)

// DefaultMaxAttempts bounds the length of the candidate list returned per
// request when New is given a non-positive maxAttempts.
const DefaultMaxAttempts = 3

// Selector draws candidate providers for a chain, weighted by the current
// entries in the weight table, without repeating a provider within one
// draw.
type Selector struct {
	registry    *registry.Registry
	weights     *weight.Table
	maxAttempts int
}

// New returns a selector reading candidates from reg and weights from w.
func New(reg *registry.Registry, w *weight.Table, maxAttempts int) *Selector {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Selector{registry: reg, weights: w, maxAttempts: maxAttempts}
}

// Pick returns an ordered candidate list for chain, excluding any kind in
// excluded, of length at most s.maxAttempts. An empty result means no
// eligible provider remains.
func (s *Selector) Pick(chain types.ChainId, excluded map[types.ProviderKind]struct{}) []*types.Provider {
	return s.pickFrom(chain, s.registry.ForChain(chain), excluded, s.maxAttempts)
}

// PickWS returns a single WS-capable candidate for chain, weighted the
// same way as Pick. The WebSocket relay never fails over once upgraded, so
// only the first element of the result (if any) is used.
func (s *Selector) PickWS(chain types.ChainId) []*types.Provider {
	return s.pickFrom(chain, s.registry.ForChainWS(chain), nil, 1)
}

func (s *Selector) pickFrom(chain types.ChainId, all []*types.Provider, excluded map[types.ProviderKind]struct{}, maxAttempts int) []*types.Provider {
	if len(all) == 0 {
		return nil
	}

	candidates := make([]*types.Provider, 0, len(all))
	weights := make([]int64, 0, len(all))
	var total int64
	for _, p := range all {
		if _, skip := excluded[p.Kind]; skip {
			continue
		}
		w := int64(s.weights.Weight(chain, p.Kind))
		candidates = append(candidates, p)
		weights = append(weights, w)
		total += w
	}
	if len(candidates) == 0 {
		return nil
	}

	n := maxAttempts
	if n > len(candidates) {
		n = len(candidates)
	}

	if total == 0 {
		return drawUniform(candidates, n)
	}
	return drawWeighted(candidates, weights, total, n)
}

// drawWeighted performs n draws without replacement, each proportional to
// the remaining weights, per the selection algorithm. Ties resolve by
// drawing order: the candidate slice itself is the tie-break order, so a
// deterministic rand source still produces a reproducible sequence.
func drawWeighted(candidates []*types.Provider, weights []int64, total int64, n int) []*types.Provider {
	out := make([]*types.Provider, 0, n)
	remaining := append([]*types.Provider(nil), candidates...)
	remainingW := append([]int64(nil), weights...)
	remainingTotal := total

	for i := 0; i < n && len(remaining) > 0; i++ {
		if remainingTotal <= 0 {
			idx := rand.IntN(len(remaining))
			out = append(out, remaining[idx])
			remaining, remainingW = removeAt(remaining, remainingW, idx)
			remainingTotal = sumInt64(remainingW)
			continue
		}

		target := rand.Int64N(remainingTotal)
		var cursor int64
		idx := 0
		for j, w := range remainingW {
			cursor += w
			if target < cursor {
				idx = j
				break
			}
		}

		out = append(out, remaining[idx])
		remainingTotal -= remainingW[idx]
		remaining, remainingW = removeAt(remaining, remainingW, idx)
	}
	return out
}

func drawUniform(candidates []*types.Provider, n int) []*types.Provider {
	shuffled := append([]*types.Provider(nil), candidates...)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}

func removeAt(providers []*types.Provider, weights []int64, idx int) ([]*types.Provider, []int64) {
	providers = append(providers[:idx:idx], providers[idx+1:]...)
	weights = append(weights[:idx:idx], weights[idx+1:]...)
	return providers, weights
}

func sumInt64(xs []int64) int64 {
	var total int64
	for _, x := range xs {
		total += x
	}
	return total
}
