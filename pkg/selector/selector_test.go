// Copyright 2025 Reown RPC Proxy

package selector

import (
	"testing"

	"github.com/reown-rpc-proxy/gateway/pkg/registry"
	"github.com/reown-rpc-proxy/gateway/pkg/types"
	"github.com/reown-rpc-proxy/gateway/pkg/weight"
)

func buildTestRegistry(t *testing.T, chain types.ChainId, kinds ...types.ProviderKind) *registry.Registry {
	t.Helper()
	reg := registry.New()
	for _, kind := range kinds {
		p := &types.Provider{
			Kind:        kind,
			Supports:    map[types.ChainId]struct{}{chain: {}},
			URLTemplate: "https://example.invalid/" + kind.String(),
		}
		if err := reg.Register(p); err != nil {
			t.Fatalf("register %s: %v", kind, err)
		}
	}
	reg.Freeze()
	return reg
}

func TestPickNoDuplicates(t *testing.T) {
	chain := types.ChainId{Namespace: "eip155", Reference: "1"}
	reg := buildTestRegistry(t, chain, types.Infura, types.Pokt, types.Quicknode, types.Allnodes)

	table := weight.NewTable(map[types.ChainId][]types.ProviderKind{
		chain: {types.Infura, types.Pokt, types.Quicknode, types.Allnodes},
	})

	s := New(reg, table, 3)
	for i := 0; i < 50; i++ {
		picks := s.Pick(chain, nil)
		if len(picks) != 3 {
			t.Fatalf("expected 3 candidates, got %d", len(picks))
		}
		seen := make(map[types.ProviderKind]struct{})
		for _, p := range picks {
			if _, dup := seen[p.Kind]; dup {
				t.Fatalf("duplicate provider %s in draw", p.Kind)
			}
			seen[p.Kind] = struct{}{}
		}
	}
}

func TestPickRespectsExcluded(t *testing.T) {
	chain := types.ChainId{Namespace: "eip155", Reference: "1"}
	reg := buildTestRegistry(t, chain, types.Infura, types.Pokt)

	table := weight.NewTable(map[types.ChainId][]types.ProviderKind{
		chain: {types.Infura, types.Pokt},
	})

	s := New(reg, table, 3)
	excluded := map[types.ProviderKind]struct{}{types.Infura: {}}
	picks := s.Pick(chain, excluded)
	if len(picks) != 1 || picks[0].Kind != types.Pokt {
		t.Fatalf("expected only Pokt, got %v", picks)
	}
}

func TestPickUnsupportedChainReturnsEmpty(t *testing.T) {
	chain := types.ChainId{Namespace: "eip155", Reference: "1"}
	other := types.ChainId{Namespace: "eip155", Reference: "137"}
	reg := buildTestRegistry(t, chain, types.Infura)

	table := weight.NewTable(map[types.ChainId][]types.ProviderKind{
		chain: {types.Infura},
	})

	s := New(reg, table, 3)
	if picks := s.Pick(other, nil); len(picks) != 0 {
		t.Fatalf("expected no candidates for unsupported chain, got %v", picks)
	}
}

func TestPickZeroWeightFallsBackToUniform(t *testing.T) {
	chain := types.ChainId{Namespace: "eip155", Reference: "1"}
	reg := buildTestRegistry(t, chain, types.Infura, types.Pokt)

	table := weight.NewTable(map[types.ChainId][]types.ProviderKind{
		chain: {types.Infura, types.Pokt},
	})
	table.Update(chain, types.Infura, types.MinWeight)
	table.Update(chain, types.Pokt, types.MinWeight)

	s := New(reg, table, 3)
	picks := s.Pick(chain, nil)
	if len(picks) != 2 {
		t.Fatalf("expected 2 candidates with zero total weight, got %d", len(picks))
	}
}
