// Copyright 2025 Reown RPC Proxy
//
// build.go constructs a Registry from a static provider catalog, the way
// the composition root wires configuration into the request path.

package registry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/reown-rpc-proxy/gateway/pkg/config"
	"github.com/reown-rpc-proxy/gateway/pkg/types"
)

var namedKinds = map[string]types.ProviderKind{
	"infura":     types.Infura,
	"pokt":       types.Pokt,
	"quicknode":  types.Quicknode,
	"allnodes":   types.Allnodes,
	"getblock":   types.Getblock,
	"publicnode": types.Publicnode,
	"drpc":       types.Drpc,
	"lava":       types.Lava,
	"tenderly":   types.Tenderly,
	"zan":        types.Zan,
}

// BuildFromCatalog constructs a frozen Registry from a parsed provider
// catalog. Each entry's "kind" resolves to one of the well-known
// ProviderKind values, or a deterministic Generic kind derived from its
// kind name and URL template when the name isn't recognized.
func BuildFromCatalog(catalog *config.ProviderCatalog) (*Registry, error) {
	reg := New()

	for i, entry := range catalog.Providers {
		kind, ok := namedKinds[entry.Kind]
		if !ok {
			kind = types.NewGenericProviderKind(entry.Kind, entry.URLTemplate)
		}

		supports := make(map[types.ChainId]struct{}, len(entry.Supports))
		for _, raw := range entry.Supports {
			chain, err := types.ParseChainId(raw)
			if err != nil {
				return nil, fmt.Errorf("providers[%d]: %w", i, err)
			}
			supports[chain] = struct{}{}
		}

		supportsWS := make(map[types.ChainId]struct{}, len(entry.SupportsWS))
		for _, raw := range entry.SupportsWS {
			chain, err := types.ParseChainId(raw)
			if err != nil {
				return nil, fmt.Errorf("providers[%d]: %w", i, err)
			}
			supportsWS[chain] = struct{}{}
		}

		provider := &types.Provider{
			Kind:        kind,
			Supports:    supports,
			SupportsWS:  supportsWS,
			URLTemplate: entry.URLTemplate,
			WSTemplate:  entry.WSTemplate,
			Credential:  entry.Credential,
			Client:      &http.Client{Timeout: 30 * time.Second},
		}

		if err := reg.Register(provider); err != nil {
			return nil, fmt.Errorf("providers[%d]: %w", i, err)
		}
	}

	reg.Freeze()
	return reg, nil
}

// ChainSupportMap returns the chain → kinds index the weight table is
// seeded from, for both HTTP and WS candidates combined (a cell is
// harmless if only one direction ever reads it).
func ChainSupportMap(reg *Registry) map[types.ChainId][]types.ProviderKind {
	out := make(map[types.ChainId][]types.ProviderKind)
	for _, p := range reg.AllProviders() {
		for chain := range p.Supports {
			out[chain] = append(out[chain], p.Kind)
		}
		for chain := range p.SupportsWS {
			if _, exists := out[chain]; !exists {
				out[chain] = nil
			}
			found := false
			for _, k := range out[chain] {
				if k == p.Kind {
					found = true
					break
				}
			}
			if !found {
				out[chain] = append(out[chain], p.Kind)
			}
		}
	}
	return out
}
