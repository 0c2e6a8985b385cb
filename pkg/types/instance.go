// Copyright 2025 Reown RPC Proxy
//
// Provider is one configured upstream RPC instance.

package types

import "net/http"

// Provider is one configured upstream. URLTemplate (and WSTemplate) may
// contain a "{TOKEN}" placeholder, which the proxy engine and the WS relay
// replace with Credential when they build the upstream URL.
type Provider struct {
	Kind        ProviderKind
	Supports    map[ChainId]struct{}
	SupportsWS  map[ChainId]struct{}
	URLTemplate string
	WSTemplate  string
	Credential  string
	Client      *http.Client
}

// SupportsChain reports whether p can serve HTTP JSON-RPC for chain.
func (p *Provider) SupportsChain(chain ChainId) bool {
	_, ok := p.Supports[chain]
	return ok
}

// SupportsChainWS reports whether p can serve WebSocket for chain.
func (p *Provider) SupportsChainWS(chain ChainId) bool {
	_, ok := p.SupportsWS[chain]
	return ok
}
