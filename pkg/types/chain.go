// Copyright 2025 Reown RPC Proxy
//
// ChainId is a CAIP-2 chain identifier (namespace:reference).

package types

import (
	"fmt"
	"strings"
)

// ChainId is a parsed CAIP-2 identifier, e.g. "eip155:1" or "solana:5eykt...".
type ChainId struct {
	Namespace string
	Reference string
}

// String reconstructs the canonical "namespace:reference" form.
func (c ChainId) String() string {
	return c.Namespace + ":" + c.Reference
}

// ParseChainId parses a CAIP-2 string. It fails for anything that is not
// exactly two non-empty colon-separated segments.
func ParseChainId(raw string) (ChainId, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ChainId{}, fmt.Errorf("invalid CAIP-2 chain id %q", raw)
	}
	if strings.Contains(parts[1], ":") {
		return ChainId{}, fmt.Errorf("invalid CAIP-2 chain id %q", raw)
	}
	return ChainId{Namespace: parts[0], Reference: parts[1]}, nil
}

// IsEIP155 reports whether the chain's namespace is the EVM "eip155" family.
func (c ChainId) IsEIP155() bool {
	return c.Namespace == "eip155"
}

// CAIP19Asset is a parsed CAIP-19 asset identifier layered on a CAIP-2
// chain: "<chain>/<assetNamespace>:<assetReference>".
type CAIP19Asset struct {
	Chain           ChainId
	AssetNamespace  string
	AssetReference  string
}

// String reconstructs the canonical CAIP-19 form.
func (a CAIP19Asset) String() string {
	return a.Chain.String() + "/" + a.AssetNamespace + ":" + a.AssetReference
}

// ParseCAIP19Asset parses "namespace:reference/assetNamespace:assetReference".
func ParseCAIP19Asset(raw string) (CAIP19Asset, error) {
	chainPart, assetPart, ok := strings.Cut(raw, "/")
	if !ok {
		return CAIP19Asset{}, fmt.Errorf("invalid CAIP-19 asset %q", raw)
	}
	chain, err := ParseChainId(chainPart)
	if err != nil {
		return CAIP19Asset{}, fmt.Errorf("invalid CAIP-19 asset %q: %w", raw, err)
	}
	ns, ref, ok := strings.Cut(assetPart, ":")
	if !ok || ns == "" || ref == "" {
		return CAIP19Asset{}, fmt.Errorf("invalid CAIP-19 asset %q", raw)
	}
	return CAIP19Asset{Chain: chain, AssetNamespace: ns, AssetReference: ref}, nil
}
