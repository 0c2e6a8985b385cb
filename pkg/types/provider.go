// Copyright 2025 Reown RPC Proxy
//
// ProviderKind identifies an upstream RPC vendor.

package types

import (
	"crypto/sha256"
	"encoding/hex"
)

// ProviderKind is a closed tag identifying a vendor, with an open
// Generic(id) hatch for ad-hoc upstreams described only by URL.
// Equality is a plain struct comparison: two kinds are equal iff both
// the tag and the generic id match.
type ProviderKind struct {
	tag       string
	genericID string
}

var (
	Infura    = ProviderKind{tag: "infura"}
	Pokt      = ProviderKind{tag: "pokt"}
	Quicknode = ProviderKind{tag: "quicknode"}
	Allnodes  = ProviderKind{tag: "allnodes"}
	Getblock  = ProviderKind{tag: "getblock"}
	Publicnode = ProviderKind{tag: "publicnode"}
	Drpc      = ProviderKind{tag: "drpc"}
	Lava      = ProviderKind{tag: "lava"}
	Tenderly  = ProviderKind{tag: "tenderly"}
	Zan       = ProviderKind{tag: "zan"}
)

// NewGenericProviderKind builds a Generic(id) kind whose id is derived
// deterministically from the chain and URL it was configured for, so the
// same (chain, url) pair always maps to the same kind across restarts.
func NewGenericProviderKind(caip2, url string) ProviderKind {
	sum := sha256.Sum256([]byte(caip2 + "|" + url))
	return ProviderKind{tag: "generic", genericID: hex.EncodeToString(sum[:])[:16]}
}

// String returns a stable textual form suitable for logging and metric
// labels: the tag, or "generic:<id>" for the open variant.
func (k ProviderKind) String() string {
	if k.tag == "generic" {
		return "generic:" + k.genericID
	}
	return k.tag
}

// IsGeneric reports whether k was produced by NewGenericProviderKind.
func (k ProviderKind) IsGeneric() bool {
	return k.tag == "generic"
}
