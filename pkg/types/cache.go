// Copyright 2025 Reown RPC Proxy
//
// CachedMethod is the closed set of JSON-RPC methods the response cache
// is allowed to short-circuit without contacting an upstream provider.

package types

// CachedMethod names a method the local response cache can answer.
type CachedMethod string

const (
	// CachedEthChainID is the only method every deployment must support;
	// its answer is computed from the chain's CAIP-2 reference.
	CachedEthChainID CachedMethod = "eth_chainId"
)

// IsCacheable reports whether method is in the closed cacheable set.
func IsCacheable(method string) (CachedMethod, bool) {
	switch CachedMethod(method) {
	case CachedEthChainID:
		return CachedEthChainID, true
	default:
		return "", false
	}
}
