// Copyright 2025 Reown RPC Proxy
//
// Package cache answers a closed set of JSON-RPC methods locally, without
// contacting an upstream provider.

package cache

import (
	"encoding/json"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/reown-rpc-proxy/gateway/pkg/types"
)

// Lookup answers method for chain if it is cacheable, returning the
// JSON-RPC response to send verbatim and true. A false second return means
// the caller must fall through to the selector/proxy path.
func Lookup(chain types.ChainId, req types.JsonRpcRequest) (types.JsonRpcResponse, bool) {
	cached, ok := types.IsCacheable(req.Method)
	if !ok {
		return types.JsonRpcResponse{}, false
	}

	switch cached {
	case types.CachedEthChainID:
		return ethChainID(chain, req.ID)
	default:
		return types.JsonRpcResponse{}, false
	}
}

// ethChainID answers eth_chainId for an EIP-155 chain by parsing the CAIP-2
// reference as a decimal chain id and formatting it as 0x-prefixed hex, the
// same encoding go-ethereum clients expect on the wire.
func ethChainID(chain types.ChainId, id json.RawMessage) (types.JsonRpcResponse, bool) {
	if !chain.IsEIP155() {
		return types.JsonRpcResponse{}, false
	}

	n, err := strconv.ParseUint(chain.Reference, 10, 64)
	if err != nil {
		return types.JsonRpcResponse{}, false
	}

	result, err := json.Marshal(hexutil.Uint64(n))
	if err != nil {
		return types.JsonRpcResponse{}, false
	}

	return types.JsonRpcResponse{
		JsonRPC: "2.0",
		ID:      id,
		Result:  result,
	}, true
}
