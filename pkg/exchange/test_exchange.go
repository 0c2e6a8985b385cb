// Copyright 2025 Reown RPC Proxy

package exchange

import (
	"context"
	"sync"

	"github.com/reown-rpc-proxy/gateway/pkg/types"
)

// TestExchange is an in-memory adapter for development and integration
// tests: it supports every asset and reports whatever status was set via
// SetStatus, defaulting to InProgress for unseen sessions.
type TestExchange struct {
	mu       sync.Mutex
	statuses map[string]types.BuyStatusResult
}

// NewTestExchange returns an empty TestExchange.
func NewTestExchange() *TestExchange {
	return &TestExchange{statuses: make(map[string]types.BuyStatusResult)}
}

func (t *TestExchange) ID() string   { return "test" }
func (t *TestExchange) Name() string { return "Test Exchange" }

func (t *TestExchange) IsAssetSupported(asset types.CAIP19Asset) bool { return true }

func (t *TestExchange) GetBuyURL(ctx context.Context, params BuyParams) (string, error) {
	return "https://example.invalid/test-buy/" + params.SessionID, nil
}

func (t *TestExchange) GetBuyStatus(ctx context.Context, params StatusParams) (types.BuyStatusResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if result, ok := t.statuses[params.SessionID]; ok {
		return result, nil
	}
	return types.BuyStatusResult{Status: types.BuyInProgress}, nil
}

// SetStatus lets tests script the status a given session will report next.
func (t *TestExchange) SetStatus(sessionID string, result types.BuyStatusResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statuses[sessionID] = result
}
