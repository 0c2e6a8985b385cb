// Copyright 2025 Reown RPC Proxy
//
// Package reconciler periodically sweeps the exchange reconciliation
// ledger and polls exchange adapters for buy-session outcomes.

package reconciler

import "errors"

var (
	ErrNilLedger   = errors.New("reconciler: ledger cannot be nil")
	ErrNilAdapters = errors.New("reconciler: adapter registry cannot be nil")
)
