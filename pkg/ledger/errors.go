// Copyright 2025 Reown RPC Proxy
//
// Package ledger provides sentinel errors for exchange reconciliation
// ledger operations.

package ledger

import "errors"

var (
	// ErrAlreadyExists is returned by InsertNew when a row with the same id
	// is already present.
	ErrAlreadyExists = errors.New("ledger row already exists")

	// ErrNotFound is returned when a lookup by id matches no row.
	ErrNotFound = errors.New("ledger row not found")
)
