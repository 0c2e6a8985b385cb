// Copyright 2025 Reown RPC Proxy
//
// Uses a live test database when RPC_PROXY_TEST_DATABASE_URL is set;
// skipped entirely otherwise.

package ledger

import (
	"context"
	"os"
	"testing"

	"github.com/reown-rpc-proxy/gateway/pkg/types"
)

var testStore *Store

func TestMain(m *testing.M) {
	uri := os.Getenv("RPC_PROXY_TEST_DATABASE_URL")
	if uri == "" {
		os.Exit(0)
	}

	var err error
	testStore, err = Open(Config{URI: uri, MaxConns: 5})
	if err != nil {
		panic("failed to connect to test ledger database: " + err.Error())
	}

	code := m.Run()
	testStore.Close()
	os.Exit(code)
}

func TestInsertNewRejectsDuplicate(t *testing.T) {
	if testStore == nil {
		t.Skip("test ledger database not configured")
	}
	ctx := context.Background()

	row := types.ExchangeTransaction{
		ID:         NewTransactionID(),
		ExchangeID: "test",
		ProjectID:  "proj-1",
		Asset:      "eip155:1/slip44:60",
		Amount:     "100",
		Recipient:  "0xabc",
		PayURL:     "https://example.invalid/buy/1",
	}

	if err := testStore.InsertNew(ctx, row); err != nil {
		t.Fatalf("InsertNew: %v", err)
	}
	if err := testStore.InsertNew(ctx, row); err != ErrAlreadyExists {
		t.Fatalf("expected ErrAlreadyExists on duplicate insert, got %v", err)
	}
}

func TestUpdateStatusMissingRow(t *testing.T) {
	if testStore == nil {
		t.Skip("test ledger database not configured")
	}
	ctx := context.Background()

	err := testStore.UpdateStatus(ctx, NewTransactionID(), types.StatusSucceeded, "0xhash", "")
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for missing row, got %v", err)
	}
}
