// Copyright 2025 Reown RPC Proxy

package reconciler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/reown-rpc-proxy/gateway/pkg/analytics"
	"github.com/reown-rpc-proxy/gateway/pkg/exchange"
	"github.com/reown-rpc-proxy/gateway/pkg/types"
)

var errRowNotFound = errors.New("reconciler test: row not found")

type nullWriter struct{}

func (nullWriter) WriteBatch(events []types.AnalyticsEvent) error { return nil }

type fakeLedger struct {
	mu       sync.Mutex
	rows     map[string]types.ExchangeTransaction
	touched  map[string]int
	expired  int
}

func newFakeLedger(rows ...types.ExchangeTransaction) *fakeLedger {
	l := &fakeLedger{rows: make(map[string]types.ExchangeTransaction), touched: make(map[string]int)}
	for _, r := range rows {
		l.rows[r.ID] = r
	}
	return l
}

func (l *fakeLedger) ClaimDueBatch(ctx context.Context, n int) ([]types.ExchangeTransaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]types.ExchangeTransaction, 0, len(l.rows))
	for _, r := range l.rows {
		if r.Status == types.StatusPending {
			out = append(out, r)
		}
		if len(out) >= n {
			break
		}
	}
	return out, nil
}

func (l *fakeLedger) UpdateStatus(ctx context.Context, id string, newStatus types.TransactionStatus, txHash, failureReason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	row, ok := l.rows[id]
	if !ok {
		return errRowNotFound
	}
	row.Status = newStatus
	row.TxHash = txHash
	row.FailureReason = failureReason
	l.rows[id] = row
	return nil
}

func (l *fakeLedger) TouchNonTerminal(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.touched[id]++
	return nil
}

func (l *fakeLedger) ExpireOldPending(ctx context.Context, maxAgeHours int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.expired++
	return 0, nil
}

func (l *fakeLedger) status(id string) types.TransactionStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rows[id].Status
}

func TestSchedulerCompletesSuccessfulRow(t *testing.T) {
	row := types.ExchangeTransaction{ID: "s1", ExchangeID: "test", Status: types.StatusPending}
	ledgerStore := newFakeLedger(row)

	testExchange := exchange.NewTestExchange()
	testExchange.SetStatus("s1", types.BuyStatusResult{Status: types.BuySuccess, TxHash: "0xabc"})
	adapters := exchange.NewRegistry(testExchange)

	sink := analytics.New(nullWriter{}, 10, 10, time.Hour)

	sched, err := New(ledgerStore, adapters, sink, Config{
		PollInterval:     time.Hour,
		ClaimBatchSize:   10,
		RatePerSecond:    1000,
		PerRowTimeout:    time.Second,
		ExpireAfterHours: 12,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sched.sweep(context.Background())

	if got := ledgerStore.status("s1"); got != types.StatusSucceeded {
		t.Fatalf("expected row succeeded, got %s", got)
	}
}

func TestSchedulerSkipsUnknownAdapter(t *testing.T) {
	row := types.ExchangeTransaction{ID: "s2", ExchangeID: "nonexistent", Status: types.StatusPending}
	ledgerStore := newFakeLedger(row)
	adapters := exchange.NewRegistry(exchange.NewTestExchange())
	sink := analytics.New(nullWriter{}, 10, 10, time.Hour)

	sched, err := New(ledgerStore, adapters, sink, Config{
		ClaimBatchSize: 10,
		RatePerSecond:  1000,
		PerRowTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sched.sweep(context.Background())

	if got := ledgerStore.status("s2"); got != types.StatusPending {
		t.Fatalf("expected row left pending, got %s", got)
	}
	if ledgerStore.touched["s2"] != 0 {
		t.Fatalf("unknown adapter should not touch the row, it should be retried next sweep untouched")
	}
}

func TestSchedulerTouchesInProgressRow(t *testing.T) {
	row := types.ExchangeTransaction{ID: "s3", ExchangeID: "test", Status: types.StatusPending}
	ledgerStore := newFakeLedger(row)
	adapters := exchange.NewRegistry(exchange.NewTestExchange())
	sink := analytics.New(nullWriter{}, 10, 10, time.Hour)

	sched, err := New(ledgerStore, adapters, sink, Config{
		ClaimBatchSize: 10,
		RatePerSecond:  1000,
		PerRowTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sched.sweep(context.Background())

	if ledgerStore.touched["s3"] != 1 {
		t.Fatalf("expected in-progress row to be touched once, got %d", ledgerStore.touched["s3"])
	}
	if ledgerStore.expired != 1 {
		t.Fatalf("expected expire to run once per sweep")
	}
}

func TestSchedulerRejectsNilDependencies(t *testing.T) {
	if _, err := New(nil, exchange.NewRegistry(), nil, DefaultConfig()); err != ErrNilLedger {
		t.Fatalf("expected ErrNilLedger, got %v", err)
	}
	if _, err := New(newFakeLedger(), nil, nil, DefaultConfig()); err != ErrNilAdapters {
		t.Fatalf("expected ErrNilAdapters, got %v", err)
	}
}

func TestSchedulerStartStop(t *testing.T) {
	ledgerStore := newFakeLedger()
	adapters := exchange.NewRegistry(exchange.NewTestExchange())
	sink := analytics.New(nullWriter{}, 10, 10, time.Hour)

	sched, err := New(ledgerStore, adapters, sink, Config{PollInterval: time.Minute, ClaimBatchSize: 10, RatePerSecond: 1, PerRowTimeout: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sched.Start()
	sched.Stop()
}
