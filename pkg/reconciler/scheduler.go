// Copyright 2025 Reown RPC Proxy
//
// Scheduler runs the single long-lived reconciliation loop: on each tick it
// claims a batch of due ledger rows, polls each row's exchange adapter at a
// bounded rate, and sweeps rows that have been pending too long.

package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/reown-rpc-proxy/gateway/pkg/analytics"
	"github.com/reown-rpc-proxy/gateway/pkg/exchange"
	"github.com/reown-rpc-proxy/gateway/pkg/logging"
	"github.com/reown-rpc-proxy/gateway/pkg/types"
)

// Ledger is the subset of ledger.Store the scheduler depends on.
type Ledger interface {
	ClaimDueBatch(ctx context.Context, n int) ([]types.ExchangeTransaction, error)
	UpdateStatus(ctx context.Context, id string, newStatus types.TransactionStatus, txHash, failureReason string) error
	TouchNonTerminal(ctx context.Context, id string) error
	ExpireOldPending(ctx context.Context, maxAgeHours int) (int, error)
}

// Config configures scheduler timing.
type Config struct {
	PollInterval     time.Duration
	ClaimBatchSize   int
	RatePerSecond    float64
	PerRowTimeout    time.Duration
	ExpireAfterHours int
}

// DefaultConfig returns the documented defaults: 10 minute poll interval,
// batches of 200 rows, 5 rows/second, and a 12 hour pending expiry.
func DefaultConfig() Config {
	return Config{
		PollInterval:     10 * time.Minute,
		ClaimBatchSize:   200,
		RatePerSecond:    5,
		PerRowTimeout:    15 * time.Second,
		ExpireAfterHours: 12,
	}
}

// Scheduler owns the reconciliation loop.
type Scheduler struct {
	mu sync.Mutex

	ledger   Ledger
	adapters *exchange.Registry
	sink     *analytics.Sink
	cfg      Config
	logger   *logging.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	doneCh  chan struct{}
	running bool
}

// New returns a scheduler bound to ledgerStore and adapters.
func New(ledgerStore Ledger, adapters *exchange.Registry, sink *analytics.Sink, cfg Config) (*Scheduler, error) {
	if ledgerStore == nil {
		return nil, ErrNilLedger
	}
	if adapters == nil {
		return nil, ErrNilAdapters
	}
	return &Scheduler{
		ledger:   ledgerStore,
		adapters: adapters,
		sink:     sink,
		cfg:      cfg,
		logger:   logging.New("Reconciler"),
	}, nil
}

// Start begins the reconciliation loop. Calling Start twice without an
// intervening Stop is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.doneCh = make(chan struct{})
	s.running = true

	s.logger.Infof("starting reconciler (poll_interval=%s, batch_size=%d)", s.cfg.PollInterval, s.cfg.ClaimBatchSize)
	go s.run()
}

// Stop cancels the loop and waits for the in-flight row to finish, so no
// row is ever left locked past its horizon.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	done := s.doneCh
	s.running = false
	s.mu.Unlock()

	cancel()
	<-done
}

func (s *Scheduler) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.sweep(s.ctx)
		}
	}
}

// sweep performs one full pass: claim, process at a bounded rate, expire.
func (s *Scheduler) sweep(ctx context.Context) {
	rows, err := s.ledger.ClaimDueBatch(ctx, s.cfg.ClaimBatchSize)
	if err != nil {
		s.logger.Errorf("claim due batch: %v", err)
		return
	}
	if len(rows) > 0 {
		s.logger.Infof("claimed %d rows for reconciliation", len(rows))
	}

	interval := time.Second
	if s.cfg.RatePerSecond > 0 {
		interval = time.Duration(float64(time.Second) / s.cfg.RatePerSecond)
	}

	for _, row := range rows {
		s.processRow(row)

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}

	expired, err := s.ledger.ExpireOldPending(ctx, s.cfg.ExpireAfterHours)
	if err != nil {
		s.logger.Errorf("expire old pending: %v", err)
		return
	}
	if expired > 0 {
		s.logger.Infof("expired %d stale pending rows", expired)
	}
}

// processRow runs entirely on a context derived from context.Background(),
// never from the loop's cancellation context: once a row is claimed it
// must run to completion (bounded by PerRowTimeout) even if Stop() is
// called mid-row, so the row is never left locked past its horizon.
func (s *Scheduler) processRow(row types.ExchangeTransaction) {
	rowCtx, cancel := context.WithTimeout(context.Background(), s.cfg.PerRowTimeout)
	defer cancel()

	adapter, ok := s.adapters.Get(row.ExchangeID)
	if !ok {
		s.logger.Warnf("no adapter registered for exchange_id=%s, row=%s left pending", row.ExchangeID, row.ID)
		return
	}

	result, err := adapter.GetBuyStatus(rowCtx, exchange.StatusParams{SessionID: row.ID})
	if err != nil {
		s.logger.Warnf("get buy status failed for row=%s: %v", row.ID, err)
		s.touch(rowCtx, row.ID)
		return
	}

	switch result.Status {
	case types.BuySuccess:
		if err := s.ledger.UpdateStatus(rowCtx, row.ID, types.StatusSucceeded, result.TxHash, ""); err != nil {
			s.logger.Errorf("update status succeeded for row=%s: %v", row.ID, err)
			return
		}
		s.emit(row, "completed")
	case types.BuyFailed:
		if err := s.ledger.UpdateStatus(rowCtx, row.ID, types.StatusFailed, result.TxHash, "provider_failed"); err != nil {
			s.logger.Errorf("update status failed for row=%s: %v", row.ID, err)
			return
		}
		s.emit(row, "failed")
	default:
		s.touch(rowCtx, row.ID)
	}
}

func (s *Scheduler) touch(ctx context.Context, id string) {
	if err := s.ledger.TouchNonTerminal(ctx, id); err != nil {
		s.logger.Errorf("touch non-terminal row=%s: %v", id, err)
	}
}

func (s *Scheduler) emit(row types.ExchangeTransaction, outcome string) {
	if s.sink == nil {
		return
	}
	s.sink.Push(types.NewExchangeReconcileEvent(time.Now(), row.ID, row.ExchangeID, outcome))
}
