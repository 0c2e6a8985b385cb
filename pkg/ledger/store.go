// Copyright 2025 Reown RPC Proxy
//
// Package ledger is the PostgreSQL-backed exchange reconciliation ledger:
// connection pooling, CRUD on individual rows, and the crash-safe
// claim-batch query the reconciler loop uses to pick up pending work.

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/reown-rpc-proxy/gateway/pkg/logging"
	"github.com/reown-rpc-proxy/gateway/pkg/types"
)

// uniqueViolationCode is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolationCode = "23505"

// Store wraps a pooled PostgreSQL connection and the ledger CRUD/claim
// operations.
type Store struct {
	db     *sql.DB
	logger *logging.Logger
}

// Config configures connection pooling for Open.
type Config struct {
	URI           string
	MaxConns      int
	QueryTimeout  time.Duration
}

// Open connects to PostgreSQL and configures the pool per cfg.
func Open(cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("ledger: postgres URI cannot be empty")
	}

	db, err := sql.Open("postgres", cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to open database: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 10
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: failed to ping database: %w", err)
	}

	logger := logging.New("Ledger")
	logger.Infof("connected to postgres ledger (max_conns=%d)", maxConns)

	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertNew inserts row, failing with ErrAlreadyExists if its id is
// already present.
func (s *Store) InsertNew(ctx context.Context, row types.ExchangeTransaction) error {
	const query = `
		INSERT INTO exchange_reconciliation_ledger (
			id, exchange_id, project_id, asset, amount, recipient, pay_url,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())`

	_, err := s.db.ExecContext(ctx, query,
		row.ID, row.ExchangeID, row.ProjectID, row.Asset, row.Amount,
		row.Recipient, row.PayURL, types.StatusPending,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("ledger: insert new row %s: %w", row.ID, err)
	}
	return nil
}

// UpdateStatus transitions row id to newStatus, recording txHash and
// failureReason when present. completed_at is stamped only when newStatus
// is terminal; locked_at is cleared either way so a retried claim doesn't
// leave the row stranded.
func (s *Store) UpdateStatus(ctx context.Context, id string, newStatus types.TransactionStatus, txHash, failureReason string) error {
	const query = `
		UPDATE exchange_reconciliation_ledger
		SET status = $2,
		    tx_hash = NULLIF($3, ''),
		    failure_reason = NULLIF($4, ''),
		    updated_at = NOW(),
		    completed_at = CASE WHEN $5 THEN NOW() ELSE completed_at END,
		    locked_at = NULL
		WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, id, newStatus, txHash, failureReason, newStatus.IsTerminal())
	if err != nil {
		return fmt.Errorf("ledger: update status for %s: %w", id, err)
	}
	return rowsAffectedOrNotFound(result)
}

// TouchNonTerminal refreshes last_checked_at/updated_at and clears
// locked_at without changing status, making the row eligible for claim
// again once the re-check horizon passes.
func (s *Store) TouchNonTerminal(ctx context.Context, id string) error {
	const query = `
		UPDATE exchange_reconciliation_ledger
		SET last_checked_at = NOW(), updated_at = NOW(), locked_at = NULL
		WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("ledger: touch non-terminal %s: %w", id, err)
	}
	return rowsAffectedOrNotFound(result)
}

// ClaimDueBatch atomically claims up to n pending rows that are due for a
// reconciliation check, in a single statement, so two concurrent workers
// (even across process restarts) never claim the same row: FOR UPDATE SKIP
// LOCKED skips rows a concurrent transaction holds, and the locked_at horizon
// reclaims rows whose worker crashed mid-claim.
func (s *Store) ClaimDueBatch(ctx context.Context, n int) ([]types.ExchangeTransaction, error) {
	const query = `
		WITH candidates AS (
			SELECT id FROM exchange_reconciliation_ledger
			WHERE status = 'pending'
			  AND (locked_at IS NULL OR locked_at < NOW() - INTERVAL '15 min')
			  AND (last_checked_at IS NULL OR last_checked_at < NOW() - INTERVAL '5 min')
			  AND created_at < NOW() - INTERVAL '3 hours'
			ORDER BY last_checked_at NULLS FIRST, created_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		), claimed AS (
			UPDATE exchange_reconciliation_ledger SET locked_at = NOW(), updated_at = NOW()
			WHERE id IN (SELECT id FROM candidates) RETURNING *
		) SELECT id, exchange_id, project_id, asset, amount, recipient, pay_url,
		         status, COALESCE(failure_reason, ''), COALESCE(tx_hash, ''),
		         created_at, updated_at, last_checked_at, completed_at, locked_at
		  FROM claimed`

	rows, err := s.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("ledger: claim due batch: %w", err)
	}
	defer rows.Close()

	var out []types.ExchangeTransaction
	for rows.Next() {
		var row types.ExchangeTransaction
		if err := rows.Scan(
			&row.ID, &row.ExchangeID, &row.ProjectID, &row.Asset, &row.Amount,
			&row.Recipient, &row.PayURL, &row.Status, &row.FailureReason, &row.TxHash,
			&row.CreatedAt, &row.UpdatedAt, &row.LastCheckedAt, &row.CompletedAt, &row.LockedAt,
		); err != nil {
			return nil, fmt.Errorf("ledger: scan claimed row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ExpireOldPending moves rows older than maxAgeHours to failed with reason
// "expired", unless a lock was acquired in the last 20 minutes (a worker
// may genuinely still be processing it). Returns the number of rows moved.
func (s *Store) ExpireOldPending(ctx context.Context, maxAgeHours int) (int, error) {
	const query = `
		UPDATE exchange_reconciliation_ledger
		SET status = 'failed', failure_reason = 'expired', updated_at = NOW(),
		    completed_at = NOW(), locked_at = NULL
		WHERE status = 'pending'
		  AND created_at < NOW() - ($1 || ' hours')::interval
		  AND (locked_at IS NULL OR locked_at < NOW() - INTERVAL '20 min')`

	result, err := s.db.ExecContext(ctx, query, maxAgeHours)
	if err != nil {
		return 0, fmt.Errorf("ledger: expire old pending: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("ledger: expire old pending rows affected: %w", err)
	}
	return int(affected), nil
}

// NewTransactionID generates a fresh random ledger row id.
func NewTransactionID() string {
	return uuid.NewString()
}

func rowsAffectedOrNotFound(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ledger: rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode
}
