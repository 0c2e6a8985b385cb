// Copyright 2025 Reown RPC Proxy
//
// Package analytics is an append-only, non-blocking event queue: the
// request path and the reconciler push records and return immediately; a
// dedicated writer goroutine drains the queue and flushes to a collaborator
// (e.g. a Parquet writer). Overflow drops the newest record and increments
// a counter rather than ever blocking a caller.

package analytics

import (
	"sync/atomic"
	"time"

	"github.com/reown-rpc-proxy/gateway/pkg/logging"
	"github.com/reown-rpc-proxy/gateway/pkg/types"
)

// Writer is the collaborator that durably persists flushed events (e.g. a
// Parquet file writer, a remote ingestion endpoint).
type Writer interface {
	WriteBatch(events []types.AnalyticsEvent) error
}

// Sink is the append-only queue the request path and reconciler push onto.
type Sink struct {
	queue   chan types.AnalyticsEvent
	writer  Writer
	dropped atomic.Uint64
	logger  *logging.Logger

	flushEvery int
	flushAfter time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// New returns a sink with capacity queueSize, flushing to writer every
// flushEvery events or flushAfter elapsed, whichever comes first.
func New(writer Writer, queueSize, flushEvery int, flushAfter time.Duration) *Sink {
	if flushEvery <= 0 {
		flushEvery = 200
	}
	if flushAfter <= 0 {
		flushAfter = 5 * time.Second
	}
	return &Sink{
		queue:      make(chan types.AnalyticsEvent, queueSize),
		writer:     writer,
		logger:     logging.New("Analytics"),
		flushEvery: flushEvery,
		flushAfter: flushAfter,
	}
}

// Push enqueues event without blocking. On a full queue the event is
// dropped and the drop counter is incremented; analytics must never slow
// down request serving.
func (s *Sink) Push(event types.AnalyticsEvent) {
	select {
	case s.queue <- event:
	default:
		s.dropped.Add(1)
	}
}

// Dropped returns the number of events dropped for overflow since startup.
func (s *Sink) Dropped() uint64 {
	return s.dropped.Load()
}

// Start begins the background flush loop.
func (s *Sink) Start() {
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.run()
}

// Stop halts the flush loop after draining and flushing whatever remains
// in the queue.
func (s *Sink) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

func (s *Sink) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.flushAfter)
	defer ticker.Stop()

	batch := make([]types.AnalyticsEvent, 0, s.flushEvery)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.writer.WriteBatch(batch); err != nil {
			s.logger.Errorf("flush failed, %d events lost: %v", len(batch), err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-s.stopCh:
			s.drainRemaining(&batch)
			flush()
			return
		case event := <-s.queue:
			batch = append(batch, event)
			if len(batch) >= s.flushEvery {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (s *Sink) drainRemaining(batch *[]types.AnalyticsEvent) {
	for {
		select {
		case event := <-s.queue:
			*batch = append(*batch, event)
		default:
			return
		}
	}
}
