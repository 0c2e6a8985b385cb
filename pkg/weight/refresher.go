// Copyright 2025 Reown RPC Proxy
//
// Refresher periodically recomputes the weight table from accumulated
// provider availability counters.

package weight

import (
	"context"
	"sync"
	"time"

	"github.com/reown-rpc-proxy/gateway/pkg/logging"
	"github.com/reown-rpc-proxy/gateway/pkg/metrics"
	"github.com/reown-rpc-proxy/gateway/pkg/types"
)

// Refresher owns the periodic recompute loop described in the selection
// policy: on each tick, read the accumulated (chain, kind) success/failure
// counts from the recorder and derive a new weight per pair.
type Refresher struct {
	mu sync.Mutex

	table    *Table
	recorder *metrics.Recorder
	interval time.Duration
	logger   *logging.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewRefresher returns a refresher bound to table and recorder, ticking
// every interval once started.
func NewRefresher(table *Table, recorder *metrics.Recorder, interval time.Duration) *Refresher {
	return &Refresher{
		table:    table,
		recorder: recorder,
		interval: interval,
		logger:   logging.New("WeightRefresher"),
	}
}

// Start begins the background refresh loop. Calling Start twice without an
// intervening Stop is a no-op.
func (r *Refresher) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.done = make(chan struct{})
	r.running = true

	r.logger.Infof("starting weight refresher (interval=%s)", r.interval)
	go r.loop()
}

// Stop halts the refresh loop and waits for it to exit.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	done := r.done
	r.running = false
	r.mu.Unlock()

	cancel()
	<-done
}

func (r *Refresher) loop() {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.refresh()
		}
	}
}

// refresh applies one recompute pass: every (chain, kind) pair observed
// since the last tick gets a freshly derived weight; pairs with zero
// observations this window keep their previous value, since DeriveWeight's
// optimistic default would otherwise ratchet a quiet-but-healthy provider
// back up to MaxWeight on every idle tick.
func (r *Refresher) refresh() {
	snapshot := r.recorder.Snapshot()

	for chain, perChain := range snapshot {
		var chainAvail types.Availability
		for _, avail := range perChain {
			chainAvail.Success += avail.Success
			chainAvail.Failure += avail.Failure
		}

		for kind, avail := range perChain {
			if avail.Total() == 0 {
				continue
			}
			w := types.DeriveWeight(avail, chainAvail)
			r.table.Update(chain, kind, w)
		}
	}
}
