// Copyright 2025 Reown RPC Proxy

package analytics

import (
	"sync"
	"testing"
	"time"

	"github.com/reown-rpc-proxy/gateway/pkg/types"
)

type captureWriter struct {
	mu     sync.Mutex
	events []types.AnalyticsEvent
}

func (c *captureWriter) WriteBatch(events []types.AnalyticsEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, events...)
	return nil
}

func (c *captureWriter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestSinkFlushesOnTimer(t *testing.T) {
	w := &captureWriter{}
	s := New(w, 100, 1000, 20*time.Millisecond)
	s.Start()
	defer s.Stop()

	s.Push(types.NewRpcRequestEvent(time.Unix(0, 0), "p1", "eip155:1", "infura", "eth_blockNumber", false, types.Ok, 1, 10))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if w.count() == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected 1 flushed event, got %d", w.count())
}

func TestSinkDropsOnOverflow(t *testing.T) {
	w := &captureWriter{}
	s := New(w, 1, 1000, time.Hour)

	s.Push(types.NewRpcRequestEvent(time.Unix(0, 0), "p1", "eip155:1", "infura", "m", false, types.Ok, 1, 1))
	s.Push(types.NewRpcRequestEvent(time.Unix(0, 0), "p1", "eip155:1", "infura", "m", false, types.Ok, 1, 1))
	s.Push(types.NewRpcRequestEvent(time.Unix(0, 0), "p1", "eip155:1", "infura", "m", false, types.Ok, 1, 1))

	if s.Dropped() == 0 {
		t.Fatalf("expected at least one dropped event past queue capacity")
	}
}

func TestSinkStopFlushesRemaining(t *testing.T) {
	w := &captureWriter{}
	s := New(w, 100, 1000, time.Hour)
	s.Start()

	s.Push(types.NewRpcRequestEvent(time.Unix(0, 0), "p1", "eip155:1", "infura", "m", false, types.Ok, 1, 1))
	s.Stop()

	if w.count() != 1 {
		t.Fatalf("expected Stop to flush remaining event, got %d", w.count())
	}
}
