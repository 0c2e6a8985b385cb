// Copyright 2025 Reown RPC Proxy
//
// Package metrics exposes Prometheus counters for provider outcomes and
// doubles as the in-process feedback source the weight resolver reads from
// (no round-trip through the Prometheus query API).

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/reown-rpc-proxy/gateway/pkg/types"
)

// Outcome is the classification recorded for one upstream attempt.
type Outcome string

const (
	OutcomeOk          Outcome = "ok"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeNodeError   Outcome = "node_error"
	OutcomeClient      Outcome = "client"
	OutcomeTransport   Outcome = "transport"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpc_proxy_provider_requests_total",
			Help: "Total upstream attempts per provider/chain/outcome.",
		},
		[]string{"chain", "provider", "outcome"},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rpc_proxy_provider_request_duration_seconds",
			Help:    "Upstream attempt latency per provider/chain.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"chain", "provider"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration)
}

// Recorder accumulates per-(chain, kind) success/failure counts in process
// memory, read back by the weight resolver on each refresh tick, and
// mirrors the same observations into Prometheus counters for external
// dashboards.
type Recorder struct {
	mu      sync.Mutex
	byChain map[types.ChainId]map[types.ProviderKind]*types.Availability
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		byChain: make(map[types.ChainId]map[types.ProviderKind]*types.Availability),
	}
}

// Observe records the outcome of one upstream attempt.
func (r *Recorder) Observe(chain types.ChainId, kind types.ProviderKind, outcome Outcome, seconds float64) {
	requestsTotal.WithLabelValues(chain.String(), kind.String(), string(outcome)).Inc()
	requestDuration.WithLabelValues(chain.String(), kind.String()).Observe(seconds)

	r.mu.Lock()
	defer r.mu.Unlock()

	perChain, ok := r.byChain[chain]
	if !ok {
		perChain = make(map[types.ProviderKind]*types.Availability)
		r.byChain[chain] = perChain
	}
	avail, ok := perChain[kind]
	if !ok {
		avail = &types.Availability{}
		perChain[kind] = avail
	}
	if outcome == OutcomeOk {
		avail.Success++
	} else {
		avail.Failure++
	}
}

// Snapshot returns a copy of the accumulated counters and resets them to
// zero, so each refresh window reflects only the most recent interval
// rather than all-time history.
func (r *Recorder) Snapshot() map[types.ChainId]map[types.ProviderKind]types.Availability {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[types.ChainId]map[types.ProviderKind]types.Availability, len(r.byChain))
	for chain, perChain := range r.byChain {
		copied := make(map[types.ProviderKind]types.Availability, len(perChain))
		for kind, avail := range perChain {
			copied[kind] = *avail
			avail.Success = 0
			avail.Failure = 0
		}
		out[chain] = copied
	}
	return out
}
