// Copyright 2025 Reown RPC Proxy
//
// Package proxy implements the request path: cache short-circuit, quota
// gate, weighted provider selection, and failover across candidates for
// one inbound JSON-RPC call.

package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/reown-rpc-proxy/gateway/pkg/analytics"
	"github.com/reown-rpc-proxy/gateway/pkg/cache"
	"github.com/reown-rpc-proxy/gateway/pkg/gatewayerr"
	"github.com/reown-rpc-proxy/gateway/pkg/logging"
	"github.com/reown-rpc-proxy/gateway/pkg/metrics"
	"github.com/reown-rpc-proxy/gateway/pkg/quota"
	"github.com/reown-rpc-proxy/gateway/pkg/registry"
	"github.com/reown-rpc-proxy/gateway/pkg/selector"
	"github.com/reown-rpc-proxy/gateway/pkg/types"
)

// Response is what Proxy returns to the HTTP handler: a body and status
// code ready to write back to the caller verbatim.
type Response struct {
	StatusCode int
	Body       []byte
}

// Engine implements the cache → quota → select → failover request path.
type Engine struct {
	registry  *registry.Registry
	selector  *selector.Selector
	quota     *quota.Gate
	recorder  *metrics.Recorder
	sink      *analytics.Sink
	logger    *logging.Logger

	perAttemptTimeout time.Duration
	maxBodyBytes      int64
}

// Config configures an Engine's per-attempt bounds.
type Config struct {
	PerAttemptTimeout time.Duration
	MaxBodyBytes      int64
}

// New returns an Engine wired to its collaborators.
func New(reg *registry.Registry, sel *selector.Selector, gate *quota.Gate, recorder *metrics.Recorder, sink *analytics.Sink, cfg Config) *Engine {
	if cfg.PerAttemptTimeout <= 0 {
		cfg.PerAttemptTimeout = 10 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 10 * 1024 * 1024
	}
	return &Engine{
		registry:          reg,
		selector:          sel,
		quota:             gate,
		recorder:          recorder,
		sink:              sink,
		logger:            logging.New("ProxyEngine"),
		perAttemptTimeout: cfg.PerAttemptTimeout,
		maxBodyBytes:      cfg.MaxBodyBytes,
	}
}

// Proxy serves one inbound JSON-RPC call for chain on behalf of projectID.
func (e *Engine) Proxy(ctx context.Context, chain types.ChainId, projectID string, body []byte) (Response, error) {
	if resp, ok := e.tryCache(chain, body); ok {
		e.emitRequest(projectID, chain, "cache", "", true, types.Ok, 1, 0)
		return resp, nil
	}

	if !e.registry.SupportsChain(chain) {
		return Response{}, gatewayerr.ErrChainNotConfigured
	}

	if err := e.quota.Check(projectID); err != nil {
		return Response{}, err
	}

	candidates := e.selector.Pick(chain, nil)
	if len(candidates) == 0 {
		return Response{}, gatewayerr.ErrChainNotConfigured
	}

	// The whole request, across every failover attempt, is bounded by
	// candidates × PerAttemptTimeout so a caller never waits longer than
	// the documented worst case.
	requestCtx, cancel := context.WithTimeout(ctx, time.Duration(len(candidates))*e.perAttemptTimeout)
	defer cancel()

	method := requestMethod(body)

	var lastBody []byte

	for attempt, provider := range candidates {
		if requestCtx.Err() != nil {
			break
		}

		start := time.Now()
		status, respBody, err := e.attempt(requestCtx, provider, body)
		elapsed := time.Since(start)

		classification := classify(status, respBody, err)
		e.recorder.Observe(chain, provider.Kind, outcomeFor(classification), elapsed.Seconds())
		e.emitRequest(projectID, chain, method, provider.Kind.String(), false, classification, attempt+1, elapsed.Milliseconds())

		if err == nil {
			lastBody = respBody
		}

		if !classification.Retryable() {
			return Response{StatusCode: status, Body: respBody}, nil
		}

		e.logger.Warnf("provider %s classified %s for chain %s, failing over", provider.Kind, classification, chain)
	}

	if requestCtx.Err() != nil {
		return Response{}, gatewayerr.ErrUpstreamTimeout
	}
	return Response{}, gatewayerr.WithBody(gatewayerr.ErrAllProvidersFailed, lastBody)
}

func (e *Engine) tryCache(chain types.ChainId, body []byte) (Response, bool) {
	var req types.JsonRpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return Response{}, false
	}
	resp, ok := cache.Lookup(chain, req)
	if !ok {
		return Response{}, false
	}
	encoded, err := json.Marshal(resp)
	if err != nil {
		return Response{}, false
	}
	return Response{StatusCode: http.StatusOK, Body: encoded}, true
}

// attempt performs one upstream POST. A non-nil error means the request
// never produced an HTTP response (transport failure).
func (e *Engine) attempt(ctx context.Context, provider *types.Provider, body []byte) (int, []byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.perAttemptTimeout)
	defer cancel()

	upstreamURL := strings.ReplaceAll(provider.URLTemplate, "{TOKEN}", provider.Credential)

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, upstreamURL, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := provider.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBodyBytes))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}

func classify(status int, body []byte, err error) types.Classification {
	if err != nil {
		return types.ClassifyTransport()
	}

	var rpcResp types.JsonRpcResponse
	if jsonErr := json.Unmarshal(body, &rpcResp); jsonErr != nil {
		return types.ClassifyHTTP(status, nil)
	}
	return types.ClassifyHTTP(status, rpcResp.Error)
}

func outcomeFor(c types.Classification) metrics.Outcome {
	switch c {
	case types.Ok:
		return metrics.OutcomeOk
	case types.RateLimited:
		return metrics.OutcomeRateLimited
	case types.NodeError:
		return metrics.OutcomeNodeError
	case types.Client:
		return metrics.OutcomeClient
	default:
		return metrics.OutcomeTransport
	}
}

func requestMethod(body []byte) string {
	var req types.JsonRpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return ""
	}
	return req.Method
}

func (e *Engine) emitRequest(projectID string, chain types.ChainId, method, provider string, cached bool, status types.Classification, attempt int, latencyMS int64) {
	if e.sink == nil {
		return
	}
	e.sink.Push(types.NewRpcRequestEvent(time.Now(), projectID, chain.String(), provider, method, cached, status, attempt, latencyMS))
}
