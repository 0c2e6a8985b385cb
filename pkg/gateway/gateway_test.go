// Copyright 2025 Reown RPC Proxy

package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/reown-rpc-proxy/gateway/pkg/metrics"
	"github.com/reown-rpc-proxy/gateway/pkg/proxy"
	"github.com/reown-rpc-proxy/gateway/pkg/quota"
	"github.com/reown-rpc-proxy/gateway/pkg/registry"
	"github.com/reown-rpc-proxy/gateway/pkg/selector"
	"github.com/reown-rpc-proxy/gateway/pkg/types"
	"github.com/reown-rpc-proxy/gateway/pkg/weight"
	"github.com/reown-rpc-proxy/gateway/pkg/wsrelay"
)

type noopProjects struct{}

func (noopProjects) Project(id string) (quota.Project, bool) { return quota.Project{}, false }

func buildTestGateway(t *testing.T) (*Gateway, *httptest.Server) {
	t.Helper()

	reg := registry.New()
	reg.Freeze()
	table := weight.NewTable(nil)
	sel := selector.New(reg, table, 3)
	gate := quota.New(noopProjects{}, true)
	engine := proxy.New(reg, sel, gate, metrics.NewRecorder(), nil, proxy.Config{PerAttemptTimeout: time.Second})
	relay := wsrelay.New(sel, time.Second, time.Second)

	gw := New(reg, engine, relay)
	mux := http.NewServeMux()
	gw.RegisterRoutes(mux)
	return gw, httptest.NewServer(mux)
}

func TestHealthReturnsUnavailableUntilReady(t *testing.T) {
	gw, srv := buildTestGateway(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before ready, got %d", resp.StatusCode)
	}

	gw.MarkReady()

	resp, err = http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 once ready, got %d", resp.StatusCode)
	}
}

func TestSupportedChainsReturnsEmptyArray(t *testing.T) {
	_, srv := buildTestGateway(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/supported-chains")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var chains []string
	if err := json.NewDecoder(resp.Body).Decode(&chains); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(chains) != 0 {
		t.Fatalf("expected no supported chains in an empty registry, got %v", chains)
	}
}

func TestProxyServesCachedEthChainIDThroughHTTP(t *testing.T) {
	_, srv := buildTestGateway(t)
	defer srv.Close()

	url := srv.URL + "/v1?projectId=p1&chainId=eip155:56"
	resp, err := http.Post(url, "application/json", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"eth_chainId","params":[]}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var parsed types.JsonRpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(parsed.Result) != `"0x38"` {
		t.Fatalf("expected result 0x38, got %s", parsed.Result)
	}
}

func TestProxyRejectsUnconfiguredChain(t *testing.T) {
	_, srv := buildTestGateway(t)
	defer srv.Close()

	url := srv.URL + "/v1?projectId=p1&chainId=eip155:999"
	resp, err := http.Post(url, "application/json", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"eth_blockNumber"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unconfigured chain, got %d", resp.StatusCode)
	}
}

func TestProxyMissingProjectIDRejected(t *testing.T) {
	_, srv := buildTestGateway(t)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1?chainId=eip155:1", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing projectId, got %d", resp.StatusCode)
	}
}
