// Copyright 2025 Reown RPC Proxy

package wsrelay

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/reown-rpc-proxy/gateway/pkg/registry"
	"github.com/reown-rpc-proxy/gateway/pkg/selector"
	"github.com/reown-rpc-proxy/gateway/pkg/types"
	"github.com/reown-rpc-proxy/gateway/pkg/weight"
)

var echoUpgrader = websocket.Upgrader{}

func echoServer(w http.ResponseWriter, r *http.Request) {
	conn, err := echoUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if err := conn.WriteMessage(msgType, data); err != nil {
			return
		}
	}
}

func buildRelay(t *testing.T, chain types.ChainId, upstreamWSURL string) *Relay {
	t.Helper()

	reg := registry.New()
	kind := types.NewGenericProviderKind(chain.String(), upstreamWSURL)
	provider := &types.Provider{
		Kind:       kind,
		SupportsWS: map[types.ChainId]struct{}{chain: {}},
		WSTemplate: upstreamWSURL,
	}
	if err := reg.Register(provider); err != nil {
		t.Fatalf("register: %v", err)
	}
	reg.Freeze()

	table := weight.NewTable(map[types.ChainId][]types.ProviderKind{chain: {kind}})
	sel := selector.New(reg, table, 3)

	return New(sel, time.Second, time.Second)
}

func TestRelayEchoesTextFrames(t *testing.T) {
	chain := types.ChainId{Namespace: "eip155", Reference: "1"}

	upstream := httptest.NewServer(http.HandlerFunc(echoServer))
	defer upstream.Close()
	upstreamWS := "ws" + strings.TrimPrefix(upstream.URL, "http")

	relay := buildRelay(t, chain, upstreamWS)

	frontend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := relay.Serve(w, r, chain); err != nil {
			t.Errorf("Serve: %v", err)
		}
	}))
	defer frontend.Close()

	clientURL := "ws" + strings.TrimPrefix(frontend.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(clientURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer clientConn.Close()

	if err := clientConn.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := clientConn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("expected echoed %q, got %q", "hello", data)
	}
}

func TestRelayUnconfiguredChainRejected(t *testing.T) {
	reg := registry.New()
	reg.Freeze()
	table := weight.NewTable(nil)
	sel := selector.New(reg, table, 3)
	relay := New(sel, time.Second, time.Second)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := relay.Serve(w, r, types.ChainId{Namespace: "eip155", Reference: "999"})
		if err == nil {
			t.Errorf("expected ErrChainNotConfigured")
		}
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
