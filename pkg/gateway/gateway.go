// Copyright 2025 Reown RPC Proxy
//
// Package gateway wires the proxy engine and WebSocket relay onto an
// http.ServeMux: one handler per route, assembled by the composition
// root after every collaborator is constructed.

package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/reown-rpc-proxy/gateway/pkg/gatewayerr"
	"github.com/reown-rpc-proxy/gateway/pkg/logging"
	"github.com/reown-rpc-proxy/gateway/pkg/proxy"
	"github.com/reown-rpc-proxy/gateway/pkg/registry"
	"github.com/reown-rpc-proxy/gateway/pkg/types"
	"github.com/reown-rpc-proxy/gateway/pkg/wsrelay"
)

// Gateway holds the collaborators the HTTP surface dispatches to.
type Gateway struct {
	registry *registry.Registry
	engine   *proxy.Engine
	relay    *wsrelay.Relay
	logger   *logging.Logger

	ready bool
}

// New returns a Gateway ready to register routes on a mux.
func New(reg *registry.Registry, engine *proxy.Engine, relay *wsrelay.Relay) *Gateway {
	return &Gateway{registry: reg, engine: engine, relay: relay, logger: logging.New("Gateway")}
}

// MarkReady flips the health check to serve 200; called by the composition
// root once provider wiring and the background loops have started.
func (g *Gateway) MarkReady() {
	g.ready = true
}

// RegisterRoutes attaches every handler to mux, matching the route table
// in the external interfaces contract.
func (g *Gateway) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1", g.handleProxy)
	mux.HandleFunc("/ws", g.handleWS)
	mux.HandleFunc("/supported-chains", g.handleSupportedChains)
	mux.HandleFunc("/health", g.handleHealth)
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !g.ready {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (g *Gateway) handleSupportedChains(w http.ResponseWriter, r *http.Request) {
	chains := g.registry.Chains()
	out := make([]string, 0, len(chains))
	for _, c := range chains {
		out = append(out, c.String())
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		g.logger.Errorf("encode supported-chains response: %v", err)
	}
}

func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()

	chain, err := parseChain(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	g.logger.Infof("request_id=%s ws relay starting for chain=%s", requestID, chain)
	if err := g.relay.Serve(w, r, chain); err != nil {
		g.logger.Warnf("request_id=%s ws relay for chain=%s failed: %v", requestID, chain, err)
		writeGatewayError(w, err)
	}
}

func (g *Gateway) handleProxy(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	chain, err := parseChain(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	projectID := r.URL.Query().Get("projectId")
	if projectID == "" {
		http.Error(w, "projectId is required", http.StatusBadRequest)
		return
	}

	body, err := readBody(w, r, 10*1024*1024)
	if err != nil {
		http.Error(w, "request body too large or unreadable", http.StatusBadRequest)
		return
	}

	if isBatch(body) {
		g.proxyBatch(w, r, requestID, chain, projectID, body)
		return
	}

	resp, err := g.engine.Proxy(r.Context(), chain, projectID, body)
	if err != nil {
		g.logger.Warnf("request_id=%s chain=%s project=%s proxy failed: %v", requestID, chain, projectID, err)
		writeGatewayError(w, err)
		return
	}
	writeProxyResponse(w, resp)
}

// proxyBatch splits a JSON-RPC batch into its elements, proxies each
// independently, and merges results back in request order.
func (g *Gateway) proxyBatch(w http.ResponseWriter, r *http.Request, requestID string, chain types.ChainId, projectID string, body []byte) {
	var elements []json.RawMessage
	if err := json.Unmarshal(body, &elements); err != nil {
		http.Error(w, "malformed batch request", http.StatusBadRequest)
		return
	}

	results := make([]json.RawMessage, len(elements))
	for i, element := range elements {
		resp, err := g.engine.Proxy(r.Context(), chain, projectID, element)
		if err != nil {
			g.logger.Warnf("request_id=%s chain=%s project=%s batch element %d failed: %v", requestID, chain, projectID, i, err)
			results[i] = synthesizeError(element, err)
			continue
		}
		results[i] = resp.Body
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(results); err != nil {
		g.logger.Errorf("request_id=%s encode batch response: %v", requestID, err)
	}
}

func parseChain(r *http.Request) (types.ChainId, error) {
	raw := r.URL.Query().Get("chainId")
	if raw == "" {
		return types.ChainId{}, errors.New("chainId is required")
	}
	return types.ParseChainId(raw)
}

func readBody(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]byte, error) {
	defer r.Body.Close()
	limited := http.MaxBytesReader(w, r.Body, maxBytes)
	return io.ReadAll(limited)
}

func isBatch(body []byte) bool {
	for _, b := range body {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}

func writeProxyResponse(w http.ResponseWriter, resp proxy.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}

func writeGatewayError(w http.ResponseWriter, err error) {
	status := gatewayerr.StatusCode(err)

	var withBody *gatewayerr.UpstreamBody
	if errors.As(err, &withBody) && len(withBody.Body) > 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write(withBody.Body)
		return
	}

	http.Error(w, err.Error(), status)
}

func synthesizeError(element json.RawMessage, err error) json.RawMessage {
	var req types.JsonRpcRequest
	_ = json.Unmarshal(element, &req)

	resp := types.JsonRpcResponse{
		JsonRPC: "2.0",
		ID:      req.ID,
		Error:   &types.JsonRpcError{Code: -32000, Message: err.Error()},
	}
	encoded, marshalErr := json.Marshal(resp)
	if marshalErr != nil {
		return json.RawMessage(`{"jsonrpc":"2.0","error":{"code":-32000,"message":"internal error"}}`)
	}
	return encoded
}
