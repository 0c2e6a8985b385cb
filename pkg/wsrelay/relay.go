// Copyright 2025 Reown RPC Proxy
//
// Package wsrelay upgrades an inbound client connection, dials one
// WS-capable upstream provider, and forwards frames bidirectionally until
// either side closes.

package wsrelay

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/reown-rpc-proxy/gateway/pkg/gatewayerr"
	"github.com/reown-rpc-proxy/gateway/pkg/logging"
	"github.com/reown-rpc-proxy/gateway/pkg/selector"
	"github.com/reown-rpc-proxy/gateway/pkg/types"
)

// Relay resolves a WS-capable provider and forwards frames between the
// upgraded client connection and the upstream socket.
type Relay struct {
	selector *selector.Selector
	upgrader websocket.Upgrader
	dialer   websocket.Dialer
	logger   *logging.Logger

	pingInterval time.Duration
}

// New returns a Relay with the given dial timeout and keepalive ping
// interval toward upstream providers.
func New(sel *selector.Selector, dialTimeout, pingInterval time.Duration) *Relay {
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Relay{
		selector: sel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		dialer:       websocket.Dialer{HandshakeTimeout: dialTimeout},
		logger:       logging.New("WSRelay"),
		pingInterval: pingInterval,
	}
}

// Serve upgrades w/r to a WebSocket, dials one WS-capable provider for
// chain, and relays frames until either direction ends.
func (r *Relay) Serve(w http.ResponseWriter, req *http.Request, chain types.ChainId) error {
	candidates := r.selector.PickWS(chain)
	if len(candidates) == 0 {
		return gatewayerr.ErrChainNotConfigured
	}
	provider := candidates[0]

	upstreamURL := strings.ReplaceAll(provider.WSTemplate, "{TOKEN}", provider.Credential)

	upstreamConn, _, err := r.dialer.DialContext(req.Context(), upstreamURL, nil)
	if err != nil {
		return gatewayerr.ErrUpstreamTimeout
	}

	clientConn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		upstreamConn.Close()
		return err
	}

	r.logger.Infof("relaying chain=%s provider=%s", chain, provider.Kind)
	r.pump(clientConn, upstreamConn)
	return nil
}

// pump runs both directions and returns once either one ends, closing the
// other side so no goroutine is leaked.
func (r *Relay) pump(client, upstream *websocket.Conn) {
	wireControlFrames(client, upstream)
	wireControlFrames(upstream, client)

	done := make(chan struct{}, 2)

	go r.forward(client, upstream, done)
	go r.forward(upstream, client, done)

	// Ping the upstream every pingInterval until either direction ends.
	ticker := time.NewTicker(r.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			client.Close()
			upstream.Close()
			return
		case <-ticker.C:
			upstream.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		}
	}
}

// wireControlFrames translates src's Ping/Pong/Close control frames onto
// dst one-to-one; ReadMessage only ever returns data frames, so control
// frames need their own handlers to cross the relay.
func wireControlFrames(src, dst *websocket.Conn) {
	src.SetPingHandler(func(payload string) error {
		return dst.WriteControl(websocket.PingMessage, []byte(payload), time.Now().Add(5*time.Second))
	})
	src.SetPongHandler(func(payload string) error {
		return dst.WriteControl(websocket.PongMessage, []byte(payload), time.Now().Add(5*time.Second))
	})
	src.SetCloseHandler(func(code int, text string) error {
		closeMsg := websocket.FormatCloseMessage(code, text)
		dst.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(5*time.Second))
		return nil
	})
}

// forward copies frames one-to-one from src to dst until either side
// errors or closes; it signals done exactly once.
func (r *Relay) forward(src, dst *websocket.Conn, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()

	for {
		msgType, data, err := src.ReadMessage()
		if err != nil {
			if isUnexpectedClose(err) {
				r.logger.Warnf("ws relay read error: %v", err)
			}
			return
		}

		if err := dst.WriteMessage(msgType, data); err != nil {
			r.logger.Warnf("ws relay write error: %v", err)
			return
		}
	}
}

func isUnexpectedClose(err error) bool {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code != websocket.CloseNormalClosure && closeErr.Code != websocket.CloseGoingAway
	}
	return !errors.Is(err, context.Canceled)
}
