// Copyright 2025 Reown RPC Proxy

package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/reown-rpc-proxy/gateway/pkg/logging"
	"github.com/reown-rpc-proxy/gateway/pkg/types"
)

// Binance is the Binance Connect fiat on-ramp adapter.
type Binance struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
	assets     map[string]struct{}
}

// NewBinance returns a Binance adapter with its own client, independent of
// any other adapter's credentials or connection pool.
func NewBinance(apiKey, apiSecret, baseURL string) *Binance {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	return &Binance{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logging.New("BinanceAdapter"),
		assets: map[string]struct{}{
			"eip155:1/slip44:60":   {},
			"eip155:137/slip44:60": {},
		},
	}
}

func (b *Binance) ID() string   { return "binance" }
func (b *Binance) Name() string { return "Binance Connect" }

func (b *Binance) IsAssetSupported(asset types.CAIP19Asset) bool {
	_, ok := b.assets[asset.String()]
	return ok
}

func (b *Binance) GetBuyURL(ctx context.Context, params BuyParams) (string, error) {
	q := url.Values{}
	q.Set("merchantCode", b.apiKey)
	q.Set("orderId", params.SessionID)
	q.Set("cryptoCurrency", params.Asset.AssetReference)
	q.Set("fiatAmount", params.Amount)
	q.Set("redirectAddress", params.Recipient)
	return b.baseURL + "/connect/buy?" + q.Encode(), nil
}

type binanceOrderStatusResponse struct {
	Status string `json:"orderStatus"`
	TxID   string `json:"cryptoTxId"`
}

func (b *Binance) GetBuyStatus(ctx context.Context, params StatusParams) (types.BuyStatusResult, error) {
	endpoint := b.baseURL + "/connect/order/status?orderId=" + url.QueryEscape(params.SessionID)
	b.logger.Debugf("polling order status for session=%s", params.SessionID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return types.BuyStatusResult{}, fmt.Errorf("build status request: %w", err)
	}
	httpReq.Header.Set("X-MBX-APIKEY", b.apiKey)

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return types.BuyStatusResult{}, fmt.Errorf("binance status request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return types.BuyStatusResult{}, fmt.Errorf("read binance status response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return types.BuyStatusResult{}, fmt.Errorf("binance returned status %d: %s", resp.StatusCode, body)
	}

	var parsed binanceOrderStatusResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return types.BuyStatusResult{}, fmt.Errorf("parse binance status response: %w", err)
	}

	return types.BuyStatusResult{Status: mapBinanceStatus(parsed.Status), TxHash: parsed.TxID}, nil
}

func mapBinanceStatus(s string) types.BuyStatus {
	switch s {
	case "SUCCESS", "COMPLETED":
		return types.BuySuccess
	case "FAILED", "CANCELLED":
		return types.BuyFailed
	case "PROCESSING", "PENDING":
		return types.BuyInProgress
	default:
		return types.BuyUnknown
	}
}
