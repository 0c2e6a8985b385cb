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

// Coinbase is the Coinbase Pay fiat on-ramp adapter.
type Coinbase struct {
	appID      string
	apiSecret  string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
	assets     map[string]struct{}
}

// NewCoinbase returns a Coinbase adapter with its own client and
// credentials.
func NewCoinbase(appID, apiSecret, baseURL string) *Coinbase {
	if baseURL == "" {
		baseURL = "https://api.developer.coinbase.com"
	}
	return &Coinbase{
		appID:     appID,
		apiSecret: apiSecret,
		baseURL:   baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logging.New("CoinbaseAdapter"),
		assets: map[string]struct{}{
			"eip155:1/slip44:60":    {},
			"eip155:8453/slip44:60": {},
		},
	}
}

func (c *Coinbase) ID() string   { return "coinbase" }
func (c *Coinbase) Name() string { return "Coinbase Pay" }

func (c *Coinbase) IsAssetSupported(asset types.CAIP19Asset) bool {
	_, ok := c.assets[asset.String()]
	return ok
}

func (c *Coinbase) GetBuyURL(ctx context.Context, params BuyParams) (string, error) {
	q := url.Values{}
	q.Set("appId", c.appID)
	q.Set("destinationWallets", params.Recipient)
	q.Set("presetFiatAmount", params.Amount)
	q.Set("partnerUserId", params.SessionID)
	return c.baseURL + "/onramp/buy?" + q.Encode(), nil
}

type coinbaseTransactionStatusResponse struct {
	Status string `json:"status"`
	TxHash string `json:"transaction_hash"`
}

func (c *Coinbase) GetBuyStatus(ctx context.Context, params StatusParams) (types.BuyStatusResult, error) {
	endpoint := c.baseURL + "/onramp/transactions/" + url.PathEscape(params.SessionID)
	c.logger.Debugf("polling transaction status for session=%s", params.SessionID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return types.BuyStatusResult{}, fmt.Errorf("build status request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiSecret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return types.BuyStatusResult{}, fmt.Errorf("coinbase status request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return types.BuyStatusResult{}, fmt.Errorf("read coinbase status response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return types.BuyStatusResult{}, fmt.Errorf("coinbase returned status %d: %s", resp.StatusCode, body)
	}

	var parsed coinbaseTransactionStatusResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return types.BuyStatusResult{}, fmt.Errorf("parse coinbase status response: %w", err)
	}

	return types.BuyStatusResult{Status: mapCoinbaseStatus(parsed.Status), TxHash: parsed.TxHash}, nil
}

func mapCoinbaseStatus(s string) types.BuyStatus {
	switch s {
	case "ONRAMP_TRANSACTION_STATUS_SUCCESS":
		return types.BuySuccess
	case "ONRAMP_TRANSACTION_STATUS_FAILED":
		return types.BuyFailed
	case "ONRAMP_TRANSACTION_STATUS_IN_PROGRESS":
		return types.BuyInProgress
	default:
		return types.BuyUnknown
	}
}
