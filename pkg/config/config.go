// Copyright 2025 Reown RPC Proxy
//
// Package config loads gateway configuration from RPC_PROXY_-prefixed
// environment variables.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the rpc-proxy gateway process.
type Config struct {
	// Server
	Host     string
	Port     int
	LogLevel string

	// Per-provider credentials (opaque to the core). These fields are read
	// from the environment but not passed to the registry: provider
	// credentials come from each catalog entry's credential field, which
	// may reference environment variables as ${VAR_NAME}.
	InfuraProjectID          string
	PoktProjectID            string
	QuicknodeAPIToken        string
	AllnodesAPIKey           string
	GetblockAccessTokensJSON string

	// Optional static provider catalog (URL templates, supports/supportsWs)
	ProviderCatalogPath string

	// Optional static project catalog (id, allowed origins, quota)
	ProjectCatalogPath string

	// Postgres ledger
	PostgresURI         string
	PostgresMaxConns    int
	PostgresQueryTimeout time.Duration

	// Selector / proxy tunables
	MaxAttempts       int
	PerAttemptTimeout time.Duration
	MaxBodyBytes      int64

	// Weight resolver
	WeightRefreshInterval time.Duration

	// WebSocket relay
	WSDialTimeout time.Duration
	WSPingInterval time.Duration

	// Reconciler
	ReconcilePollInterval     time.Duration
	ReconcileClaimBatchSize   int
	ReconcileRatePerSecond    float64
	ReconcilePerRowTimeout    time.Duration
	ExpirePendingAfterHours   int

	// Exchange adapter credentials
	BinanceAPIKey      string
	BinanceAPISecret   string
	CoinbaseAppID      string
	CoinbaseAPISecret  string
	TestExchangeEnabled bool

	// Analytics
	AnalyticsQueueSize int

	// Test mode: the quota gate short-circuits validation entirely.
	QuotaValidationDisabled bool
}

// Load reads configuration from the environment. All keys are prefixed
// RPC_PROXY_ per the external-interfaces contract; unset values fall back
// to the defaults below.
func Load() (*Config, error) {
	cfg := &Config{
		Host:     getEnv("RPC_PROXY_HOST", "0.0.0.0"),
		Port:     getEnvInt("RPC_PROXY_PORT", 8080),
		LogLevel: getEnv("RPC_PROXY_LOG_LEVEL", "info"),

		InfuraProjectID:          getEnv("RPC_PROXY_INFURA_PROJECT_ID", ""),
		PoktProjectID:            getEnv("RPC_PROXY_POKT_PROJECT_ID", ""),
		QuicknodeAPIToken:        getEnv("RPC_PROXY_QUICKNODE_API_TOKEN", ""),
		AllnodesAPIKey:           getEnv("RPC_PROXY_ALLNODES_API_KEY", ""),
		GetblockAccessTokensJSON: getEnv("RPC_PROXY_GETBLOCK_ACCESS_TOKENS_JSON", ""),

		ProviderCatalogPath: getEnv("RPC_PROXY_PROVIDER_CATALOG_PATH", ""),
		ProjectCatalogPath:  getEnv("RPC_PROXY_PROJECT_CATALOG_PATH", ""),

		PostgresURI:          getEnv("RPC_PROXY_POSTGRES_URI", ""),
		PostgresMaxConns:     getEnvInt("RPC_PROXY_POSTGRES_MAX_CONNECTIONS", 10),
		PostgresQueryTimeout: getEnvDuration("RPC_PROXY_POSTGRES_QUERY_TIMEOUT", 5*time.Second),

		MaxAttempts:       getEnvInt("RPC_PROXY_MAX_ATTEMPTS", 3),
		PerAttemptTimeout: getEnvDuration("RPC_PROXY_PER_ATTEMPT_TIMEOUT", 10*time.Second),
		MaxBodyBytes:      int64(getEnvInt("RPC_PROXY_MAX_BODY_BYTES", 10*1024*1024)),

		WeightRefreshInterval: getEnvDuration("RPC_PROXY_WEIGHT_REFRESH_INTERVAL", 60*time.Second),

		WSDialTimeout:  getEnvDuration("RPC_PROXY_WS_DIAL_TIMEOUT", 5*time.Second),
		WSPingInterval: getEnvDuration("RPC_PROXY_WS_PING_INTERVAL", 30*time.Second),

		ReconcilePollInterval:   getEnvDuration("RPC_PROXY_RECONCILE_POLL_INTERVAL", 10*time.Minute),
		ReconcileClaimBatchSize: getEnvInt("RPC_PROXY_RECONCILE_CLAIM_BATCH_SIZE", 200),
		ReconcileRatePerSecond:  getEnvFloat("RPC_PROXY_RECONCILE_RATE_PER_SECOND", 5),
		ReconcilePerRowTimeout:  getEnvDuration("RPC_PROXY_RECONCILE_PER_ROW_TIMEOUT", 15*time.Second),
		ExpirePendingAfterHours: getEnvInt("RPC_PROXY_EXPIRE_PENDING_AFTER_HOURS", 12),

		BinanceAPIKey:       getEnv("RPC_PROXY_BINANCE_API_KEY", ""),
		BinanceAPISecret:    getEnv("RPC_PROXY_BINANCE_API_SECRET", ""),
		CoinbaseAppID:       getEnv("RPC_PROXY_COINBASE_APP_ID", ""),
		CoinbaseAPISecret:   getEnv("RPC_PROXY_COINBASE_API_SECRET", ""),
		TestExchangeEnabled: getEnvBool("RPC_PROXY_TEST_EXCHANGE_ENABLED", false),

		AnalyticsQueueSize: getEnvInt("RPC_PROXY_ANALYTICS_QUEUE_SIZE", 4096),

		QuotaValidationDisabled: getEnvBool("RPC_PROXY_QUOTA_VALIDATION_DISABLED", false),
	}

	return cfg, nil
}

// Validate checks that configuration required to serve traffic is present.
func (c *Config) Validate() error {
	var problems []string

	if c.PostgresURI == "" {
		problems = append(problems, "RPC_PROXY_POSTGRES_URI is required but not set")
	}
	if c.Port <= 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("RPC_PROXY_PORT %d is not a valid port", c.Port))
	}
	if c.MaxAttempts < 1 {
		problems = append(problems, "RPC_PROXY_MAX_ATTEMPTS must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// ListenAddr returns the host:port pair http.Server expects.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
