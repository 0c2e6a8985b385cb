// Copyright 2025 Reown RPC Proxy

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reown-rpc-proxy/gateway/pkg/analytics"
	"github.com/reown-rpc-proxy/gateway/pkg/config"
	"github.com/reown-rpc-proxy/gateway/pkg/exchange"
	"github.com/reown-rpc-proxy/gateway/pkg/gateway"
	"github.com/reown-rpc-proxy/gateway/pkg/ledger"
	"github.com/reown-rpc-proxy/gateway/pkg/logging"
	"github.com/reown-rpc-proxy/gateway/pkg/metrics"
	"github.com/reown-rpc-proxy/gateway/pkg/proxy"
	"github.com/reown-rpc-proxy/gateway/pkg/quota"
	"github.com/reown-rpc-proxy/gateway/pkg/reconciler"
	"github.com/reown-rpc-proxy/gateway/pkg/registry"
	"github.com/reown-rpc-proxy/gateway/pkg/selector"
	"github.com/reown-rpc-proxy/gateway/pkg/weight"
	"github.com/reown-rpc-proxy/gateway/pkg/wsrelay"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logging.SetLevel(parseLevel(cfg.LogLevel))
	logger := logging.New("Main")

	reg, err := buildRegistry(cfg)
	if err != nil {
		log.Fatalf("build provider registry: %v", err)
	}

	table := weight.NewTable(registry.ChainSupportMap(reg))
	recorder := metrics.NewRecorder()
	refresher := weight.NewRefresher(table, recorder, cfg.WeightRefreshInterval)

	sel := selector.New(reg, table, cfg.MaxAttempts)

	projectStore, err := buildProjectStore(cfg)
	if err != nil {
		log.Fatalf("build project store: %v", err)
	}
	gate := quota.New(projectStore, cfg.QuotaValidationDisabled)

	sink := analytics.New(analytics.NewLogWriter(), cfg.AnalyticsQueueSize, 200, 5*time.Second)

	engine := proxy.New(reg, sel, gate, recorder, sink, proxy.Config{
		PerAttemptTimeout: cfg.PerAttemptTimeout,
		MaxBodyBytes:      cfg.MaxBodyBytes,
	})
	relay := wsrelay.New(sel, cfg.WSDialTimeout, cfg.WSPingInterval)

	gw := gateway.New(reg, engine, relay)
	mux := http.NewServeMux()
	gw.RegisterRoutes(mux)

	ledgerStore, err := ledger.Open(ledger.Config{
		URI:          cfg.PostgresURI,
		MaxConns:     cfg.PostgresMaxConns,
		QueryTimeout: cfg.PostgresQueryTimeout,
	})
	if err != nil {
		log.Fatalf("open ledger store: %v", err)
	}
	defer ledgerStore.Close()

	adapters := buildExchangeAdapters(cfg)
	sched, err := reconciler.New(ledgerStore, adapters, sink, reconciler.Config{
		PollInterval:     cfg.ReconcilePollInterval,
		ClaimBatchSize:   cfg.ReconcileClaimBatchSize,
		RatePerSecond:    cfg.ReconcileRatePerSecond,
		PerRowTimeout:    cfg.ReconcilePerRowTimeout,
		ExpireAfterHours: cfg.ExpirePendingAfterHours,
	})
	if err != nil {
		log.Fatalf("build reconciler: %v", err)
	}

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: mux,
	}

	refresher.Start()
	sink.Start()
	sched.Start()
	gw.MarkReady()

	go func() {
		logger.Infof("rpc-proxy listening on %s", cfg.ListenAddr())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	quitCh := make(chan os.Signal, 1)
	signal.Notify(quitCh, syscall.SIGINT, syscall.SIGTERM)
	<-quitCh

	logger.Infof("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("http server shutdown: %v", err)
	}

	sched.Stop()
	refresher.Stop()
	sink.Stop()

	logger.Infof("rpc-proxy stopped")
}

func buildRegistry(cfg *config.Config) (*registry.Registry, error) {
	if cfg.ProviderCatalogPath == "" {
		reg := registry.New()
		reg.Freeze()
		return reg, nil
	}

	catalog, err := config.LoadProviderCatalog(cfg.ProviderCatalogPath)
	if err != nil {
		return nil, err
	}
	return registry.BuildFromCatalog(catalog)
}

func buildProjectStore(cfg *config.Config) (quota.ProjectStore, error) {
	if cfg.ProjectCatalogPath == "" {
		return quota.NewCatalogStore(&config.ProjectCatalog{}), nil
	}

	catalog, err := config.LoadProjectCatalog(cfg.ProjectCatalogPath)
	if err != nil {
		return nil, err
	}
	return quota.NewCatalogStore(catalog), nil
}

func buildExchangeAdapters(cfg *config.Config) *exchange.Registry {
	adapters := []exchange.Adapter{
		exchange.NewBinance(cfg.BinanceAPIKey, cfg.BinanceAPISecret, ""),
		exchange.NewCoinbase(cfg.CoinbaseAppID, cfg.CoinbaseAPISecret, ""),
	}
	if cfg.TestExchangeEnabled {
		adapters = append(adapters, exchange.NewTestExchange())
	}
	return exchange.NewRegistry(adapters...)
}

func parseLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}
