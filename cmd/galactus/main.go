// Command galactus serves the Ward Analytics token conversion rate API.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ward-analytics/galactus/internal/cache"
	"github.com/ward-analytics/galactus/internal/chain"
	"github.com/ward-analytics/galactus/internal/config"
	"github.com/ward-analytics/galactus/internal/httpapi"
	"github.com/ward-analytics/galactus/internal/logging"
	"github.com/ward-analytics/galactus/internal/metrics"
	"github.com/ward-analytics/galactus/internal/middleware"
	"github.com/ward-analytics/galactus/internal/rates"
	"github.com/ward-analytics/galactus/internal/storage"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logging.New("galactus")
	m := metrics.New()

	// Ethereum node client
	node, err := chain.NewClient(chain.Config{
		NodeURL:   cfg.NodeURL,
		Timeout:   cfg.RPCTimeout,
		RateLimit: cfg.RPCRateLimit,
		Burst:     cfg.RPCBurst,
		Logger:    logger.Component("chain"),
		Metrics:   m,
	})
	if err != nil {
		log.Fatalf("Failed to create chain client: %v", err)
	}

	// Token metadata cache
	var (
		tokenCache cache.TokenCache
		cachePing  func() error
	)
	if cfg.RedisURL == "" {
		log.Printf("Warning: REDIS_URL not set; using in-memory token cache")
		tokenCache = cache.NewMemoryCache()
	} else {
		redisCache := cache.NewRedisCache(cfg.RedisURL)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("Warning: Redis unreachable at startup: %v", err)
		}
		defer redisCache.Close()
		tokenCache = redisCache
		cachePing = func() error {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer pingCancel()
			return redisCache.Ping(pingCtx)
		}
	}

	// Conversion audit store
	var (
		audit  storage.AuditStore
		dbPing func() error
	)
	if cfg.DatabaseURL == "" {
		log.Printf("Warning: DATABASE_URL not set; conversion audit kept in memory")
		audit = storage.NewMemoryStore()
	} else {
		pgStore, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer pgStore.Close()
		audit = pgStore
		dbPing = func() error {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer pingCancel()
			return pgStore.Ping(pingCtx)
		}
	}

	service, err := rates.NewService(rates.ServiceConfig{
		Node:         node,
		Cache:        tokenCache,
		Audit:        audit,
		Logger:       logger.Component("rates"),
		Metrics:      m,
		BlockRange:   cfg.BlockRange,
		USDReference: cfg.USDReferenceToken,
	})
	if err != nil {
		log.Fatalf("Failed to create rates service: %v", err)
	}

	// Keep the chain head fresh so default-block queries and USD quotes
	// do not pay for an extra RPC round trip.
	if err := service.RefreshHead(ctx); err != nil {
		log.Printf("Warning: initial head refresh failed: %v", err)
	}
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.HeadRefreshSpec, func() {
		refreshCtx, refreshCancel := context.WithTimeout(ctx, 10*time.Second)
		defer refreshCancel()
		if err := service.RefreshHead(refreshCtx); err != nil {
			logger.Warn(refreshCtx, "head refresh failed", map[string]interface{}{"error": err.Error()})
		}
	}); err != nil {
		log.Fatalf("Invalid HEAD_REFRESH_CRON spec %q: %v", cfg.HeadRefreshSpec, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	limiter := middleware.NewRateLimiter(cfg.HTTPRateLimit, cfg.HTTPBurst, logger.Component("ratelimit"))
	stopCleanup := make(chan struct{})
	limiter.StartCleanup(10*time.Minute, stopCleanup)
	defer close(stopCleanup)

	handler := httpapi.NewHandler(httpapi.HandlerConfig{
		Service:      service,
		Logger:       logger.Component("http"),
		Metrics:      m,
		RateLimiter:  limiter,
		CachePing:    cachePing,
		DatabasePing: dbPing,
	})

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting %s on %s", httpapi.ServiceName, cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Warning: shutdown did not complete cleanly: %v", err)
	}
}
