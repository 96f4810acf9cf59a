package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rul-dashboard/internal/api"
	"rul-dashboard/internal/backend"
	"rul-dashboard/internal/config"
	"rul-dashboard/internal/logs"
	"rul-dashboard/internal/metrics"
	"rul-dashboard/internal/module"
	"rul-dashboard/internal/prediction"
	"rul-dashboard/internal/store"
	"rul-dashboard/internal/ttl"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Root context, cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Logger
	level, err := logs.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logs.NewLogger(cfg.Log.Buffer, level)
	logger.SetOutput(os.Stderr)

	// Metrics
	metricsRegistry := metrics.NewRegistry()

	// Trend history
	history, closeHistory, err := newHistory(ctx, cfg.History, metricsRegistry)
	if err != nil {
		log.Fatalf("history: %v", err)
	}
	defer closeHistory()

	// TTL cleaner
	if cfg.History.TTL > 0 {
		ttlCleaner := ttl.NewCleaner(
			history,
			cfg.History.CleanupInterval,
			logger,
			metricsRegistry,
		)
		go ttlCleaner.Start(ctx)
	}

	// Backend monitoring
	monitorConfig := backend.DefaultMonitorConfig()
	monitorConfig.Heartbeat.Interval = cfg.Heartbeat.Interval
	monitor := backend.NewMonitor(cfg.API.BaseURL, monitorConfig, metricsRegistry)
	heartbeat := backend.NewHeartbeatWorker(monitor, cfg.API.BaseURL, monitorConfig, logger, metricsRegistry)
	go heartbeat.Start(ctx)

	// Prediction
	client := prediction.NewClient(
		cfg.API.BaseURL,
		logger,
		metricsRegistry,
		prediction.WithTimeout(cfg.API.Timeout),
	)
	dashboard := module.NewDashboard(module.Catalog(), client, logger, metricsRegistry, module.Options{
		History:    history,
		HistoryTTL: cfg.History.TTL,
	})

	// API
	var limiter *rate.Limiter
	if cfg.RateLimit.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.Rate), cfg.RateLimit.Burst)
	}
	handler := api.NewHandler(dashboard, metricsRegistry, logger, monitor)
	httpHandler := api.RegisterRoutes(mux.NewRouter(), handler, limiter)

	// Writes wait on predictions bounded by the client timeout.
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.API.Timeout + 5*time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown: " + err.Error())
		}
	}()

	logger.Info("server started on " + cfg.ListenAddr + ", prediction backend " + cfg.API.BaseURL)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	logger.Info("server stopped")
}

func newHistory(ctx context.Context, cfg config.HistoryConfig, reg *metrics.Registry) (store.History, func(), error) {
	if cfg.Backend != "redis" {
		return store.NewMemoryHistory(cfg.Capacity, reg), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return store.NewRedisHistory(client, cfg.RedisPrefix, cfg.Capacity, reg), func() { _ = client.Close() }, nil
}
