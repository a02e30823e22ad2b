package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"siteops/internal/config"
	"siteops/internal/httpserver"
	"siteops/internal/relay"
	"siteops/pkg/logger"
	redisclient "siteops/pkg/redis"
	"siteops/pkg/util"
)

func main() {
	log := logger.NewLogger()
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}
	if err := cfg.Relay.Validate(); err != nil {
		log.Fatal("Invalid relay configuration", zap.Error(err))
	}

	log.Info("Starting contact api...",
		zap.String("port", cfg.Server.Port),
		zap.String("relay_endpoint", cfg.Relay.Endpoint),
		zap.String("website", cfg.Relay.Website),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Relay
	submitter := relay.NewSubmitter(cfg.Relay, log)

	// Redis duplicate guard (optional)
	var deduper *util.Deduper
	checks := map[string]httpserver.ReadinessCheck{}
	if cfg.Redis.Addr != "" {
		log.Info("Initializing Redis duplicate guard...", zap.String("addr", cfg.Redis.Addr))
		rdb, err := redisclient.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, duplicate guard disabled", zap.Error(err))
		} else {
			defer func() { _ = rdb.Close() }()
			deduper = util.NewDeduper(rdb, cfg.Contact.DedupTTL, log)
			checks["redis"] = deduper.Ping
		}
	}

	// HTTP Server
	contactHandler := httpserver.NewContactHandler(submitter, deduper, log)
	router := httpserver.NewRouter(contactHandler, log, checks)
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("contact api is fully initialized and running")

	// Graceful shutdown
	<-ctx.Done()
	log.Info("Shutting down contact api gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
		os.Exit(1)
	}

	log.Info("contact api shutdown complete")
}
