package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/papertrade-service/papertrade_service/internal/api/routes"
	"github.com/papertrade-service/papertrade_service/internal/infrastructure/config"
	"github.com/papertrade-service/papertrade_service/internal/infrastructure/database"
	"github.com/papertrade-service/papertrade_service/internal/infrastructure/di"
	"github.com/papertrade-service/papertrade_service/pkg/logger"
	"github.com/papertrade-service/papertrade_service/pkg/tracing"
	"github.com/papertrade-service/papertrade_service/pkg/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.LogLevel, cfg.Environment)
	defer log.Sync()

	log.Infow("Starting papertrade service",
		"version", version.Version,
		"environment", cfg.Environment)

	if err := database.RunMigrations(cfg.Database); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Endpoint:    cfg.Tracing.Endpoint,
		Environment: cfg.Environment,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		log.Fatal("Failed to initialize tracing", "error", err)
	}

	container, err := di.NewContainer(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to build container", "error", err)
	}
	defer container.Close()

	if err := container.MarketService.Seed(ctx); err != nil {
		log.Fatal("Failed to seed market data", "error", err)
	}

	if err := container.Scheduler.Start(); err != nil {
		log.Fatal("Failed to start market data scheduler", "error", err)
	}

	go database.CollectPoolStats(ctx, container.DB, 15*time.Second)

	router := routes.Setup(container)
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Infow("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Infow("Shutdown signal received")

	container.Scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown failed", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Errorw("Tracing shutdown failed", "error", err)
	}

	log.Infow("Shutdown complete")
}
