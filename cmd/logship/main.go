package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/user/logship"
	"github.com/user/logship/internal/adapter/source"
	"github.com/user/logship/internal/pkg/config"
	"github.com/user/logship/internal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)
	log.Info("starting logship forwarder", "source", cfg.Source, "log_label", cfg.LogLabel)

	// --- Metrics server ---
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: metricsMux,
	}
	go func() {
		log.Info("starting metrics server", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", "error", err)
		}
	}()

	// --- Graceful shutdown context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Writer ---
	credentials, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		log.Error("failed to read service account key", "error", err, "path", cfg.CredentialsFile)
		os.Exit(1)
	}

	writer, err := logship.New(logship.Config{
		LogLabel:    cfg.LogLabel,
		Credentials: credentials,
		MaxBatch:    cfg.MaxBatch,
		MaxDelay:    cfg.MaxDelay,
		BufferSize:  cfg.BufferSize,
		Scope:       cfg.Scope,
		Subject:     cfg.Subject,
		Logger:      log,
	})
	if err != nil {
		log.Error("failed to initialize writer", "error", err)
		os.Exit(1)
	}

	// --- Source ---
	run := func(ctx context.Context) error {
		switch cfg.Source {
		case "redis":
			redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			if err := redisClient.Ping(ctx).Err(); err != nil {
				log.Error("failed to connect to redis", "error", err)
				return err
			}
			defer redisClient.Close()
			log.Info("consuming redis stream", "addr", cfg.RedisAddr, "stream", cfg.RedisStream)
			return source.NewStreamSource(redisClient, cfg.RedisStream, "", log).Run(ctx, writer)
		default:
			return source.NewStdinSource(os.Stdin, log).Run(ctx, writer)
		}
	}

	sourceDone := make(chan error, 1)
	go func() {
		sourceDone <- run(ctx)
	}()

	// Exit on signal or when the source is exhausted (stdin EOF).
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-sourceDone:
		if err != nil {
			log.Error("source terminated", "error", err)
		} else {
			log.Info("source exhausted")
		}
	}
	stop()

	log.Info("draining writer...")
	writer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics server shutdown failed", "error", err)
	}

	log.Info("forwarder shut down gracefully")
}
