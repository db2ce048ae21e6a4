/**
 * @description
 * Entry point for the ledger-service. A single long-running process hosting the HTTP
 * API, the Prometheus metrics endpoint, and the cron scheduler that drives settlement
 * and interest accrual.
 */

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/cardvault/ledger-service/internal/api"
	"github.com/cardvault/ledger-service/internal/app"
	"github.com/cardvault/ledger-service/internal/config"
	"github.com/cardvault/ledger-service/internal/metrics"
	"github.com/cardvault/ledger-service/internal/store"
	"github.com/cardvault/ledger-service/pkg/rabbitmq"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = 25
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	repository := store.NewPostgresRepository(dbpool)

	var events rabbitmq.Publisher
	if cfg.RabbitMQURL != "" {
		producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, cfg.EventExchange, logger)
		if err != nil {
			logger.Error("rabbitmq unavailable, falling back to no-op publisher", "error", err)
			events = &rabbitmq.NoopPublisher{Logger: logger}
		} else {
			events = producer
		}
	} else {
		events = &rabbitmq.NoopPublisher{Logger: logger}
	}
	defer events.Close()

	var lock app.JobLock = app.NewLocalJobLock()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid redis URL, using in-process job lock", "error", err)
		} else {
			lock = app.NewRedisJobLock(redis.NewClient(opts), "ledger")
			logger.Info("redis job lock enabled")
		}
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	service := app.NewService(repository, cfg, logger, events, m)
	jobs := app.NewJobs(service, lock, logger)
	scheduler := app.NewScheduler(jobs, logger, cfg)

	scheduler.Start()
	logger.Info("scheduler started")

	handlers := api.NewHandlers(service, logger)
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: api.Routes(handlers),
	}

	go func() {
		logger.Info("http server listening", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
	}

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	logger.Info("scheduler stopped gracefully")
}
