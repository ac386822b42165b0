package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hackgods/clinic-scheduling/internal/access"
	"github.com/hackgods/clinic-scheduling/internal/api"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/audit"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/logging"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("info", "prod", logging.FileOptions{})
		bootLogger.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New(cfg.LogLevel, cfg.Env, logging.FileOptions{Path: cfg.LogFile}).With().Str("service", "api-server").Logger()
	logger.Info().
		Str("env", cfg.Env).
		Str("http_port", cfg.HTTPPort).
		Int("buffer_minutes", cfg.BufferMinutes).
		Bool("enforce_working_hours", cfg.EnforceWorkingHours).
		Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{MaxConns: cfg.DBMaxConns})
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(rootCtx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing redis")
		}
	}()
	logger.Info().Msg("connected to Redis")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	auditStore := audit.NewPgStore(pgPool)
	svc := appointment.NewService(
		appointment.NewPgRepository(pgPool),
		redisclient.NewRedisDayLocker(rdb, cfg.LockTTL),
		cfg,
		appointment.WithAuditor(auditStore),
		appointment.WithMetrics(metrics.NewSchedulingMetrics(registry)),
		appointment.WithLogger(logger),
	)

	var verifier *access.Verifier
	if cfg.JWTSecret != "" {
		verifier = access.NewVerifier(cfg.JWTSecret)
	} else {
		logger.Warn().Msg("JWT_SECRET not set, accepting X-Dev-Role headers")
	}

	router := api.NewRouter(api.RouterConfig{
		Service:  svc,
		Parties:  svc,
		Audit:    auditStore,
		Verifier: verifier,
		Postgres: pgPool,
		Redis:    api.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		Metrics:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Logger:   logger,
		Env:      cfg.Env,
		Version:  version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-rootCtx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server error")
			stop()
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("api-server stopped")
}
