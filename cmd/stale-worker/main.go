package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/audit"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/logging"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("info", "prod", logging.FileOptions{})
		bootLogger.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New(cfg.LogLevel, cfg.Env, logging.FileOptions{Path: cfg.LogFile}).With().Str("service", "stale-worker").Logger()
	logger.Info().Str("env", cfg.Env).Dur("interval", cfg.StaleSweepInterval).Msg("stale-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 2})
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
		PoolSize: 2,
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

	svc := appointment.NewService(
		appointment.NewPgRepository(pgPool),
		redisclient.NewRedisDayLocker(rdb, cfg.LockTTL),
		cfg,
		appointment.WithAuditor(audit.NewPgStore(pgPool)),
		appointment.WithLogger(logger),
	)

	runOnce(rootCtx, svc, logger)

	ticker := time.NewTicker(cfg.StaleSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info().Msg("shutdown signal received, stopping stale worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, logger)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service, logger zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	start := time.Now()
	n, err := svc.SweepStalePending(runCtx)
	if err != nil {
		logger.Error().Err(err).Msg("stale sweep error")
		return
	}
	logger.Info().Int("cancelled", n).Dur("took", time.Since(start)).Msg("stale sweep complete")
}
