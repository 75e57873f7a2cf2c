package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"foodbridge-backend/internal/config"
	"foodbridge-backend/internal/infrastructure/database"
	"foodbridge-backend/internal/infrastructure/observability"
	"foodbridge-backend/internal/interfaces/router"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load")
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTLPEndpoint)
	if err != nil {
		log.Warn().Err(err).Msg("Tracing disabled")
	}

	deps, err := router.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open dependencies")
	}
	if tp != nil {
		deps.TracerProvider = tp
	}
	if err := deps.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("dependency check failed")
	}
	if deps.DB != nil {
		if err := database.AutoMigrate(deps.DB); err != nil {
			log.Fatal().Err(err).Msg("migrate")
		}
		log.Info().Msg("Postgres connected")
	}
	if deps.Rdb != nil {
		log.Info().Msg("Redis connected")
	}

	app := router.CreateApp(deps)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Str("lock_backend", cfg.LockBackend).
			Msgf("Server running at http://localhost:%s (health: /health/json)", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("listen")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if err := deps.Close(); err != nil {
		log.Error().Err(err).Msg("close dependencies")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown")
	}
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if cfg.Env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
