package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Chin-mayyy/votebank/internal/config"
	"github.com/Chin-mayyy/votebank/internal/database"
	"github.com/Chin-mayyy/votebank/internal/migrations"
	"github.com/Chin-mayyy/votebank/internal/observability"
	"github.com/Chin-mayyy/votebank/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	observability.SetupLogger(cfg.Environment, cfg.LogLevel, os.Stderr)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	for _, w := range cfg.Warnings() {
		log.Warn().Msg(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	if err := database.Ping(ctx, db); err != nil {
		// the executor retries per request; start anyway and report degraded health
		log.Warn().Err(err).Msg("database not reachable at startup")
	} else if cfg.AutoMigrate {
		migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := migrations.Up(migrateCtx, db)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("auto-migrate failed")
		}
	}

	srv := server.New(ctx, cfg, db)
	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped")
}
