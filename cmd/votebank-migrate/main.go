package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Chin-mayyy/votebank/internal/config"
	"github.com/Chin-mayyy/votebank/internal/database"
	"github.com/Chin-mayyy/votebank/internal/migrations"
	"github.com/Chin-mayyy/votebank/internal/observability"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up|down|version")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	observability.SetupLogger(cfg.Environment, cfg.LogLevel, os.Stderr)

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database open error")
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.Ping(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("database ping error")
	}

	switch *direction {
	case "up":
		err = migrations.Up(ctx, db)
	case "down":
		err = migrations.Down(ctx, db)
	case "version":
		var (
			version   uint
			dirty, ok bool
		)
		version, dirty, ok, err = migrations.Version(ctx, db)
		if err == nil {
			if ok {
				fmt.Printf("version %d (dirty=%t)\n", version, dirty)
			} else {
				fmt.Println("no migrations applied")
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "invalid direction: %s\n", *direction)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Str("direction", *direction).Msg("migration failed")
	}
}
