package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Chin-mayyy/votebank/internal/config"
)

type Server struct {
	cfg   *config.Config
	db    *sql.DB
	redis *redis.Client // nil when rate limiting is in memory
	http  *http.Server
}

// New builds every component and trains the SQL generator. ctx bounds
// startup work and background goroutines; cancel it to stop them.
func New(ctx context.Context, cfg *config.Config, db *sql.DB) *Server {
	s := &Server{cfg: cfg, db: db}

	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.setupRoutes(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// answers stream for as long as the client reads them
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.http.Addr).Msg("listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("graceful shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.DefaultShutdownTimeout)
		defer cancel()

		err := s.http.Shutdown(shutdownCtx)
		s.close()
		return err
	case err := <-errCh:
		s.close()
		return err
	}
}

func (s *Server) close() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing redis client")
		}
	}
	if err := s.db.Close(); err != nil {
		log.Warn().Err(err).Msg("error closing database pool")
	} else {
		log.Info().Msg("database pool closed")
	}
}
