package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/Chin-mayyy/votebank/internal/config"
	"github.com/Chin-mayyy/votebank/internal/models"
	"github.com/Chin-mayyy/votebank/internal/observability"
)

var (
	// ErrConnect wraps failures to obtain a connection after all retries.
	ErrConnect = errors.New("database connection failed")
	// ErrQuery wraps failures of the statement itself. Never retried.
	ErrQuery = errors.New("query execution failed")
)

// RetryPolicy bounds connection acquisition.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultRetryPolicy is 3 attempts waiting 4s then 8s, capped at 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 4 * time.Second,
		MaxInterval:     10 * time.Second,
		Multiplier:      2,
	}
}

// PolicyFromConfig reads the connect_* settings.
func PolicyFromConfig(cfg *config.Config) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     cfg.ConnectMaxAttempts,
		InitialInterval: time.Duration(cfg.ConnectInitialBackoffMs) * time.Millisecond,
		MaxInterval:     time.Duration(cfg.ConnectMaxBackoffMs) * time.Millisecond,
		Multiplier:      2,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Executor runs one statement per call on a dedicated connection.
type Executor struct {
	db    *sql.DB
	retry RetryPolicy
}

func NewExecutor(db *sql.DB, retry RetryPolicy) *Executor {
	return &Executor{db: db, retry: retry}
}

// Execute acquires a connection (with retry), runs query once and returns
// every row. The connection is released on every path.
func (e *Executor) Execute(ctx context.Context, query string) (*models.ResultSet, error) {
	conn, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	defer rows.Close()

	rs, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	return rs, nil
}

func (e *Executor) acquire(ctx context.Context) (*sql.Conn, error) {
	var conn *sql.Conn
	attempt := 0
	op := func() error {
		attempt++
		c, err := e.db.Conn(ctx)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}
	notify := func(err error, wait time.Duration) {
		observability.DBConnectRetriesTotal.Inc()
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("retry_in", wait).
			Msg("database connection failed, retrying")
	}

	if err := backoff.RetryNotify(op, e.retry.backOff(ctx), notify); err != nil {
		return nil, fmt.Errorf("%w after %d attempt(s): %w", ErrConnect, attempt, err)
	}
	return conn, nil
}

func scanRows(rows *sql.Rows) (*models.ResultSet, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	rs := &models.ResultSet{Columns: columns, Rows: []models.Row{}}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		rs.Rows = append(rs.Rows, models.Row{Columns: columns, Values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}
