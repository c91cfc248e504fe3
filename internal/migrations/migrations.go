// Package migrations provisions the users, candidates and votes tables.
// The SQL files are embedded so the binary needs no migrations directory.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
)

//go:embed sql/*.sql
var files embed.FS

// Source returns the embedded migration files as a migrate source driver.
func Source() (source.Driver, error) {
	src, err := iofs.New(files, "sql")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	return src, nil
}

// open binds a migrator to one dedicated connection from db. Closing the
// migrator releases that connection and leaves the pool open.
func open(ctx context.Context, db *sql.DB) (*migrate.Migrate, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire migration connection: %w", err)
	}
	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create migration driver: %w", err)
	}
	src, err := Source()
	if err != nil {
		driver.Close()
		return nil, err
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		src.Close()
		driver.Close()
		return nil, fmt.Errorf("create migration instance: %w", err)
	}
	return m, nil
}

func closeMigrate(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		log.Warn().Err(srcErr).Msg("failed to close migration source")
	}
	if dbErr != nil {
		log.Warn().Err(dbErr).Msg("failed to close migration database")
	}
}

// Up applies every pending migration. It is idempotent.
func Up(ctx context.Context, db *sql.DB) error {
	m, err := open(ctx, db)
	if err != nil {
		return err
	}
	defer closeMigrate(m)

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info().Msg("no migrations to apply (database up-to-date)")
		return nil
	}
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	version, _, _ := m.Version()
	log.Info().Uint("version", version).Msg("applied migrations")
	return nil
}

// Down rolls back every applied migration, dropping the voting tables.
func Down(ctx context.Context, db *sql.DB) error {
	m, err := open(ctx, db)
	if err != nil {
		return err
	}
	defer closeMigrate(m)

	err = m.Down()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info().Msg("no migrations to roll back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("roll back migrations: %w", err)
	}
	log.Info().Msg("rolled back migrations")
	return nil
}

// Version reports the applied schema version. ok is false when no
// migration has run yet.
func Version(ctx context.Context, db *sql.DB) (version uint, dirty, ok bool, err error) {
	m, err := open(ctx, db)
	if err != nil {
		return 0, false, false, err
	}
	defer closeMigrate(m)

	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, fmt.Errorf("read migration version: %w", err)
	}
	return version, dirty, true, nil
}
