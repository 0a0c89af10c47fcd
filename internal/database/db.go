package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/journal-submission-api/internal/config"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

// DB is the postgres pool shared by the repositories.
type DB struct {
	*sql.DB
	log zerolog.Logger
}

// New opens the pool and waits up to cfg.ConnectTimeout for postgres to
// answer, so the server can start alongside a database that is still booting.
func New(cfg *config.DatabaseConfig, log zerolog.Logger) (*DB, error) {
	pool, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.MaxLifetime)

	db := &DB{
		DB:  pool,
		log: log.With().Str("component", "database").Logger(),
	}

	if err := db.waitReady(cfg.ConnectTimeout); err != nil {
		pool.Close()
		return nil, err
	}

	db.log.Info().
		Str("host", cfg.Host).
		Str("database", cfg.Name).
		Int("max_open_conns", cfg.MaxOpenConns).
		Msg("Database connection established")
	return db, nil
}

func (db *DB) waitReady(limit time.Duration) error {
	var policy backoff.BackOff = &backoff.StopBackOff{}
	if limit > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = 250 * time.Millisecond
		exp.MaxInterval = 5 * time.Second
		exp.MaxElapsedTime = limit
		policy = exp
	}

	attempt := 0
	ping := func() error {
		attempt++
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return db.PingContext(ctx)
	}
	notify := func(err error, wait time.Duration) {
		db.log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", wait).Msg("Database not ready")
	}

	if err := backoff.RetryNotify(ping, policy, notify); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// WithTx runs fn inside a transaction, committing when fn returns nil.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RunMigrations applies every pending schema migration from migrationsPath.
func (db *DB) RunMigrations(migrationsPath string) error {
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	start := time.Now()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	db.log.Info().
		Str("path", migrationsPath).
		Uint("version", version).
		Bool("dirty", dirty).
		Dur("took", time.Since(start)).
		Msg("Schema up to date")
	return nil
}
