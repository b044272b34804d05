package sync

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const insertAttempt = `INSERT INTO gate_attempts
	(id, host, at, outcome, count_before, count_after, threshold, ran, exit_code, timed_out, duration_ms, reason, error)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (id) DO NOTHING`

// PostgresDestination inserts exported attempts into a shared
// gate_attempts table, so a fleet's journals can be queried in one place.
// Re-pushing the same journal is harmless: rows are keyed by attempt ID.
type PostgresDestination struct {
	db *sql.DB
}

// NewPostgresDestination opens the database at databaseURL and applies any
// pending migrations.
func NewPostgresDestination(databaseURL string) (*PostgresDestination, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresDestination{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "facegate_schema_migrations"})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Write inserts every attempt record in the export payload in a single
// transaction.
func (d *PostgresDestination) Write(ctx context.Context, data []byte) error {
	attempts, err := parseAttempts(data)
	if err != nil {
		return err
	}
	if len(attempts) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, a := range attempts {
		if _, err := tx.ExecContext(ctx, insertAttempt,
			a.ID, a.Host, a.At.UTC(), string(a.Outcome),
			a.CountBefore, a.CountAfter, a.Threshold,
			a.Ran, a.ExitCode, a.TimedOut, a.Duration.Milliseconds(),
			a.Reason, a.Error,
		); err != nil {
			return fmt.Errorf("insert attempt %s: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (d *PostgresDestination) Close() error {
	return d.db.Close()
}
