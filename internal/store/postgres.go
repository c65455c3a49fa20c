// Package store provides storage backends for ClimateCanvas.
//
// This file implements a PostgreSQL-backed generation history.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/BTreeMap/ClimateCanvas/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) AddGeneration(r models.GenerationRecord) error {
	_, err := s.db.Exec(`INSERT INTO generations (id, city, issue, provider, outcome, error, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.City, r.Issue, r.Provider, string(r.Outcome), nilIfEmpty(r.Error), r.CreatedAt.UTC())
	if err != nil {
		slog.Error("PostgresStore AddGeneration failed", "error", err, "id", r.ID)
		return fmt.Errorf("failed to insert generation %s: %w", r.ID, err)
	}
	slog.Debug("PostgresStore AddGeneration succeeded", "id", r.ID, "outcome", r.Outcome)
	return nil
}

func (s *PostgresStore) ListGenerations(limit int) ([]models.GenerationRecord, error) {
	rows, err := s.db.Query(`SELECT id, city, issue, provider, outcome, error, created_at FROM generations ORDER BY created_at DESC LIMIT $1`, normalizeLimit(limit))
	if err != nil {
		slog.Error("PostgresStore ListGenerations query failed", "error", err)
		return nil, fmt.Errorf("failed to query generations: %w", err)
	}
	defer rows.Close()

	records, err := scanGenerations(rows)
	if err != nil {
		slog.Error("PostgresStore ListGenerations scan failed", "error", err)
		return nil, err
	}
	slog.Debug("PostgresStore ListGenerations succeeded", "count", len(records))
	return records, nil
}

// Close closes the PostgreSQL database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing PostgreSQL database connection")
	return s.db.Close()
}
