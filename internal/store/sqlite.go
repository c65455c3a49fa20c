// Package store provides storage backends for ClimateCanvas.
//
// This file implements an SQLite-backed generation history.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/BTreeMap/ClimateCanvas/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully", "dir", dir)

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) AddGeneration(r models.GenerationRecord) error {
	_, err := s.db.Exec(`INSERT INTO generations (id, city, issue, provider, outcome, error, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.City, r.Issue, r.Provider, string(r.Outcome), nilIfEmpty(r.Error), r.CreatedAt.UTC())
	if err != nil {
		slog.Error("SQLiteStore AddGeneration failed", "error", err, "id", r.ID)
		return fmt.Errorf("failed to insert generation %s: %w", r.ID, err)
	}
	slog.Debug("SQLiteStore AddGeneration succeeded", "id", r.ID, "outcome", r.Outcome)
	return nil
}

func (s *SQLiteStore) ListGenerations(limit int) ([]models.GenerationRecord, error) {
	rows, err := s.db.Query(`SELECT id, city, issue, provider, outcome, error, created_at FROM generations ORDER BY created_at DESC LIMIT ?`, normalizeLimit(limit))
	if err != nil {
		slog.Error("SQLiteStore ListGenerations query failed", "error", err)
		return nil, fmt.Errorf("failed to query generations: %w", err)
	}
	defer rows.Close()

	records, err := scanGenerations(rows)
	if err != nil {
		slog.Error("SQLiteStore ListGenerations scan failed", "error", err)
		return nil, err
	}
	slog.Debug("SQLiteStore ListGenerations succeeded", "count", len(records))
	return records, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	return s.db.Close()
}
