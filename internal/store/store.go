// Package store provides storage backends for ClimateCanvas.
//
// It records the generation history (one row per Success or Degraded outcome) in memory,
// SQLite or PostgreSQL. The history is an audit trail only: results are never served from it.
package store

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/BTreeMap/ClimateCanvas/internal/models"
)

// History listing bounds
const (
	// DefaultListLimit is used when the caller does not ask for a specific page size.
	DefaultListLimit = 20
	// MaxListLimit caps the number of records returned in one listing.
	MaxListLimit = 100
)

// Store is the interface implemented by every history backend.
type Store interface {
	AddGeneration(r models.GenerationRecord) error
	ListGenerations(limit int) ([]models.GenerationRecord, error)
	Close() error
}

// Opts holds configuration for store backends.
type Opts struct {
	DSN string
}

// Option configures Opts.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType returns the database/sql driver name for a DSN: "postgres" or "sqlite3".
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite3"
}

// New opens the backend matching the configured DSN, or an in-memory store when none is set.
func New(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Debug("store.New: no DSN configured, using in-memory store")
		return NewInMemoryStore(), nil
	}
	if DetectDSNType(cfg.DSN) == "postgres" {
		return NewPostgresStore(WithPostgresDSN(cfg.DSN))
	}
	return NewSQLiteStore(WithSQLiteDSN(cfg.DSN))
}

// normalizeLimit clamps a requested page size into [1, MaxListLimit].
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// InMemoryStore is a simple in-memory history store.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []models.GenerationRecord
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// AddGeneration appends a record.
func (s *InMemoryStore) AddGeneration(r models.GenerationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

// ListGenerations returns up to limit records, newest first.
func (s *InMemoryStore) ListGenerations(limit int) ([]models.GenerationRecord, error) {
	limit = normalizeLimit(limit)
	s.mu.RLock()
	out := make([]models.GenerationRecord, len(s.records))
	copy(out, s.records)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
