// Package storage persists finished seed bundles in SQLite so the external
// seeding workflow can pick up the latest run.
package storage

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite"

	"github.com/raine/catalog-feed-import/internal/catalog"
)

// SeedStore defines the interface for seed persistence.
type SeedStore interface {
	SaveRun(source string, seed catalog.Seed) (*Run, error)
	LatestRun() (*Run, error)
	LatestRunOf(source string) (*Run, error)
	ListRuns(limit int) ([]Run, error)
	LoadSeed(runID string) (*catalog.Seed, error)
	DeleteRun(runID string) error
	PruneRuns(keep int) (int, error)
	Close() error
}

// SQLiteStore implements SeedStore using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// NewSQLiteStore opens (creating if needed) the seed database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// WAL and busy timeout let a reader poll while a run is being written
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	if err := os.Chmod(dbPath, 0o600); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("dbPath", dbPath).Msg("failed to restrict seed database permissions")
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	runsQuery := `
	CREATE TABLE IF NOT EXISTS runs (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		source TEXT NOT NULL,
		reference_time DATETIME NOT NULL,
		digest TEXT NOT NULL,
		category_count INTEGER NOT NULL,
		product_count INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(runsQuery); err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}

	if _, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_runs_digest ON runs(digest)`); err != nil {
		return fmt.Errorf("failed to create runs digest index: %w", err)
	}

	categoriesQuery := `
	CREATE TABLE IF NOT EXISTS categories (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		handle TEXT NOT NULL,
		parent_handle TEXT,
		payload TEXT NOT NULL,
		PRIMARY KEY (run_id, position)
	);
	`
	if _, err := s.db.Exec(categoriesQuery); err != nil {
		return fmt.Errorf("failed to create categories table: %w", err)
	}

	productsQuery := `
	CREATE TABLE IF NOT EXISTS products (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		handle TEXT NOT NULL,
		payload TEXT NOT NULL,
		PRIMARY KEY (run_id, position)
	);
	`
	if _, err := s.db.Exec(productsQuery); err != nil {
		return fmt.Errorf("failed to create products table: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SeedDigest hashes the categories and products of seed. The reference time
// is left out, so two runs over the same catalog share a digest even when
// they were built at different instants with the same outcome.
func SeedDigest(seed catalog.Seed) (string, error) {
	payload, err := json.Marshal(struct {
		Categories []catalog.CategorySeed `json:"categories"`
		Products   []catalog.ProductSeed  `json:"products"`
	}{seed.Categories, seed.Products})
	if err != nil {
		return "", fmt.Errorf("failed to marshal seed: %w", err)
	}
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
