package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/raine/catalog-feed-import/internal/catalog"
)

// Run describes one stored seed bundle.
type Run struct {
	ID            string
	Source        string
	ReferenceTime time.Time
	Digest        string
	Categories    int
	Products      int
	CreatedAt     time.Time
}

const runColumns = `id, source, reference_time, digest, category_count, product_count, created_at`

// SaveRun stores seed as a new run. Either the whole bundle is written or
// nothing is.
func (s *SQLiteStore) SaveRun(source string, seed catalog.Seed) (*Run, error) {
	digest, err := SeedDigest(seed)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	run := &Run{
		ID:            uuid.New().String(),
		Source:        source,
		ReferenceTime: seed.ReferenceTime.UTC(),
		Digest:        digest,
		Categories:    len(seed.Categories),
		Products:      len(seed.Products),
		CreatedAt:     s.now().UTC(),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.ReferenceTime, run.Digest, run.Categories, run.Products, run.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	for i, c := range seed.Categories {
		payload, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal category %s: %w", c.Handle, err)
		}
		var parent sql.NullString
		if c.ParentHandle != "" {
			parent = sql.NullString{String: c.ParentHandle, Valid: true}
		}
		_, err = tx.Exec(
			`INSERT INTO categories (run_id, position, handle, parent_handle, payload) VALUES (?, ?, ?, ?, ?)`,
			run.ID, i, c.Handle, parent, string(payload),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert category %s: %w", c.Handle, err)
		}
	}

	for i, p := range seed.Products {
		payload, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal product %s: %w", p.Handle, err)
		}
		_, err = tx.Exec(
			`INSERT INTO products (run_id, position, handle, payload) VALUES (?, ?, ?, ?)`,
			run.ID, i, p.Handle, string(payload),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert product %s: %w", p.Handle, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit run: %w", err)
	}
	return run, nil
}

// LatestRun returns the most recently saved run.
// Returns nil, nil if no run exists.
func (s *SQLiteStore) LatestRun() (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryRun(`SELECT ` + runColumns + ` FROM runs ORDER BY seq DESC LIMIT 1`)
}

// LatestRunOf returns the most recently saved run of source.
// Returns nil, nil if source has no run.
func (s *SQLiteStore) LatestRunOf(source string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryRun(`SELECT `+runColumns+` FROM runs WHERE source = ? ORDER BY seq DESC LIMIT 1`, source)
}

func (s *SQLiteStore) queryRun(query string, args ...any) (*Run, error) {
	var r Run
	err := s.db.QueryRow(query, args...).Scan(
		&r.ID, &r.Source, &r.ReferenceTime, &r.Digest, &r.Categories, &r.Products, &r.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	return &r, nil
}

// ListRuns returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *SQLiteStore) ListRuns(limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Source, &r.ReferenceTime, &r.Digest, &r.Categories, &r.Products, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LoadSeed reassembles the bundle stored for runID in its original order.
// Returns nil, nil if the run doesn't exist.
func (s *SQLiteStore) LoadSeed(runID string) (*catalog.Seed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var referenceTime time.Time
	err := s.db.QueryRow(`SELECT reference_time FROM runs WHERE id = ?`, runID).Scan(&referenceTime)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	seed := &catalog.Seed{
		ReferenceTime: referenceTime.UTC(),
		Categories:    []catalog.CategorySeed{},
		Products:      []catalog.ProductSeed{},
	}

	if err := s.loadPayloads(`SELECT payload FROM categories WHERE run_id = ? ORDER BY position`, runID, func(payload []byte) error {
		var c catalog.CategorySeed
		if err := json.Unmarshal(payload, &c); err != nil {
			return fmt.Errorf("failed to unmarshal category: %w", err)
		}
		seed.Categories = append(seed.Categories, c)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.loadPayloads(`SELECT payload FROM products WHERE run_id = ? ORDER BY position`, runID, func(payload []byte) error {
		var p catalog.ProductSeed
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("failed to unmarshal product: %w", err)
		}
		seed.Products = append(seed.Products, p)
		return nil
	}); err != nil {
		return nil, err
	}

	return seed, nil
}

func (s *SQLiteStore) loadPayloads(query, runID string, fn func([]byte) error) error {
	rows, err := s.db.Query(query, runID)
	if err != nil {
		return fmt.Errorf("failed to query payloads: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return fmt.Errorf("failed to scan payload: %w", err)
		}
		if err := fn([]byte(payload)); err != nil {
			return err
		}
	}
	return rows.Err()
}

// DeleteRun removes a run and its records.
func (s *SQLiteStore) DeleteRun(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM runs WHERE id = ?`, runID); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

// PruneRuns keeps the newest keep runs of every source, deletes the rest and
// returns how many were removed.
func (s *SQLiteStore) PruneRuns(keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 0 {
		keep = 0
	}
	res, err := s.db.Exec(
		`DELETE FROM runs WHERE seq IN (
			SELECT seq FROM (
				SELECT seq, ROW_NUMBER() OVER (PARTITION BY source ORDER BY seq DESC) AS rn FROM runs
			) WHERE rn > ?
		)`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned runs: %w", err)
	}
	return int(n), nil
}
