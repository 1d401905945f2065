// Package duckdb provides a DuckDB-backed ledger of patch runs.
// Each run records the fingerprints of its inputs, its counters and,
// optionally, every substitution it wrote (queryable, append-only).
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store is an open patch ledger.
type Store struct {
	db   *sql.DB
	path string
}

// schema is applied on every Open; statements must be idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS patch_runs (
		run_id VARCHAR PRIMARY KEY,
		started_at TIMESTAMP,
		reference_path VARCHAR,
		reference_size BIGINT,
		reference_modtime VARCHAR,
		calls_path VARCHAR,
		calls_size BIGINT,
		calls_modtime VARCHAR,
		chrom VARCHAR,
		sequence_id VARCHAR,
		sequence_length BIGINT,
		description VARCHAR,
		line_width BIGINT,
		records BIGINT,
		applied BIGINT,
		ignored BIGINT,
		out_of_range BIGINT,
		unchanged BIGINT,
		malformed BIGINT,
		output_path VARCHAR,
		output_size BIGINT
	)`,
	// Ledgers created before header settings were recorded.
	`ALTER TABLE patch_runs ADD COLUMN IF NOT EXISTS description VARCHAR`,
	`ALTER TABLE patch_runs ADD COLUMN IF NOT EXISTS line_width BIGINT`,
	`CREATE TABLE IF NOT EXISTS substitutions (
		run_id VARCHAR,
		record_id VARCHAR,
		chrom VARCHAR,
		pos BIGINT,
		ref_base VARCHAR,
		alt_base VARCHAR
	)`,
}

// Open opens the ledger at path, creating the file, its parent directory
// and the schema as needed. An empty path opens a throwaway in-memory ledger.
func Open(path string) (*Store, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger %q: %w", path, err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create ledger schema: %w", err)
		}
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database path, or "" for an in-memory ledger.
func (s *Store) Path() string {
	return s.path
}
