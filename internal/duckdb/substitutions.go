package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-patch/internal/patch"
)

// SubstitutionRow is a stored substitution.
type SubstitutionRow struct {
	RunID    string
	RecordID string
	Chrom    string
	Pos      int64
	Ref      string
	Alt      string
}

// WriteSubstitutions batch-inserts the substitutions of a run using the Appender API.
func (s *Store) WriteSubstitutions(runID, chrom string, subs []patch.Substitution) error {
	if len(subs) == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "substitutions")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, sub := range subs {
		if err := appender.AppendRow(
			runID, sub.RecordID, chrom, sub.Pos, string(sub.From), string(sub.To),
		); err != nil {
			return fmt.Errorf("append substitution: %w", err)
		}
	}

	return appender.Flush()
}

// Substitutions returns the substitutions recorded for a run, by position.
func (s *Store) Substitutions(runID string) ([]SubstitutionRow, error) {
	rows, err := s.db.Query(`SELECT run_id, record_id, chrom, pos, ref_base, alt_base
		FROM substitutions
		WHERE run_id=?
		ORDER BY pos`, runID)
	if err != nil {
		return nil, fmt.Errorf("query substitutions: %w", err)
	}
	defer rows.Close()

	var out []SubstitutionRow
	for rows.Next() {
		var r SubstitutionRow
		if err := rows.Scan(&r.RunID, &r.RecordID, &r.Chrom, &r.Pos, &r.Ref, &r.Alt); err != nil {
			return nil, fmt.Errorf("scan substitution: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate substitutions: %w", err)
	}
	return out, nil
}

// CountSubstitutions returns the number of substitutions recorded for a run.
func (s *Store) CountSubstitutions(runID string) (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM substitutions WHERE run_id=?`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count substitutions: %w", err)
	}
	return n, nil
}

// DeleteRun removes a run and its substitutions.
func (s *Store) DeleteRun(runID string) error {
	if _, err := s.db.Exec(`DELETE FROM substitutions WHERE run_id=?`, runID); err != nil {
		return fmt.Errorf("delete substitutions: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM patch_runs WHERE run_id=?`, runID); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}
