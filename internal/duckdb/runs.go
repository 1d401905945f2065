package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run is one recorded patch run.
type Run struct {
	ID             string
	StartedAt      time.Time
	Reference      FileFingerprint
	Calls          FileFingerprint
	Chrom          string
	SequenceID     string
	SequenceLength int64
	Description    string
	LineWidth      int64
	Records        int64
	Applied        int64
	Ignored        int64
	OutOfRange     int64
	Unchanged      int64
	Malformed      int64
	OutputPath     string
	OutputSize     int64
}

const runColumns = `run_id, started_at,
	reference_path, reference_size, reference_modtime,
	calls_path, calls_size, calls_modtime,
	chrom, sequence_id, sequence_length, description, line_width,
	records, applied, ignored, out_of_range, unchanged, malformed,
	output_path, output_size`

// RecordRun inserts a run. An empty ID is replaced by a new UUID and a zero
// StartedAt by the current time; both are written back into run.
func (s *Store) RecordRun(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`INSERT INTO patch_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt,
		run.Reference.Path, run.Reference.Size, run.Reference.modTimeKey(),
		run.Calls.Path, run.Calls.Size, run.Calls.modTimeKey(),
		run.Chrom, run.SequenceID, run.SequenceLength, run.Description, run.LineWidth,
		run.Records, run.Applied, run.Ignored, run.OutOfRange, run.Unchanged, run.Malformed,
		run.OutputPath, run.OutputSize,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Runs returns all recorded runs, most recent first.
func (s *Store) Runs() ([]*Run, error) {
	rows, err := s.db.Query(`SELECT ` + runColumns + ` FROM patch_runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns a run by ID, or nil if not found.
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM patch_runs WHERE run_id=?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

// FindRun returns the most recent run over the same reference and call files
// (by path, size and modification time) for chrom, or nil if none exists.
func (s *Store) FindRun(ref, calls FileFingerprint, chrom string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM patch_runs
		WHERE reference_path=? AND reference_size=? AND reference_modtime=?
		  AND calls_path=? AND calls_size=? AND calls_modtime=?
		  AND chrom=?
		ORDER BY started_at DESC
		LIMIT 1`,
		ref.Path, ref.Size, ref.modTimeKey(),
		calls.Path, calls.Size, calls.modTimeKey(),
		chrom)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

// scanRun scans a single row into a Run.
func scanRun(row interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		r                      Run
		refModTime, callsModTm string
	)
	err := row.Scan(
		&r.ID, &r.StartedAt,
		&r.Reference.Path, &r.Reference.Size, &refModTime,
		&r.Calls.Path, &r.Calls.Size, &callsModTm,
		&r.Chrom, &r.SequenceID, &r.SequenceLength, &r.Description, &r.LineWidth,
		&r.Records, &r.Applied, &r.Ignored, &r.OutOfRange, &r.Unchanged, &r.Malformed,
		&r.OutputPath, &r.OutputSize,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	r.Reference.ModTime = parseModTime(refModTime)
	r.Calls.ModTime = parseModTime(callsModTm)
	return &r, nil
}
