package pipeline

import (
	"os"
	"path/filepath"

	"github.com/inodb/vibe-patch/internal/duckdb"
	"github.com/inodb/vibe-patch/internal/fasta"
	"github.com/inodb/vibe-patch/internal/genotype"
	"github.com/inodb/vibe-patch/internal/patch"
)

// Recorder persists completed runs.
type Recorder interface {
	RecordRun(run *duckdb.Run) error
	WriteSubstitutions(runID, chrom string, subs []patch.Substitution) error
}

// Previous looks up earlier runs by input fingerprint.
type Previous interface {
	FindRun(ref, calls duckdb.FileFingerprint, chrom string) (*duckdb.Run, error)
}

// Fingerprints stats the reference and call files of opts.
// Stdin call streams get a fingerprint with only the path set.
func Fingerprints(opts Options) (ref, calls duckdb.FileFingerprint, err error) {
	ref, err = duckdb.StatFile(opts.ReferencePath)
	if err != nil {
		return ref, calls, err
	}
	if opts.CallsPath == "-" {
		return ref, duckdb.StdinFingerprint(), nil
	}
	calls, err = duckdb.StatFile(opts.CallsPath)
	return ref, calls, err
}

// Record writes a completed run and its substitutions to rec.
func Record(rec Recorder, opts Options, res *Result) (*duckdb.Run, error) {
	refFP, callsFP, err := Fingerprints(opts)
	if err != nil {
		return nil, &StageError{Stage: StageRecord, Err: err}
	}

	run := &duckdb.Run{
		Reference:      refFP,
		Calls:          callsFP,
		Chrom:          genotype.NormalizeChrom(opts.Chrom),
		SequenceID:     res.SequenceID,
		SequenceLength: int64(res.Length),
		Description:    res.Description,
		LineWidth:      int64(opts.width()),
		Records:        int64(res.Stats.Records),
		Applied:        int64(res.Stats.Applied),
		Ignored:        int64(res.Stats.Ignored),
		OutOfRange:     int64(res.Stats.OutOfRange),
		Unchanged:      int64(res.Stats.Unchanged),
		Malformed:      int64(res.MalformedRows),
	}
	if res.Written {
		out, err := filepath.Abs(opts.OutputPath)
		if err != nil {
			return nil, &StageError{Stage: StageRecord, Path: opts.OutputPath, Err: err}
		}
		run.OutputPath = out
		if info, err := os.Stat(out); err == nil {
			run.OutputSize = info.Size()
		}
	}

	if err := rec.RecordRun(run); err != nil {
		return nil, &StageError{Stage: StageRecord, Err: err}
	}
	if err := rec.WriteSubstitutions(run.ID, run.Chrom, res.Substitutions); err != nil {
		return nil, &StageError{Stage: StageRecord, Err: err}
	}
	return run, nil
}

// UpToDate returns the previous run that read the same inputs and wrote the
// same header, line width and output path, provided that output still exists
// with its recorded size. It returns nil when opts must be run again.
func UpToDate(prev Previous, opts Options) (*duckdb.Run, error) {
	if opts.CallsPath == "-" || opts.OutputPath == "" {
		return nil, nil
	}
	refFP, callsFP, err := Fingerprints(opts)
	if err != nil {
		return nil, nil
	}
	out, err := filepath.Abs(opts.OutputPath)
	if err != nil {
		return nil, nil
	}

	run, err := prev.FindRun(refFP, callsFP, genotype.NormalizeChrom(opts.Chrom))
	if err != nil || run == nil {
		return nil, err
	}
	if run.OutputPath != out ||
		run.Description != opts.description() ||
		run.LineWidth != int64(opts.width()) {
		return nil, nil
	}

	id := opts.SequenceID
	if id == "" {
		if id, _, err = fasta.ReadHeader(opts.ReferencePath); err != nil {
			return nil, nil
		}
	}
	if run.SequenceID != id {
		return nil, nil
	}

	info, err := os.Stat(out)
	if err != nil || info.Size() != run.OutputSize {
		return nil, nil
	}
	return run, nil
}
