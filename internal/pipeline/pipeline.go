// Package pipeline runs the load, read, patch and write stages that turn a
// reference FASTA and a genotype call file into a personalized sequence.
package pipeline

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/inodb/vibe-patch/internal/fasta"
	"github.com/inodb/vibe-patch/internal/fileio"
	"github.com/inodb/vibe-patch/internal/genotype"
	"github.com/inodb/vibe-patch/internal/patch"
)

// DefaultDescription is the header tag written after the sequence ID.
const DefaultDescription = "patched_genotype_calls"

// Options configures a pipeline run.
type Options struct {
	ReferencePath string
	CallsPath     string // "-" for stdin
	Chrom         string
	OutputPath    string

	SequenceID  string // defaults to the reference ID
	Description string // defaults to DefaultDescription
	Width       int    // output line width, defaults to fasta.DefaultWidth
	Workers     int    // > 1 resolves alleles in parallel

	DryRun             bool // patch but do not write output
	TrackSubstitutions bool // collect every substitution in Result

	// RawReader, if set, wraps the raw call file stream (e.g. for progress).
	RawReader func(io.Reader) io.Reader
}

func (o Options) description() string {
	if o.Description == "" {
		return DefaultDescription
	}
	return o.Description
}

func (o Options) width() int {
	if o.Width <= 0 {
		return fasta.DefaultWidth
	}
	return o.Width
}

// Result summarizes a completed run.
type Result struct {
	SequenceID     string
	Description    string
	Length         int
	Stats          patch.Stats
	MalformedRows  int
	OtherChromRows int
	MoreRecords    bool // the reference had records after the first
	Substitutions  []patch.Substitution
	Written        bool
}

// Pipeline executes runs.
type Pipeline struct {
	logger *zap.Logger
}

// New creates a pipeline. A nil logger disables logging.
func New(logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{logger: logger}
}

// Run loads the reference, streams calls for opts.Chrom, patches the
// reference in place and writes the result. Fatal failures are returned as
// *StageError naming the failing stage and path.
func (p *Pipeline) Run(opts Options) (*Result, error) {
	if opts.Chrom == "" {
		return nil, fmt.Errorf("chromosome is required")
	}
	if opts.OutputPath == "" && !opts.DryRun {
		return nil, fmt.Errorf("output path is required")
	}

	// Load
	p.logger.Info("loading reference", zap.String("path", opts.ReferencePath))
	ref, err := fasta.LoadReference(opts.ReferencePath)
	if err != nil {
		return nil, &StageError{Stage: StageLoad, Path: opts.ReferencePath, Err: err}
	}
	if ref.MoreRecords {
		p.logger.Warn("reference has more than one record; only the first is used",
			zap.String("id", ref.ID))
	}
	p.logger.Info("loaded reference",
		zap.String("id", ref.ID),
		zap.Int("length", ref.Len()))

	// Read
	var openOpts []fileio.Option
	if opts.RawReader != nil {
		openOpts = append(openOpts, fileio.WithRawReader(opts.RawReader))
	}
	reader, err := genotype.NewReader(opts.CallsPath, opts.Chrom, openOpts...)
	if err != nil {
		return nil, &StageError{Stage: StageRead, Path: opts.CallsPath, Err: err}
	}
	defer reader.Close()
	reader.SetLogger(p.logger)

	// Patch
	res := &Result{
		SequenceID:     opts.SequenceID,
		Description:    opts.description(),
		Length:         ref.Len(),
		MoreRecords:    ref.MoreRecords,
	}
	if res.SequenceID == "" {
		res.SequenceID = ref.ID
	}

	patcher := patch.New()
	patcher.SetLogger(p.logger)
	if opts.TrackSubstitutions {
		patcher.OnApply(func(s patch.Substitution) {
			res.Substitutions = append(res.Substitutions, s)
		})
	}

	p.logger.Info("patching",
		zap.String("calls", opts.CallsPath),
		zap.String("chrom", reader.Chrom()),
		zap.Int("workers", max(opts.Workers, 1)))
	if opts.Workers > 1 {
		res.Stats, err = patcher.ApplyParallel(ref.Seq, reader, opts.Workers)
	} else {
		res.Stats, err = patcher.Apply(ref.Seq, reader)
	}
	if err != nil {
		return nil, &StageError{Stage: StagePatch, Path: opts.CallsPath, Err: err}
	}
	res.MalformedRows = reader.MalformedRows()
	res.OtherChromRows = reader.OtherChromRows()

	if res.MalformedRows > 0 {
		p.logger.Warn("skipped malformed rows", zap.Int("count", res.MalformedRows))
	}
	if res.Stats.Records == 0 {
		p.logger.Warn("no calls matched chromosome", zap.String("chrom", opts.Chrom))
	}
	p.logger.Info("patched",
		zap.Int("calls", res.Stats.Records),
		zap.Int("applied", res.Stats.Applied),
		zap.Int("ignored", res.Stats.Ignored),
		zap.Int("out_of_range", res.Stats.OutOfRange),
		zap.Int("unchanged", res.Stats.Unchanged))

	if opts.DryRun {
		return res, nil
	}

	// Write
	if err := fasta.WriteFile(opts.OutputPath, res.SequenceID, res.Description, ref.Seq, opts.width()); err != nil {
		return nil, &StageError{Stage: StageWrite, Path: opts.OutputPath, Err: err}
	}
	res.Written = true
	p.logger.Info("wrote patched sequence",
		zap.String("path", opts.OutputPath),
		zap.String("id", res.SequenceID))

	return res, nil
}

// SequenceName returns the output sequence ID for a sample and chromosome,
// e.g. "Jane_chr22". An empty sample yields "".
func SequenceName(sample, chrom string) string {
	if sample == "" {
		return ""
	}
	return sample + "_chr" + genotype.NormalizeChrom(chrom)
}
