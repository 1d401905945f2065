package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-patch/internal/duckdb"
	"github.com/inodb/vibe-patch/internal/genotype"
	"github.com/inodb/vibe-patch/internal/pipeline"
)

type patchFlags struct {
	reference     string
	calls         string
	output        string
	sample        string
	id            string
	dryRun        bool
	progress      bool
	recordSubs    bool
	skipUnchanged bool
}

func newPatchCmd() *cobra.Command {
	var f patchFlags

	cmd := &cobra.Command{
		Use:   "patch [options]",
		Short: "Apply genotype calls onto a reference chromosome",
		Long: `Apply genotype calls for one chromosome onto a reference FASTA and write
the personalized sequence as a single-record FASTA file.

Each call is collapsed to its first allele. Calls whose first allele is not
A, C, G or T (indels, no-calls) are ignored, so the output always has the
same length and coordinates as the reference.`,
		Example: `  # Patch chromosome 22
  vibe-patch patch -r chr22.fa -c genome_Jane_v5_Full.txt --chrom 22 -o jane_chr22.fa

  # Name the output record Jane_chr22 and keep a ledger of the run
  vibe-patch patch -r chr22.fa -c genome.txt --chrom 22 --sample Jane \
      --ledger ~/.vibe-patch/ledger.duckdb --record-substitutions -o jane_chr22.fa

  # Read calls from stdin and only report counts
  zcat genome.txt.gz | vibe-patch patch -r chr22.fa -c - --chrom 22 --dry-run`,
		Args: exactArgs(0),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{
				"patch.chrom":       "chrom",
				"patch.description": "description",
				"patch.wrap":        "wrap",
				"patch.workers":     "workers",
				"ledger.path":       "ledger",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPatch(cmd, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.reference, "reference", "r", "", "Reference FASTA (plain or gzipped); only the first record is used")
	flags.StringVarP(&f.calls, "calls", "c", "", "Genotype call file: rsid, chromosome, position, genotype (use '-' for stdin)")
	flags.StringVarP(&f.output, "output", "o", "", "Output FASTA path (.gz suffix compresses)")
	flags.String("chrom", "", "Chromosome to patch (e.g. 22 or chr22)")
	flags.StringVar(&f.sample, "sample", "", "Sample name; output ID becomes <sample>_chr<chrom>")
	flags.StringVar(&f.id, "id", "", "Output sequence ID (default: reference ID)")
	flags.String("description", pipeline.DefaultDescription, "Description written after the output ID")
	flags.Int("wrap", 70, "Output line width")
	flags.Int("workers", 1, "Allele resolution workers (0 = all CPUs)")
	flags.BoolVar(&f.dryRun, "dry-run", false, "Patch and report counts without writing output")
	flags.BoolVar(&f.progress, "progress", false, "Show a progress bar while reading calls")
	flags.String("ledger", "", "DuckDB ledger to record the run in")
	flags.BoolVar(&f.recordSubs, "record-substitutions", false, "Record every applied substitution in the ledger")
	flags.BoolVar(&f.skipUnchanged, "skip-unchanged", false, "Skip if the ledger has a run over identical inputs and its output is intact")

	return cmd
}

func runPatch(cmd *cobra.Command, f patchFlags) error {
	if f.reference == "" {
		return newUsageError(cmd, "--reference is required")
	}
	if f.calls == "" {
		return newUsageError(cmd, "--calls is required")
	}
	chrom := viper.GetString("patch.chrom")
	if chrom == "" {
		return newUsageError(cmd, "--chrom is required")
	}
	if f.output == "" && !f.dryRun {
		return newUsageError(cmd, "--output is required (or use --dry-run)")
	}
	if f.sample != "" && f.id != "" {
		return newUsageError(cmd, "--sample and --id are mutually exclusive")
	}
	if f.recordSubs && viper.GetString("ledger.path") == "" {
		return newUsageError(cmd, "--record-substitutions requires --ledger")
	}
	if f.skipUnchanged && viper.GetString("ledger.path") == "" {
		return newUsageError(cmd, "--skip-unchanged requires --ledger")
	}

	logger, err := newLogger(viper.GetString("log.level"))
	if err != nil {
		return newUsageError(cmd, "%v", err)
	}
	defer logger.Sync()

	workers := viper.GetInt("patch.workers")
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	opts := pipeline.Options{
		ReferencePath:      f.reference,
		CallsPath:          f.calls,
		Chrom:              chrom,
		OutputPath:         f.output,
		SequenceID:         f.id,
		Description:        viper.GetString("patch.description"),
		Width:              viper.GetInt("patch.wrap"),
		Workers:            workers,
		DryRun:             f.dryRun,
		TrackSubstitutions: f.recordSubs,
	}
	if f.sample != "" {
		opts.SequenceID = pipeline.SequenceName(f.sample, chrom)
	}

	var store *duckdb.Store
	if path := viper.GetString("ledger.path"); path != "" {
		store, err = duckdb.Open(path)
		if err != nil {
			return fmt.Errorf("opening ledger: %w", err)
		}
		defer store.Close()

		if f.skipUnchanged {
			prev, err := pipeline.UpToDate(store, opts)
			if err != nil {
				return fmt.Errorf("checking ledger: %w", err)
			}
			if prev != nil {
				logger.Info("inputs unchanged since previous run; skipping",
					zap.String("run_id", prev.ID),
					zap.String("output", prev.OutputPath))
				fmt.Fprintf(cmd.ErrOrStderr(), "Up to date: %s (run %s)\n", prev.OutputPath, prev.ID)
				return nil
			}
		}
	}

	var bar *pb.ProgressBar
	if f.progress && f.calls != "-" {
		if info, err := os.Stat(f.calls); err == nil {
			bar = pb.Full.New(0).
				SetTotal(info.Size()).
				SetWriter(cmd.ErrOrStderr()).
				Set(pb.Bytes, true).
				Start()
			opts.RawReader = func(r io.Reader) io.Reader {
				return bar.NewProxyReader(r)
			}
		}
	}

	res, err := pipeline.New(logger).Run(opts)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	if store != nil {
		run, err := pipeline.Record(store, opts, res)
		if err != nil {
			return err
		}
		logger.Info("recorded run", zap.String("run_id", run.ID), zap.String("ledger", store.Path()))
	}

	printSummary(cmd.ErrOrStderr(), opts, res)
	return nil
}

func printSummary(w io.Writer, opts pipeline.Options, res *pipeline.Result) {
	fmt.Fprintf(w, "Sequence:            %s (%d bp)\n", res.SequenceID, res.Length)
	fmt.Fprintf(w, "Calls on chr%-4s     %d\n", genotype.NormalizeChrom(opts.Chrom)+":", res.Stats.Records)
	fmt.Fprintf(w, "  Applied:           %d\n", res.Stats.Applied)
	fmt.Fprintf(w, "  Ignored:           %d\n", res.Stats.Ignored)
	fmt.Fprintf(w, "  Matched reference: %d\n", res.Stats.Unchanged)
	fmt.Fprintf(w, "  Out of range:      %d\n", res.Stats.OutOfRange)
	fmt.Fprintf(w, "Malformed rows:      %d\n", res.MalformedRows)
	if res.Written {
		fmt.Fprintf(w, "Output:              %s\n", opts.OutputPath)
	}
}
