package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vibe-patch/internal/duckdb"
)

func newHistoryCmd() *cobra.Command {
	var deleteID string

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded patch runs",
		Long: `List patch runs recorded in the DuckDB ledger, newest first.

With a run ID, print the substitutions recorded for that run instead.
--delete removes a run and its substitutions from the ledger.`,
		Example: `  vibe-patch history --ledger ledger.duckdb
  vibe-patch history --ledger ledger.duckdb 6f1c2d3e-...
  vibe-patch history --ledger ledger.duckdb --delete 6f1c2d3e-...`,
		Args: maxArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{"ledger.path": "ledger"})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := viper.GetString("ledger.path")
			if path == "" {
				return newUsageError(cmd, "--ledger is required")
			}
			if deleteID != "" && len(args) > 0 {
				return newUsageError(cmd, "--delete does not take a run-id argument")
			}
			store, err := duckdb.Open(path)
			if err != nil {
				return fmt.Errorf("opening ledger: %w", err)
			}
			defer store.Close()

			if deleteID != "" {
				return deleteRun(cmd.OutOrStdout(), store, deleteID)
			}
			if len(args) == 1 {
				return printSubstitutions(cmd.OutOrStdout(), store, args[0])
			}
			return printRuns(cmd.OutOrStdout(), store)
		},
	}

	cmd.Flags().String("ledger", "", "DuckDB ledger path")
	cmd.Flags().StringVar(&deleteID, "delete", "", "Delete the run with this ID")

	return cmd
}

func printRuns(w io.Writer, store *duckdb.Store) error {
	runs, err := store.Runs()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "# No runs recorded")
		return nil
	}

	fmt.Fprintln(w, "#run_id\tstarted_at\tchrom\tsequence_id\tcalls\tapplied\tignored\tout_of_range\tmalformed\tsubstitutions\toutput")
	for _, r := range runs {
		output := r.OutputPath
		if output == "" {
			output = "-"
		}
		// Zero when the run was recorded without --record-substitutions.
		subs, err := store.CountSubstitutions(r.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Format(time.RFC3339), r.Chrom, r.SequenceID,
			r.Records, r.Applied, r.Ignored, r.OutOfRange, r.Malformed, subs, output)
	}
	return nil
}

func printSubstitutions(w io.Writer, store *duckdb.Store, runID string) error {
	run, err := store.GetRun(runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %q not found", runID)
	}

	subs, err := store.Substitutions(runID)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "#record_id\tchrom\tpos\tref\talt")
	for _, s := range subs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", s.RecordID, s.Chrom, s.Pos, s.Ref, s.Alt)
	}
	return nil
}

func deleteRun(w io.Writer, store *duckdb.Store, runID string) error {
	run, err := store.GetRun(runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %q not found", runID)
	}
	if err := store.DeleteRun(runID); err != nil {
		return err
	}
	fmt.Fprintf(w, "Deleted run %s\n", runID)
	return nil
}
