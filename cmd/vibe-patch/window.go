package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vibe-patch/internal/fasta"
)

func newWindowCmd() *cobra.Command {
	var (
		start  int
		output string
		id     string
	)

	cmd := &cobra.Command{
		Use:   "window <sequence.fa>",
		Short: "Extract a fixed-size window from a sequence",
		Long: `Extract a fixed-size window from the first record of a FASTA file.

Coordinates are 0-based and half-open. Because patched sequences keep the
reference's coordinates, the same --start selects the same region in the
reference and in every personalized sequence.`,
		Example: `  # Default 131072 bp window
  vibe-patch window jane_chr22.fa --start 19928000 -o jane_window.fa

  # Custom size, written to stdout
  vibe-patch window jane_chr22.fa --start 100 --size 50`,
		Args: exactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{"window.size": "size"})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("start") {
				return newUsageError(cmd, "--start is required")
			}
			size := viper.GetInt("window.size")

			ref, err := fasta.LoadReference(args[0])
			if err != nil {
				return err
			}
			seq, err := fasta.Window(ref.Seq, start, size)
			if err != nil {
				return err
			}
			if id == "" {
				id = fasta.WindowID(ref.ID, start, size)
			}

			if output != "" {
				return fasta.WriteFile(output, id, "", seq, viper.GetInt("patch.wrap"))
			}
			fw := fasta.NewWriter(cmd.OutOrStdout(), viper.GetInt("patch.wrap"))
			if err := fw.WriteRecord(id, "", seq); err != nil {
				return fmt.Errorf("writing window: %w", err)
			}
			return fw.Flush()
		},
	}

	cmd.Flags().IntVar(&start, "start", 0, "0-based window start")
	cmd.Flags().Int("size", fasta.DefaultWindowSize, "Window length in bases")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output FASTA path (default: stdout)")
	cmd.Flags().StringVar(&id, "id", "", "Output sequence ID (default: <id>:<start>-<end>)")

	return cmd
}
