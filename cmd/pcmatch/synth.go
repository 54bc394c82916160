package main

import (
	"os"

	"github.com/okian/pcmatch/internal/synth"
	"github.com/spf13/cobra"
)

func newSynthCmd() *cobra.Command {
	cfg := synth.DefaultConfig()
	var (
		output string
		format string
	)
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Generate a synthetic snapshot",
		Long: `Generate a deterministic synthetic snapshot for testing and demos.

Examples:
  pcmatch synth --reviewers 60 --papers 40 --seed 7 --output snap.yaml
  pcmatch synth --format json > snap.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := synth.Generate(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
				if !cmd.Flags().Changed("format") {
					format = formatOf(output)
				}
			}
			return writeSnapshot(w, snap, format)
		},
	}
	cmd.Flags().IntVar(&cfg.Reviewers, "reviewers", cfg.Reviewers, "Number of PC members, chairs included")
	cmd.Flags().IntVar(&cfg.Papers, "papers", cfg.Papers, "Number of papers, withdrawn included")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed; the same seed yields the same snapshot")
	cmd.Flags().IntVar(&cfg.Chairs, "chairs", cfg.Chairs, "Number of chairs")
	cmd.Flags().IntVar(&cfg.ConflictPairs, "conflict-pairs", cfg.ConflictPairs, "Number of reviewer-reviewer conflicts")
	cmd.Flags().Float64Var(&cfg.BidRate, "bid-rate", cfg.BidRate, "Share of pairs carrying a bid")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVar(&format, "format", formatYAML, "Output format: yaml or json")
	return cmd
}
