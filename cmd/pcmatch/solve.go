package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/pcmatch/internal/config"
	"github.com/okian/pcmatch/internal/domain/matching"
	"github.com/okian/pcmatch/internal/domain/model"
	"github.com/okian/pcmatch/internal/domain/report"
	"github.com/okian/pcmatch/internal/domain/scoring"
	"github.com/okian/pcmatch/internal/domain/solver"
	"github.com/okian/pcmatch/pkg/logger"
	"github.com/spf13/cobra"
)

type solveOutput struct {
	Round       model.Round   `json:"round"`
	Assignments interface{}   `json:"assignments"`
	Stats       *report.Stats `json:"stats,omitempty"`
}

func newSolveCmd() *cobra.Command {
	var (
		input     string
		round     string
		detailed  bool
		withStats bool
	)
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve one round over a snapshot file",
		Long: `Solve one round over a snapshot and print the assignment table as JSON.

Weights and round capacities come from PCMATCH_* variables, a .env file or
the YAML file named by PCMATCH_CONFIG.

Examples:
  pcmatch solve --input snapshot.yaml --round R1
  pcmatch solve --input snapshot.json --round DL --detailed --stats
  pcmatch synth | pcmatch solve --input - --round R2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			snap, err := readSnapshot(input, cmd.InOrStdin())
			if err != nil {
				return err
			}

			s := solver.New(
				solver.WithPolicy(cfg.Policy()),
				solver.WithAggregator(scoring.NewAggregator(
					scoring.WithWeights(cfg.Weights.Preference, cfg.Weights.Affinity, cfg.Weights.External))),
				solver.WithLogger(logger.Named("solver")),
			)
			res, err := s.Solve(ctx, model.Round(strings.ToUpper(round)), snap)
			if err != nil {
				var inf *matching.InfeasibleError
				if errors.As(err, &inf) {
					return fmt.Errorf("%w (papers: %s)", err, strings.Join(inf.Papers, ", "))
				}
				return err
			}

			out := solveOutput{Round: res.Round, Assignments: res.Compact}
			if detailed {
				out.Assignments = res.Detailed
			}
			if withStats {
				out.Stats = &res.Stats
			}
			return outputJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Snapshot file (YAML or JSON; - for stdin YAML)")
	cmd.Flags().StringVarP(&round, "round", "r", string(model.RoundR1), "Round: R1, R2 or DL")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "Print the detailed table instead of the compact one")
	cmd.Flags().BoolVar(&withStats, "stats", false, "Include summary statistics")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
