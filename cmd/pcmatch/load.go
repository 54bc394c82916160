package main

import (
	"runtime"
	"strings"
	"time"

	"github.com/okian/pcmatch/internal/domain/model"
	"github.com/okian/pcmatch/internal/loadgen"
	"github.com/spf13/cobra"
)

func newLoadCmd() *cobra.Command {
	var (
		cfg   loadgen.Config
		round string
	)
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Drive a running server with synthetic solves",
		Long: `Submit synthetic solves to a running server concurrently, wait for them
to finish and check every assignment against its capacities and demand.

Examples:
  pcmatch load --url http://localhost:9080 --solves 100 --workers 8
  pcmatch load --round DL --reviewers 80 --papers 60`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.Round = model.Round(strings.ToUpper(round))
			stats, err := loadgen.Run(cmd.Context(), cfg)
			if outErr := outputJSON(cmd.OutOrStdout(), stats); outErr != nil && err == nil {
				err = outErr
			}
			return err
		},
	}
	cmd.Flags().StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "Base URL of the service")
	cmd.Flags().IntVar(&cfg.Solves, "solves", 20, "Number of solves to submit")
	cmd.Flags().IntVar(&cfg.Workers, "workers", runtime.NumCPU(), "Number of concurrent submitters")
	cmd.Flags().StringVar(&round, "round", string(model.RoundR1), "Round of every solve")
	cmd.Flags().IntVar(&cfg.Reviewers, "reviewers", 40, "Reviewers per snapshot")
	cmd.Flags().IntVar(&cfg.Papers, "papers", 25, "Papers per snapshot")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", 1, "Seed of the first snapshot")
	cmd.Flags().StringVar(&cfg.RunID, "run-id", "", "Idempotency key prefix; reuse one to replay a run (default: random)")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "HTTP request timeout")
	cmd.Flags().DurationVar(&cfg.Deadline, "deadline", 5*time.Minute, "Upper bound on waiting for all solves")
	return cmd
}
