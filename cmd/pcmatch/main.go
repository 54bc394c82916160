// Package main provides the pcmatch CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/okian/pcmatch/internal/domain/matching"
	"github.com/okian/pcmatch/pkg/logger"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// Exit codes.
const (
	ExitSuccess    = 0 // Success
	ExitError      = 1 // General error (invalid arguments, runtime failure)
	ExitInfeasible = 2 // Some papers could not reach their review count
)

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(execute(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the CLI and maps the outcome to an exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		if errors.Is(err, matching.ErrInfeasible) {
			return ExitInfeasible
		}
		return ExitError
	}
	return ExitSuccess
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:   "pcmatch",
		Short: "Assign program-committee reviewers to papers",
		Long: `pcmatch assigns reviewers to papers under reviewer capacity, per-paper
demand and conflict-of-interest constraints, ranking candidate pairs by a
composite of bid preference, topic affinity and external scores.

Snapshots are YAML or JSON files holding reviewers, papers, preferences,
external scores, aliases and conflicts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithWriter(stderr)); err != nil {
				return err
			}
			return logger.SetLevelString(logLevel)
		},
	}
	root.Version = Version
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	root.AddCommand(newSolveCmd(), newSynthCmd(), newLoadCmd())
	return root
}
