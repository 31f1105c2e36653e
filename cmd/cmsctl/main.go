package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/medtravel/directory/internal/infrastructure/observability"
	"github.com/medtravel/directory/pkg/config"
)

func main() {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "cmsctl",
		Short:         "Inspect, search and export the aggregated hospital directory",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			observability.InitCLILogger(verbose)
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log fetch progress to stderr")

	rootCmd.AddCommand(newSnapshotCmd())
	rootCmd.AddCommand(newDoctorsCmd())
	rootCmd.AddCommand(newTreatmentsCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newInvalidateCmd())
	rootCmd.AddCommand(newZeroResultsCmd())
	rootCmd.AddCommand(newEvalCmd())
	rootCmd.AddCommand(newRecordsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
