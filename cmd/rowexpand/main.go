// Command rowexpand expands compact "counts per size" rows into one row per
// unit and writes them to a workbook tab or a SQL table.
//
//	rowexpand run --config configs/jan_2026.yaml
//	rowexpand validate --config configs/jan_2026.yaml
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// flags holds command-line overrides applied on top of the job file.
type flags struct {
	cfgPath        string
	dryRun         bool
	metricsBackend string
	pushgatewayURL string
	dogstatsdAddr  string
	logLevel       string
}

func newRootCmd() *cobra.Command {
	var f flags

	root := &cobra.Command{
		Use:           "rowexpand",
		Short:         "Expand per-size count rows into one row per unit",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&f.cfgPath, "config", "c", "configs/jan_2026.yaml", "job config path (YAML, or JSON by .json extension)")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "log level (overrides config and ROWEXPAND_LOG_LEVEL)")

	run := &cobra.Command{
		Use:   "run",
		Short: "Run the expansion described by the job config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			job, err := loadJob(f, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return runJob(cmd.Context(), job, cmd.OutOrStdout())
		},
	}
	run.Flags().BoolVar(&f.dryRun, "dry-run", false, "expand and report without writing the destination")
	run.Flags().StringVar(&f.metricsBackend, "metrics-backend", "", "metrics backend: none, pushgateway or datadog (overrides METRICS_BACKEND)")
	run.Flags().StringVar(&f.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides PUSHGATEWAY_URL)")
	run.Flags().StringVar(&f.dogstatsdAddr, "dogstatsd-addr", "", "DogStatsD address (overrides DOGSTATSD_ADDR)")

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Validate the job config and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := loadJob(f, cmd.ErrOrStderr()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid: %s\n", f.cfgPath)
			return nil
		},
	}

	root.AddCommand(run, validate)
	return root
}
