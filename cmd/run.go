package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"property-pipeline/pipeline"
	"property-pipeline/services"
)

//nolint:gochecknoglobals // Command flags need to be global for cobra
var (
	runWorkers int
	runRadius  float64
	runStrict  bool
	runQuiet   bool
)

// runCmd represents the run command
//
//nolint:gochecknoglobals // Cobra commands are typically global
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline end to end",
	Long: `Run loads the three sources, builds the property-year table and writes it
together with its metadata summary and shape table. Nothing is written unless
every stage succeeds.

Examples:
  # Run with ./config.yaml and defaults
  property-pipeline run

  # Count stores within 5km using four matcher workers
  property-pipeline run --radius 5000 --workers 4

  # Abort on the first malformed row
  property-pipeline run --strict`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "facility matcher workers (overrides config)")
	runCmd.Flags().Float64Var(&runRadius, "radius", 0, "store radius in meters (overrides config)")
	runCmd.Flags().BoolVar(&runStrict, "strict", false, "fail on the first malformed row")
	runCmd.Flags().BoolVar(&runQuiet, "quiet", false, "do not print the run report")
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("workers") {
		cfg.Workers = runWorkers
	}
	if cmd.Flags().Changed("radius") {
		cfg.StoreRadiusMeters = runRadius
	}
	if runStrict {
		cfg.Strict = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := pipeline.New(cfg, logger).Run(ctx)
	if err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	if !runQuiet {
		services.NewInsightService(logger).Print(cmd.OutOrStdout(), res.Report)
	}
	return nil
}
