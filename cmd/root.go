// Package cmd contains the CLI commands for the property pipeline
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"property-pipeline/config"
	"property-pipeline/utils"
)

//nolint:gochecknoglobals // Global vars needed for cobra CLI
var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command
//
//nolint:gochecknoglobals // Cobra commands are typically global
var rootCmd = &cobra.Command{
	Use:   "property-pipeline",
	Short: "Build a per-property, per-year feature table from price-paid data",
	Long: `property-pipeline joins postcode locations, price-paid transactions and
supermarket locations into one row per property per year, with interpolated
prices, postcode hierarchy centroids, building types and store proximity.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "./config.yaml", "config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")
}

// loadConfig reads the configuration and builds a logger at the effective
// level.
func loadConfig() (*config.Config, *utils.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, utils.NewLogger(cfg.LogLevel), nil
}
