package cmd

import (
	"context"
	"encoding/csv"
	"fmt"

	"github.com/spf13/cobra"

	"property-pipeline/pipeline"
	"property-pipeline/storage"
)

//nolint:gochecknoglobals // Command flags need to be global for cobra
var describeOut string

// describeCmd represents the describe command
//
//nolint:gochecknoglobals // Cobra commands are typically global
var describeCmd = &cobra.Command{
	Use:   "describe [table.csv]",
	Short: "Recompute the metadata summary of an output table",
	Long: `Describe reads an existing output table (the configured output path by
default) and prints its column summary: type, unique and null counts, sample
values and source file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDescribe,
}

func init() {
	rootCmd.AddCommand(describeCmd)

	describeCmd.Flags().StringVar(&describeOut, "out", "", "write the summary to this CSV path instead of stdout")
}

func runDescribe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	path := cfg.Output.Table
	if len(args) == 1 {
		path = args[0]
	}

	src := storage.NewCSVSource(path)
	t, err := src.Load(context.Background())
	if err != nil {
		return err
	}
	summary := pipeline.DescribeTable(t, cfg)

	if describeOut != "" {
		if err := storage.WriteAll(storage.Output{Path: describeOut, Table: summary}); err != nil {
			return err
		}
		logger.Info("[describe] Wrote %d column summaries to %s", len(summary.Rows), describeOut)
		return nil
	}

	w := csv.NewWriter(cmd.OutOrStdout())
	if err := w.Write(summary.Columns); err != nil {
		return fmt.Errorf("describe: %w", err)
	}
	if err := w.WriteAll(summary.Rows); err != nil {
		return fmt.Errorf("describe: %w", err)
	}
	return nil
}
