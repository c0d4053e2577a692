package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/MeKo-Tech/orient/internal/batch"
	"github.com/spf13/cobra"
)

// batchCmd represents the batch command.
var batchCmd = &cobra.Command{
	Use:   "batch [paths...]",
	Short: "Detect the orientation of many images in parallel",
	Long: `Detect the orientation of every image in the given files and directories
using a pool of workers. Results keep the input order.

Examples:
  orient batch ./scans
  orient batch ./scans --recursive --workers 8
  orient batch ./scans --include "*.png" --exclude "*_thumb*"
  orient batch ./scans --format csv --output results.csv --stats`,
	SilenceUsage: true,
	RunE:         runBatchCommand,
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.New("no input paths provided")
	}

	batchConfig := buildBatchConfig(cmd)

	det, err := buildDetector(GetConfig())
	if err != nil {
		return err
	}
	defer func() { _ = det.Close() }()

	result, err := batch.ProcessBatch(cmd.Context(), det, args, batchConfig)
	if result == nil {
		return err
	}

	if saveErr := result.SaveResults(cmd.OutOrStdout(), batchConfig.Format, batchConfig.OutputFile, batchConfig.Quiet); saveErr != nil {
		return saveErr
	}
	if batchConfig.ShowStats {
		result.PrintStats(cmd.ErrOrStderr(), batchConfig.Quiet)
	}
	if err != nil {
		return err
	}

	if failed := result.Stats().Failed; failed > 0 && !batchConfig.Quiet {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d images failed\n", failed, len(result.Items))
	}
	return nil
}

// buildBatchConfig merges the batch section of the configuration with the
// flags the user set explicitly.
func buildBatchConfig(cmd *cobra.Command) *batch.Config {
	cfg := GetConfig()

	batchConfig := batch.DefaultConfig()
	batchConfig.Format = cfg.Output.Format
	batchConfig.OutputFile = cfg.Output.File
	batchConfig.Workers = cfg.Batch.Workers
	batchConfig.Recursive = cfg.Batch.Recursive
	batchConfig.IncludePatterns = cfg.Batch.Include
	batchConfig.ExcludePatterns = cfg.Batch.Exclude
	batchConfig.ContinueOnError = cfg.Batch.ContinueOnError

	if cmd.Flags().Changed("format") {
		batchConfig.Format, _ = cmd.Flags().GetString("format")
	}
	if cmd.Flags().Changed("output") {
		batchConfig.OutputFile, _ = cmd.Flags().GetString("output")
	}
	if cmd.Flags().Changed("workers") {
		batchConfig.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if cmd.Flags().Changed("recursive") {
		batchConfig.Recursive, _ = cmd.Flags().GetBool("recursive")
	}
	if cmd.Flags().Changed("include") {
		batchConfig.IncludePatterns, _ = cmd.Flags().GetStringSlice("include")
	}
	if cmd.Flags().Changed("exclude") {
		batchConfig.ExcludePatterns, _ = cmd.Flags().GetStringSlice("exclude")
	}
	if cmd.Flags().Changed("fail-fast") {
		failFast, _ := cmd.Flags().GetBool("fail-fast")
		batchConfig.ContinueOnError = !failFast
	}

	batchConfig.ShowProgress, _ = cmd.Flags().GetBool("progress")
	batchConfig.Quiet, _ = cmd.Flags().GetBool("quiet")
	batchConfig.ShowStats, _ = cmd.Flags().GetBool("stats")

	if batchConfig.ShowProgress && !batchConfig.Quiet {
		batchConfig.Progress = batch.NewConsoleProgressCallback(os.Stderr, "Detecting: ")
	}
	return batchConfig
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringP("format", "f", outputFormatText, "output format (text, json, csv, yaml)")
	batchCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	batchCmd.Flags().IntP("workers", "w", 4, "number of parallel workers")
	batchCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	batchCmd.Flags().StringSlice("include", nil, "glob patterns of files to include")
	batchCmd.Flags().StringSlice("exclude", nil, "glob patterns of files to exclude")
	batchCmd.Flags().Bool("fail-fast", false, "stop at the first failed image")
	batchCmd.Flags().Bool("progress", false, "show a progress bar on stderr")
	batchCmd.Flags().BoolP("quiet", "q", false, "suppress progress and statistics")
	batchCmd.Flags().Bool("stats", false, "print processing statistics")
}
