package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/MeKo-Tech/orient/internal/batch"
	"github.com/MeKo-Tech/orient/internal/orientation"
	"github.com/spf13/cobra"
)

const (
	outputFormatJSON = "json"
	outputFormatYAML = "yaml"
	outputFormatText = "text"
)

// detectCmd represents the detect command.
var detectCmd = &cobra.Command{
	Use:   "detect <image>...",
	Short: "Detect the orientation of one or more images",
	Long: `Detect how far each image is rotated away from upright.

The heuristic strategy runs OCR on all four rotations and keeps the most
readable one. The classifier strategy uses the ONNX orientation model.

Supported formats: JPEG, PNG, GIF, BMP, TIFF, WebP

Examples:
  orient detect scan.png
  orient detect *.jpg --format json
  orient detect page.tif --verbose-trials
  orient detect page.png --strategy classifier`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE:         runDetect,
}

func runDetect(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.New("no input files provided")
	}

	cfg := GetConfig()
	format := cfg.Output.Format
	outputFile := cfg.Output.File
	verboseTrials := cfg.Output.VerboseTrials
	precision := cfg.Output.ConfidencePrecision

	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}
	if cmd.Flags().Changed("output") {
		outputFile, _ = cmd.Flags().GetString("output")
	}
	if cmd.Flags().Changed("verbose-trials") {
		verboseTrials, _ = cmd.Flags().GetBool("verbose-trials")
	}
	if cmd.Flags().Changed("precision") {
		precision, _ = cmd.Flags().GetInt("precision")
	}

	switch format {
	case outputFormatText, outputFormatJSON, outputFormatYAML:
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}

	det, err := buildDetector(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = det.Close() }()

	items := make([]batch.Item, 0, len(args))
	failed := 0
	for _, path := range args {
		res, err := det.Detect(cmd.Context(), path)
		if err != nil {
			failed++
			items = append(items, batch.Item{File: path, Error: err.Error()})
			if !orientation.IsInputError(err) {
				return fmt.Errorf("detection failed for %s: %w", path, err)
			}
			continue
		}
		items = append(items, batch.Item{File: path, Result: &res})
	}

	var out string
	if format == outputFormatText {
		out = formatDetectText(items, verboseTrials, precision)
	} else {
		br := &batch.Result{Items: items}
		out, err = br.FormatResults(format)
		if err != nil {
			return err
		}
	}

	if err := writeOutput(cmd.OutOrStdout(), outputFile, out); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d images could not be processed", failed, len(args))
	}
	return nil
}

// formatDetectText renders one line per image and, when verbose, the four
// trial hypotheses below it.
func formatDetectText(items []batch.Item, verboseTrials bool, precision int) string {
	if precision < 0 {
		precision = 2
	}
	var sb strings.Builder
	for _, it := range items {
		if it.Result == nil {
			_, _ = fmt.Fprintf(&sb, "%s: error: %s\n", it.File, it.Error)
			continue
		}
		r := it.Result
		_, _ = fmt.Fprintf(&sb, "%s: rotated %d° (rotate %d° clockwise to fix), score %.*f, %s in %v",
			it.File, r.CurrentOrientation, r.BestAngle, precision, r.Score, r.Strategy,
			r.Duration.Round(time.Millisecond))
		if r.LowConfidence {
			sb.WriteString(" [low confidence]")
		}
		sb.WriteString("\n")

		if !verboseTrials {
			continue
		}
		for _, h := range r.Hypotheses {
			if h.Failed() {
				_, _ = fmt.Fprintf(&sb, "  %3d°: failed: %s\n", h.Angle, h.Err)
				continue
			}
			_, _ = fmt.Fprintf(&sb, "  %3d°: score %.*f  confidence %.*f  readability %.*f  words %d  chars %d\n",
				h.Angle, precision, h.Score, precision, h.Confidence, precision, h.Readability,
				h.ValidWords, h.TextLength)
		}
	}
	return sb.String()
}

// writeOutput writes s to outputFile, or to w when no file is given.
func writeOutput(w io.Writer, outputFile, s string) error {
	if outputFile == "" {
		_, err := io.WriteString(w, s)
		return err
	}
	if err := os.WriteFile(outputFile, []byte(s), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().StringP("format", "f", outputFormatText, "output format (text, json, yaml)")
	detectCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	detectCmd.Flags().Bool("verbose-trials", false, "print the hypothesis of every rotation trial")
	detectCmd.Flags().Int("precision", 2, "decimal places for scores in text output")
}
