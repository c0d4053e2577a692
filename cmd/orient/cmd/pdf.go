package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MeKo-Tech/orient/internal/pdf"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// pdfCmd represents the pdf command.
var pdfCmd = &cobra.Command{
	Use:   "pdf <file.pdf>...",
	Short: "Detect the orientation of scanned pages in PDF files",
	Long: `Extract the embedded page images of one or more PDF files and detect the
orientation of each. The page orientation is taken from its largest image.

Examples:
  orient pdf document.pdf
  orient pdf document.pdf --pages 1-5
  orient pdf *.pdf --format json --output results.json
  orient pdf secret.pdf --password hunter2`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runPDF,
}

func runPDF(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	format := cfg.Output.Format
	outputFile := cfg.Output.File
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}
	if cmd.Flags().Changed("output") {
		outputFile, _ = cmd.Flags().GetString("output")
	}
	pageRange, _ := cmd.Flags().GetString("pages")
	userPW, _ := cmd.Flags().GetString("password")
	ownerPW, _ := cmd.Flags().GetString("owner-password")

	switch format {
	case outputFormatText, outputFormatJSON, outputFormatYAML:
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}

	det, err := buildDetector(cfg)
	if err != nil {
		return err
	}
	proc := pdf.NewProcessor(det)
	defer func() { _ = proc.Close() }()

	if userPW != "" || ownerPW != "" {
		proc.SetCredentials(&pdf.Credentials{UserPassword: userPW, OwnerPassword: ownerPW})
	}

	docs, err := proc.ProcessFiles(cmd.Context(), args, pageRange)
	if err != nil {
		if errors.Is(err, pdf.ErrEncrypted) {
			return fmt.Errorf("%w (use --password)", err)
		}
		return err
	}

	out, err := formatPDFResults(docs, format)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), outputFile, out)
}

func formatPDFResults(docs []*pdf.DocumentResult, format string) (string, error) {
	switch format {
	case outputFormatJSON:
		bts, err := json.MarshalIndent(map[string]any{"documents": docs}, "", "  ")
		if err != nil {
			return "", err
		}
		return string(bts) + "\n", nil
	case outputFormatYAML:
		bts, err := yaml.Marshal(map[string]any{"documents": docs})
		return string(bts), err
	default:
		return formatPDFText(docs), nil
	}
}

func formatPDFText(docs []*pdf.DocumentResult) string {
	var sb strings.Builder
	for _, doc := range docs {
		_, _ = fmt.Fprintf(&sb, "%s: %d pages in %v\n", doc.Filename, doc.TotalPages, doc.Duration.Round(time.Millisecond))
		for _, page := range doc.Pages {
			_, _ = fmt.Fprintf(&sb, "  page %d: ", page.PageNumber)
			res, ok := page.Orientation()
			switch {
			case ok:
				_, _ = fmt.Fprintf(&sb, "rotated %d°, score %.3f", res.CurrentOrientation, res.Score)
				if res.LowConfidence {
					sb.WriteString(" [low confidence]")
				}
			case len(page.Images) == 0:
				sb.WriteString("no images")
			default:
				_, _ = fmt.Fprintf(&sb, "error: %s", page.Images[0].Error)
			}
			if page.Info != nil && page.Info.DeclaredRotation != 0 {
				_, _ = fmt.Fprintf(&sb, " (declared /Rotate %d)", page.Info.DeclaredRotation)
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func init() {
	rootCmd.AddCommand(pdfCmd)

	pdfCmd.Flags().StringP("format", "f", outputFormatText, "output format (text, json, yaml)")
	pdfCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	pdfCmd.Flags().String("pages", "", "page range, e.g. 1-5 or 1,3,5 (default: all)")
	pdfCmd.Flags().String("password", "", "user password for encrypted PDFs")
	pdfCmd.Flags().String("owner-password", "", "owner password for encrypted PDFs")
}
