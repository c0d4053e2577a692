package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/orient/internal/orientation"
	"github.com/MeKo-Tech/orient/internal/testutil"
	"github.com/disintegration/imaging"
)

// manifestEntry records the orientation a generated page was given.
type manifestEntry struct {
	File               string `json:"file"`
	CurrentOrientation int    `json:"current_orientation"`
	BestAngle          int    `json:"best_angle"`
}

var pageTexts = [][]string{
	{
		"The quick brown fox jumps",
		"over the lazy dog near",
		"the quiet river bank.",
	},
	{
		"Invoice number 2024-117",
		"Payment is due within",
		"thirty days of receipt.",
	},
	{
		"Meeting notes for Monday",
		"Review the quarterly plan",
		"and confirm the budget.",
	},
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		outDir  = flag.String("out", "testdata/images/rotated", "Output directory, relative to the project root")
		scale   = flag.Int("scale", 3, "Upscale factor so the bitmap font is large enough for tesseract")
		marker  = flag.Bool("marker", false, "Draw the corner marker used by the stub recognizer")
		verbose = flag.Bool("v", false, "Verbose output")
		help    = flag.Bool("h", false, "Show help")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generate rotated synthetic pages for orient testing.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		fmt.Fprintf(os.Stderr, "  %s                      # Generate the default set\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -out /tmp/pages -v   # Generate into another directory\n", os.Args[0])
	}

	flag.Parse()

	if *help {
		flag.Usage()
		return
	}
	if *scale < 1 {
		slog.Error("Scale must be at least 1", "scale", *scale)
		os.Exit(1)
	}

	dir := *outDir
	if !filepath.IsAbs(dir) {
		root, err := testutil.GetProjectRoot()
		if err != nil {
			slog.Error("Failed to find project root", "error", err)
			os.Exit(1)
		}
		dir = filepath.Join(root, dir)
	}

	slog.Info("Generating rotated pages", "dir", dir, "scale", *scale)

	entries, err := generatePages(dir, *scale, *marker, *verbose)
	if err != nil {
		slog.Error("Failed to generate pages", "error", err)
		os.Exit(1)
	}

	if err := writeManifest(filepath.Join(dir, "manifest.json"), entries); err != nil {
		slog.Error("Failed to write manifest", "error", err)
		os.Exit(1)
	}

	slog.Info("Test data generation completed", "pages", len(entries))
}

// generatePages renders every text block upright, then saves one clockwise
// rotation per angle.
func generatePages(dir string, scale int, marker, verbose bool) ([]manifestEntry, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var entries []manifestEntry
	for i, lines := range pageTexts {
		cfg := testutil.DefaultPageConfig()
		cfg.Lines = lines
		cfg.Marker = marker

		var page image.Image = testutil.GeneratePage(cfg)
		if scale > 1 {
			b := page.Bounds()
			page = imaging.Resize(page, b.Dx()*scale, b.Dy()*scale, imaging.NearestNeighbor)
		}

		for _, angle := range orientation.Angles {
			name := fmt.Sprintf("page_%d_rot%03d.png", i+1, angle)
			path := filepath.Join(dir, name)
			if err := imaging.Save(testutil.RotateClockwise(page, angle), path); err != nil {
				return nil, fmt.Errorf("failed to save %s: %w", name, err)
			}
			if verbose {
				slog.Info("Wrote page", "file", path, "rotation", angle)
			}
			entries = append(entries, manifestEntry{
				File:               name,
				CurrentOrientation: angle,
				BestAngle:          (360 - angle) % 360,
			})
		}
	}
	return entries, nil
}

func writeManifest(path string, entries []manifestEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}
