// Package batch runs orientation detection over many files with a bounded
// worker pool.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/orient/internal/orientation"
)

// ErrNoImages is returned when discovery finds nothing to process.
var ErrNoImages = errors.New("no image files found")

// ProcessBatch discovers the images named by paths and detects the
// orientation of each one with det.
func ProcessBatch(ctx context.Context, det orientation.Detector, paths []string, config *Config) (*Result, error) {
	if det == nil {
		return nil, errors.New("batch: nil detector")
	}
	if config == nil {
		config = DefaultConfig()
	}

	imageFiles, err := discoverImageFiles(paths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(imageFiles) == 0 {
		return nil, ErrNoImages
	}

	slog.Debug("batch discovered images", "count", len(imageFiles), "workers", config.Workers)

	start := time.Now()
	items, err := processImagesParallel(ctx, det, imageFiles, config)
	result := &Result{
		Items:       items,
		Duration:    time.Since(start),
		WorkerCount: min(max(config.Workers, 1), len(imageFiles)),
	}
	if err != nil {
		return result, fmt.Errorf("batch processing failed: %w", err)
	}
	return result, nil
}
