package batch

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/MeKo-Tech/orient/internal/orientation"
)

// Config holds all configuration for batch processing.
type Config struct {
	// Output settings
	Format     string
	OutputFile string

	// Parallel processing settings
	Workers         int
	ContinueOnError bool

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Progress settings
	ShowProgress bool
	Quiet        bool
	ShowStats    bool
	Progress     ProgressCallback
}

// DefaultConfig returns sensible defaults for batch runs.
func DefaultConfig() *Config {
	return &Config{
		Format:          "text",
		Workers:         4,
		ContinueOnError: true,
	}
}

// Item is the outcome for one input file.
type Item struct {
	File   string              `json:"file" yaml:"file"`
	Result *orientation.Result `json:"result,omitempty" yaml:"result,omitempty"`
	Error  string              `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the file could not be processed.
func (i Item) Failed() bool { return i.Error != "" }

// Result holds the result of batch processing.
type Result struct {
	Items       []Item
	Duration    time.Duration
	WorkerCount int
}

// Stats aggregates a batch run.
type Stats struct {
	Total            int           `json:"total" yaml:"total"`
	Processed        int           `json:"processed" yaml:"processed"`
	Failed           int           `json:"failed" yaml:"failed"`
	LowConfidence    int           `json:"low_confidence" yaml:"low_confidence"`
	ByOrientation    map[int]int   `json:"by_orientation" yaml:"by_orientation"`
	WorkerCount      int           `json:"workers" yaml:"workers"`
	TotalDuration    time.Duration `json:"duration_ns" yaml:"duration_ns"`
	AveragePerImage  time.Duration `json:"avg_per_image_ns" yaml:"avg_per_image_ns"`
	ThroughputPerSec float64       `json:"throughput_per_sec" yaml:"throughput_per_sec"`
}

// Stats computes the aggregate statistics for r.
func (r *Result) Stats() Stats {
	s := Stats{
		Total:         len(r.Items),
		ByOrientation: make(map[int]int, len(orientation.Angles)),
		WorkerCount:   r.WorkerCount,
		TotalDuration: r.Duration,
	}
	for _, a := range orientation.Angles {
		s.ByOrientation[a] = 0
	}
	for _, it := range r.Items {
		if it.Failed() || it.Result == nil {
			s.Failed++
			continue
		}
		s.Processed++
		s.ByOrientation[it.Result.CurrentOrientation]++
		if it.Result.LowConfidence {
			s.LowConfidence++
		}
	}
	if s.Total > 0 {
		s.AveragePerImage = r.Duration / time.Duration(s.Total)
	}
	if secs := r.Duration.Seconds(); secs > 0 {
		s.ThroughputPerSec = float64(s.Total) / secs
	}
	return s
}

// FormatResults formats the batch processing results in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r.Items, format)
}

// SaveResults writes the formatted results to outputFile, or to w when no
// file is given.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
		}
	} else {
		_, _ = fmt.Fprint(w, output)
	}

	return nil
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer, quiet bool) {
	if quiet {
		return
	}
	stats := r.Stats()
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total images: %d\n", stats.Total)
	_, _ = fmt.Fprintf(w, "  Processed: %d\n", stats.Processed)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", stats.Failed)
	_, _ = fmt.Fprintf(w, "  Low confidence: %d\n", stats.LowConfidence)

	angles := make([]int, 0, len(stats.ByOrientation))
	for a := range stats.ByOrientation {
		angles = append(angles, a)
	}
	sort.Ints(angles)
	for _, a := range angles {
		_, _ = fmt.Fprintf(w, "  Rotated %3d°: %d\n", a, stats.ByOrientation[a])
	}

	_, _ = fmt.Fprintf(w, "  Workers: %d\n", stats.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", stats.TotalDuration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Avg per image: %v\n", stats.AveragePerImage.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Throughput: %.1f images/sec\n", stats.ThroughputPerSec)
}
