package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// formatBatchResults formats the batch processing results in the specified format.
func formatBatchResults(items []Item, format string) (string, error) {
	switch format {
	case "json":
		return formatJSON(items)
	case "csv":
		return formatCSV(items)
	case "yaml":
		return formatYAML(items)
	case "text", "":
		return formatText(items), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

type batchDocument struct {
	Images []Item `json:"images" yaml:"images"`
}

func formatJSON(items []Item) (string, error) {
	bts, err := json.MarshalIndent(batchDocument{Images: items}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bts) + "\n", nil
}

func formatYAML(items []Item) (string, error) {
	bts, err := yaml.Marshal(batchDocument{Images: items})
	return string(bts), err
}

func formatCSV(items []Item) (string, error) {
	rows := [][]string{{
		"file", "current_orientation", "best_angle", "score", "low_confidence", "failed_trials", "error",
	}}

	for _, it := range items {
		if it.Result == nil {
			rows = append(rows, []string{it.File, "", "", "", "", "", it.Error})
			continue
		}
		r := it.Result
		rows = append(rows, []string{
			it.File,
			strconv.Itoa(r.CurrentOrientation),
			strconv.Itoa(r.BestAngle),
			fmt.Sprintf("%.3f", r.Score),
			strconv.FormatBool(r.LowConfidence),
			strconv.Itoa(r.FailedTrials()),
			it.Error,
		})
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.WriteAll(rows); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func formatText(items []Item) string {
	var sb strings.Builder
	for _, it := range items {
		if it.Result == nil {
			msg := it.Error
			if msg == "" {
				msg = "not processed"
			}
			_, _ = fmt.Fprintf(&sb, "%s: error: %s\n", it.File, msg)
			continue
		}
		r := it.Result
		_, _ = fmt.Fprintf(&sb, "%s: rotated %d° (rotate %d° clockwise to fix), score %.3f",
			it.File, r.CurrentOrientation, r.BestAngle, r.Score)
		if r.LowConfidence {
			sb.WriteString(" [low confidence]")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
