package support

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/orient/internal/batch"
	"github.com/MeKo-Tech/orient/internal/testutil"
	"github.com/cucumber/godog"
	"github.com/disintegration/imaging"
)

// RegisterBatchSteps registers the batch processing steps.
func (tc *TestContext) RegisterBatchSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a directory with pages rotated ([\d, and]+) degrees$`, tc.aDirectoryWithPagesRotated)
	sc.Step(`^the directory also contains a broken image$`, tc.theDirectoryAlsoContainsABrokenImage)
	sc.Step(`^I run a batch over the directory with (\d+) workers$`, tc.iRunABatch)
	sc.Step(`^the batch reports (\d+) processed and (\d+) failed$`, tc.theBatchReports)
	sc.Step(`^the batch orientations in order are ([\d, ]+)$`, tc.theBatchOrientationsInOrderAre)
}

// parseAngles reads lists like "0, 90, 180 and 270".
func parseAngles(list string) ([]int, error) {
	fields := strings.FieldsFunc(strings.ReplaceAll(list, " and ", ","), func(r rune) bool {
		return r == ',' || r == ' '
	})
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid angle %q: %w", f, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func (tc *TestContext) aDirectoryWithPagesRotated(list string) error {
	angles, err := parseAngles(list)
	if err != nil {
		return err
	}
	tc.BatchDir = filepath.Join(tc.TempDir, "pages")
	if err := os.MkdirAll(tc.BatchDir, 0o750); err != nil {
		return err
	}
	page := testutil.GeneratePage(testutil.DefaultPageConfig())
	for i, a := range angles {
		name := fmt.Sprintf("page_%02d_%d.png", i, a)
		if err := imaging.Save(testutil.RotateClockwise(page, a), filepath.Join(tc.BatchDir, name)); err != nil {
			return fmt.Errorf("failed to save %s: %w", name, err)
		}
	}
	return nil
}

func (tc *TestContext) theDirectoryAlsoContainsABrokenImage() error {
	return os.WriteFile(filepath.Join(tc.BatchDir, "page_99_broken.png"), []byte("not a png"), 0o600)
}

func (tc *TestContext) iRunABatch(workers int) error {
	det, err := tc.detector()
	if err != nil {
		return err
	}
	cfg := batch.DefaultConfig()
	cfg.Workers = workers
	tc.BatchResult, err = batch.ProcessBatch(context.Background(), det, []string{tc.BatchDir}, cfg)
	return err
}

func (tc *TestContext) theBatchReports(processed, failed int) error {
	if tc.BatchResult == nil {
		return fmt.Errorf("no batch result")
	}
	stats := tc.BatchResult.Stats()
	if stats.Processed != processed || stats.Failed != failed {
		return fmt.Errorf("expected %d processed / %d failed, got %d / %d",
			processed, failed, stats.Processed, stats.Failed)
	}
	return nil
}

func (tc *TestContext) theBatchOrientationsInOrderAre(list string) error {
	want, err := parseAngles(list)
	if err != nil {
		return err
	}
	if tc.BatchResult == nil || len(tc.BatchResult.Items) != len(want) {
		return fmt.Errorf("expected %d batch items", len(want))
	}
	for i, it := range tc.BatchResult.Items {
		if it.Result == nil {
			return fmt.Errorf("item %s failed: %s", it.File, it.Error)
		}
		if it.Result.CurrentOrientation != want[i] {
			return fmt.Errorf("item %d (%s): expected %d, got %d", i, it.File, want[i], it.Result.CurrentOrientation)
		}
	}
	return nil
}
