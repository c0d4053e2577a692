package batch

import (
	"context"
	"errors"
	"sync"

	"github.com/MeKo-Tech/orient/internal/orientation"
)

var errSkipped = errors.New("skipped: batch stopped before this file was processed")

type job struct {
	index int
	path  string
}

type jobResult struct {
	index int
	item  Item
	err   error
}

// processImagesParallel fans paths out to a bounded worker pool. Items come
// back in input order and every failure is recorded on its item. Unless
// ContinueOnError is set, the first failure of any kind (input errors
// included) cancels the remaining work and is returned.
func processImagesParallel(ctx context.Context, det orientation.Detector, paths []string, cfg *Config) ([]Item, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(paths) {
		workers = len(paths)
	}
	progress := cfg.Progress
	if progress == nil {
		progress = NoOpProgressCallback{}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan job)
	results := make(chan jobResult)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results <- runJob(ctx, det, j)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, p := range paths {
			select {
			case jobs <- job{index: i, path: p}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	items := make([]Item, len(paths))
	for i, p := range paths {
		items[i] = Item{File: p}
	}

	progress.OnStart(len(paths))
	var firstErr error
	done := 0
	for r := range results {
		items[r.index] = r.item
		done++
		if r.item.Failed() {
			progress.OnError(r.item.File, errors.New(r.item.Error))
		}
		if r.err != nil && !cfg.ContinueOnError && firstErr == nil {
			firstErr = r.err
			cancel()
		}
		progress.OnProgress(done, len(paths))
	}
	progress.OnComplete()

	for i := range items {
		if items[i].Result == nil && items[i].Error == "" {
			items[i].Error = errSkipped.Error()
		}
	}

	if firstErr != nil {
		return items, firstErr
	}
	if err := ctx.Err(); err != nil && done < len(paths) {
		return items, err
	}
	return items, nil
}

func runJob(ctx context.Context, det orientation.Detector, j job) jobResult {
	item := Item{File: j.path}
	if err := ctx.Err(); err != nil {
		item.Error = err.Error()
		return jobResult{index: j.index, item: item, err: err}
	}
	res, err := det.Detect(ctx, j.path)
	if err != nil {
		item.Error = err.Error()
		return jobResult{index: j.index, item: item, err: err}
	}
	item.Result = &res
	return jobResult{index: j.index, item: item}
}
