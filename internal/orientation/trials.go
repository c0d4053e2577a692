package orientation

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/MeKo-Tech/orient/internal/preprocess"
	"github.com/MeKo-Tech/orient/internal/recognizer"
)

// TrialExecutor runs one recognition trial per cardinal angle concurrently.
// Every trial rotates and pads its own copy of the image and creates its own
// recognizer, so nothing mutable is shared between trials.
type TrialExecutor struct {
	factory recognizer.Factory
	scorer  *Scorer
	padding int
	timeout time.Duration
}

// NewTrialExecutor creates an executor. A non-positive timeout uses
// DefaultTrialTimeout.
func NewTrialExecutor(factory recognizer.Factory, scorer *Scorer, padding int, timeout time.Duration) *TrialExecutor {
	if timeout <= 0 {
		timeout = DefaultTrialTimeout
	}
	return &TrialExecutor{factory: factory, scorer: scorer, padding: padding, timeout: timeout}
}

// Run returns exactly one hypothesis per angle, indexed like Angles. Failed
// trials produce zero-score hypotheses and are reported to obs; Run itself
// never fails. img is only read.
func (e *TrialExecutor) Run(ctx context.Context, img *image.Gray, obs Observer) [4]Hypothesis {
	if obs == nil {
		obs = nopObserver{}
	}
	var hyps [4]Hypothesis
	var wg sync.WaitGroup
	for i, angle := range Angles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := e.runTrial(ctx, img, angle)
			hyps[i] = h
			obs.OnTrial(h)
		}()
	}
	wg.Wait()
	return hyps
}

type trialOutcome struct {
	res recognizer.Result
	err error
}

// runTrial enforces the per-trial deadline. The recognition itself runs in
// its own goroutine so a hung native call cannot hold up the join; its result
// is dropped if it arrives late.
func (e *TrialExecutor) runTrial(ctx context.Context, img *image.Gray, angle int) Hypothesis {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan trialOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- trialOutcome{err: fmt.Errorf("%w: %v", ErrTrialPanic, r)}
			}
		}()
		res, err := e.recognize(ctx, img, angle)
		done <- trialOutcome{res: res, err: err}
	}()

	var out trialOutcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out.err = ctx.Err()
	}
	if errors.Is(out.err, context.DeadlineExceeded) {
		out.err = fmt.Errorf("%w after %s", ErrTrialTimeout, e.timeout)
	}

	var h Hypothesis
	if out.err != nil {
		h = failedHypothesis(angle, &TrialError{Angle: angle, Err: out.err})
	} else {
		h = e.scorer.Evaluate(angle, out.res)
	}
	h.Duration = time.Since(start)
	return h
}

// recognize owns the trial's working image and recognizer for its lifetime.
func (e *TrialExecutor) recognize(ctx context.Context, img *image.Gray, angle int) (recognizer.Result, error) {
	rotated, err := preprocess.Rotate(img, angle)
	if err != nil {
		return recognizer.Result{}, err
	}
	padded := preprocess.Pad(rotated, e.padding)

	rec, err := e.factory()
	if err != nil {
		return recognizer.Result{}, fmt.Errorf("create recognizer: %w", err)
	}
	defer func() { _ = rec.Close() }()

	return rec.Recognize(ctx, padded)
}

func failedHypothesis(angle int, err error) Hypothesis {
	return Hypothesis{Angle: angle, Err: err.Error()}
}
