package orientation

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/MeKo-Tech/orient/internal/preprocess"
	"github.com/MeKo-Tech/orient/internal/recognizer"
	"github.com/MeKo-Tech/orient/internal/utils"
)

// Engine detects orientation by recognizing text at all four rotations and
// keeping the one whose output looks most like prose.
type Engine struct {
	cfg      Config
	executor *TrialExecutor
	observer Observer
}

// NewEngine creates a heuristic engine. factory is called once per trial.
func NewEngine(cfg Config, factory recognizer.Factory, opts ...Option) (*Engine, error) {
	if factory == nil {
		return nil, errors.New("recognizer factory cannot be nil")
	}
	cfg.Strategy = StrategyHeuristic
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	scorer := NewScorer(cfg.Scoring, cfg.Readability)
	return &Engine{
		cfg:      cfg,
		executor: NewTrialExecutor(factory, scorer, cfg.Preprocess.Padding, cfg.TrialTimeout),
		observer: o.observer,
	}, nil
}

// Name returns the strategy name.
func (e *Engine) Name() string { return StrategyHeuristic }

// Detect loads the image at path and detects its orientation. Only an
// *InputError is ever returned.
func (e *Engine) Detect(ctx context.Context, path string) (Result, error) {
	img, _, err := utils.LoadImage(path)
	if err != nil {
		return Result{}, &InputError{Path: path, Err: err}
	}
	return e.DetectImage(ctx, img)
}

// DetectImage detects the orientation of an already decoded image.
func (e *Engine) DetectImage(ctx context.Context, img image.Image) (Result, error) {
	start := time.Now()
	normalized, err := preprocess.Normalize(img, e.cfg.Preprocess)
	if err != nil {
		return Result{}, &InputError{Err: err}
	}

	obs := callObserver(ctx, e.observer)
	hyps := e.executor.Run(ctx, normalized, obs)

	res := Resolve(hyps, e.cfg.MinConfidenceThreshold)
	res.Strategy = StrategyHeuristic
	res.Duration = time.Since(start)
	obs.OnResult(res)
	return res, nil
}

// Close is a no-op; recognizers live only as long as their trial.
func (e *Engine) Close() error { return nil }
