package orientation

import (
	"context"
	"image"

	"github.com/MeKo-Tech/orient/internal/recognizer"
)

// Detector determines how far a page image is rotated from upright.
type Detector interface {
	// Detect reads the image at path. It fails only with *InputError.
	Detect(ctx context.Context, path string) (Result, error)
	// DetectImage works on a decoded image.
	DetectImage(ctx context.Context, img image.Image) (Result, error)
	Name() string
	Close() error
}

var (
	_ Detector = (*Engine)(nil)
	_ Detector = (*Classifier)(nil)
)

// New builds the detector selected by cfg.Strategy. factory is only used by
// the heuristic strategy.
func New(cfg Config, factory recognizer.Factory, opts ...Option) (Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Strategy == StrategyClassifier {
		return NewClassifier(cfg.Classifier, opts...)
	}
	return NewEngine(cfg, factory, opts...)
}
