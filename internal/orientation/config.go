package orientation

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/MeKo-Tech/orient/internal/preprocess"
	"github.com/MeKo-Tech/orient/internal/textquality"
)

// Defaults for the heuristic engine.
const (
	DefaultTrialTimeout           = 30 * time.Second
	DefaultMinConfidenceThreshold = 0.3
	DefaultMinTextLength          = 10
	DefaultMinWords               = 5
	DefaultTextSaturation         = 100
	DefaultWordSaturation         = 50
)

// Config controls orientation detection.
type Config struct {
	Strategy               string
	Preprocess             preprocess.Config
	TrialTimeout           time.Duration
	MinConfidenceThreshold float64
	Scoring                ScoringConfig
	Readability            textquality.Weights
	Classifier             ClassifierConfig
}

// DefaultConfig returns the stock heuristic configuration.
func DefaultConfig() Config {
	return Config{
		Strategy:               StrategyHeuristic,
		Preprocess:             preprocess.DefaultConfig(),
		TrialTimeout:           DefaultTrialTimeout,
		MinConfidenceThreshold: DefaultMinConfidenceThreshold,
		Scoring:                DefaultScoringConfig(),
		Readability:            textquality.DefaultWeights(),
		Classifier:             DefaultClassifierConfig(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Strategy {
	case StrategyHeuristic, StrategyClassifier:
	default:
		return fmt.Errorf("unknown strategy %q (valid: %s, %s)", c.Strategy, StrategyHeuristic, StrategyClassifier)
	}
	if c.TrialTimeout <= 0 {
		return errors.New("trial timeout must be positive")
	}
	if c.Preprocess.MaxDimension <= 0 {
		return fmt.Errorf("max dimension must be positive, got %d", c.Preprocess.MaxDimension)
	}
	if c.Preprocess.Padding < 0 {
		return fmt.Errorf("padding cannot be negative, got %d", c.Preprocess.Padding)
	}
	if c.MinConfidenceThreshold < 0 || c.MinConfidenceThreshold > 1 {
		return fmt.Errorf("min confidence threshold must be between 0 and 1, got %f", c.MinConfidenceThreshold)
	}
	if err := c.Scoring.Validate(); err != nil {
		return err
	}
	if s := c.Readability.Sum(); math.Abs(s-1) > 1e-6 {
		return fmt.Errorf("readability weights must sum to 1, got %f", s)
	}
	return nil
}
