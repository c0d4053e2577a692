package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/orient/internal/config"
	"github.com/MeKo-Tech/orient/internal/orientation"
	"github.com/MeKo-Tech/orient/internal/recognizer"
)

// buildDetector is swapped out by tests that cannot rely on tesseract.
var buildDetector = newDetector

// newDetector builds the detector selected by cfg.Strategy. Extra observers
// receive diagnostics alongside the slog observer.
func newDetector(cfg *config.Config, observers ...orientation.Observer) (orientation.Detector, error) {
	engineCfg := cfg.ToEngineConfig()

	var factory recognizer.Factory
	if engineCfg.Strategy == orientation.StrategyHeuristic {
		f, err := recognizer.NewFactory(cfg.ToRecognizerConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to configure recognizer: %w", err)
		}
		factory = f
	}

	obs := orientation.MultiObserver{orientation.LogObserver{}}
	obs = append(obs, observers...)

	det, err := orientation.New(engineCfg, factory, orientation.WithObserver(obs))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s detector: %w", engineCfg.Strategy, err)
	}
	return det, nil
}
