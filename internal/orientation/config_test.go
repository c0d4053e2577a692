package orientation

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"classifier", func(c *Config) { c.Strategy = StrategyClassifier }, false},
		{"unknown strategy", func(c *Config) { c.Strategy = "psychic" }, true},
		{"zero timeout", func(c *Config) { c.TrialTimeout = 0 }, true},
		{"zero max dimension", func(c *Config) { c.Preprocess.MaxDimension = 0 }, true},
		{"negative padding", func(c *Config) { c.Preprocess.Padding = -1 }, true},
		{"threshold above one", func(c *Config) { c.MinConfidenceThreshold = 1.5 }, true},
		{"bad readability weights", func(c *Config) { c.Readability.Letter = 0.9 }, true},
		{"bad score weights", func(c *Config) { c.Scoring.Weights.Words = 0.9 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, StrategyHeuristic, cfg.Strategy)
	assert.Equal(t, 30*time.Second, cfg.TrialTimeout)
	assert.InDelta(t, 0.3, cfg.MinConfidenceThreshold, 1e-9)
	assert.Equal(t, 1600, cfg.Preprocess.MaxDimension)
	assert.Equal(t, 20, cfg.Preprocess.Padding)
	assert.Equal(t, 10, cfg.Scoring.MinTextLength)
	assert.Equal(t, 5, cfg.Scoring.MinWords)
}

func TestLogObserver(t *testing.T) {
	var buf bytes.Buffer
	obs := LogObserver{Logger: slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}

	obs.OnTrial(Hypothesis{Angle: 90, Score: 0.4})
	obs.OnTrial(Hypothesis{Angle: 180, Err: "trial 180°: boom"})
	obs.OnResult(Result{BestAngle: 90, CurrentOrientation: 270, Score: 0.1, LowConfidence: true})

	out := buf.String()
	assert.Contains(t, out, `"msg":"orientation trial"`)
	assert.Contains(t, out, `"msg":"orientation trial failed"`)
	assert.Contains(t, out, `"msg":"low orientation confidence"`)
	assert.Contains(t, out, `"msg":"orientation detected"`)
	assert.Contains(t, out, `"current_orientation":270`)
}

func TestMultiObserver(t *testing.T) {
	a, b := &recordingObserver{}, &recordingObserver{}
	m := MultiObserver{a, b}
	m.OnTrial(Hypothesis{Angle: 0})
	m.OnResult(Result{})
	assert.Len(t, a.trials, 1)
	assert.Len(t, b.results, 1)
}

func TestErrors(t *testing.T) {
	ie := &InputError{Path: "a.png", Err: ErrTrialTimeout}
	assert.Contains(t, ie.Error(), "a.png")
	assert.ErrorIs(t, ie, ErrTrialTimeout)
	assert.True(t, IsInputError(ie))
	assert.False(t, IsInputError(ErrTrialPanic))

	te := &TrialError{Angle: 90, Err: ErrTrialPanic}
	assert.Contains(t, te.Error(), "90")
	assert.ErrorIs(t, te, ErrTrialPanic)
}
