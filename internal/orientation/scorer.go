package orientation

import (
	"errors"
	"fmt"
	"math"

	"github.com/MeKo-Tech/orient/internal/recognizer"
	"github.com/MeKo-Tech/orient/internal/textquality"
)

// ScoreWeights weighs the four signals combined into a hypothesis score.
type ScoreWeights struct {
	Readability float64
	Words       float64
	Confidence  float64
	Text        float64
}

// Sum returns the total of all weights.
func (w ScoreWeights) Sum() float64 {
	return w.Readability + w.Words + w.Confidence + w.Text
}

// ScoringConfig holds the evidence gate and weights used by Scorer.
type ScoringConfig struct {
	MinTextLength  int
	MinWords       int
	TextSaturation int
	WordSaturation int
	Weights        ScoreWeights
}

// DefaultScoringConfig returns the stock scoring policy.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		MinTextLength:  DefaultMinTextLength,
		MinWords:       DefaultMinWords,
		TextSaturation: DefaultTextSaturation,
		WordSaturation: DefaultWordSaturation,
		Weights: ScoreWeights{
			Readability: 0.60,
			Words:       0.20,
			Confidence:  0.15,
			Text:        0.05,
		},
	}
}

// Validate checks the scoring policy.
func (c ScoringConfig) Validate() error {
	if c.MinTextLength < 0 || c.MinWords < 0 {
		return errors.New("minimum text length and word count cannot be negative")
	}
	if c.TextSaturation <= 0 || c.WordSaturation <= 0 {
		return errors.New("text and word saturation must be positive")
	}
	w := c.Weights
	if w.Readability < 0 || w.Words < 0 || w.Confidence < 0 || w.Text < 0 {
		return errors.New("score weights cannot be negative")
	}
	if s := w.Sum(); math.Abs(s-1) > 1e-6 {
		return fmt.Errorf("score weights must sum to 1, got %f", s)
	}
	return nil
}

// Scorer turns a recognition result into a scored hypothesis.
type Scorer struct {
	cfg      ScoringConfig
	analyzer *textquality.Analyzer
}

// NewScorer creates a Scorer.
func NewScorer(cfg ScoringConfig, weights textquality.Weights) *Scorer {
	return &Scorer{cfg: cfg, analyzer: textquality.NewAnalyzer(weights)}
}

// Score combines the signals into [0,1]. Rotations without enough text or
// enough valid words score 0.
func (s *Scorer) Score(confidence float64, textLength, validWords int, readability float64) float64 {
	if textLength < s.cfg.MinTextLength || validWords < s.cfg.MinWords {
		return 0
	}
	textScore := math.Min(float64(textLength)/float64(s.cfg.TextSaturation), 1)
	wordScore := math.Min(float64(validWords)/float64(s.cfg.WordSaturation), 1)
	w := s.cfg.Weights
	return w.Readability*readability + w.Words*wordScore + w.Confidence*confidence + w.Text*textScore
}

// Evaluate builds the hypothesis for angle from a recognition result.
func (s *Scorer) Evaluate(angle int, res recognizer.Result) Hypothesis {
	m := s.analyzer.Analyze(res.Text)
	conf := math.Max(0, math.Min(res.Confidence, 1))
	return Hypothesis{
		Angle:       angle,
		Text:        res.Text,
		Confidence:  conf,
		TextLength:  m.Length,
		ValidWords:  m.ValidWords,
		Readability: m.Readability,
		Score:       s.Score(conf, m.Length, m.ValidWords, m.Readability),
	}
}
