// Package textquality scores recognized text by how much it resembles
// ordinary prose rather than OCR noise.
package textquality

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Default thresholds for the valid-word test.
const (
	DefaultMinWordLength = 2
	DefaultMinLetterFrac = 0.6
)

// Default readability weights.
const (
	DefaultLetterWeight      = 0.35
	DefaultSpaceWeight       = 0.25
	DefaultCaseWeight        = 0.25
	DefaultStrangenessWeight = 0.15
)

// boundaryPunct is trimmed from both ends of a token before the valid-word test.
const boundaryPunct = `.,;:!?"'()[]`

// Weights holds the readability sub-score weights. They are expected to sum to 1.
type Weights struct {
	Letter      float64 `json:"letter" yaml:"letter" mapstructure:"letter"`
	Space       float64 `json:"space" yaml:"space" mapstructure:"space"`
	Case        float64 `json:"case" yaml:"case" mapstructure:"case"`
	Strangeness float64 `json:"strangeness" yaml:"strangeness" mapstructure:"strangeness"`
}

// DefaultWeights returns the stock readability weights.
func DefaultWeights() Weights {
	return Weights{
		Letter:      DefaultLetterWeight,
		Space:       DefaultSpaceWeight,
		Case:        DefaultCaseWeight,
		Strangeness: DefaultStrangenessWeight,
	}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Letter + w.Space + w.Case + w.Strangeness
}

// Metrics summarizes one piece of recognized text.
type Metrics struct {
	Length      int     `json:"length"`
	ValidWords  int     `json:"valid_words"`
	Readability float64 `json:"readability"`
}

// Analyzer computes Metrics with a fixed set of weights.
type Analyzer struct {
	weights Weights
}

// NewAnalyzer returns an Analyzer. Zero weights fall back to the defaults.
func NewAnalyzer(w Weights) *Analyzer {
	if w == (Weights{}) {
		w = DefaultWeights()
	}
	return &Analyzer{weights: w}
}

// Weights returns the analyzer's readability weights.
func (a *Analyzer) Weights() Weights { return a.weights }

// Analyze returns length, valid-word count and readability for text.
func (a *Analyzer) Analyze(text string) Metrics {
	return Metrics{
		Length:      utf8.RuneCountInString(text),
		ValidWords:  CountValidWords(text),
		Readability: ReadabilityWith(text, a.weights),
	}
}

// CountValidWords counts whitespace-separated tokens that look like words:
// after trimming boundary punctuation they are at least two characters long
// and at least 60% letters.
func CountValidWords(text string) int {
	count := 0
	for _, tok := range strings.Fields(text) {
		if IsValidWord(tok) {
			count++
		}
	}
	return count
}

// IsValidWord applies the valid-word test to a single token.
func IsValidWord(token string) bool {
	cleaned := strings.Trim(token, boundaryPunct)
	n := utf8.RuneCountInString(cleaned)
	if n < DefaultMinWordLength {
		return false
	}
	letters := 0
	for _, r := range cleaned {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return float64(letters) >= float64(n)*DefaultMinLetterFrac
}

// Readability scores text with the default weights.
func Readability(text string) float64 {
	return ReadabilityWith(text, DefaultWeights())
}

// ReadabilityWith scores text in [0, 1]. Empty or whitespace-only text scores 0.
func ReadabilityWith(text string, w Weights) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	s := computeSubScores(text)
	score := w.Letter*s.letterRatio +
		w.Space*s.spaceScore +
		w.Case*s.caseBalance +
		w.Strangeness*s.strangenessPenalty
	return clamp01(score)
}

type subScores struct {
	letterRatio        float64
	spaceScore         float64
	caseBalance        float64
	strangenessPenalty float64
}

func computeSubScores(text string) subScores {
	var total, letters, spaces, lower, strangePairs int
	prevStrange := false
	for i, r := range text {
		total++
		switch {
		case unicode.IsLetter(r):
			letters++
			if unicode.IsLower(r) {
				lower++
			}
		case r == ' ':
			spaces++
		}
		strange := !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r)
		if i > 0 && strange && prevStrange {
			strangePairs++
		}
		prevStrange = strange
	}

	var s subScores
	if total == 0 {
		return s
	}
	s.letterRatio = clamp01(float64(letters) / float64(total))
	s.spaceScore = spaceScore(float64(spaces) / float64(total))
	if letters > 0 {
		s.caseBalance = math.Min(float64(lower)/float64(letters), 1)
	}
	strangeRatio := float64(strangePairs) / float64(total)
	s.strangenessPenalty = math.Max(0, 1-strangeRatio*20)
	return s
}

// spaceScore rewards the spacing density of typical prose.
func spaceScore(ratio float64) float64 {
	if ratio >= 0.10 && ratio <= 0.25 {
		return 1
	}
	return math.Max(0, 1-math.Abs(0.15-ratio)*5)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
