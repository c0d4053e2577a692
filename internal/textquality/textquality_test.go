package textquality

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidWord(t *testing.T) {
	tests := []struct {
		token string
		want  bool
	}{
		{"Hello", true},
		{"a", false},
		{"x1", false},
		{"ab1", true},
		{"(hi)", true},
		{"\"quoted.\"", true},
		{"...", false},
		{"[]", false},
		{"12345", false},
		{"ação", true},
		{"-ab-", false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidWord(tt.token))
		})
	}
}

func TestCountValidWords(t *testing.T) {
	assert.Equal(t, 0, CountValidWords(""))
	assert.Equal(t, 0, CountValidWords("   \n\t "))
	assert.Equal(t, 5, CountValidWords("The quick brown fox jumps."))
	assert.Equal(t, 2, CountValidWords("one\ntwo\t3 ;; x"))
	assert.Equal(t, 0, CountValidWords("~~ #% |1 ]["))
}

func TestReadability(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"empty", "", 0},
		{"whitespace only", "  \n\t", 0},
		{"lowercase prose", "abc def", 0.35*6.0/7.0 + 0.25 + 0.25 + 0.15},
		{"uppercase prose", "ABC DEF", 0.35*6.0/7.0 + 0.25 + 0.15},
		{"punctuation run", "!!!!", 0.25 * 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Readability(tt.text), 1e-9)
		})
	}
}

func TestReadability_Bounds(t *testing.T) {
	inputs := []string{
		"The quick brown fox jumps over the lazy dog.",
		"|||/\\\\//~~~^^^",
		"a",
		"          x",
		"Lorem ipsum dolor sit amet, consectetur adipiscing elit.",
		"0123456789",
	}
	for _, in := range inputs {
		got := Readability(in)
		assert.GreaterOrEqual(t, got, 0.0, in)
		assert.LessOrEqual(t, got, 1.0, in)
	}
}

func TestReadability_ProseBeatsGarbage(t *testing.T) {
	prose := "The committee approved the budget for the next fiscal year."
	garbage := "'|; ,~ .-=_ ]|[ ;: ..,\\ /~ ^^ ~|"
	assert.Greater(t, Readability(prose), Readability(garbage))
}

func TestSpaceScore(t *testing.T) {
	assert.InDelta(t, 1.0, spaceScore(0.10), 1e-9)
	assert.InDelta(t, 1.0, spaceScore(0.25), 1e-9)
	assert.InDelta(t, 1.0-0.15*5, spaceScore(0), 1e-9)
	assert.InDelta(t, 0.0, spaceScore(0.5), 1e-9)
	assert.InDelta(t, 1.0-0.15*5, spaceScore(0.30), 1e-9)
}

func TestAnalyzer(t *testing.T) {
	a := NewAnalyzer(Weights{})
	assert.Equal(t, DefaultWeights(), a.Weights())
	assert.InDelta(t, 1.0, a.Weights().Sum(), 1e-9)

	m := a.Analyze("Olá mundo, tudo bem?")
	assert.Equal(t, 20, m.Length)
	assert.Equal(t, 4, m.ValidWords)
	assert.Greater(t, m.Readability, 0.5)

	custom := NewAnalyzer(Weights{Letter: 1})
	assert.InDelta(t, 6.0/7.0, custom.Analyze("abc def").Readability, 1e-9)
}
