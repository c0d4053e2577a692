package orientation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func hypsWithScores(scores ...float64) [4]Hypothesis {
	var hyps [4]Hypothesis
	for i, a := range Angles {
		hyps[i] = Hypothesis{Angle: a, Score: scores[i]}
	}
	return hyps
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		scores      []float64
		wantBest    int
		wantCurrent int
		wantLow     bool
	}{
		{"upright wins", []float64{0.8, 0.1, 0.2, 0.05}, 0, 0, false},
		{"270 wins", []float64{0.1, 0.0, 0.2, 0.7}, 270, 90, false},
		{"90 wins", []float64{0.1, 0.6, 0.2, 0.3}, 90, 270, false},
		{"180 wins", []float64{0.1, 0.2, 0.5, 0.3}, 180, 180, false},
		{"all zero picks 0", []float64{0, 0, 0, 0}, 0, 0, true},
		{"tie goes to smaller angle", []float64{0.1, 0.5, 0.2, 0.5}, 90, 270, false},
		{"below threshold", []float64{0.1, 0.2, 0.29, 0.0}, 180, 180, true},
		{"exactly at threshold", []float64{0.3, 0.1, 0.0, 0.0}, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(hypsWithScores(tt.scores...), DefaultMinConfidenceThreshold)
			assert.Equal(t, tt.wantBest, res.BestAngle)
			assert.Equal(t, tt.wantCurrent, res.CurrentOrientation)
			assert.Equal(t, tt.wantLow, res.LowConfidence)
			assert.Len(t, res.Hypotheses, 4)
		})
	}
}

func TestResolve_OrderIndependent(t *testing.T) {
	// Slots may be filled in any completion order; angles decide ties.
	hyps := [4]Hypothesis{
		{Angle: 270, Score: 0.5},
		{Angle: 180, Score: 0.5},
		{Angle: 90, Score: 0.1},
		{Angle: 0, Score: 0.2},
	}
	res := Resolve(hyps, DefaultMinConfidenceThreshold)
	assert.Equal(t, 180, res.BestAngle)
}

func TestCurrentOrientation(t *testing.T) {
	assert.Equal(t, 0, CurrentOrientation(0))
	assert.Equal(t, 270, CurrentOrientation(90))
	assert.Equal(t, 180, CurrentOrientation(180))
	assert.Equal(t, 90, CurrentOrientation(270))
}

func TestResult_FailedTrials(t *testing.T) {
	res := Result{Hypotheses: hypsWithScores(0, 0, 0, 0)}
	res.Hypotheses[2].Err = "boom"
	assert.Equal(t, 1, res.FailedTrials())
}
