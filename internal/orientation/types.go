package orientation

import (
	"time"
)

// Strategy names.
const (
	StrategyHeuristic  = "heuristic"
	StrategyClassifier = "classifier"
)

// Angles lists the candidate clockwise rotations in ascending order. Slot i of
// every per-angle array belongs to Angles[i].
var Angles = [4]int{0, 90, 180, 270}

// Hypothesis is the evidence gathered for one candidate rotation.
type Hypothesis struct {
	Angle       int           `json:"angle" yaml:"angle"`
	Text        string        `json:"text,omitempty" yaml:"text,omitempty"`
	Confidence  float64       `json:"confidence" yaml:"confidence"`
	TextLength  int           `json:"text_length" yaml:"text_length"`
	ValidWords  int           `json:"valid_words" yaml:"valid_words"`
	Readability float64       `json:"readability" yaml:"readability"`
	Score       float64       `json:"score" yaml:"score"`
	Err         string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration    time.Duration `json:"duration_ns" yaml:"duration_ns"`
}

// Failed reports whether the trial for this hypothesis failed.
func (h Hypothesis) Failed() bool { return h.Err != "" }

// Result is the outcome of one detection.
type Result struct {
	// BestAngle is the clockwise rotation that makes the text upright.
	BestAngle int `json:"best_angle" yaml:"best_angle"`
	// CurrentOrientation is how far the input is rotated away from upright.
	CurrentOrientation int           `json:"current_orientation" yaml:"current_orientation"`
	Score              float64       `json:"score" yaml:"score"`
	LowConfidence      bool          `json:"low_confidence" yaml:"low_confidence"`
	Strategy           string        `json:"strategy" yaml:"strategy"`
	Hypotheses         [4]Hypothesis `json:"hypotheses" yaml:"hypotheses"`
	Duration           time.Duration `json:"duration_ns" yaml:"duration_ns"`
}

// FailedTrials counts hypotheses whose trial failed.
func (r Result) FailedTrials() int {
	n := 0
	for _, h := range r.Hypotheses {
		if h.Failed() {
			n++
		}
	}
	return n
}

// CurrentOrientation converts the rotation that makes an image legible into
// the rotation the image currently has.
func CurrentOrientation(bestAngle int) int {
	return ((360-bestAngle)%360 + 360) % 360
}

// angleIndex maps a cardinal angle to its slot.
func angleIndex(angle int) (int, bool) {
	for i, a := range Angles {
		if a == angle {
			return i, true
		}
	}
	return 0, false
}
