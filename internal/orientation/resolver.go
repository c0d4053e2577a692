package orientation

// Resolve picks the winning hypothesis. The highest score wins and ties go to
// the smallest angle, so the outcome does not depend on trial completion order.
// Low confidence is flagged but never changes the chosen angle.
func Resolve(hyps [4]Hypothesis, minConfidence float64) Result {
	best := 0
	for i := 1; i < len(hyps); i++ {
		if hyps[i].Score > hyps[best].Score ||
			(hyps[i].Score == hyps[best].Score && hyps[i].Angle < hyps[best].Angle) {
			best = i
		}
	}
	winner := hyps[best]
	return Result{
		BestAngle:          winner.Angle,
		CurrentOrientation: CurrentOrientation(winner.Angle),
		Score:              winner.Score,
		LowConfidence:      winner.Score < minConfidence,
		Hypotheses:         hyps,
	}
}
