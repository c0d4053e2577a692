package support

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sync"

	"github.com/MeKo-Tech/orient/internal/orientation"
	"github.com/MeKo-Tech/orient/internal/testutil"
	"github.com/cucumber/godog"
)

type recordingObserver struct {
	mu      sync.Mutex
	trials  []orientation.Hypothesis
	results []orientation.Result
}

func (r *recordingObserver) OnTrial(h orientation.Hypothesis) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trials = append(r.trials, h)
}

func (r *recordingObserver) OnResult(res orientation.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *recordingObserver) trialCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trials)
}

// RegisterDetectionSteps registers the single-image detection steps.
func (tc *TestContext) RegisterDetectionSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a heuristic detector backed by the scripted recognizer$`, tc.aHeuristicDetector)
	sc.Step(`^the recognizer only reads low quality text$`, tc.theRecognizerOnlyReadsLowQualityText)
	sc.Step(`^recognition fails for the (\d+) degree trial$`, tc.recognitionFailsForTrial)

	sc.Step(`^an upright synthetic text page$`, tc.anUprightPage)
	sc.Step(`^a synthetic text page rotated (\d+) degrees clockwise$`, tc.aPageRotated)
	sc.Step(`^a blank page$`, tc.aBlankPage)
	sc.Step(`^a file that is not an image$`, tc.aFileThatIsNotAnImage)

	sc.Step(`^I detect its orientation$`, tc.iDetectItsOrientation)
	sc.Step(`^I detect the orientation of the file$`, tc.iDetectTheOrientationOfTheFile)

	sc.Step(`^the detection succeeds$`, tc.theDetectionSucceeds)
	sc.Step(`^the detection fails with an input error$`, tc.theDetectionFailsWithAnInputError)
	sc.Step(`^the current orientation is (\d+)$`, tc.theCurrentOrientationIs)
	sc.Step(`^the best angle is (\d+)$`, tc.theBestAngleIs)
	sc.Step(`^the result is confident$`, tc.theResultIsConfident)
	sc.Step(`^the result has low confidence$`, tc.theResultHasLowConfidence)
	sc.Step(`^every hypothesis scores 0$`, tc.everyHypothesisScoresZero)
	sc.Step(`^the (\d+) degree hypothesis failed with score 0$`, tc.theHypothesisFailed)
	sc.Step(`^(\d+) hypotheses were reported$`, tc.hypothesesWereReported)
	sc.Step(`^every recognizer was released$`, tc.everyRecognizerWasReleased)
}

func (tc *TestContext) aHeuristicDetector() error {
	tc.Stubs = testutil.NewStubRecognizers()
	return nil
}

func (tc *TestContext) theRecognizerOnlyReadsLowQualityText() error {
	tc.Stubs.UprightText = testutil.GarbageText
	tc.Stubs.UprightConfidence = tc.Stubs.RotatedConfidence
	return nil
}

// recognitionFailsForTrial makes the recognizer fail when it is handed the
// upright page turned by angle, which is the trial for that angle.
func (tc *TestContext) recognitionFailsForTrial(angle int) error {
	if tc.Stubs.Fail == nil {
		tc.Stubs.Fail = map[testutil.Corner]error{}
	}
	tc.Stubs.Fail[testutil.CornerAfterRotation(angle)] = fmt.Errorf("recognition failed at %d degrees", angle)
	return nil
}

func (tc *TestContext) anUprightPage() error {
	tc.Image = testutil.GeneratePage(testutil.DefaultPageConfig())
	return nil
}

func (tc *TestContext) aPageRotated(rotation int) error {
	tc.Image = testutil.RotateClockwise(testutil.GeneratePage(testutil.DefaultPageConfig()), rotation)
	return nil
}

func (tc *TestContext) aBlankPage() error {
	tc.Image = testutil.BlankImage(400, 300, color.White)
	return nil
}

func (tc *TestContext) aFileThatIsNotAnImage() error {
	tc.InputPath = filepath.Join(tc.TempDir, "notes.png")
	return os.WriteFile(tc.InputPath, []byte("definitely not a PNG"), 0o600)
}

func (tc *TestContext) iDetectItsOrientation() error {
	det, err := tc.detector()
	if err != nil {
		return err
	}
	if tc.Image == nil {
		return errors.New("no image prepared")
	}
	tc.LastResult, tc.LastError = det.DetectImage(context.Background(), tc.Image)
	return nil
}

func (tc *TestContext) iDetectTheOrientationOfTheFile() error {
	det, err := tc.detector()
	if err != nil {
		return err
	}
	tc.LastResult, tc.LastError = det.Detect(context.Background(), tc.InputPath)
	return nil
}

func (tc *TestContext) theDetectionSucceeds() error {
	if tc.LastError != nil {
		return fmt.Errorf("expected detection to succeed, got %w", tc.LastError)
	}
	return nil
}

func (tc *TestContext) theDetectionFailsWithAnInputError() error {
	if tc.LastError == nil {
		return errors.New("expected detection to fail")
	}
	if !orientation.IsInputError(tc.LastError) {
		return fmt.Errorf("expected an input error, got %w", tc.LastError)
	}
	return nil
}

func (tc *TestContext) theCurrentOrientationIs(want int) error {
	if got := tc.LastResult.CurrentOrientation; got != want {
		return fmt.Errorf("expected current orientation %d, got %d", want, got)
	}
	return nil
}

func (tc *TestContext) theBestAngleIs(want int) error {
	if got := tc.LastResult.BestAngle; got != want {
		return fmt.Errorf("expected best angle %d, got %d", want, got)
	}
	return nil
}

func (tc *TestContext) theResultIsConfident() error {
	if tc.LastResult.LowConfidence {
		return fmt.Errorf("expected a confident result, score %.3f", tc.LastResult.Score)
	}
	return nil
}

func (tc *TestContext) theResultHasLowConfidence() error {
	if !tc.LastResult.LowConfidence {
		return fmt.Errorf("expected low confidence, score %.3f", tc.LastResult.Score)
	}
	return nil
}

func (tc *TestContext) everyHypothesisScoresZero() error {
	for _, h := range tc.LastResult.Hypotheses {
		if h.Score != 0 {
			return fmt.Errorf("hypothesis %d scored %.3f", h.Angle, h.Score)
		}
	}
	return nil
}

func (tc *TestContext) theHypothesisFailed(angle int) error {
	for _, h := range tc.LastResult.Hypotheses {
		if h.Angle != angle {
			continue
		}
		if !h.Failed() {
			return fmt.Errorf("expected hypothesis %d to have failed", angle)
		}
		if h.Score != 0 {
			return fmt.Errorf("failed hypothesis %d scored %.3f", angle, h.Score)
		}
		return nil
	}
	return fmt.Errorf("no hypothesis for angle %d", angle)
}

func (tc *TestContext) hypothesesWereReported(n int) error {
	if got := tc.Observer.trialCount(); got != n {
		return fmt.Errorf("expected %d reported trials, got %d", n, got)
	}
	return nil
}

func (tc *TestContext) everyRecognizerWasReleased() error {
	if created, closed := tc.Stubs.Created(), tc.Stubs.Closed(); created != closed {
		return fmt.Errorf("created %d recognizers but closed %d", created, closed)
	}
	return nil
}
