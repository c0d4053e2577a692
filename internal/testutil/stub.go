package testutil

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"

	"github.com/MeKo-Tech/orient/internal/recognizer"
)

// Sample recognizer outputs.
const (
	ProseText   = "The quick brown fox jumps over the lazy dog while the farmer watches from the old wooden porch."
	GarbageText = "lI1| ~~ ;; ,., :Il| 1l1l ~ ;"
)

// ErrStubFailure is the default injected recognition error.
var ErrStubFailure = errors.New("stub recognition failure")

// StubRecognizers scripts recognition results by where a page's marker sits
// in the image handed to the recognizer: a top-left marker means the image is
// upright. It also counts recognizer lifetimes so tests can check that every
// handle is released.
type StubRecognizers struct {
	UprightText       string
	UprightConfidence float64
	RotatedText       string
	RotatedConfidence float64

	// Per-corner behavior for failure injection.
	Fail  map[Corner]error
	Panic map[Corner]bool
	Hang  map[Corner]bool

	// FactoryErr makes every recognizer construction fail.
	FactoryErr error

	created atomic.Int32
	closed  atomic.Int32

	mu   sync.Mutex
	seen []Corner
}

// NewStubRecognizers returns a script that reads prose only when upright.
func NewStubRecognizers() *StubRecognizers {
	return &StubRecognizers{
		UprightText:       ProseText,
		UprightConfidence: 0.92,
		RotatedText:       GarbageText,
		RotatedConfidence: 0.35,
	}
}

// Factory returns a recognizer.Factory producing fresh stub recognizers.
func (s *StubRecognizers) Factory() recognizer.Factory {
	return func() (recognizer.Recognizer, error) {
		if s.FactoryErr != nil {
			return nil, s.FactoryErr
		}
		s.created.Add(1)
		return &stubRecognizer{owner: s}, nil
	}
}

// Created reports how many recognizers were constructed.
func (s *StubRecognizers) Created() int { return int(s.created.Load()) }

// Closed reports how many recognizers were released.
func (s *StubRecognizers) Closed() int { return int(s.closed.Load()) }

// Seen returns the marker corners observed so far, in call order.
func (s *StubRecognizers) Seen() []Corner {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Corner(nil), s.seen...)
}

type stubRecognizer struct {
	owner  *StubRecognizers
	closed atomic.Bool
}

func (r *stubRecognizer) Recognize(ctx context.Context, img image.Image) (recognizer.Result, error) {
	if err := ctx.Err(); err != nil {
		return recognizer.Result{}, err
	}
	s := r.owner
	corner := MarkerCorner(img)

	s.mu.Lock()
	s.seen = append(s.seen, corner)
	s.mu.Unlock()

	if s.Hang[corner] {
		<-ctx.Done()
		return recognizer.Result{}, ctx.Err()
	}
	if s.Panic[corner] {
		panic("stub recognizer panic at " + corner.String())
	}
	if err, ok := s.Fail[corner]; ok {
		if err == nil {
			err = ErrStubFailure
		}
		return recognizer.Result{}, err
	}

	switch corner {
	case CornerNone:
		return recognizer.Result{}, nil
	case CornerTopLeft:
		return recognizer.Result{Text: s.UprightText, Confidence: s.UprightConfidence}, nil
	default:
		return recognizer.Result{Text: s.RotatedText, Confidence: s.RotatedConfidence}, nil
	}
}

func (r *stubRecognizer) Close() error {
	if r.closed.CompareAndSwap(false, true) {
		r.owner.closed.Add(1)
	}
	return nil
}
