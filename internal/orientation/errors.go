package orientation

import (
	"errors"
	"fmt"
)

// Sentinel trial failures.
var (
	ErrTrialTimeout = errors.New("trial timed out")
	ErrTrialPanic   = errors.New("trial panicked")
)

// InputError reports a source image that does not exist or cannot be decoded.
// It is the only error Detect returns.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid input image: %v", e.Err)
	}
	return fmt.Sprintf("invalid input image %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// IsInputError reports whether err is or wraps an *InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// TrialError describes why a single rotation trial failed. It never escapes
// Detect; it is delivered to observers and recorded on the hypothesis.
type TrialError struct {
	Angle int
	Err   error
}

func (e *TrialError) Error() string {
	return fmt.Sprintf("trial %d°: %v", e.Angle, e.Err)
}

func (e *TrialError) Unwrap() error { return e.Err }
