package orientation

import (
	"log/slog"
)

// Observer receives diagnostics while a detection runs. OnTrial is called from
// the trial goroutines, so implementations must be safe for concurrent use.
// Observers never influence the result.
type Observer interface {
	OnTrial(h Hypothesis)
	OnResult(r Result)
}

// LogObserver writes diagnostics to a slog.Logger.
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// OnTrial logs one line per rotation trial.
func (o LogObserver) OnTrial(h Hypothesis) {
	attrs := []any{
		"angle", h.Angle,
		"confidence", h.Confidence,
		"text_length", h.TextLength,
		"valid_words", h.ValidWords,
		"readability", h.Readability,
		"score", h.Score,
		"duration", h.Duration,
	}
	if h.Failed() {
		o.logger().Warn("orientation trial failed", append(attrs, "error", h.Err)...)
		return
	}
	o.logger().Debug("orientation trial", attrs...)
}

// OnResult logs the summary and a warning for low-confidence results.
func (o LogObserver) OnResult(r Result) {
	if r.LowConfidence {
		o.logger().Warn("low orientation confidence",
			"score", r.Score,
			"best_angle", r.BestAngle,
			"strategy", r.Strategy)
	}
	o.logger().Info("orientation detected",
		"best_angle", r.BestAngle,
		"current_orientation", r.CurrentOrientation,
		"score", r.Score,
		"strategy", r.Strategy,
		"failed_trials", r.FailedTrials(),
		"duration", r.Duration)
}

// MultiObserver fans diagnostics out to several observers in order.
type MultiObserver []Observer

// OnTrial forwards to every observer.
func (m MultiObserver) OnTrial(h Hypothesis) {
	for _, o := range m {
		o.OnTrial(h)
	}
}

// OnResult forwards to every observer.
func (m MultiObserver) OnResult(r Result) {
	for _, o := range m {
		o.OnResult(r)
	}
}

type nopObserver struct{}

func (nopObserver) OnTrial(Hypothesis) {}
func (nopObserver) OnResult(Result)    {}

// Option customizes a Detector.
type Option func(*options)

type options struct {
	observer Observer
}

func buildOptions(opts []Option) options {
	o := options{observer: LogObserver{}}
	for _, fn := range opts {
		fn(&o)
	}
	if o.observer == nil {
		o.observer = nopObserver{}
	}
	return o
}

// WithObserver replaces the default slog observer. Pass nil to silence
// diagnostics.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}
