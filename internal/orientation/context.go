package orientation

import "context"

type observerKey struct{}

// ContextWithObserver attaches a per-call observer that receives diagnostics
// in addition to the detector's own observer.
func ContextWithObserver(ctx context.Context, obs Observer) context.Context {
	return context.WithValue(ctx, observerKey{}, obs)
}

func callObserver(ctx context.Context, base Observer) Observer {
	extra, _ := ctx.Value(observerKey{}).(Observer)
	if extra == nil {
		return base
	}
	return MultiObserver{base, extra}
}
