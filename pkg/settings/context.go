package settings

import (
	"context"
)

type runKey struct{}

// IntoContext returns a copy of ctx carrying r.
func IntoContext(ctx context.Context, r *Run) context.Context {
	return context.WithValue(ctx, runKey{}, r)
}

// FromContext returns the parameters stored by IntoContext.
func FromContext(ctx context.Context) (*Run, bool) {
	if ctx == nil {
		return nil, false
	}
	r, ok := ctx.Value(runKey{}).(*Run)
	return r, ok && r != nil
}

// FromContextOrNew is FromContext falling back to NewRun.
func FromContextOrNew(ctx context.Context) *Run {
	if r, ok := FromContext(ctx); ok {
		return r
	}
	return NewRun()
}
