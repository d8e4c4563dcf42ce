package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/inkwell/pkg/domain"
)

// LogHooks logs every lifecycle event at Debug level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnKnotEnter: func(ctx context.Context, e *domain.KnotEvent) {
			logger.DebugContext(ctx, "knot_enter", "knot", e.Knot, "stitch", e.Stitch, "visits", e.Visits)
		},
		OnLine: func(ctx context.Context, e *domain.LineEvent) {
			logger.DebugContext(ctx, "line", "knot", e.Knot, "tags", e.Tags)
		},
		OnChoice: func(ctx context.Context, e *domain.ChoiceEvent) {
			logger.DebugContext(ctx, "choice", "knot", e.Knot, "choice", e.ChoiceID, "fallback", e.Fallback)
		},
		OnEnd: func(ctx context.Context, e *domain.EndEvent) {
			logger.DebugContext(ctx, "end", "knot", e.Knot)
		},
	}
}

// Combine returns hooks that call each of the given hooks in order.
func Combine(all ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range all {
		out.OnKnotEnter = chain(out.OnKnotEnter, h.OnKnotEnter)
		out.OnLine = chain(out.OnLine, h.OnLine)
		out.OnChoice = chain(out.OnChoice, h.OnChoice)
		out.OnEnd = chain(out.OnEnd, h.OnEnd)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
