package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/aretw0/inkwell"
	"github.com/aretw0/inkwell/pkg/domain"
	"github.com/aretw0/inkwell/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const story = `
== gate ==
A gate.
* [Open it] -> yard
* -> END

== yard ==
= north
A yard.
-> END
`

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := observability.Combine(metrics.Hooks(), observability.LogHooks(logger))

	eng, err := inkwell.New(story, inkwell.WithLifecycleHooks(hooks))
	require.NoError(t, err)
	ctx := context.Background()

	rt, err := eng.Start(ctx, "")
	require.NoError(t, err)
	_, _, err = rt.Continue(ctx)
	require.NoError(t, err)
	require.NoError(t, rt.Select(ctx, 0))
	_, step, err := rt.Continue(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.StepEnded, step.Kind)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.KnotVisits.WithLabelValues("gate", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.KnotVisits.WithLabelValues("yard", "north")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Lines))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Choices.WithLabelValues("gate", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Endings.WithLabelValues("yard")))

	assert.Contains(t, buf.String(), "knot_enter")
	assert.Contains(t, buf.String(), "msg=end")
}

func TestCombine_SkipsNil(t *testing.T) {
	calls := 0
	h := observability.Combine(
		domain.LifecycleHooks{},
		domain.LifecycleHooks{OnEnd: func(context.Context, *domain.EndEvent) { calls++ }},
		domain.LifecycleHooks{OnEnd: func(context.Context, *domain.EndEvent) { calls++ }},
	)
	assert.Nil(t, h.OnLine)
	h.OnEnd(context.Background(), &domain.EndEvent{})
	assert.Equal(t, 2, calls)
}
