package observability

import (
	"context"
	"strconv"

	"github.com/aretw0/inkwell/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the playback counters.
type Metrics struct {
	KnotVisits *prometheus.CounterVec
	Lines      prometheus.Counter
	Choices    *prometheus.CounterVec
	Endings    *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		KnotVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inkwell_knot_visits_total",
				Help: "Total number of knot and stitch entries",
			},
			[]string{"knot", "stitch"},
		),
		Lines: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inkwell_lines_total",
			Help: "Total number of lines produced",
		}),
		Choices: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inkwell_choices_total",
				Help: "Total number of choices taken",
			},
			[]string{"knot", "fallback"},
		),
		Endings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inkwell_endings_total",
				Help: "Total number of playthroughs that reached the end",
			},
			[]string{"knot"},
		),
	}
	reg.MustRegister(m.KnotVisits, m.Lines, m.Choices, m.Endings)
	return m
}

// Hooks returns lifecycle hooks that record into the counters.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnKnotEnter: func(_ context.Context, e *domain.KnotEvent) {
			m.KnotVisits.WithLabelValues(e.Knot, e.Stitch).Inc()
		},
		OnLine: func(context.Context, *domain.LineEvent) {
			m.Lines.Inc()
		},
		OnChoice: func(_ context.Context, e *domain.ChoiceEvent) {
			m.Choices.WithLabelValues(e.Knot, strconv.FormatBool(e.Fallback)).Inc()
		},
		OnEnd: func(_ context.Context, e *domain.EndEvent) {
			m.Endings.WithLabelValues(e.Knot).Inc()
		},
	}
}
