package metrics

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/circulation/pkg/circulation"
)

const namespace = "circulation"

// Outcome labels of a transition attempt.
const (
	OutcomeCommitted        = "committed"
	OutcomeInvalid          = "invalid_transition"
	OutcomeConditionsNotMet = "conditions_not_met"
	OutcomeNoAutomatic      = "no_automatic_transition"
	OutcomeConflict         = "conflict"
	OutcomeError            = "error"
)

// Collector counts and times transition attempts. It implements
// circulation.Observer.
type Collector struct {
	attempts    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

var _ circulation.Observer = (*Collector)(nil)

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attempts_total",
				Help:      "Transition attempts by source state, trigger and outcome.",
			},
			[]string{"from", "trigger", "outcome"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Committed transitions by source and destination state.",
			},
			[]string{"from", "to", "trigger"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "attempt_duration_seconds",
				Help:      "Time spent resolving a transition, lock wait and save included.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"trigger", "outcome"},
		),
	}

	for _, col := range []prometheus.Collector{c.attempts, c.transitions, c.duration} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is New that panics on registration errors.
func MustNew(reg prometheus.Registerer) *Collector {
	c, err := New(reg)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Collector) ObserveTransition(_ context.Context, rep circulation.TransitionReport) {
	outcome := Outcome(rep.Err)
	trigger := rep.Trigger.String()

	c.attempts.WithLabelValues(rep.From.Name(), trigger, outcome).Inc()
	c.duration.WithLabelValues(trigger, outcome).Observe(rep.Duration.Seconds())
	if rep.Err == nil {
		c.transitions.WithLabelValues(rep.From.Name(), rep.To.Name(), trigger).Inc()
	}
}

// Outcome classifies an attempt error into a label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeCommitted
	case errors.Is(err, circulation.ErrInvalidTransition):
		return OutcomeInvalid
	case errors.Is(err, circulation.ErrTransitionConditionsNotMet):
		return OutcomeConditionsNotMet
	case errors.Is(err, circulation.ErrNoAutomaticTransition):
		return OutcomeNoAutomatic
	case errors.Is(err, circulation.ErrPersistenceConflict):
		return OutcomeConflict
	default:
		return OutcomeError
	}
}
