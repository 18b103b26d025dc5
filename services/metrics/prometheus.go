// Package metricsvc counts the domain events for Prometheus.
package metricsvc

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/trezcool/academy/core/notify"
)

// Sink is a notify.Sink; register it once per registry.
type Sink struct {
	registry *prometheus.Registry

	events        *prometheus.CounterVec
	attempts      *prometheus.CounterVec
	attemptScores prometheus.Histogram
}

var _ notify.Sink = (*Sink)(nil) // interface compliance check

func NewSink(registry *prometheus.Registry) *Sink {
	s := &Sink{
		registry: registry,
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "academy_events_total",
				Help: "Number of domain events by type",
			},
			[]string{"type"},
		),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "academy_graded_attempts_total",
				Help: "Number of graded assessment attempts by result",
			},
			[]string{"result"},
		),
		attemptScores: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "academy_attempt_score_percentage",
				Help:    "Score of the graded assessment attempts",
				Buckets: prometheus.LinearBuckets(10, 10, 10),
			},
		),
	}
	registry.MustRegister(s.events, s.attempts, s.attemptScores)
	return s
}

func (s *Sink) Name() string { return "metrics" }

func (s *Sink) Handle(_ context.Context, ev notify.Event) error {
	s.events.WithLabelValues(ev.Type).Inc()
	if ev.Type == notify.EventAttemptGraded {
		result := "failed"
		if ev.Passed {
			result = "passed"
		}
		s.attempts.WithLabelValues(result).Inc()
		if score, err := decimal.NewFromString(ev.Score); err == nil {
			s.attemptScores.Observe(score.InexactFloat64())
		}
	}
	return nil
}

// Handler exposes the registry to Prometheus scrapes.
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
