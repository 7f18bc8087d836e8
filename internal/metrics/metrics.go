// Package metrics holds the Prometheus collectors of the responder.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Message outcomes.
const (
	OutcomeMatched  = "matched"
	OutcomeNoMatch  = "no_match"
	OutcomeTooShort = "too_short"
	OutcomeIgnored  = "ignored"
	OutcomeCommand  = "command"
)

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
//
// Metrics:
//   - autoreply_messages_total{outcome}
//   - autoreply_match_confidence
//   - autoreply_match_duration_seconds
//   - autoreply_patterns_loaded / autoreply_patterns_invalid
//   - autoreply_pattern_eval_errors_total
//   - autoreply_pattern_reloads_total{result}
//   - autoreply_stats_persist_errors_total
//   - autoreply_replies_failed_total
type Metrics struct {
	Messages         *prometheus.CounterVec
	MatchConfidence  prometheus.Histogram
	MatchDuration    prometheus.Histogram
	PatternsLoaded   prometheus.Gauge
	PatternsInvalid  prometheus.Gauge
	PatternEvalError prometheus.Counter
	Reloads          *prometheus.CounterVec
	PersistErrors    prometheus.Counter
	RepliesFailed    prometheus.Counter
}

// Default registers the collectors on the default registerer once.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// New registers a fresh set of collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Messages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "autoreply_messages_total",
			Help: "Inbound messages by handling outcome",
		}, []string{"outcome"}),

		MatchConfidence: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "autoreply_match_confidence",
			Help:    "Confidence of accepted matches",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		}),

		MatchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "autoreply_match_duration_seconds",
			Help:    "Time spent selecting a pattern for a message",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms to ~200ms
		}),

		PatternsLoaded: f.NewGauge(prometheus.GaugeOpts{
			Name: "autoreply_patterns_loaded",
			Help: "Patterns in the active store",
		}),

		PatternsInvalid: f.NewGauge(prometheus.GaugeOpts{
			Name: "autoreply_patterns_invalid",
			Help: "Entries rejected by the last pattern load",
		}),

		PatternEvalError: f.NewCounter(prometheus.CounterOpts{
			Name: "autoreply_pattern_eval_errors_total",
			Help: "Pattern evaluations that failed at match time",
		}),

		Reloads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "autoreply_pattern_reloads_total",
			Help: "Pattern store reloads by result",
		}, []string{"result"}),

		PersistErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "autoreply_stats_persist_errors_total",
			Help: "Failed writes of the statistics ledger",
		}),

		RepliesFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "autoreply_replies_failed_total",
			Help: "Replies that could not be delivered",
		}),
	}
}

// Message counts one handled message.
func (m *Metrics) Message(outcome string) {
	if m == nil {
		return
	}
	m.Messages.WithLabelValues(outcome).Inc()
}

// Match observes an accepted match.
func (m *Metrics) Match(confidence, seconds float64) {
	if m == nil {
		return
	}
	m.MatchConfidence.Observe(confidence)
	m.MatchDuration.Observe(seconds)
}

// Loaded sets the store gauges after a load or reload.
func (m *Metrics) Loaded(patterns, invalid int) {
	if m == nil {
		return
	}
	m.PatternsLoaded.Set(float64(patterns))
	m.PatternsInvalid.Set(float64(invalid))
}

// Reload counts a reload attempt.
func (m *Metrics) Reload(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Reloads.WithLabelValues(result).Inc()
}

// EvalError counts a pattern that failed to evaluate.
func (m *Metrics) EvalError() {
	if m == nil {
		return
	}
	m.PatternEvalError.Inc()
}

// PersistError counts a failed ledger write.
func (m *Metrics) PersistError() {
	if m == nil {
		return
	}
	m.PersistErrors.Inc()
}

// ReplyFailed counts an undelivered reply.
func (m *Metrics) ReplyFailed() {
	if m == nil {
		return
	}
	m.RepliesFailed.Inc()
}
