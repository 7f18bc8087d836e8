package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Message(OutcomeMatched)
	m.Message(OutcomeMatched)
	m.Message(OutcomeNoMatch)
	m.Match(0.9, 0.001)
	m.Loaded(12, 3)
	m.Reload(nil)
	m.Reload(errors.New("boom"))
	m.EvalError()
	m.PersistError()
	m.ReplyFailed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Messages.WithLabelValues(OutcomeMatched)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Messages.WithLabelValues(OutcomeNoMatch)))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.PatternsLoaded))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.PatternsInvalid))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reloads.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reloads.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PatternEvalError))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PersistErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RepliesFailed))
	assert.Equal(t, 1, testutil.CollectAndCount(m.MatchConfidence))

	n, err := testutil.GatherAndCount(reg, "autoreply_match_duration_seconds")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Message(OutcomeIgnored)
		m.Match(1, 1)
		m.Loaded(1, 1)
		m.Reload(nil)
		m.EvalError()
		m.PersistError()
		m.ReplyFailed()
	})
}
