// Package matcher picks the pattern that answers a message.
package matcher

import (
	"time"

	"github.com/keshon/autoreply/internal/confidence"
	"github.com/keshon/autoreply/internal/logging"
	"github.com/keshon/autoreply/internal/message"
	"github.com/keshon/autoreply/internal/pattern"
)

// Result is an accepted match.
type Result struct {
	Pattern    string
	Response   string
	Matched    string
	Confidence float64
	Threshold  float64
	Class      confidence.Classification
	// Scanned is the number of patterns evaluated, the winner included.
	Scanned  int
	Duration time.Duration
}

// DurationMillis is Duration in fractional milliseconds.
func (r Result) DurationMillis() float64 {
	return float64(r.Duration) / float64(time.Millisecond)
}

// EvalErrorFunc is notified when a pattern fails to evaluate.
type EvalErrorFunc func(pattern string, err error)

// Selector applies a confidence policy to a pattern store. It has no side
// effects besides logging.
type Selector struct {
	policy confidence.Policy
	log    logging.Logger

	// OnEvalError, if set, is called for every pattern skipped because it
	// could not be evaluated.
	OnEvalError EvalErrorFunc
}

// New returns a selector. A nil logger discards.
func New(policy confidence.Policy, log logging.Logger) *Selector {
	if log == nil {
		log = logging.Nop()
	}
	return &Selector{policy: policy, log: log}
}

// Policy returns the policy in use.
func (s *Selector) Policy() confidence.Policy { return s.policy }

// Select returns the first pattern, in store order, whose match covers at
// least the threshold share of the subject text. It is not a best-match
// search: a later pattern with higher confidence never displaces an earlier
// one that already cleared the bar.
func (s *Selector) Select(msg message.Context, store *pattern.Store) (Result, bool) {
	subject := msg.Subject()
	if s.policy.TooShort(subject) {
		return Result{}, false
	}

	class := msg.Classification()
	threshold := s.policy.Threshold(class)
	start := time.Now()

	for i, p := range store.Patterns() {
		matched, err := p.Find(subject)
		if err != nil {
			s.log.Warn("Skipping pattern that failed to evaluate", "pattern", p.Pattern, "err", err)
			if s.OnEvalError != nil {
				s.OnEvalError(p.Pattern, err)
			}
			continue
		}
		if matched == "" {
			continue
		}

		c := confidence.Of(matched, subject)
		if !confidence.Valid(c) || c < threshold {
			continue
		}

		return Result{
			Pattern:    p.Pattern,
			Response:   p.Response,
			Matched:    matched,
			Confidence: c,
			Threshold:  threshold,
			Class:      class,
			Scanned:    i + 1,
			Duration:   time.Since(start),
		}, true
	}
	return Result{}, false
}
