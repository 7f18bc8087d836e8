// Package confidence decides how sure the responder must be before it
// answers, and how sure a given regular-expression match makes it.
package confidence

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Default thresholds. Mentions and questions carry stronger intent, so they
// are accepted with a looser ratio than plain chatter.
const (
	DefaultMentionThreshold  = 0.6
	DefaultQuestionThreshold = 0.6
	DefaultPlainThreshold    = 0.85

	// DefaultMinLength is the shortest message worth scoring.
	DefaultMinLength = 3
)

// ErrInvalidThreshold is returned for thresholds outside (0, 1].
var ErrInvalidThreshold = errors.New("threshold must be in (0, 1]")

// leadWords open a question when followed by at least one more character.
var leadWords = []string{
	"what", "who", "when", "where", "why", "how",
	"can", "could", "would",
	"is", "are", "am",
	"do", "does", "did",
	"will", "should",
}

// Classification is the message shape that drives threshold selection.
type Classification struct {
	IsMention  bool
	IsQuestion bool
}

// String is used in logs.
func (c Classification) String() string {
	switch {
	case c.IsMention:
		return "mention"
	case c.IsQuestion:
		return "question"
	default:
		return "plain"
	}
}

// Thresholds holds the acceptance threshold per classification.
type Thresholds struct {
	Mention  float64
	Question float64
	Default  float64
}

// DefaultThresholds returns 0.6 / 0.6 / 0.85.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Mention:  DefaultMentionThreshold,
		Question: DefaultQuestionThreshold,
		Default:  DefaultPlainThreshold,
	}
}

// Validate reports the first threshold outside (0, 1].
func (t Thresholds) Validate() error {
	for _, v := range []struct {
		name  string
		value float64
	}{
		{"mention", t.Mention},
		{"question", t.Question},
		{"default", t.Default},
	} {
		if !(v.value > 0 && v.value <= 1) {
			return fmt.Errorf("%s threshold %v: %w", v.name, v.value, ErrInvalidThreshold)
		}
	}
	return nil
}

// For picks the threshold: mention first, then question, then default.
func (t Thresholds) For(c Classification) float64 {
	switch {
	case c.IsMention:
		return t.Mention
	case c.IsQuestion:
		return t.Question
	default:
		return t.Default
	}
}

// Classify tags text (already stripped of the bot mention) as mention,
// question or plain. mentioned reports whether the bot was among the
// message mentions.
func Classify(text string, mentioned bool) Classification {
	return Classification{
		IsMention:  mentioned,
		IsQuestion: IsQuestion(text),
	}
}

// IsQuestion is true for text containing '?' or starting with an
// interrogative lead word followed by at least one more character.
// The lead word is a plain prefix: "however" counts.
func IsQuestion(text string) bool {
	text = strings.ToLower(text)
	if strings.Contains(text, "?") {
		return true
	}
	for _, w := range leadWords {
		if !strings.HasPrefix(text, w) {
			continue
		}
		r, size := utf8.DecodeRuneInString(text[len(w):])
		if size > 0 && !isLineTerminator(r) {
			return true
		}
	}
	return false
}

func isLineTerminator(r rune) bool {
	return r == '\n' || r == '\r' || r == '\u2028' || r == '\u2029'
}

// Of is the share of subject explained by matched, in characters.
// It returns 0 when either side is empty, which is never an acceptable
// confidence.
func Of(matched, subject string) float64 {
	m := utf8.RuneCountInString(matched)
	s := utf8.RuneCountInString(subject)
	if m == 0 || s == 0 {
		return 0
	}
	c := float64(m) / float64(s)
	if c > 1 {
		return 1
	}
	return c
}

// Valid reports whether c is a usable match confidence.
func Valid(c float64) bool {
	return c > 0 && c <= 1
}

// Policy bundles the thresholds with the minimum message length.
type Policy struct {
	Thresholds Thresholds
	MinLength  int
}

// DefaultPolicy returns the documented defaults.
func DefaultPolicy() Policy {
	return Policy{Thresholds: DefaultThresholds(), MinLength: DefaultMinLength}
}

// TooShort reports whether text is below the minimum scoring length.
func (p Policy) TooShort(text string) bool {
	min := p.MinLength
	if min <= 0 {
		min = DefaultMinLength
	}
	return utf8.RuneCountInString(text) < min
}

// Threshold is Thresholds.For.
func (p Policy) Threshold(c Classification) float64 {
	return p.Thresholds.For(c)
}
