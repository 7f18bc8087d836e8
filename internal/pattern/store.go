// Package pattern holds the ordered set of pattern/response pairs the
// responder matches against, and the loaders that build it.
package pattern

import (
	"errors"
	"fmt"
	"time"

	"github.com/dlclark/regexp2"
)

// DefaultMatchTimeout bounds a single pattern evaluation.
const DefaultMatchTimeout = 100 * time.Millisecond

// compileOptions: patterns are authored as ECMAScript expressions and always
// match case-insensitively.
const compileOptions = regexp2.ECMAScript | regexp2.IgnoreCase

var (
	ErrMissingPattern  = errors.New("pattern must be a non-empty string")
	ErrMissingResponse = errors.New("response must be a non-empty string")
	ErrInvalidRegex    = errors.New("pattern is not a valid regular expression")
)

// Entry is one pattern/response pair as authored.
type Entry struct {
	Pattern  string `json:"pattern" yaml:"pattern"`
	Response string `json:"response" yaml:"response"`
}

// Pattern is a compiled Entry.
type Pattern struct {
	Entry
	re *regexp2.Regexp
}

// Find returns the leftmost match of p in text, or "" when p does not match.
// An error means the expression could not be evaluated (for instance it ran
// past its timeout).
func (p *Pattern) Find(text string) (string, error) {
	m, err := p.re.FindStringMatch(text)
	if err != nil {
		return "", fmt.Errorf("evaluate %q: %w", p.Pattern, err)
	}
	if m == nil {
		return "", nil
	}
	return m.String(), nil
}

// Compile validates e and compiles its pattern.
func Compile(e Entry, timeout time.Duration) (*Pattern, error) {
	if e.Pattern == "" {
		return nil, ErrMissingPattern
	}
	if e.Response == "" {
		return nil, ErrMissingResponse
	}
	re, err := regexp2.Compile(e.Pattern, compileOptions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegex, err)
	}
	if timeout <= 0 {
		timeout = DefaultMatchTimeout
	}
	re.MatchTimeout = timeout
	return &Pattern{Entry: e, re: re}, nil
}

// Store is an immutable, ordered snapshot of compiled patterns. Order is
// match precedence.
type Store struct {
	patterns []*Pattern
	index    map[string]int
}

// Patterns returns the compiled patterns in precedence order. The slice must
// not be modified.
func (s *Store) Patterns() []*Pattern {
	if s == nil {
		return nil
	}
	return s.patterns
}

// Entries returns a copy of the pattern/response pairs in order.
func (s *Store) Entries() []Entry {
	if s == nil {
		return nil
	}
	out := make([]Entry, len(s.patterns))
	for i, p := range s.patterns {
		out[i] = p.Entry
	}
	return out
}

// Size is the number of distinct patterns.
func (s *Store) Size() int {
	if s == nil {
		return 0
	}
	return len(s.patterns)
}

// Lookup returns the response registered for pattern.
func (s *Store) Lookup(pattern string) (string, bool) {
	if s == nil {
		return "", false
	}
	i, ok := s.index[pattern]
	if !ok {
		return "", false
	}
	return s.patterns[i].Response, true
}

// Rejection describes an entry that was not loaded.
type Rejection struct {
	Source string
	Key    string
	Entry  Entry
	Err    error
}

// LoadReport summarizes a load.
type LoadReport struct {
	// Loaded counts accepted entries, including ones that replaced an
	// earlier response for the same pattern.
	Loaded int
	// Invalid counts rejected entries.
	Invalid int
	// Duplicates counts accepted entries whose pattern was already present.
	Duplicates int
	// Files counts documents read; FileErrors those that could not be read
	// or parsed at all.
	Files      int
	FileErrors int
	Rejections []Rejection
}

// Builder accumulates entries in order.
type Builder struct {
	timeout time.Duration
	store   *Store
	report  LoadReport
}

// NewBuilder returns a builder compiling with the given match timeout.
func NewBuilder(timeout time.Duration) *Builder {
	return &Builder{
		timeout: timeout,
		store:   &Store{index: make(map[string]int)},
	}
}

// Add validates and inserts e. A pattern already present keeps its
// position and takes the new response.
func (b *Builder) Add(source, key string, e Entry) error {
	p, err := Compile(e, b.timeout)
	if err != nil {
		b.report.Invalid++
		b.report.Rejections = append(b.report.Rejections, Rejection{Source: source, Key: key, Entry: e, Err: err})
		return err
	}
	b.report.Loaded++
	if i, ok := b.store.index[e.Pattern]; ok {
		b.store.patterns[i] = p
		b.report.Duplicates++
		return nil
	}
	b.store.index[e.Pattern] = len(b.store.patterns)
	b.store.patterns = append(b.store.patterns, p)
	return nil
}

// Reject records an entry that failed before it could be compiled.
func (b *Builder) Reject(source, key string, e Entry, err error) {
	b.report.Invalid++
	b.report.Rejections = append(b.report.Rejections, Rejection{Source: source, Key: key, Entry: e, Err: err})
}

// Build returns the store and the load report. The builder must not be
// used afterwards.
func (b *Builder) Build() (*Store, LoadReport) {
	return b.store, b.report
}

// Load builds a store from entries in order.
func Load(entries []Entry, timeout time.Duration) (*Store, LoadReport) {
	b := NewBuilder(timeout)
	for i, e := range entries {
		_ = b.Add("", fmt.Sprint(i), e)
	}
	return b.Build()
}
