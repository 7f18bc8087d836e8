package stats

import (
	"bytes"
	"encoding/json"
	"time"
)

// MaxExamples caps the example messages kept per pattern. Once full, the
// list is frozen: later matches are counted but not sampled.
const MaxExamples = 5

// Example is a sampled message that triggered a pattern.
type Example struct {
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp,omitzero"`
	Confidence float64   `json:"confidence,omitempty"`
}

// UnmarshalJSON also accepts the older snapshot layout in which an example
// is the bare message text.
func (e *Example) UnmarshalJSON(b []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(b), []byte(`"`)) {
		var content string
		if err := json.Unmarshal(b, &content); err != nil {
			return err
		}
		*e = Example{Content: content}
		return nil
	}
	type plain Example
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*e = Example(p)
	return nil
}

// Breakdown counts matches for one channel or user.
type Breakdown struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Statistic is the usage record of one pattern.
type Statistic struct {
	Count           int                  `json:"count"`
	TotalConfidence float64              `json:"totalConfidence"`
	AvgConfidence   float64              `json:"avgConfidence"`
	LastMatchedAt   time.Time            `json:"lastMatched"`
	Examples        []Example            `json:"examples"`
	Channels        map[string]Breakdown `json:"channels"`
	Users           map[string]Breakdown `json:"users"`
}

func newStatistic() *Statistic {
	return &Statistic{
		Examples: []Example{},
		Channels: make(map[string]Breakdown),
		Users:    make(map[string]Breakdown),
	}
}

// normalize repairs a record read from disk: avg matches total/count and
// examples stay within MaxExamples.
func (s *Statistic) normalize() {
	if s.Count < 0 {
		s.Count = 0
	}
	if s.TotalConfidence == 0 && s.AvgConfidence > 0 {
		// written before totals were tracked
		s.TotalConfidence = s.AvgConfidence * float64(s.Count)
	}
	if s.Count > 0 {
		s.AvgConfidence = s.TotalConfidence / float64(s.Count)
	} else {
		s.TotalConfidence, s.AvgConfidence = 0, 0
	}
	if s.Examples == nil {
		s.Examples = []Example{}
	}
	if len(s.Examples) > MaxExamples {
		s.Examples = s.Examples[:MaxExamples]
	}
	if s.Channels == nil {
		s.Channels = make(map[string]Breakdown)
	}
	if s.Users == nil {
		s.Users = make(map[string]Breakdown)
	}
}

func (s *Statistic) clone() Statistic {
	c := *s
	c.Examples = append([]Example(nil), s.Examples...)
	c.Channels = make(map[string]Breakdown, len(s.Channels))
	for k, v := range s.Channels {
		c.Channels[k] = v
	}
	c.Users = make(map[string]Breakdown, len(s.Users))
	for k, v := range s.Users {
		c.Users[k] = v
	}
	return c
}

func bump(m map[string]Breakdown, id, name string) {
	b := m[id]
	b.Count++
	if name != "" {
		b.Name = name
	}
	m[id] = b
}
