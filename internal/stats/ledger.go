// Package stats keeps per-pattern usage statistics, persists them after
// every update and renders reports and exports from them.
package stats

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/keshon/autoreply/datastore"
	"github.com/keshon/autoreply/internal/confidence"
	"github.com/keshon/autoreply/internal/jsonorder"
	"github.com/keshon/autoreply/internal/logging"
	"github.com/keshon/autoreply/internal/matcher"
	"github.com/keshon/autoreply/internal/message"
)

// SnapshotFile is the ledger file name inside the data directory.
const SnapshotFile = "pattern_stats.json"

var (
	ErrEmptyPattern      = errors.New("pattern must not be empty")
	ErrInvalidConfidence = errors.New("confidence must be in (0, 1]")
)

// Options configures Open.
type Options struct {
	Logger logging.Logger
	// Now is the clock; time.Now when nil.
	Now func() time.Time
	// Backups is the number of rotated snapshot backups to keep.
	Backups int
	// BackupInterval throttles backups; zero backs up on every save.
	BackupInterval time.Duration
}

// Ledger is the single writer of pattern statistics. All methods are safe
// for concurrent use; mutations and their persistence are serialized.
type Ledger struct {
	mu    sync.Mutex
	dir   string
	store *datastore.DataStore
	stats map[string]*Statistic
	// order is first-seen order, used to break count ties.
	order []string
	now   func() time.Time
	log   logging.Logger
}

// Open loads the ledger snapshot from dir, creating dir and an empty
// snapshot when missing. A snapshot that cannot be decoded is set aside and
// the ledger starts empty.
func Open(dir string, opts Options) (*Ledger, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	store, err := datastore.NewWithConfig(datastore.Config{
		FilePath:       filepath.Join(dir, SnapshotFile),
		BackupCount:    opts.Backups,
		BackupInterval: opts.BackupInterval,
		Logger:         log,
	})
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	l := &Ledger{
		dir:   dir,
		store: store,
		stats: make(map[string]*Statistic),
		now:   now,
		log:   log,
	}

	data, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if err := l.decode(data); err != nil {
		aside := fmt.Sprintf("%s.corrupt.%d", store.Path(), now().UnixMilli())
		if werr := os.WriteFile(aside, data, 0o644); werr != nil {
			log.Warn("Failed to keep unreadable pattern statistics", "path", aside, "err", werr)
			aside = ""
		}
		log.Error("Error loading pattern stats, starting empty", "err", err, "kept_as", aside)
		l.stats = make(map[string]*Statistic)
		l.order = nil
		return l, nil
	}

	log.Info("Loaded pattern statistics", "patterns", len(l.order), "path", store.Path())
	return l, nil
}

func (l *Ledger) decode(data []byte) error {
	return jsonorder.Each(data, func(pattern string, raw json.RawMessage) error {
		s := newStatistic()
		if err := json.Unmarshal(raw, s); err != nil {
			return fmt.Errorf("pattern %q: %w", pattern, err)
		}
		s.normalize()
		if _, seen := l.stats[pattern]; !seen {
			l.order = append(l.order, pattern)
		}
		l.stats[pattern] = s
		return nil
	})
}

// encode must be called with l.mu held.
func (l *Ledger) encode() ([]byte, error) {
	return jsonorder.Marshal(l.order, func(p string) any { return l.stats[p] })
}

// Dir is the data directory holding the snapshot and the artifacts.
func (l *Ledger) Dir() string { return l.dir }

// RecordMatch accounts one accepted match and persists the ledger. When
// persisting fails the in-memory update is kept and the error returned.
func (l *Ledger) RecordMatch(pattern string, res matcher.Result, msg message.Context) error {
	if pattern == "" {
		return ErrEmptyPattern
	}
	if !confidence.Valid(res.Confidence) {
		return fmt.Errorf("%w: %v", ErrInvalidConfidence, res.Confidence)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.stats[pattern]
	if !ok {
		s = newStatistic()
		l.stats[pattern] = s
		l.order = append(l.order, pattern)
	}

	now := l.now()
	if now.Before(s.LastMatchedAt) {
		now = s.LastMatchedAt
	}

	s.Count++
	s.TotalConfidence += res.Confidence
	s.AvgConfidence = s.TotalConfidence / float64(s.Count)
	s.LastMatchedAt = now

	if len(s.Examples) < MaxExamples {
		ts := msg.Timestamp
		if ts.IsZero() {
			ts = now
		}
		s.Examples = append(s.Examples, Example{Content: msg.Raw, Timestamp: ts, Confidence: res.Confidence})
	}
	bump(s.Channels, msg.ChannelID, msg.ChannelName)
	bump(s.Users, msg.AuthorID, msg.AuthorName)

	return l.persist()
}

func (l *Ledger) persist() error {
	data, err := l.encode()
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := l.store.Save(data); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}
	return nil
}

// TotalPatterns is the number of tracked patterns.
func (l *Ledger) TotalPatterns() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}

// Snapshot returns a copy of the statistic for pattern.
func (l *Ledger) Snapshot(pattern string) (Statistic, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.stats[pattern]
	if !ok {
		return Statistic{}, false
	}
	return s.clone(), true
}

// Ranked is one row of TopPatterns.
type Ranked struct {
	Pattern       string    `json:"pattern"`
	Count         int       `json:"count"`
	LastMatchedAt time.Time `json:"lastMatched"`
}

// TopPatterns returns up to limit patterns by descending count. Equal counts
// keep first-seen order.
func (l *Ledger) TopPatterns(limit int) []Ranked {
	if limit <= 0 {
		return []Ranked{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ranked := l.rankedLocked()
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]Ranked, len(ranked))
	for i, p := range ranked {
		s := l.stats[p]
		out[i] = Ranked{Pattern: p, Count: s.Count, LastMatchedAt: s.LastMatchedAt}
	}
	return out
}

// rankedLocked returns pattern names sorted by descending count.
func (l *Ledger) rankedLocked() []string {
	ranked := slices.Clone(l.order)
	slices.SortStableFunc(ranked, func(a, b string) int {
		return cmp.Compare(l.stats[b].Count, l.stats[a].Count)
	})
	return ranked
}
