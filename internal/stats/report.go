package stats

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const (
	reportPrefix = "pattern_report_"
	exportPrefix = "pattern_stats_export_"

	// breakdownRows is how many channels and users a report lists per pattern.
	breakdownRows = 3
	// artifactAttempts bounds the name search when timestamps collide.
	artifactAttempts = 1000
)

// ErrArtifactExists is returned when no free artifact name could be found.
var ErrArtifactExists = errors.New("artifact name already taken")

// RenderReport renders the human-readable statistics summary.
func (l *Ledger) RenderReport() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.renderLocked(l.now())
}

func (l *Ledger) renderLocked(now time.Time) string {
	ranked := l.rankedLocked()

	var b strings.Builder
	b.WriteString("Pattern Match Statistics Report\n")
	b.WriteString("================================\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", now.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Total Patterns: %d\n\n", len(ranked))

	for i, p := range ranked {
		s := l.stats[p]
		fmt.Fprintf(&b, "%d. Pattern: \"%s\" [%d]\n", i+1, p, s.Count)
		fmt.Fprintf(&b, "   Last Matched: %s\n", formatTime(s.LastMatchedAt))
		fmt.Fprintf(&b, "   Avg Confidence: %.2f\n", s.AvgConfidence)

		b.WriteString("   Examples:\n")
		if len(s.Examples) == 0 {
			b.WriteString("   - No examples stored\n")
		}
		for _, ex := range s.Examples {
			fmt.Fprintf(&b, "   - \"%s\"\n", ex.Content)
		}

		writeBreakdown(&b, "Top Channels", s.Channels)
		writeBreakdown(&b, "Top Users", s.Users)
		b.WriteString("\n")
	}
	return b.String()
}

func writeBreakdown(b *strings.Builder, title string, m map[string]Breakdown) {
	if len(m) == 0 {
		return
	}
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(x, y string) int {
		if c := cmp.Compare(m[y].Count, m[x].Count); c != 0 {
			return c
		}
		return cmp.Compare(x, y)
	})
	if len(ids) > breakdownRows {
		ids = ids[:breakdownRows]
	}

	fmt.Fprintf(b, "   %s:\n", title)
	for _, id := range ids {
		fmt.Fprintf(b, "   - %s (%s): %d matches\n", m[id].Name, id, m[id].Count)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.UTC().Format(time.RFC3339)
}

// GenerateReport writes the report to a new timestamp-named file in the data
// directory and returns its path.
func (l *Ledger) GenerateReport() (string, error) {
	l.mu.Lock()
	now := l.now()
	report := l.renderLocked(now)
	l.mu.Unlock()

	path, err := l.writeArtifact(reportPrefix, ".txt", now, []byte(report))
	if err != nil {
		l.log.Error("Error generating report", "err", err)
		return "", err
	}
	l.log.Info("Report generated", "path", path)
	return path, nil
}

// ExportRaw writes the whole ledger as JSON to a new timestamp-named file in
// the data directory and returns its path.
func (l *Ledger) ExportRaw() (string, error) {
	l.mu.Lock()
	now := l.now()
	data, err := l.encode()
	l.mu.Unlock()
	if err != nil {
		l.log.Error("Error exporting stats", "err", err)
		return "", fmt.Errorf("encode ledger: %w", err)
	}

	path, err := l.writeArtifact(exportPrefix, ".json", now, data)
	if err != nil {
		l.log.Error("Error exporting stats", "err", err)
		return "", err
	}
	l.log.Info("Stats exported", "path", path)
	return path, nil
}

// writeArtifact creates prefix<millis>ext exclusively, moving to the next
// millisecond while the name is taken. Existing artifacts are never touched.
func (l *Ledger) writeArtifact(prefix, ext string, now time.Time, data []byte) (string, error) {
	ms := now.UnixMilli()
	for range artifactAttempts {
		path := filepath.Join(l.dir, fmt.Sprintf("%s%d%s", prefix, ms, ext))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			ms++
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", path, err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return "", fmt.Errorf("close %s: %w", path, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("%w: %s*%s", ErrArtifactExists, prefix, ext)
}
