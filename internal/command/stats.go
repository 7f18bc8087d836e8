package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/keshon/autoreply/internal/message"
	"github.com/keshon/autoreply/pkg/cmd"
)

const (
	// DefaultTopLimit is the number of rows !top-patterns shows.
	DefaultTopLimit = 10
	// maxTopLimit keeps the embed description under Discord's size limit.
	maxTopLimit = 25
)

// ReportCommand writes a text report artifact.
type ReportCommand struct {
	Ledger Ledger
}

func (c *ReportCommand) Name() string        { return "pattern-report" }
func (c *ReportCommand) Description() string { return "Generate a pattern match report file" }

func (c *ReportCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	v, ok := From(inv)
	if !ok {
		return nil
	}

	path, err := c.Ledger.GenerateReport()
	if err != nil {
		if rerr := v.reply(ctx, "Failed to generate pattern report. Check console for errors."); rerr != nil {
			return rerr
		}
		return fmt.Errorf("generate report: %w", err)
	}

	return v.replyEmbed(ctx, message.Embed{
		Title:       "Pattern Match Report Generated",
		Description: fmt.Sprintf("Report has been generated and saved to: `%s`", path),
		Footer:      "Use !export-stats to export raw data",
		Color:       message.ColorSuccess,
	})
}

// ExportCommand writes the raw ledger as a JSON artifact.
type ExportCommand struct {
	Ledger Ledger
}

func (c *ExportCommand) Name() string        { return "export-stats" }
func (c *ExportCommand) Description() string { return "Export raw pattern statistics as JSON" }

func (c *ExportCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	v, ok := From(inv)
	if !ok {
		return nil
	}

	path, err := c.Ledger.ExportRaw()
	if err != nil {
		if rerr := v.reply(ctx, "Failed to export pattern statistics. Check console for errors."); rerr != nil {
			return rerr
		}
		return fmt.Errorf("export stats: %w", err)
	}

	return v.replyEmbed(ctx, message.Embed{
		Title:       "Pattern Statistics Exported",
		Description: fmt.Sprintf("Statistics have been exported to: `%s`", path),
		Footer:      "Use !pattern-report for a formatted report",
		Color:       message.ColorSuccess,
	})
}

// TopCommand lists the most matched patterns. An optional argument changes
// the row count.
type TopCommand struct {
	Ledger Ledger
}

func (c *TopCommand) Name() string        { return "top-patterns" }
func (c *TopCommand) Description() string { return "Show the most matched patterns" }

func (c *TopCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	v, ok := From(inv)
	if !ok {
		return nil
	}

	limit := DefaultTopLimit
	if len(inv.Args) > 0 {
		n, err := strconv.Atoi(inv.Args[0])
		if err != nil || n < 1 {
			return v.reply(ctx, fmt.Sprintf("Usage: `!%s [1-%d]`", c.Name(), maxTopLimit))
		}
		limit = min(n, maxTopLimit)
	}

	top := c.Ledger.TopPatterns(limit)
	if len(top) == 0 {
		return v.reply(ctx, "No pattern statistics available yet.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Top %d most matched patterns:\n\n", limit)
	for i, r := range top {
		fmt.Fprintf(&b, "**%d.** Pattern: `%s` [%d]\n", i+1, r.Pattern, r.Count)
		fmt.Fprintf(&b, "   Last matched: %s\n", discordTime(r.LastMatchedAt))
	}

	return v.replyEmbed(ctx, message.Embed{
		Title:       "Pattern Match Statistics",
		Description: b.String(),
		Footer:      "Use !pattern-report for a full report",
		Color:       message.ColorSuccess,
	})
}

// discordTime renders t as a timestamp token each client shows in its own
// locale.
func discordTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return fmt.Sprintf("<t:%d:f>", t.Unix())
}
