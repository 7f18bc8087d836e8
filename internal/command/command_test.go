package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/autoreply/internal/message"
	"github.com/keshon/autoreply/internal/stats"
	"github.com/keshon/autoreply/pkg/cmd"
)

type sent struct {
	text  string
	embed *message.Embed
}

type fakeReplier struct {
	sent []sent
}

func (f *fakeReplier) Reply(_ context.Context, _, _ string, text string) error {
	f.sent = append(f.sent, sent{text: text})
	return nil
}

func (f *fakeReplier) ReplyEmbed(_ context.Context, _, _ string, e message.Embed) error {
	f.sent = append(f.sent, sent{embed: &e})
	return nil
}

type fakeLedger struct {
	path string
	err  error
	top  []stats.Ranked
	// limit is the last TopPatterns argument.
	limit int
}

func (f *fakeLedger) GenerateReport() (string, error) { return f.path, f.err }
func (f *fakeLedger) ExportRaw() (string, error)      { return f.path, f.err }
func (f *fakeLedger) TopPatterns(limit int) []stats.Ranked {
	f.limit = limit
	if limit < len(f.top) {
		return f.top[:limit]
	}
	return f.top
}

func ownerEvent() message.Event {
	return message.Event{
		MessageID:  "m1",
		AuthorID:   "owner",
		AuthorName: "boss",
		ChannelID:  "c1",
		GuildID:    "g1",
		OwnerID:    "owner",
	}
}

func run(t *testing.T, l Ledger, ev message.Event, text string) (*fakeReplier, error) {
	t.Helper()
	reg := cmd.NewRegistry()
	Register(reg, l)

	name, args, ok := cmd.Parse(Prefix, text)
	require.True(t, ok)
	c, ok := reg.Lookup(name)
	require.True(t, ok, name)

	r := &fakeReplier{}
	err := c.Run(context.Background(), &cmd.Invocation{
		Name: name,
		Args: args,
		Data: &Context{Event: ev, Replier: r},
	})
	return r, err
}

func TestRegisterNames(t *testing.T) {
	reg := cmd.NewRegistry()
	Register(reg, &fakeLedger{})
	assert.Equal(t, []string{"export-stats", "pattern-report", "top-patterns"}, reg.Names())
}

func TestOwnerOnly(t *testing.T) {
	ev := ownerEvent()
	ev.AuthorID = "someone"

	r, err := run(t, &fakeLedger{path: "x"}, ev, "!pattern-report")
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.Empty(t, r.sent)

	dm := ownerEvent()
	dm.GuildID = ""
	_, err = run(t, &fakeLedger{path: "x"}, dm, "!pattern-report")
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestReportAndExport(t *testing.T) {
	tests := []struct {
		cmd       string
		title     string
		failure   string
		footer    string
		wantInDoc string
	}{
		{
			cmd:       "!pattern-report",
			title:     "Pattern Match Report Generated",
			failure:   "Failed to generate pattern report. Check console for errors.",
			footer:    "Use !export-stats to export raw data",
			wantInDoc: "Report has been generated and saved to: `logs/r.txt`",
		},
		{
			cmd:       "!export-stats",
			title:     "Pattern Statistics Exported",
			failure:   "Failed to export pattern statistics. Check console for errors.",
			footer:    "Use !pattern-report for a formatted report",
			wantInDoc: "Statistics have been exported to: `logs/r.txt`",
		},
	}
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			r, err := run(t, &fakeLedger{path: "logs/r.txt"}, ownerEvent(), tt.cmd)
			require.NoError(t, err)
			require.Len(t, r.sent, 1)
			e := r.sent[0].embed
			require.NotNil(t, e)
			assert.Equal(t, tt.title, e.Title)
			assert.Equal(t, tt.wantInDoc, e.Description)
			assert.Equal(t, tt.footer, e.Footer)
			assert.Equal(t, message.ColorSuccess, e.Color)

			boom := errors.New("disk full")
			r, err = run(t, &fakeLedger{err: boom}, ownerEvent(), tt.cmd)
			assert.ErrorIs(t, err, boom)
			require.Len(t, r.sent, 1)
			assert.Equal(t, tt.failure, r.sent[0].text)
		})
	}
}

func TestTopPatterns(t *testing.T) {
	at := time.Unix(1714564800, 0)
	l := &fakeLedger{top: []stats.Ranked{
		{Pattern: "hello", Count: 7, LastMatchedAt: at},
		{Pattern: `how do i join\?`, Count: 2, LastMatchedAt: at},
	}}

	r, err := run(t, l, ownerEvent(), "!top-patterns")
	require.NoError(t, err)
	assert.Equal(t, DefaultTopLimit, l.limit)
	require.Len(t, r.sent, 1)
	e := r.sent[0].embed
	require.NotNil(t, e)
	assert.Equal(t, "Pattern Match Statistics", e.Title)
	assert.Equal(t,
		"Top 10 most matched patterns:\n\n"+
			"**1.** Pattern: `hello` [7]\n   Last matched: <t:1714564800:f>\n"+
			"**2.** Pattern: `how do i join\\?` [2]\n   Last matched: <t:1714564800:f>\n",
		e.Description)

	_, err = run(t, l, ownerEvent(), "!top-patterns 100")
	require.NoError(t, err)
	assert.Equal(t, maxTopLimit, l.limit)

	r, err = run(t, l, ownerEvent(), "!top-patterns zero")
	require.NoError(t, err)
	assert.Contains(t, r.sent[0].text, "Usage:")
}

func TestTopPatternsEmpty(t *testing.T) {
	r, err := run(t, &fakeLedger{}, ownerEvent(), "!top-patterns")
	require.NoError(t, err)
	require.Len(t, r.sent, 1)
	assert.Equal(t, "No pattern statistics available yet.", r.sent[0].text)
}
