// Package command implements the owner-only chat commands that expose the
// statistics ledger.
package command

import (
	"context"
	"errors"

	"github.com/keshon/autoreply/internal/logging"
	"github.com/keshon/autoreply/internal/message"
	"github.com/keshon/autoreply/internal/stats"
	"github.com/keshon/autoreply/pkg/cmd"
)

// Prefix starts every chat command.
const Prefix = "!"

// ErrNotOwner is returned by owner-only commands invoked by anyone else.
var ErrNotOwner = errors.New("command is restricted to the guild owner")

// Ledger is the part of the statistics ledger the commands use.
type Ledger interface {
	GenerateReport() (string, error)
	ExportRaw() (string, error)
	TopPatterns(limit int) []stats.Ranked
}

// Context is the invocation payload built by the responder for a chat command.
type Context struct {
	Event   message.Event
	Replier message.Replier
	Log     logging.Logger
}

func (c *Context) reply(ctx context.Context, text string) error {
	return c.Replier.Reply(ctx, c.Event.ChannelID, c.Event.MessageID, text)
}

func (c *Context) replyEmbed(ctx context.Context, e message.Embed) error {
	return c.Replier.ReplyEmbed(ctx, c.Event.ChannelID, c.Event.MessageID, e)
}

// From extracts the chat context of an invocation.
func From(inv *cmd.Invocation) (*Context, bool) {
	c, ok := inv.Data.(*Context)
	return c, ok && c != nil
}

// Register adds the statistics commands, wrapped in the owner check and the
// command logger, to reg.
func Register(reg *cmd.Registry, ledger Ledger) {
	for _, c := range []cmd.Command{
		&ReportCommand{Ledger: ledger},
		&ExportCommand{Ledger: ledger},
		&TopCommand{Ledger: ledger},
	} {
		reg.Register(cmd.Apply(c, WithCommandLogger(), WithOwnerOnly()))
	}
}
