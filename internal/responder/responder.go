// Package responder runs the per-message pipeline: filter, owner commands,
// match selection, reply and statistics.
package responder

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/keshon/autoreply/internal/command"
	"github.com/keshon/autoreply/internal/logging"
	"github.com/keshon/autoreply/internal/matcher"
	"github.com/keshon/autoreply/internal/message"
	"github.com/keshon/autoreply/internal/metrics"
	"github.com/keshon/autoreply/internal/pattern"
	"github.com/keshon/autoreply/pkg/cmd"
)

// Recorder receives accepted matches.
type Recorder interface {
	RecordMatch(pattern string, res matcher.Result, msg message.Context) error
}

// Options wires a Responder. Holder, Selector and Replier are required.
type Options struct {
	Holder   *pattern.Holder
	Selector *matcher.Selector
	Recorder Recorder
	Commands *cmd.Registry
	Replier  message.Replier

	Log logging.Logger
	// Matches receives one event per accepted match.
	Matches logging.Logger
	Metrics *metrics.Metrics

	// Blacklist holds channel IDs that are ignored entirely.
	Blacklist []string
	// Debug logs messages that matched nothing.
	Debug bool
}

// Responder handles inbound message events. Handle is safe for concurrent use.
type Responder struct {
	opts  Options
	log   logging.Logger
	botID atomic.Value
}

// New validates opts and returns a responder.
func New(opts Options) (*Responder, error) {
	switch {
	case opts.Holder == nil:
		return nil, errors.New("responder: pattern holder is required")
	case opts.Selector == nil:
		return nil, errors.New("responder: selector is required")
	case opts.Replier == nil:
		return nil, errors.New("responder: replier is required")
	}
	if opts.Log == nil {
		opts.Log = logging.Nop()
	}
	if opts.Matches == nil {
		opts.Matches = opts.Log
	}

	r := &Responder{opts: opts, log: opts.Log}
	r.botID.Store("")
	return r, nil
}

// SetBotID sets the identity used for mention detection and self filtering.
func (r *Responder) SetBotID(id string) { r.botID.Store(id) }

// BotID returns the current bot identity.
func (r *Responder) BotID() string { return r.botID.Load().(string) }

// Handle processes one message event. The returned error reports a failed
// reply or a failed command; statistics failures are logged and counted only.
func (r *Responder) Handle(ctx context.Context, ev message.Event) error {
	botID := r.BotID()

	if ev.AuthorIsBot || (botID != "" && ev.AuthorID == botID) {
		r.opts.Metrics.Message(metrics.OutcomeIgnored)
		return nil
	}
	if slices.Contains(r.opts.Blacklist, ev.ChannelID) {
		r.opts.Metrics.Message(metrics.OutcomeIgnored)
		return nil
	}

	if handled, err := r.dispatch(ctx, ev); handled {
		r.opts.Metrics.Message(metrics.OutcomeCommand)
		return err
	}

	msg := message.Build(ev, botID)
	if r.opts.Selector.Policy().TooShort(msg.Subject()) {
		r.opts.Metrics.Message(metrics.OutcomeTooShort)
		return nil
	}

	res, ok := r.opts.Selector.Select(msg, r.opts.Holder.Load())
	if !ok {
		r.opts.Metrics.Message(metrics.OutcomeNoMatch)
		if r.opts.Debug {
			r.log.Debug("No high-confidence match found", "content", msg.Text, "class", msg.Classification().String())
		}
		return nil
	}
	r.opts.Metrics.Message(metrics.OutcomeMatched)
	r.opts.Metrics.Match(res.Confidence, res.Duration.Seconds())

	var replyErr error
	if err := r.opts.Replier.Reply(ctx, ev.ChannelID, ev.MessageID, res.Response); err != nil {
		r.opts.Metrics.ReplyFailed()
		r.log.Error("Failed to send reply", "pattern", res.Pattern, "channel_id", ev.ChannelID, "err", err)
		replyErr = fmt.Errorf("reply to %s: %w", ev.MessageID, err)
	}

	guild := ev.GuildName
	if !ev.InGuild() {
		guild = "Direct Message"
	}
	r.opts.Matches.Info("Pattern matched",
		"pattern", res.Pattern,
		"user", ev.AuthorName,
		"channel", ev.ChannelName,
		"guild", guild,
		"confidence", res.Confidence,
		"threshold", res.Threshold,
		"class", res.Class.String(),
		"scanned", res.Scanned,
		"duration_ms", res.DurationMillis(),
		"message", ev.Text,
	)

	if r.opts.Recorder != nil {
		if err := r.opts.Recorder.RecordMatch(res.Pattern, res, msg); err != nil {
			r.opts.Metrics.PersistError()
			r.log.Error("Error saving pattern stats", "pattern", res.Pattern, "err", err)
		}
	}
	return replyErr
}

// dispatch runs a prefixed chat command. A command refused with
// command.ErrNotOwner is not handled: the text is matched like any other
// message.
func (r *Responder) dispatch(ctx context.Context, ev message.Event) (bool, error) {
	if r.opts.Commands == nil {
		return false, nil
	}
	name, args, ok := cmd.Parse(command.Prefix, ev.Text)
	if !ok {
		return false, nil
	}
	c, ok := r.opts.Commands.Lookup(name)
	if !ok {
		return false, nil
	}

	err := c.Run(ctx, &cmd.Invocation{
		Name: name,
		Args: args,
		Data: &command.Context{Event: ev, Replier: r.opts.Replier, Log: r.log},
	})
	if errors.Is(err, command.ErrNotOwner) {
		return false, nil
	}
	return true, err
}
