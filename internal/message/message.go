// Package message holds the per-event values that flow through the
// responder: the inbound chat event, the derived message context and the
// outbound reply surface.
package message

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/keshon/autoreply/internal/confidence"
)

// Event is an inbound chat message as delivered by the platform adapter.
type Event struct {
	MessageID        string
	AuthorID         string
	AuthorName       string
	AuthorIsBot      bool
	Text             string
	MentionedUserIDs []string
	ChannelID        string
	ChannelName      string
	GuildID          string
	GuildName        string
	OwnerID          string
	Timestamp        time.Time
}

// InGuild reports whether the message was posted in a guild channel.
func (e Event) InGuild() bool { return e.GuildID != "" }

// FromOwner reports whether the author owns the guild.
func (e Event) FromOwner() bool {
	return e.InGuild() && e.OwnerID != "" && e.AuthorID == e.OwnerID
}

// Context is the ephemeral view of one message used for matching.
type Context struct {
	// Raw is the message text as received.
	Raw string
	// Text is Raw case-folded.
	Text string
	// Normalized is Text with the bot mention removed and the ends trimmed.
	Normalized string

	IsMention  bool
	IsQuestion bool

	MessageID   string
	AuthorID    string
	AuthorName  string
	ChannelID   string
	ChannelName string
	GuildID     string
	GuildName   string
	Timestamp   time.Time
}

// Build derives the message context of ev for a bot with identity botID.
func Build(ev Event, botID string) Context {
	text := strings.ToLower(ev.Text)
	mentioned := botID != "" && slices.Contains(ev.MentionedUserIDs, botID)
	normalized := StripMention(text, botID)

	subject := text
	if mentioned {
		subject = normalized
	}
	class := confidence.Classify(subject, mentioned)

	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return Context{
		Raw:         ev.Text,
		Text:        text,
		Normalized:  normalized,
		IsMention:   class.IsMention,
		IsQuestion:  class.IsQuestion,
		MessageID:   ev.MessageID,
		AuthorID:    ev.AuthorID,
		AuthorName:  ev.AuthorName,
		ChannelID:   ev.ChannelID,
		ChannelName: ev.ChannelName,
		GuildID:     ev.GuildID,
		GuildName:   ev.GuildName,
		Timestamp:   ts,
	}
}

// Classification returns the mention/question flags.
func (c Context) Classification() confidence.Classification {
	return confidence.Classification{IsMention: c.IsMention, IsQuestion: c.IsQuestion}
}

// Subject is the text that patterns are evaluated against: the mention
// stripped text when the bot was mentioned, the case-folded text otherwise.
func (c Context) Subject() string {
	if c.IsMention {
		return c.Normalized
	}
	return c.Text
}

// StripMention removes <@id> and <@!id> tokens for botID and trims the
// surrounding whitespace. Inner spacing is kept so it still counts towards
// the confidence ratio.
func StripMention(text, botID string) string {
	if botID != "" {
		text = strings.ReplaceAll(text, "<@"+botID+">", "")
		text = strings.ReplaceAll(text, "<@!"+botID+">", "")
	}
	return strings.TrimSpace(text)
}

// Embed is a rich reply, rendered by the platform adapter.
type Embed struct {
	Title       string
	Description string
	Footer      string
	Color       int
}

// ColorSuccess is the embed color used for successful owner commands.
const ColorSuccess = 0x00FF00

// Replier sends replies into the channel of the originating message.
type Replier interface {
	Reply(ctx context.Context, channelID, messageID, text string) error
	ReplyEmbed(ctx context.Context, channelID, messageID string, embed Embed) error
}
