// Package discord connects the responder to a Discord gateway session.
package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/autoreply/internal/logging"
	"github.com/keshon/autoreply/internal/message"
)

// Handler consumes message events.
type Handler interface {
	Handle(ctx context.Context, ev message.Event) error
	SetBotID(id string)
}

// Bot is a Discord bot
type Bot struct {
	dg     *discordgo.Session
	sender *Sender
	log    logging.Logger
}

// NewBot creates a session for token. The connection is opened by Run.
func NewBot(token string, log logging.Logger) (*Bot, error) {
	if token == "" {
		return nil, errors.New("discord token is empty")
	}
	if log == nil {
		log = logging.Nop()
	}

	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	return &Bot{
		dg:     dg,
		sender: NewSender(dg, log),
		log:    log,
	}, nil
}

// Replier returns the reply surface of the session.
func (b *Bot) Replier() message.Replier { return b.sender }

// Run opens the session, feeds message events to h and blocks until ctx is
// done. The session is closed before Run returns.
func (b *Bot) Run(ctx context.Context, h Handler) error {
	b.dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.onReady(r, h)
	})
	b.dg.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		b.onMessageCreate(ctx, s, m, h)
	})

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}

	<-ctx.Done()
	b.log.Info("Shutdown signal received, closing Discord session")
	if err := b.dg.Close(); err != nil {
		return fmt.Errorf("close Discord session: %w", err)
	}
	return nil
}

func (b *Bot) onReady(r *discordgo.Ready, h Handler) {
	if r.User == nil {
		b.log.Warn("Ready event without user")
		return
	}
	h.SetBotID(r.User.ID)
	b.log.Info("Discord bot is running", "user", r.User.Username, "guilds", len(r.Guilds))
}

func (b *Bot) onMessageCreate(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, h Handler) {
	if m.Author == nil {
		return
	}
	if m.Author.Bot {
		// skip lookups for bots; the handler drops them anyway
		_ = h.Handle(ctx, toEvent(m.Message, nil, nil))
		return
	}

	ch := b.channel(s, m.ChannelID)
	var g *discordgo.Guild
	if m.GuildID != "" {
		g = b.guild(s, m.GuildID)
	}

	if err := h.Handle(ctx, toEvent(m.Message, ch, g)); err != nil {
		b.log.Error("Error handling message", "message_id", m.ID, "channel_id", m.ChannelID, "err", err)
	}
}

// channel resolves from state first, then over REST.
func (b *Bot) channel(s *discordgo.Session, id string) *discordgo.Channel {
	ch, err := s.State.Channel(id)
	if err == nil {
		return ch
	}
	ch, err = s.Channel(id)
	if err != nil {
		b.log.Warn("Failed to fetch channel", "channel_id", id, "err", err)
		return nil
	}
	return ch
}

func (b *Bot) guild(s *discordgo.Session, id string) *discordgo.Guild {
	g, err := s.State.Guild(id)
	if err == nil {
		return g
	}
	g, err = s.Guild(id)
	if err != nil {
		b.log.Warn("Failed to fetch guild", "guild_id", id, "err", err)
		return nil
	}
	return g
}

// toEvent converts a gateway message. ch and g may be nil when they could
// not be resolved.
func toEvent(m *discordgo.Message, ch *discordgo.Channel, g *discordgo.Guild) message.Event {
	ev := message.Event{
		MessageID: m.ID,
		Text:      m.Content,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Timestamp: m.Timestamp,
	}
	if m.Author != nil {
		ev.AuthorID = m.Author.ID
		ev.AuthorName = m.Author.Username
		ev.AuthorIsBot = m.Author.Bot
	}
	for _, u := range m.Mentions {
		if u != nil {
			ev.MentionedUserIDs = append(ev.MentionedUserIDs, u.ID)
		}
	}
	if ch != nil {
		ev.ChannelName = ch.Name
	}
	if g != nil {
		ev.GuildName = g.Name
		ev.OwnerID = g.OwnerID
	}
	return ev
}
