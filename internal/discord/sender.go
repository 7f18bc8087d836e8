package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/autoreply/internal/logging"
	"github.com/keshon/autoreply/internal/message"
	"github.com/keshon/autoreply/pkg/retrylimit"
)

// messageAPI is the part of *discordgo.Session used to reply.
type messageAPI interface {
	ChannelMessageSendReply(channelID string, content string, reference *discordgo.MessageReference, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbedReply(channelID string, embed *discordgo.MessageEmbed, reference *discordgo.MessageReference, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Sender delivers replies with adaptive throttling, retrying 429 and 5xx
// responses. Other 4xx responses are not retried.
type Sender struct {
	api   messageAPI
	lim   *retrylimit.AdaptiveLimiter
	retry retrylimit.RetryConfig
}

// NewSender returns a sender starting at 5 replies per second.
func NewSender(api messageAPI, log logging.Logger) *Sender {
	cfg := retrylimit.DefaultRetryConfig()
	cfg.Logger = log
	return &Sender{
		api:   api,
		lim:   retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5),
		retry: cfg,
	}
}

// Reply sends text as a reply to messageID.
func (s *Sender) Reply(ctx context.Context, channelID, messageID, text string) error {
	ref := &discordgo.MessageReference{MessageID: messageID, ChannelID: channelID}
	return s.send(ctx, func(opts ...discordgo.RequestOption) error {
		_, err := s.api.ChannelMessageSendReply(channelID, text, ref, opts...)
		return err
	})
}

// ReplyEmbed sends e as a reply to messageID.
func (s *Sender) ReplyEmbed(ctx context.Context, channelID, messageID string, e message.Embed) error {
	ref := &discordgo.MessageReference{MessageID: messageID, ChannelID: channelID}
	embed := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	if e.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	return s.send(ctx, func(opts ...discordgo.RequestOption) error {
		_, err := s.api.ChannelMessageSendEmbedReply(channelID, embed, ref, opts...)
		return err
	})
}

func (s *Sender) send(ctx context.Context, call func(...discordgo.RequestOption) error) error {
	err := retrylimit.WithRetryConfig(ctx, func() error {
		return classify(call(discordgo.WithContext(ctx)))
	}, s.lim, s.retry)
	if err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

// statusError exposes the HTTP status of a REST failure to retrylimit.
type statusError struct {
	code int
	err  error
}

func (e *statusError) Error() string   { return e.err.Error() }
func (e *statusError) Unwrap() error   { return e.err }
func (e *statusError) StatusCode() int { return e.code }

// classify marks retryable REST failures with their status and turns the
// remaining 4xx responses into fatal errors. Transport errors stay as they
// are and are retried.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) || rest.Response == nil {
		return err
	}
	code := rest.Response.StatusCode
	switch {
	case code == http.StatusTooManyRequests, code >= 500:
		return &statusError{code: code, err: err}
	case code >= 400:
		return &retrylimit.FatalError{Err: err}
	default:
		return err
	}
}
