package discord

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/autoreply/internal/message"
	"github.com/keshon/autoreply/pkg/retrylimit"
)

type fakeAPI struct {
	errs   []error
	calls  int
	text   string
	embed  *discordgo.MessageEmbed
	ref    *discordgo.MessageReference
	target string
}

func (f *fakeAPI) next() error {
	f.calls++
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakeAPI) ChannelMessageSendReply(channelID, content string, ref *discordgo.MessageReference, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.target, f.text, f.ref = channelID, content, ref
	return &discordgo.Message{}, f.next()
}

func (f *fakeAPI) ChannelMessageSendEmbedReply(channelID string, e *discordgo.MessageEmbed, ref *discordgo.MessageReference, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.target, f.embed, f.ref = channelID, e, ref
	return &discordgo.Message{}, f.next()
}

func restErr(code int) error {
	return &discordgo.RESTError{Response: &http.Response{StatusCode: code, Status: http.StatusText(code)}}
}

func newTestSender(api messageAPI) *Sender {
	s := NewSender(api, nil)
	s.retry = retrylimit.RetryConfig{
		MaxAttempts:    3,
		InitialDelay:   time.Millisecond,
		MaxDelay:       time.Millisecond,
		RateLimitDelay: time.Millisecond,
		Multiplier:     1,
	}
	return s
}

func TestNewSenderUsesDefaultRetry(t *testing.T) {
	s := NewSender(&fakeAPI{}, nil)
	want := retrylimit.DefaultRetryConfig()

	assert.Equal(t, want.MaxAttempts, s.retry.MaxAttempts)
	assert.Equal(t, want.InitialDelay, s.retry.InitialDelay)
	assert.Equal(t, want.RateLimitDelay, s.retry.RateLimitDelay)
	assert.True(t, s.retry.Jitter)
	require.NotNil(t, s.retry.Classifier)
	assert.True(t, s.retry.Classifier(classify(restErr(503))))
	assert.Equal(t, 5.0, s.lim.CurrentLimit())
}

func TestSenderReply(t *testing.T) {
	api := &fakeAPI{}
	s := newTestSender(api)

	require.NoError(t, s.Reply(context.Background(), "c1", "m1", "hi!"))
	assert.Equal(t, "c1", api.target)
	assert.Equal(t, "hi!", api.text)
	assert.Equal(t, &discordgo.MessageReference{MessageID: "m1", ChannelID: "c1"}, api.ref)
}

func TestSenderReplyEmbed(t *testing.T) {
	api := &fakeAPI{}
	s := newTestSender(api)

	err := s.ReplyEmbed(context.Background(), "c1", "m1", message.Embed{
		Title:       "Pattern Match Statistics",
		Description: "body",
		Footer:      "hint",
		Color:       message.ColorSuccess,
	})
	require.NoError(t, err)
	require.NotNil(t, api.embed)
	assert.Equal(t, "Pattern Match Statistics", api.embed.Title)
	assert.Equal(t, message.ColorSuccess, api.embed.Color)
	require.NotNil(t, api.embed.Footer)
	assert.Equal(t, "hint", api.embed.Footer.Text)
}

func TestSenderRetries(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   bool
	}{
		{name: "server error then success", errs: []error{restErr(502)}, wantCalls: 2},
		{name: "rate limited then success", errs: []error{restErr(429), restErr(429)}, wantCalls: 3},
		{name: "forbidden is not retried", errs: []error{restErr(403)}, wantCalls: 1, wantErr: true},
		{name: "transport error exhausts", errs: []error{errors.New("eof"), errors.New("eof"), errors.New("eof")}, wantCalls: 3, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{errs: tt.errs}
			err := newTestSender(api).Reply(context.Background(), "c1", "m1", "hi")
			assert.Equal(t, tt.wantCalls, api.calls)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))

	var fatal *retrylimit.FatalError
	assert.ErrorAs(t, classify(restErr(404)), &fatal)
	assert.True(t, retrylimit.IsRateLimited(classify(restErr(429))))
	assert.True(t, retrylimit.IsServerError(classify(restErr(500))))

	plain := errors.New("dial tcp: timeout")
	assert.Same(t, plain, classify(plain))
}

func TestToEvent(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := &discordgo.Message{
		ID:        "m1",
		ChannelID: "c1",
		GuildID:   "g1",
		Content:   "<@bot> Hello",
		Timestamp: ts,
		Author:    &discordgo.User{ID: "u1", Username: "alice"},
		Mentions:  []*discordgo.User{{ID: "bot"}, nil},
	}

	ev := toEvent(m, &discordgo.Channel{Name: "general"}, &discordgo.Guild{Name: "guild", OwnerID: "u1"})
	assert.Equal(t, message.Event{
		MessageID:        "m1",
		AuthorID:         "u1",
		AuthorName:       "alice",
		Text:             "<@bot> Hello",
		MentionedUserIDs: []string{"bot"},
		ChannelID:        "c1",
		ChannelName:      "general",
		GuildID:          "g1",
		GuildName:        "guild",
		OwnerID:          "u1",
		Timestamp:        ts,
	}, ev)
	assert.True(t, ev.FromOwner())

	dm := toEvent(&discordgo.Message{ID: "m2", Author: &discordgo.User{ID: "u1", Bot: true}}, nil, nil)
	assert.True(t, dm.AuthorIsBot)
	assert.False(t, dm.InGuild())
	assert.Empty(t, dm.ChannelName)
}
