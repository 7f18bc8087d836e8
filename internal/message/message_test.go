package message

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStripMention(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "leading mention", text: "<@42> what is this", want: "what is this"},
		{name: "nickname mention", text: "hey <@!42> there", want: "hey  there"},
		{name: "inner spacing kept", text: "<@42> hello   there", want: "hello   there"},
		{name: "other user kept", text: "<@7> hello", want: "<@7> hello"},
		{name: "no mention", text: "  hello  ", want: "hello"},
		{name: "only mention", text: "<@42>", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripMention(tt.text, "42"))
		})
	}
}

func TestBuild(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ev := Event{
		MessageID:        "m1",
		AuthorID:         "u1",
		AuthorName:       "alice",
		Text:             "<@42> What Is THIS",
		MentionedUserIDs: []string{"42"},
		ChannelID:        "c1",
		ChannelName:      "general",
		GuildID:          "g1",
		GuildName:        "guild",
		Timestamp:        ts,
	}

	c := Build(ev, "42")

	assert.Equal(t, "<@42> what is this", c.Text)
	assert.Equal(t, "what is this", c.Normalized)
	assert.True(t, c.IsMention)
	assert.True(t, c.IsQuestion)
	assert.Equal(t, "what is this", c.Subject())
	assert.Equal(t, "mention", c.Classification().String())
	assert.Equal(t, ts, c.Timestamp)
	assert.Equal(t, "general", c.ChannelName)
}

func TestBuild_NotMentioned(t *testing.T) {
	c := Build(Event{Text: "Hello There", MentionedUserIDs: []string{"7"}}, "42")

	assert.False(t, c.IsMention)
	assert.False(t, c.IsQuestion)
	assert.Equal(t, "hello there", c.Subject())
	assert.False(t, c.Timestamp.IsZero())
}

func TestEvent_FromOwner(t *testing.T) {
	assert.True(t, Event{GuildID: "g", OwnerID: "u", AuthorID: "u"}.FromOwner())
	assert.False(t, Event{GuildID: "g", OwnerID: "u", AuthorID: "x"}.FromOwner())
	assert.False(t, Event{OwnerID: "u", AuthorID: "u"}.FromOwner())
	assert.False(t, Event{GuildID: "g", AuthorID: "u"}.FromOwner())
}

func TestBuild_ClassifiesSubject(t *testing.T) {
	tests := []struct {
		name         string
		ev           Event
		wantSubject  string
		wantQuestion bool
	}{
		{
			name:         "leading spaces without mention",
			ev:           Event{Text: "   what is up"},
			wantSubject:  "   what is up",
			wantQuestion: false,
		},
		{
			name:         "mention stripped before lead word",
			ev:           Event{Text: "<@42>   what is up", MentionedUserIDs: []string{"42"}},
			wantSubject:  "what is up",
			wantQuestion: true,
		},
		{
			name:         "mention keeps inner spacing",
			ev:           Event{Text: "<@42> hello   there", MentionedUserIDs: []string{"42"}},
			wantSubject:  "hello   there",
			wantQuestion: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Build(tt.ev, "42")
			assert.Equal(t, tt.wantSubject, c.Subject())
			assert.Equal(t, tt.wantQuestion, c.IsQuestion)
		})
	}
}
