package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsQuestion(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{text: "what is this?", want: true},
		{text: "anyone around?", want: true},
		{text: "how do i join", want: true},
		{text: "Should I restart", want: true},
		{text: "however it goes", want: true},
		{text: "is", want: false},
		{text: "what", want: false},
		{text: "what\nnext", want: false},
		{text: "hello there", want: false},
		{text: "tell me about is", want: false},
		{text: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, IsQuestion(tt.text))
		})
	}
}

func TestClassify(t *testing.T) {
	c := Classify("what is this?", false)
	assert.True(t, c.IsQuestion)
	assert.False(t, c.IsMention)
	assert.Equal(t, "question", c.String())

	c = Classify("hello there", true)
	assert.True(t, c.IsMention)
	assert.Equal(t, "mention", c.String())

	assert.Equal(t, "plain", Classify("hello there", false).String())
}

func TestThresholds_For(t *testing.T) {
	th := Thresholds{Mention: 0.3, Question: 0.5, Default: 0.9}

	tests := []struct {
		name string
		c    Classification
		want float64
	}{
		{name: "mention wins over question", c: Classification{IsMention: true, IsQuestion: true}, want: 0.3},
		{name: "mention", c: Classification{IsMention: true}, want: 0.3},
		{name: "question", c: Classification{IsQuestion: true}, want: 0.5},
		{name: "plain", c: Classification{}, want: 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, th.For(tt.c), 1e-9)
		})
	}
}

func TestDefaultThresholds(t *testing.T) {
	th := DefaultThresholds()
	require.NoError(t, th.Validate())

	assert.InDelta(t, 0.6, th.For(Classify("what is this?", false)), 1e-9)
	assert.InDelta(t, 0.85, th.For(Classify("hello there", false)), 1e-9)
	assert.InDelta(t, 0.6, th.For(Classify("hello there", true)), 1e-9)
}

func TestThresholds_Validate(t *testing.T) {
	assert.ErrorIs(t, Thresholds{Mention: 0, Question: 0.5, Default: 0.5}.Validate(), ErrInvalidThreshold)
	assert.ErrorIs(t, Thresholds{Mention: 0.5, Question: 1.01, Default: 0.5}.Validate(), ErrInvalidThreshold)
	assert.NoError(t, Thresholds{Mention: 1, Question: 1, Default: 1}.Validate())
}

func TestOf(t *testing.T) {
	assert.InDelta(t, 5.0/11.0, Of("hello", "hello there"), 1e-9)
	assert.InDelta(t, 1.0, Of("hello", "hello"), 1e-9)
	assert.InDelta(t, 0.5, Of("héé", "hééábc"), 1e-9)
	assert.Zero(t, Of("", "hello"))
	assert.Zero(t, Of("hello", ""))
	assert.False(t, Valid(Of("", "hello")))
	assert.True(t, Valid(Of("a", "abc")))
}

func TestPolicy_TooShort(t *testing.T) {
	p := DefaultPolicy()
	assert.True(t, p.TooShort("hi"))
	assert.True(t, p.TooShort(""))
	assert.False(t, p.TooShort("hey"))
	assert.True(t, p.TooShort("éé"))

	assert.True(t, Policy{}.TooShort("ab"))
	assert.False(t, Policy{MinLength: 1}.TooShort("a"))
}
