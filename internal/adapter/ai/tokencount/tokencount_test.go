package tokencount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeModelName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "openai/gpt-4o", want: "gpt-4"},
		{in: "openai/gpt-3.5-turbo", want: "gpt-3.5-turbo"},
		{in: "deepseek/deepseek-chat-v3-0324:free", want: "gpt-4"},
		{in: "meta-llama/llama-3.3-70b-instruct:free", want: "gpt-4"},
		{in: "GPT-4", want: "gpt-4"},
		{in: "", want: "gpt-4"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeModelName(tt.in), tt.in)
	}
}

func TestCountTokens(t *testing.T) {
	c := NewCounter()
	n, err := c.CountTokens("hello world", "openai/gpt-4o")
	require.NoError(t, err)
	assert.Positive(t, n)

	empty, err := c.CountTokens("", "openai/gpt-4o")
	require.NoError(t, err)
	assert.Zero(t, empty)
}

func TestCountChatTokens_IncludesOverhead(t *testing.T) {
	c := NewCounter()
	base, err := c.CountChatTokens("", "", "gpt-4")
	require.NoError(t, err)
	// 2 messages * (3 + role + 1) + 3 priming, with empty content.
	assert.Greater(t, base, 3)

	withContent, err := c.CountChatTokens("You are helpful.", "Plan my studies.", "gpt-4")
	require.NoError(t, err)
	assert.Greater(t, withContent, base)
}

func TestCountChatTokens_CachesEncoding(t *testing.T) {
	c := NewCounter()
	_, err := c.CountChatTokens("a", "b", "deepseek/deepseek-chat-v3-0324:free")
	require.NoError(t, err)
	_, err = c.CountChatTokens("a", "b", "qwen/qwen-2.5-72b-instruct:free")
	require.NoError(t, err)
	assert.Len(t, c.encodings, 1, "both models normalize to the same encoding")
}

func TestEstimateChatTokens_NeverZeroForRealPrompts(t *testing.T) {
	c := NewCounter()
	n := c.EstimateChatTokens("system prompt text", "user prompt text", "some/unknown-model")
	assert.Positive(t, n)
}
