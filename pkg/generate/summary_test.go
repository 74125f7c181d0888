package generate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/scribe/pkg/llm"
)

type scriptedGenerator struct {
	calls   int
	respond func(call int, userPrompt string) (string, error)
	prompts []string
}

func (g *scriptedGenerator) Complete(_ context.Context, _, userPrompt string) (string, error) {
	g.calls++
	g.prompts = append(g.prompts, userPrompt)
	return g.respond(g.calls, userPrompt)
}

func newTestSummarizer(gen *scriptedGenerator) (*Summarizer, *[]time.Duration) {
	s := NewSummarizer(gen, SummarizerConfig{
		MaxChunkWords: 5,
		MaxRetries:    3,
		BaseDelay:     10 * time.Millisecond,
	})
	var delays []time.Duration
	s.sleep = func(_ context.Context, d time.Duration) {
		delays = append(delays, d)
	}
	return s, &delays
}

func TestSummarizeSingleChunk(t *testing.T) {
	gen := &scriptedGenerator{respond: func(int, string) (string, error) {
		return "a summary", nil
	}}
	s, _ := newTestSummarizer(gen)

	out, err := s.Summarize(context.Background(), []string{"short text"}, "Chat")
	require.NoError(t, err)
	assert.Equal(t, "a summary", out)
	assert.Equal(t, 1, gen.calls)
}

func TestSummarizeCombinesChunks(t *testing.T) {
	gen := &scriptedGenerator{respond: func(call int, prompt string) (string, error) {
		if strings.HasPrefix(prompt, "Combine") {
			return "combined", nil
		}
		return "part", nil
	}}
	s, _ := newTestSummarizer(gen)

	texts := []string{"one two three four five", "six seven eight nine ten"}
	out, err := s.Summarize(context.Background(), texts, "Chat")
	require.NoError(t, err)
	assert.Equal(t, "combined", out)
	assert.Equal(t, 3, gen.calls) // two chunks plus the combine step
}

func TestSummarizeRateLimitBackoff(t *testing.T) {
	gen := &scriptedGenerator{respond: func(int, string) (string, error) {
		return "", llm.ErrRateLimited
	}}
	s, delays := newTestSummarizer(gen)

	out, err := s.Summarize(context.Background(), []string{"text"}, "Chat")
	require.NoError(t, err)
	assert.Equal(t, rateLimitPlaceholder, out)
	assert.Equal(t, 3, gen.calls)
	assert.Equal(t, []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		40 * time.Millisecond,
	}, *delays)
}

func TestSummarizeHardErrorDegrades(t *testing.T) {
	gen := &scriptedGenerator{respond: func(int, string) (string, error) {
		return "", errors.New("model exploded")
	}}
	s, delays := newTestSummarizer(gen)

	out, err := s.Summarize(context.Background(), []string{"text"}, "Chat")
	require.NoError(t, err)
	assert.Equal(t, errorPlaceholder, out)
	assert.Equal(t, 1, gen.calls) // hard errors are not retried
	assert.Empty(t, *delays)
}

func TestSummarizeEmptyInput(t *testing.T) {
	gen := &scriptedGenerator{respond: func(int, string) (string, error) {
		return "", nil
	}}
	s, _ := newTestSummarizer(gen)

	_, err := s.Summarize(context.Background(), nil, "Chat")
	assert.Error(t, err)
	assert.Equal(t, 0, gen.calls)
}

func TestChunkByWords(t *testing.T) {
	texts := []string{"a b c", "d e", "f g h i"}

	chunks := chunkByWords(texts, 5)
	require.Len(t, chunks, 2)
	assert.Equal(t, "a b c d e", chunks[0])
	assert.Equal(t, "f g h i", chunks[1])

	assert.Empty(t, chunkByWords([]string{"", "  "}, 5))
}
