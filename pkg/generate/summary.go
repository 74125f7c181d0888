package generate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/xhad/scribe/internal/types"
	"github.com/xhad/scribe/pkg/llm"
)

const (
	summarySystemPrompt = "You are a precise technical writer. Summarize the provided material faithfully, keeping concrete facts and decisions."

	rateLimitPlaceholder = "(summary unavailable due to rate limits)"
	errorPlaceholder     = "(summary unavailable due to error)"
)

type SummarizerConfig struct {
	MaxChunkWords int
	MaxRetries    int
	BaseDelay     time.Duration
}

// Summarizer produces a digest of a batch of texts, splitting the input into
// word-budgeted chunks so a single completion never exceeds the model's
// context window.
type Summarizer struct {
	gen    types.Generator
	config SummarizerConfig
	sleep  func(context.Context, time.Duration)
}

func NewSummarizer(gen types.Generator, config SummarizerConfig) *Summarizer {
	if config.MaxChunkWords == 0 {
		config.MaxChunkWords = 3000
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.BaseDelay == 0 {
		config.BaseDelay = 2 * time.Second
	}

	return &Summarizer{
		gen:    gen,
		config: config,
		sleep:  sleepCtx,
	}
}

// Summarize digests the texts under the given source label. Rate-limited
// chunks are retried with doubling delays up to the attempt ceiling, then
// degrade to a placeholder line rather than blocking the whole summary.
func (s *Summarizer) Summarize(ctx context.Context, texts []string, sourceName string) (string, error) {
	chunks := chunkByWords(texts, s.config.MaxChunkWords)
	if len(chunks) == 0 {
		return "", fmt.Errorf("nothing to summarize")
	}

	summaries := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		summaries = append(summaries, s.summarizeChunk(ctx, chunk, sourceName))
	}

	if len(summaries) == 1 {
		return summaries[0], nil
	}

	combined, err := s.gen.Complete(ctx, summarySystemPrompt,
		fmt.Sprintf("Combine these summaries into a coherent whole:\n\n%s", strings.Join(summaries, " ")))
	if err != nil {
		log.Printf("summarizer: combine step failed, joining chunk summaries: %v", err)
		return strings.Join(summaries, " "), nil
	}
	return combined, nil
}

func (s *Summarizer) summarizeChunk(ctx context.Context, chunk, sourceName string) string {
	prompt := fmt.Sprintf("Summarize the following %s data:\n\n%s", sourceName, chunk)

	for attempt := 0; attempt < s.config.MaxRetries; attempt++ {
		summary, err := s.gen.Complete(ctx, summarySystemPrompt, prompt)
		if err == nil {
			return summary
		}
		if !errors.Is(err, llm.ErrRateLimited) {
			log.Printf("summarizer: chunk failed: %v", err)
			return errorPlaceholder
		}

		delay := s.config.BaseDelay << attempt
		log.Printf("summarizer: rate limited, waiting %s before retry", delay)
		s.sleep(ctx, delay)
		if ctx.Err() != nil {
			return rateLimitPlaceholder
		}
	}

	log.Printf("summarizer: retry ceiling reached, skipping chunk")
	return rateLimitPlaceholder
}

// chunkByWords groups texts into chunks of at most maxWords words each,
// keeping individual texts whole and in order.
func chunkByWords(texts []string, maxWords int) []string {
	var chunks []string
	var current []string
	size := 0

	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		words := len(strings.Fields(text))
		if size+words > maxWords && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = nil
			size = 0
		}
		current = append(current, text)
		size += words
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
