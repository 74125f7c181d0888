package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "Ollama base URL is required",
		})
	} else if _, err := url.Parse(c.LLM.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid Ollama base URL",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	if c.Processor.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.Processor.ChunkOverlap < 0 || c.Processor.ChunkOverlap >= c.Processor.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	if c.Processor.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "processor.batch_size",
			Message: "batch_size must be positive",
		})
	}

	if c.Chat.BaseURL != "" && c.Chat.Token == "" {
		errors = append(errors, ValidationError{
			Field:   "chat.token",
			Message: "token is required when chat base_url is set",
		})
	}

	if c.Chat.WindowDays < 1 {
		errors = append(errors, ValidationError{
			Field:   "chat.window_days",
			Message: "window_days must be positive",
		})
	}

	if c.Chat.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "chat.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Wiki.BaseURL != "" && c.Wiki.Token == "" {
		errors = append(errors, ValidationError{
			Field:   "wiki.token",
			Message: "token is required when wiki base_url is set",
		})
	}

	if c.Revise.MinSimilarity > 1 {
		errors = append(errors, ValidationError{
			Field:   "revise.min_similarity",
			Message: "min_similarity must be at most 1",
		})
	}

	if c.Scheduler.IntervalSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "scheduler.interval_seconds",
			Message: "interval_seconds must be positive",
		})
	}

	return errors
}
