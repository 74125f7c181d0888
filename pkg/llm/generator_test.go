package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xhad/scribe/pkg/llm"
)

func TestNewGeneratorWithConfig(t *testing.T) {
	gen, err := llm.NewGeneratorWithConfig(llm.GeneratorConfig{
		Model:       "testmodel",
		Temperature: 0.5,
		MaxTokens:   1000,
		BaseURL:     "http://localhost:1234",
	})
	assert.NoError(t, err)
	assert.NotNil(t, gen)
}

func TestNewGeneratorRejectsBadConfig(t *testing.T) {
	_, err := llm.NewGeneratorWithConfig(llm.GeneratorConfig{Temperature: 3})
	assert.Error(t, err)

	_, err = llm.NewGeneratorWithConfig(llm.GeneratorConfig{MaxTokens: -1})
	assert.Error(t, err)
}

func TestNewEmbedderWithConfig(t *testing.T) {
	emb, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   "nomic-embed-text:latest",
		BaseURL: "http://localhost:11434",
	})
	assert.NoError(t, err)
	assert.NotNil(t, emb)
}
