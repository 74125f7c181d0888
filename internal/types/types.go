package types

import (
	"context"

	"github.com/xhad/scribe/internal/models"
)

// Core interfaces

// VectorStore owns the create/query/update contract against the embedding
// index. It is the only mutable resource shared between the command loop and
// the scheduled jobs; implementations must be safe for concurrent use.
type VectorStore interface {
	Add(ctx context.Context, docs []models.ProcessedDocument) error
	Query(ctx context.Context, text string, k int) ([]models.Record, error)
	QuerySemantic(ctx context.Context, keyword string, pool []models.Candidate, k int) ([]string, error)
	Replace(ctx context.Context, id, newText string, newMetadata map[string]interface{}) error
	List(ctx context.Context) ([]models.Record, error)
	Count(ctx context.Context) (int, error)
	Close()
}

type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator is the language-model completion service. Implementations map
// transient rate limiting to llm.ErrRateLimited so callers can retry on a
// typed error instead of inspecting messages.
type Generator interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// DocumentSource is one external feed of raw documents. A failing source is
// isolated by the pipeline; it never aborts a run.
type DocumentSource interface {
	Name() string
	Fetch(ctx context.Context) ([]models.Document, error)
}

type Page struct {
	Title   string
	Body    string
	Version int
}

// Publisher is the external sink summaries are appended to. New content is
// prepended to the existing body, never overwrites it.
type Publisher interface {
	GetPage(ctx context.Context, id string) (Page, error)
	AppendSummary(ctx context.Context, id, heading, body string) error
}

// Processor turns raw documents into store-ready chunk batches.
type Processor interface {
	Process(docs []models.Document) ([]models.ProcessedDocument, error)
	Batches(docs []models.ProcessedDocument) [][]models.ProcessedDocument
}
