package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/xhad/scribe/internal/models"
	"github.com/xhad/scribe/internal/types"
	"github.com/xhad/scribe/pkg/processor"
)

// Stats describes one ingestion run.
type Stats struct {
	Fetched        int
	FailedSources  int
	Deduped        int
	Chunks         int
	StoredBatches  int
	SkippedBatches int
}

// Pipeline runs the fetch → normalize → dedupe → chunk → store sequence.
// It holds no state between runs; the caller re-invokes Run on its own
// schedule.
type Pipeline struct {
	sources   []types.DocumentSource
	processor types.Processor
	store     types.VectorStore
}

func New(sources []types.DocumentSource, proc types.Processor, store types.VectorStore) *Pipeline {
	return &Pipeline{
		sources:   sources,
		processor: proc,
		store:     store,
	}
}

// Run executes one ingestion pass. A failing source contributes nothing and
// the run continues with the rest; a failing store batch is skipped and
// logged. The error return is reserved for conditions that stop the whole
// run, such as context cancellation.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	var docs []models.Document
	for _, src := range p.sources {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		fetched, err := src.Fetch(ctx)
		if err != nil {
			stats.FailedSources++
			log.Printf("pipeline: source %s unavailable: %v", src.Name(), err)
			continue
		}
		log.Printf("pipeline: fetched %d documents from %s", len(fetched), src.Name())
		docs = append(docs, fetched...)
	}
	stats.Fetched = len(docs)

	docs = dedupeDocuments(docs)
	stats.Deduped = stats.Fetched - len(docs)

	processed, err := p.processor.Process(docs)
	if err != nil {
		return stats, fmt.Errorf("processing failed: %w", err)
	}
	for _, doc := range processed {
		stats.Chunks += len(doc.Chunks)
	}

	for i, batch := range p.processor.Batches(processed) {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		if err := p.store.Add(ctx, batch); err != nil {
			stats.SkippedBatches++
			log.Printf("pipeline: skipping batch %d: %v", i+1, err)
			continue
		}
		stats.StoredBatches++
	}

	return stats, nil
}

// dedupeDocuments drops documents whose cleaned content duplicates an
// earlier document, regardless of origin metadata. First occurrence wins.
func dedupeDocuments(docs []models.Document) []models.Document {
	if len(docs) == 0 {
		return nil
	}

	contents := make([]string, len(docs))
	byContent := make(map[string]models.Document, len(docs))
	for i, doc := range docs {
		cleaned := processor.Clean(doc.Content)
		contents[i] = cleaned
		if _, ok := byContent[cleaned]; !ok {
			byContent[cleaned] = doc
		}
	}

	unique := processor.Dedupe(contents)
	out := make([]models.Document, 0, len(unique))
	for _, content := range unique {
		out = append(out, byContent[content])
	}
	return out
}
