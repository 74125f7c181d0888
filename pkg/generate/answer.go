package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/xhad/scribe/internal/types"
)

const answerSystemPrompt = `Answer the user's question based on the provided context.
If the context does not contain relevant information, reply with: "I don't know."

<context>
%s
</context>`

// Answerer serves retrieval-augmented answers over the knowledge store.
type Answerer struct {
	store types.VectorStore
	gen   types.Generator
	k     int
}

func NewAnswerer(store types.VectorStore, gen types.Generator) *Answerer {
	return &Answerer{
		store: store,
		gen:   gen,
		k:     4,
	}
}

func (a *Answerer) Answer(ctx context.Context, question string) (string, error) {
	records, err := a.store.Query(ctx, question, a.k)
	if err != nil {
		return "", fmt.Errorf("retrieval failed: %w", err)
	}

	var contextBuilder strings.Builder
	for _, rec := range records {
		contextBuilder.WriteString(rec.Content)
		contextBuilder.WriteString("\n\n")
	}

	answer, err := a.gen.Complete(ctx,
		fmt.Sprintf(answerSystemPrompt, contextBuilder.String()),
		question)
	if err != nil {
		return "", fmt.Errorf("answer generation failed: %w", err)
	}

	return answer, nil
}
