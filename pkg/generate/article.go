package generate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/xhad/scribe/internal/models"
	"github.com/xhad/scribe/internal/types"
)

// ErrNoContext is returned when the store holds nothing relevant to the
// requested topic.
var ErrNoContext = errors.New("generate: no relevant context for topic")

const articleSystemPrompt = "You are an expert content strategist and storyteller. Write engaging, memorable content that combines professional insights with compelling narrative. Focus on clarity, impact, and reader engagement."

type articleStyle struct {
	kind   string
	prompt string
}

func articleStyles(topic string) []articleStyle {
	return []articleStyle{
		{
			kind: "Thought Leadership",
			prompt: fmt.Sprintf(`Write a thought-provoking thought leadership article about %s that positions us as industry experts:
- First paragraph: open with a compelling industry challenge or opportunity
- Second paragraph: share unique insights and expert analysis backed by the data
- Third paragraph: provide actionable recommendations and future predictions`, topic),
		},
		{
			kind: "Technical Deep-Dive",
			prompt: fmt.Sprintf(`Write an accessible technical article about %s that makes complex concepts engaging:
- First paragraph: start with a real-world problem readers can relate to
- Second paragraph: break down technical concepts with clear examples and analogies
- Third paragraph: showcase future innovations and their practical applications`, topic),
		},
	}
}

// ArticleWriter generates long-form articles about a topic, grounded in the
// most relevant stored content. The topic is threaded through explicitly;
// concurrent requests do not share state.
type ArticleWriter struct {
	store       types.VectorStore
	gen         types.Generator
	contextSize int
}

func NewArticleWriter(store types.VectorStore, gen types.Generator) *ArticleWriter {
	return &ArticleWriter{
		store:       store,
		gen:         gen,
		contextSize: 5,
	}
}

func (w *ArticleWriter) Write(ctx context.Context, topic string) ([]models.Article, error) {
	records, err := w.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing store failed: %w", err)
	}

	pool := make([]models.Candidate, 0, len(records))
	for _, rec := range records {
		pool = append(pool, models.Candidate{Content: rec.Content})
	}

	contextDocs, err := w.store.QuerySemantic(ctx, topic, pool, w.contextSize)
	if err != nil {
		return nil, fmt.Errorf("context selection failed: %w", err)
	}
	if len(contextDocs) == 0 {
		return nil, ErrNoContext
	}
	contextBlock := strings.Join(contextDocs, "\n")

	var articles []models.Article
	for i, style := range articleStyles(topic) {
		prompt := fmt.Sprintf(`Based on the following data, write a compelling 1200-word article that engages readers from start to finish.
The article should be professional yet conversational, with a clear narrative arc.

Data:
%s

%s

Output format:
Title: [a compelling title]

[article body]`, contextBlock, style.prompt)

		body, err := w.gen.Complete(ctx, articleSystemPrompt, prompt)
		if err != nil {
			log.Printf("articles: style %q failed: %v", style.kind, err)
			continue
		}

		title, body := splitTitle(body, i)
		articles = append(articles, models.Article{
			Title: title,
			Body:  body,
			Kind:  style.kind,
		})
	}

	if len(articles) == 0 {
		return nil, fmt.Errorf("failed to generate any articles")
	}
	return articles, nil
}

// splitTitle peels a leading "Title:" line off generated content, falling
// back to a numbered title when the model ignored the format.
func splitTitle(content string, index int) (string, string) {
	lines := strings.Split(content, "\n")
	first := strings.TrimSpace(lines[0])

	if strings.HasPrefix(strings.ToLower(first), "title:") {
		title := strings.TrimSpace(first[len("title:"):])
		body := strings.TrimSpace(strings.Join(lines[1:], "\n"))
		return title, body
	}
	return fmt.Sprintf("Generated Article %d", index+1), strings.TrimSpace(content)
}
