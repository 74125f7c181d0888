package generate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/scribe/internal/models"
)

// fakeStore is an in-memory types.VectorStore good enough for generation
// tests: Query and QuerySemantic return canned results.
type fakeStore struct {
	records  []models.Record
	semantic []string
	queryErr error
}

func (f *fakeStore) Add(context.Context, []models.ProcessedDocument) error { return nil }

func (f *fakeStore) Query(_ context.Context, _ string, k int) ([]models.Record, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if k > len(f.records) {
		k = len(f.records)
	}
	return f.records[:k], nil
}

func (f *fakeStore) QuerySemantic(_ context.Context, _ string, pool []models.Candidate, k int) ([]string, error) {
	if len(pool) == 0 {
		return []string{}, nil
	}
	if k > len(f.semantic) {
		k = len(f.semantic)
	}
	return f.semantic[:k], nil
}

func (f *fakeStore) Replace(context.Context, string, string, map[string]interface{}) error {
	return nil
}

func (f *fakeStore) List(context.Context) ([]models.Record, error) { return f.records, nil }
func (f *fakeStore) Count(context.Context) (int, error)            { return len(f.records), nil }
func (f *fakeStore) Close()                                        {}

func TestArticleWriterWrite(t *testing.T) {
	st := &fakeStore{
		records:  []models.Record{{ID: "1", Content: "stored fact"}},
		semantic: []string{"stored fact"},
	}
	gen := &scriptedGenerator{respond: func(call int, prompt string) (string, error) {
		assert.Contains(t, prompt, "stored fact")
		assert.Contains(t, prompt, "payments")
		return "Title: Payments Explained\n\nBody text here.", nil
	}}

	articles, err := NewArticleWriter(st, gen).Write(context.Background(), "payments")
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Equal(t, "Payments Explained", articles[0].Title)
	assert.Equal(t, "Body text here.", articles[0].Body)
	assert.Equal(t, "Thought Leadership", articles[0].Kind)
	assert.Equal(t, "Technical Deep-Dive", articles[1].Kind)
}

func TestArticleWriterNoContext(t *testing.T) {
	gen := &scriptedGenerator{respond: func(int, string) (string, error) {
		t.Fatal("generator must not be called without context")
		return "", nil
	}}

	_, err := NewArticleWriter(&fakeStore{}, gen).Write(context.Background(), "payments")
	assert.ErrorIs(t, err, ErrNoContext)
}

func TestArticleWriterPartialFailure(t *testing.T) {
	st := &fakeStore{
		records:  []models.Record{{ID: "1", Content: "fact"}},
		semantic: []string{"fact"},
	}
	gen := &scriptedGenerator{respond: func(call int, _ string) (string, error) {
		if call == 1 {
			return "", errors.New("model exploded")
		}
		return "no title line, just body", nil
	}}

	articles, err := NewArticleWriter(st, gen).Write(context.Background(), "x")
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.True(t, strings.HasPrefix(articles[0].Title, "Generated Article"))
}

func TestSplitTitle(t *testing.T) {
	title, body := splitTitle("Title: Hello\nWorld", 0)
	assert.Equal(t, "Hello", title)
	assert.Equal(t, "World", body)

	title, body = splitTitle("just body", 1)
	assert.Equal(t, "Generated Article 2", title)
	assert.Equal(t, "just body", body)
}

func TestAnswererUsesRetrievedContext(t *testing.T) {
	st := &fakeStore{records: []models.Record{
		{ID: "1", Content: "alpha"},
		{ID: "2", Content: "beta"},
	}}
	var gotSystem string
	gen := generatorFunc(func(_ context.Context, system, user string) (string, error) {
		gotSystem = system
		assert.Equal(t, "what is alpha?", user)
		return "alpha is a fact", nil
	})

	answer, err := NewAnswerer(st, gen).Answer(context.Background(), "what is alpha?")
	require.NoError(t, err)
	assert.Equal(t, "alpha is a fact", answer)
	assert.Contains(t, gotSystem, "alpha")
	assert.Contains(t, gotSystem, "beta")
	assert.Contains(t, gotSystem, "I don't know")
}

func TestAnswererSurfacesRetrievalFailure(t *testing.T) {
	st := &fakeStore{queryErr: errors.New("store down")}
	gen := generatorFunc(func(context.Context, string, string) (string, error) {
		return "", nil
	})

	_, err := NewAnswerer(st, gen).Answer(context.Background(), "q")
	assert.Error(t, err)
}

type generatorFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

func (f generatorFunc) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f(ctx, systemPrompt, userPrompt)
}
