package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/scribe/internal/models"
	"github.com/xhad/scribe/internal/types"
)

// ErrNotFound is returned by Replace when the target id does not exist.
var ErrNotFound = errors.New("store: record not found")

type VectorStoreConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
}

type VectorStore struct {
	config   VectorStoreConfig
	pool     *pgxpool.Pool
	embedder types.Embedder
}

func NewWithConfig(ctx context.Context, config VectorStoreConfig, embedder types.Embedder) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "documents"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &VectorStore{
		config:   config,
		pool:     pool,
		embedder: embedder,
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize(ctx context.Context) error {
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			source TEXT,
			title TEXT,
			content TEXT,
			chunk_index INTEGER,
			embedding vector(%d),
			metadata JSONB
		)`, vs.config.TableName, vs.config.VectorDim)

	if _, err = vs.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)

	if _, err = vs.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// Add stores every chunk of the given documents, assigning fresh ids. One
// chunk that cannot be embedded is skipped and logged; it never fails the
// rest of the batch.
func (vs *VectorStore) Add(ctx context.Context, docs []models.ProcessedDocument) error {
	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, source, title, content, chunk_index, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		vs.config.TableName)

	for _, doc := range docs {
		cleanTitle := sanitizeUTF8(doc.Title)

		embeddings := vs.embedChunks(ctx, doc.Chunks)

		for i, chunk := range doc.Chunks {
			if embeddings[i] == nil {
				continue
			}

			_, err = tx.Exec(ctx, stmt,
				uuid.NewString(),
				string(doc.Source),
				cleanTitle,
				sanitizeUTF8(chunk),
				doc.ChunkOffset+i,
				pgvector.NewVector(embeddings[i]),
				doc.Metadata,
			)
			if err != nil {
				return fmt.Errorf("failed to insert chunk: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// embedChunks embeds all chunks in one call when possible, falling back to
// per-chunk embedding so a single bad chunk only loses itself. A nil entry
// marks a chunk that could not be embedded.
func (vs *VectorStore) embedChunks(ctx context.Context, chunks []string) [][]float32 {
	sanitized := make([]string, len(chunks))
	for i, c := range chunks {
		sanitized[i] = sanitizeUTF8(c)
	}

	if embeddings, err := vs.embedder.CreateEmbedding(ctx, sanitized); err == nil && len(embeddings) == len(chunks) {
		return embeddings
	}

	out := make([][]float32, len(chunks))
	for i, c := range sanitized {
		emb, err := vs.embedder.CreateEmbedding(ctx, []string{c})
		if err != nil || len(emb) == 0 {
			log.Printf("store: skipping chunk %d: embedding failed: %v", i, err)
			continue
		}
		out[i] = emb[0]
	}
	return out
}

// Query returns the k records most similar to text, best first. An empty
// store, or text with no representable embedding, yields an empty slice.
func (vs *VectorStore) Query(ctx context.Context, text string, k int) ([]models.Record, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	embedding, err := vs.embedText(ctx, text)
	if err != nil {
		return nil, err
	}
	if embedding == nil {
		return []models.Record{}, nil
	}

	query := fmt.Sprintf(`
		SELECT id, content, metadata, 1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := []models.Record{}
	for rows.Next() {
		var rec models.Record
		if err := rows.Scan(&rec.ID, &rec.Content, &rec.Metadata, &rec.Score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// QuerySemantic ranks a caller-supplied candidate pool against the keyword
// using the same cosine metric as Query, entirely in memory. Candidates
// without a precomputed embedding are embedded here; ones that still cannot
// be embedded are left out of the ranking.
func (vs *VectorStore) QuerySemantic(ctx context.Context, keyword string, pool []models.Candidate, k int) ([]string, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if len(pool) == 0 {
		return []string{}, nil
	}

	keyVec, err := vs.embedText(ctx, keyword)
	if err != nil {
		return nil, err
	}
	if keyVec == nil {
		return []string{}, nil
	}

	embedded := make([]models.Candidate, 0, len(pool))
	for _, cand := range pool {
		if cand.Embedding == nil {
			vec, err := vs.embedText(ctx, cand.Content)
			if err != nil || vec == nil {
				continue
			}
			cand.Embedding = vec
		}
		embedded = append(embedded, cand)
	}

	return SelectNearest(keyVec, embedded, k), nil
}

// SelectNearest returns the contents of the k candidates closest to the
// keyword vector by cosine similarity, best first. Ties keep pool order.
func SelectNearest(keyword []float32, pool []models.Candidate, k int) []string {
	type scored struct {
		content string
		score   float32
	}

	ranked := make([]scored, 0, len(pool))
	for _, cand := range pool {
		ranked = append(ranked, scored{cand.Content, CosineSimilarity(keyword, cand.Embedding)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]string, k)
	for i := 0; i < k; i++ {
		out[i] = ranked[i].content
	}
	return out
}

// Replace supersedes the record with the given id: fresh text, fresh
// embedding, fresh metadata, atomically with respect to concurrent queries
// and other Replace calls on the same id. Returns ErrNotFound when the id is
// not in the store.
func (vs *VectorStore) Replace(ctx context.Context, id, newText string, newMetadata map[string]interface{}) error {
	embedding, err := vs.embedText(ctx, newText)
	if err != nil {
		return err
	}
	if embedding == nil {
		return fmt.Errorf("replacement text has no representable embedding")
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Row lock serializes concurrent replaces targeting the same id.
	lock := fmt.Sprintf("SELECT id FROM %s WHERE id = $1 FOR UPDATE", vs.config.TableName)
	var locked string
	if err := tx.QueryRow(ctx, lock, id).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to lock record: %w", err)
	}

	update := fmt.Sprintf(`
		UPDATE %s
		SET content = $2, embedding = $3, metadata = $4
		WHERE id = $1`,
		vs.config.TableName)

	if _, err := tx.Exec(ctx, update, id, sanitizeUTF8(newText), pgvector.NewVector(embedding), newMetadata); err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// List returns every stored record's content and metadata, without
// embeddings. Used to build candidate pools for restricted retrieval.
func (vs *VectorStore) List(ctx context.Context) ([]models.Record, error) {
	query := fmt.Sprintf("SELECT id, content, metadata FROM %s", vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	records := []models.Record{}
	for rows.Next() {
		var rec models.Record
		if err := rows.Scan(&rec.ID, &rec.Content, &rec.Metadata); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (vs *VectorStore) Count(ctx context.Context) (int, error) {
	var count int
	query := fmt.Sprintf("SELECT count(*) FROM %s", vs.config.TableName)
	if err := vs.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

func (vs *VectorStore) embedText(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := vs.embedder.CreateEmbedding(ctx, []string{sanitizeUTF8(text)})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, nil
	}
	return embeddings[0], nil
}

// CosineSimilarity returns the cosine of the angle between a and b, 0 when
// either has no magnitude or the lengths disagree.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
