package models

// Source identifies where a document was fetched from.
type Source string

const (
	SourceChat       Source = "chat"
	SourceWiki       Source = "wiki"
	SourceLink       Source = "link"
	SourceAttachment Source = "attachment"
)

type Document struct {
	ID       string
	Source   Source
	Title    string
	Content  string
	Metadata map[string]interface{}
}

// ProcessedDocument is a document with its content split into chunks.
// ChunkOffset is the index of Chunks[0] within the source document, so a
// document split across store batches keeps globally correct chunk indices.
type ProcessedDocument struct {
	Document
	Chunks      []string
	ChunkOffset int
}

// Record is a stored vector row as seen by callers. IDs are assigned by the
// store; callers never fabricate them. Score is the cosine similarity to the
// query that produced the record.
type Record struct {
	ID       string
	Content  string
	Metadata map[string]interface{}
	Score    float32
}

// Candidate is one entry of a caller-supplied pool for restricted semantic
// selection.
type Candidate struct {
	Content   string
	Embedding []float32
}

type Article struct {
	Title string
	Body  string
	Kind  string
}
