package processor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xhad/scribe/internal/models"
	"github.com/xhad/scribe/internal/types"
)

type ProcessorConfig struct {
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
}

type Processor struct {
	config ProcessorConfig
}

var _ types.Processor = (*Processor)(nil)

func NewWithConfig(config ProcessorConfig) *Processor {
	if config.ChunkSize == 0 {
		config.ChunkSize = 300
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 70
	}
	if config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = config.ChunkSize / 4
	}
	if config.BatchSize == 0 {
		config.BatchSize = 166
	}

	return &Processor{
		config: config,
	}
}

var mentionPattern = regexp.MustCompile(`<@[^>]+>`)

// StripMentions removes bot-mention tokens like <@U123ABC> while leaving the
// rest of the text untouched.
func StripMentions(text string) string {
	return mentionPattern.ReplaceAllString(text, "")
}

// Clean normalizes raw document text: markup is stripped down to its text
// content, mention tokens are removed, and all whitespace runs collapse to
// single spaces. Total and idempotent; malformed markup degrades to
// best-effort extraction of whatever text the parser recovers.
func Clean(text string) string {
	if text == "" {
		return ""
	}

	text = StripMentions(text)

	if strings.ContainsAny(text, "<>") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(text)); err == nil {
			text = doc.Text()
		}
	}

	return strings.Join(strings.Fields(text), " ")
}

// Dedupe removes entries whose whitespace-collapsed form has been seen
// before, preserving first-occurrence order. Two differently spaced
// encodings of the same text collapse to one survivor.
func Dedupe(docs []string) []string {
	if len(docs) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(docs))
	unique := make([]string, 0, len(docs))

	for _, doc := range docs {
		key := strings.Join(strings.Fields(doc), " ")
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, doc)
	}

	return unique
}

// Process cleans each document and splits it into position-based chunks.
// Concatenating a document's chunks with each trailing chunk's leading
// overlap removed reconstructs the cleaned content exactly.
func (p *Processor) Process(docs []models.Document) ([]models.ProcessedDocument, error) {
	var processed []models.ProcessedDocument

	for _, doc := range docs {
		cleaned := Clean(doc.Content)
		doc.Content = cleaned

		processed = append(processed, models.ProcessedDocument{
			Document: doc,
			Chunks:   p.splitIntoChunks(cleaned),
		})
	}

	return processed, nil
}

func (p *Processor) splitIntoChunks(text string) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	size := p.config.ChunkSize
	step := size - p.config.ChunkOverlap

	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	for start := 0; ; start += step {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks
}

// Batches partitions processed documents into store-write batches of at most
// BatchSize chunks each. The ceiling exists to respect the backend's payload
// limit. A document whose chunks straddle a boundary appears in both batches
// with the chunks split between them, so attribution survives batching.
func (p *Processor) Batches(docs []models.ProcessedDocument) [][]models.ProcessedDocument {
	var batches [][]models.ProcessedDocument
	var current []models.ProcessedDocument
	count := 0

	for _, doc := range docs {
		chunks := doc.Chunks
		offset := doc.ChunkOffset
		for len(chunks) > 0 {
			room := p.config.BatchSize - count
			if room == 0 {
				batches = append(batches, current)
				current = nil
				count = 0
				room = p.config.BatchSize
			}
			take := room
			if take > len(chunks) {
				take = len(chunks)
			}
			current = append(current, models.ProcessedDocument{
				Document:    doc.Document,
				Chunks:      chunks[:take],
				ChunkOffset: offset,
			})
			count += take
			offset += take
			chunks = chunks[take:]
		}
	}
	if count > 0 {
		batches = append(batches, current)
	}

	return batches
}
