package domain

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
)

// Document is a single unit of indexed text. A document is either
// unembedded (no vector) or embedded with a vector whose length matches
// the store's dimensionality.
type Document struct {
	ID        string
	Path      string
	Content   string
	Metadata  map[string]string
	Embedding []float64
}

// Embedded reports whether the document carries an embedding vector.
func (d Document) Embedded() bool { return len(d.Embedding) > 0 }

// DocumentID derives a stable document id from a source path, so
// re-indexing the same file replaces rather than duplicates.
func DocumentID(path string) string {
	h := sha1.Sum([]byte(path))
	return hex.EncodeToString(h[:8])
}

// SearchResult is a matching document with its similarity score.
type SearchResult struct {
	Document Document
	Score    float64
}

// Embedder maps text to fixed-length vectors. The same model must be used
// for documents at index time and for queries at retrieval time, or
// similarity scores are meaningless.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float64, error)
	EmbedDocuments(ctx context.Context, docs []Document) ([]Document, error)
}

// Generator produces candidate answers for a prompt. The reply slice may
// be empty.
type Generator interface {
	Generate(ctx context.Context, prompt string) ([]string, error)
}

// DocumentStore is the capability surface required from a document store.
type DocumentStore interface {
	Write(docs []Document) (int, error)
	Search(query []float64, topK int) ([]SearchResult, error)
	Count() int
	Exists(id string) bool
}
