// Package retriever adapts query vectors into document store searches.
package retriever

import (
	"go.uber.org/zap"

	"wikirag/internal/domain"
)

// DefaultTopK bounds the number of retrieved passages and with it the size
// of the downstream prompt. A cost knob, not a correctness knob.
const DefaultTopK = 3

// Retriever answers top-k similarity queries against a document store.
type Retriever struct {
	store  domain.DocumentStore
	topK   int
	logger *zap.Logger
}

// New creates a retriever. topK <= 0 falls back to DefaultTopK.
func New(store domain.DocumentStore, topK int, logger *zap.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{store: store, topK: topK, logger: logger}
}

// Retrieve returns the topK most similar documents to the query vector,
// descending by score. topK <= 0 uses the configured default.
func (r *Retriever) Retrieve(query []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = r.topK
	}
	results, err := r.store.Search(query, topK)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("retrieved documents", zap.Int("top_k", topK), zap.Int("results", len(results)))
	return results, nil
}
