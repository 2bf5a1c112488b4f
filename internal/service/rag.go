// Package service wires embedding, retrieval, prompt assembly and
// generation into the question answering flow.
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"wikirag/internal/domain"
	"wikirag/internal/prompt"
)

// Retriever is the retrieval capability the service depends on.
type Retriever interface {
	Retrieve(query []float64, topK int) ([]domain.SearchResult, error)
}

// Answer is a generated reply together with the passages it was grounded on.
type Answer struct {
	Text    string
	Sources []domain.SearchResult
}

// RAG answers questions over an indexed corpus.
type RAG struct {
	embedder  domain.Embedder
	retriever Retriever
	generator domain.Generator
	prompts   *prompt.Builder
	logger    *zap.Logger
}

// New creates the question answering service.
func New(embedder domain.Embedder, retriever Retriever, generator domain.Generator, prompts *prompt.Builder, logger *zap.Logger) *RAG {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RAG{
		embedder:  embedder,
		retriever: retriever,
		generator: generator,
		prompts:   prompts,
		logger:    logger,
	}
}

// Answer embeds the question, retrieves the most similar passages, builds
// a prompt from them and asks the generator. topK <= 0 uses the
// retriever's configured default.
func (r *RAG) Answer(ctx context.Context, question string, topK int) (Answer, error) {
	r.logger.Info("answering question", zap.String("question", question))

	vec, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return Answer{}, err
	}

	results, err := r.retriever.Retrieve(vec, topK)
	if err != nil {
		return Answer{}, err
	}

	docs := make([]domain.Document, len(results))
	for i, res := range results {
		docs[i] = res.Document
	}
	p, err := r.prompts.Render(docs, question)
	if err != nil {
		return Answer{}, err
	}

	replies, err := r.generator.Generate(ctx, p)
	if err != nil {
		return Answer{}, err
	}
	if len(replies) == 0 {
		return Answer{}, fmt.Errorf("question %q: %w", question, domain.ErrNoAnswer)
	}

	r.logger.Info("question answered",
		zap.Int("sources", len(results)), zap.Int("candidates", len(replies)))
	return Answer{Text: replies[0], Sources: results}, nil
}
