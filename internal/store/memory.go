// Package store provides the in-memory document store backing retrieval.
//
// The store holds documents and their embedding vectors, answers exact
// nearest-neighbor queries by cosine similarity over a linear scan, and
// enforces a single fixed dimensionality established by the first embedded
// document written. The index is volatile; nothing survives the process.
package store

import (
	"container/heap"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"wikirag/internal/domain"
)

var _ domain.DocumentStore = (*Memory)(nil)

// Memory is an in-memory document store using brute-force cosine
// similarity. Reads are safe concurrently; writes are serialized.
type Memory struct {
	mu        sync.RWMutex
	dimension int
	docs      map[string]domain.Document
	order     []string
	logger    *zap.Logger
}

// NewMemory creates an empty store. The dimensionality is bound lazily by
// the first embedded document written and is immutable thereafter.
func NewMemory(logger *zap.Logger) *Memory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Memory{docs: make(map[string]domain.Document), logger: logger}
}

// Write upserts documents by id and returns the number written. Every
// embedded document is validated against the store's dimensionality before
// anything is mutated, so a failed Write leaves the store unchanged.
func (m *Memory) Write(docs []domain.Document) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dim := m.dimension
	for _, d := range docs {
		if !d.Embedded() {
			continue
		}
		if dim == 0 {
			dim = len(d.Embedding)
			continue
		}
		if len(d.Embedding) != dim {
			return 0, fmt.Errorf("write document %s: vector length %d, store dimension %d: %w",
				d.ID, len(d.Embedding), dim, domain.ErrDimensionMismatch)
		}
	}

	m.dimension = dim
	for _, d := range docs {
		if _, ok := m.docs[d.ID]; !ok {
			m.order = append(m.order, d.ID)
		}
		m.docs[d.ID] = d
	}
	m.logger.Debug("documents written",
		zap.Int("count", len(docs)),
		zap.Int("total", len(m.docs)),
		zap.Int("dimension", m.dimension))
	return len(docs), nil
}

// Search returns up to topK embedded documents ranked by descending cosine
// similarity to the query vector. Ties are broken by insertion order,
// earliest first. An empty result is a normal value, never an error.
func (m *Memory) Search(query []float64, topK int) ([]domain.SearchResult, error) {
	if topK < 1 {
		return nil, fmt.Errorf("top_k %d: %w", topK, domain.ErrInvalidTopK)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.dimension == 0 {
		// No embedded document has ever been written.
		return nil, nil
	}
	if len(query) != m.dimension {
		return nil, fmt.Errorf("query vector length %d, store dimension %d: %w",
			len(query), m.dimension, domain.ErrDimensionMismatch)
	}

	h := &resultHeap{}
	heap.Init(h)
	for pos, id := range m.order {
		d := m.docs[id]
		if !d.Embedded() {
			continue
		}
		c := candidate{doc: d, score: cosine(query, d.Embedding), pos: pos}
		if h.Len() < topK {
			heap.Push(h, c)
			continue
		}
		if worst := (*h)[0]; c.better(worst) {
			(*h)[0] = c
			heap.Fix(h, 0)
		}
	}

	results := make([]domain.SearchResult, h.Len())
	for i := h.Len() - 1; i >= 0; i-- {
		c := heap.Pop(h).(candidate)
		results[i] = domain.SearchResult{Document: c.doc, Score: c.score}
	}
	return results, nil
}

// Count returns the number of stored documents, embedded or not.
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// Exists reports whether a document with the given id is stored.
func (m *Memory) Exists(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.docs[id]
	return ok
}

// Dimension returns the bound dimensionality, or 0 if no embedded document
// has been written yet.
func (m *Memory) Dimension() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dimension
}

// cosine computes cosine similarity between equal-length vectors. A
// zero-magnitude vector scores 0 against everything.
func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

type candidate struct {
	doc   domain.Document
	score float64
	pos   int
}

// better ranks c above o: higher score wins, equal scores go to the
// earlier-inserted document.
func (c candidate) better(o candidate) bool {
	if c.score != o.score {
		return c.score > o.score
	}
	return c.pos < o.pos
}

// resultHeap is a min-heap over candidates so the worst kept result sits
// at the root and is evicted first.
type resultHeap []candidate

func (h resultHeap) Len() int           { return len(h) }
func (h resultHeap) Less(i, j int) bool { return h[j].better(h[i]) }
func (h resultHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *resultHeap) Push(x any)        { *h = append(*h, x.(candidate)) }
func (h *resultHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
