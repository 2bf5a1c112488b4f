package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wikirag/internal/domain"
)

func doc(id string, vec ...float64) domain.Document {
	return domain.Document{ID: id, Content: "content of " + id, Embedding: vec}
}

func TestWriteBindsDimensionLazily(t *testing.T) {
	m := NewMemory(zap.NewNop())
	assert.Equal(t, 0, m.Dimension())

	n, err := m.Write([]domain.Document{doc("a", 1, 0, 0)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 3, m.Dimension())
}

func TestWriteRejectsDimensionMismatch(t *testing.T) {
	m := NewMemory(zap.NewNop())
	_, err := m.Write([]domain.Document{doc("a", 1, 0, 0)})
	require.NoError(t, err)

	_, err = m.Write([]domain.Document{doc("b", 1, 0)})
	require.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Equal(t, 1, m.Count(), "failed write must not change the count")
	assert.False(t, m.Exists("b"))
}

func TestWriteRejectsMixedBatchWithoutMutation(t *testing.T) {
	m := NewMemory(zap.NewNop())
	// First embedded document binds the dimension for the whole call;
	// the bad document fails the batch before anything is stored.
	_, err := m.Write([]domain.Document{doc("a", 1, 0), doc("b", 1, 2, 3)})
	require.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Equal(t, 0, m.Count())
	assert.Equal(t, 0, m.Dimension())
}

func TestWriteUpsertsByID(t *testing.T) {
	m := NewMemory(zap.NewNop())
	_, err := m.Write([]domain.Document{{ID: "a", Content: "old", Embedding: []float64{1, 0}}})
	require.NoError(t, err)
	_, err = m.Write([]domain.Document{{ID: "a", Content: "new", Embedding: []float64{0, 1}}})
	require.NoError(t, err)

	assert.Equal(t, 1, m.Count())
	res, err := m.Search([]float64{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "new", res[0].Document.Content)
}

func TestWriteAcceptsUnembeddedDocuments(t *testing.T) {
	m := NewMemory(zap.NewNop())
	_, err := m.Write([]domain.Document{
		{ID: "plain", Content: "no vector yet"},
		doc("a", 1, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Count())
	assert.True(t, m.Exists("plain"))

	res, err := m.Search([]float64{1, 0}, 5)
	require.NoError(t, err)
	assert.Len(t, res, 1, "unembedded documents are never search results")
}

func TestSearchRanksByCosineSimilarity(t *testing.T) {
	m := NewMemory(zap.NewNop())
	_, err := m.Write([]domain.Document{
		doc("a", 1, 0, 0),
		doc("b", 0, 1, 0),
		doc("c", 0.9, 0.1, 0),
	})
	require.NoError(t, err)

	res, err := m.Search([]float64{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "a", res[0].Document.ID)
	assert.Equal(t, "c", res[1].Document.ID)
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)
	assert.InDelta(t, 0.9939, res[1].Score, 1e-3)
}

func TestSearchReturnsAllWhenTopKExceedsCorpus(t *testing.T) {
	m := NewMemory(zap.NewNop())
	_, err := m.Write([]domain.Document{doc("a", 1, 0), doc("b", 0, 1)})
	require.NoError(t, err)

	res, err := m.Search([]float64{1, 1}, 10)
	require.NoError(t, err)
	assert.Len(t, res, 2)
	assert.GreaterOrEqual(t, res[0].Score, res[1].Score)
}

func TestSearchTiesBreakByInsertionOrder(t *testing.T) {
	m := NewMemory(zap.NewNop())
	// b and d are identical vectors; b was inserted first.
	_, err := m.Write([]domain.Document{
		doc("b", 0, 1),
		doc("a", 1, 0),
		doc("d", 0, 1),
	})
	require.NoError(t, err)

	res, err := m.Search([]float64{0, 1}, 3)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "b", res[0].Document.ID)
	assert.Equal(t, "d", res[1].Document.ID)
	assert.Equal(t, "a", res[2].Document.ID)
}

func TestSearchEmptyStoreReturnsEmpty(t *testing.T) {
	m := NewMemory(zap.NewNop())
	res, err := m.Search([]float64{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestSearchRejectsBadArguments(t *testing.T) {
	m := NewMemory(zap.NewNop())
	_, err := m.Write([]domain.Document{doc("a", 1, 0, 0)})
	require.NoError(t, err)

	t.Run("top_k below one", func(t *testing.T) {
		_, err := m.Search([]float64{1, 0, 0}, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidTopK)
	})
	t.Run("query dimension mismatch", func(t *testing.T) {
		_, err := m.Search([]float64{1, 0}, 1)
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	})
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float64{2, 0}, []float64{7, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosine([]float64{1, 0}, []float64{-3, 0}), 1e-9)
	assert.Equal(t, 0.0, cosine([]float64{0, 0}, []float64{1, 1}), "zero magnitude scores zero")
}
