package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wikirag/internal/domain"
)

type fakeEmbedder struct {
	calls int
	fail  func(call int) error
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	return []float64{1, 0}, nil
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, docs []domain.Document) ([]domain.Document, error) {
	f.calls++
	if f.fail != nil {
		if err := f.fail(f.calls); err != nil {
			return nil, err
		}
	}
	out := make([]domain.Document, len(docs))
	copy(out, docs)
	for i := range out {
		out[i].Embedding = []float64{1, 0}
	}
	return out, nil
}

type recordingStore struct {
	writes [][]domain.Document
	stored map[string]domain.Document
}

func newRecordingStore() *recordingStore {
	return &recordingStore{stored: make(map[string]domain.Document)}
}

func (s *recordingStore) Write(docs []domain.Document) (int, error) {
	s.writes = append(s.writes, docs)
	for _, d := range docs {
		s.stored[d.ID] = d
	}
	return len(docs), nil
}

func (s *recordingStore) Search(query []float64, topK int) ([]domain.SearchResult, error) {
	return nil, nil
}

func (s *recordingStore) Count() int            { return len(s.stored) }
func (s *recordingStore) Exists(id string) bool { _, ok := s.stored[id]; return ok }

func writeFiles(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("text of "+name), 0o644))
		paths = append(paths, p)
	}
	return paths
}

func TestValidateSources(t *testing.T) {
	dir := t.TempDir()
	paths := writeFiles(t, dir, "a.txt")
	ix := New(&fakeEmbedder{}, zap.NewNop())

	t.Run("valid file", func(t *testing.T) {
		got, err := ix.ValidateSources(paths)
		require.NoError(t, err)
		assert.Equal(t, paths, got)
	})
	t.Run("missing path", func(t *testing.T) {
		_, err := ix.ValidateSources([]string{filepath.Join(dir, "nope.txt")})
		assert.ErrorIs(t, err, domain.ErrSourceNotFound)
	})
	t.Run("directory instead of file", func(t *testing.T) {
		_, err := ix.ValidateSources([]string{dir})
		assert.ErrorIs(t, err, domain.ErrSourceNotFound)
	})
}

func TestFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "b.txt", "a.txt", "notes.md", filepath.Join("sub", "c.txt"))
	ix := New(&fakeEmbedder{}, zap.NewNop())

	t.Run("recursive lexicographic", func(t *testing.T) {
		got, err := ix.FromDirectory(dir, "*.txt", true)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, filepath.Join(dir, "a.txt"), got[0])
		assert.Equal(t, filepath.Join(dir, "b.txt"), got[1])
		assert.Equal(t, filepath.Join(dir, "sub", "c.txt"), got[2])
	})
	t.Run("non-recursive skips subdirectories", func(t *testing.T) {
		got, err := ix.FromDirectory(dir, "*.txt", false)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
	t.Run("missing directory", func(t *testing.T) {
		_, err := ix.FromDirectory(filepath.Join(dir, "absent"), "*.txt", true)
		assert.ErrorIs(t, err, domain.ErrDirectoryNotFound)
	})
	t.Run("file instead of directory", func(t *testing.T) {
		_, err := ix.FromDirectory(filepath.Join(dir, "a.txt"), "*.txt", true)
		assert.ErrorIs(t, err, domain.ErrNotADirectory)
	})
}

func TestIndexBatchBoundaries(t *testing.T) {
	dir := t.TempDir()
	paths := writeFiles(t, dir, "1.txt", "2.txt", "3.txt", "4.txt", "5.txt")
	emb := &fakeEmbedder{}
	st := newRecordingStore()
	ix := New(emb, zap.NewNop())

	require.NoError(t, ix.Index(context.Background(), st, paths, 2))

	require.Len(t, st.writes, 3, "5 sources at batch size 2 produce 3 writes")
	assert.Len(t, st.writes[0], 2)
	assert.Len(t, st.writes[1], 2)
	assert.Len(t, st.writes[2], 1)
	assert.Equal(t, 3, emb.calls)
	// Input order is preserved across batches.
	assert.Equal(t, domain.DocumentID(paths[0]), st.writes[0][0].ID)
	assert.Equal(t, domain.DocumentID(paths[4]), st.writes[2][0].ID)
}

func TestIndexEmptySourcesIsNoOp(t *testing.T) {
	emb := &fakeEmbedder{}
	st := newRecordingStore()
	ix := New(emb, zap.NewNop())

	require.NoError(t, ix.Index(context.Background(), st, nil, 4))
	assert.Zero(t, emb.calls)
	assert.Empty(t, st.writes)
}

func TestIndexRejectsInvalidBatchSize(t *testing.T) {
	st := newRecordingStore()
	ix := New(&fakeEmbedder{}, zap.NewNop())

	err := ix.Index(context.Background(), st, []string{"whatever"}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidBatchSize)
	assert.Empty(t, st.writes, "validation errors fail before any I/O")
}

func TestIndexValidatesBeforeAnyWork(t *testing.T) {
	dir := t.TempDir()
	paths := writeFiles(t, dir, "1.txt")
	paths = append(paths, filepath.Join(dir, "missing.txt"))
	emb := &fakeEmbedder{}
	st := newRecordingStore()
	ix := New(emb, zap.NewNop())

	err := ix.Index(context.Background(), st, paths, 1)
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)
	assert.Zero(t, emb.calls)
	assert.Empty(t, st.writes)
}

func TestIndexAbortsOnBatchFailure(t *testing.T) {
	dir := t.TempDir()
	paths := writeFiles(t, dir, "1.txt", "2.txt", "3.txt", "4.txt")
	providerErr := errors.New("embedding backend down")
	emb := &fakeEmbedder{fail: func(call int) error {
		if call == 2 {
			return providerErr
		}
		return nil
	}}
	st := newRecordingStore()
	ix := New(emb, zap.NewNop())

	err := ix.Index(context.Background(), st, paths, 2)
	require.ErrorIs(t, err, providerErr)
	assert.Contains(t, err.Error(), "batch 2/2", "failure names the batch for narrow retry")
	assert.Len(t, st.writes, 1, "first batch stays committed, nothing after the failure")
}
