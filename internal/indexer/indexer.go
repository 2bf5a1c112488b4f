// Package indexer validates document sources and drives them through
// embedding and storage in bounded batches.
package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"wikirag/internal/domain"
)

// DefaultBatchSize is the number of documents embedded and written per
// batch when the caller does not choose one. Smaller batches reduce the
// blast radius of a mid-indexing failure.
const DefaultBatchSize = 32

// Indexer converts document sources into embedded documents in a store.
type Indexer struct {
	embedder domain.Embedder
	logger   *zap.Logger
}

// New creates an indexer backed by the given embedding provider.
func New(embedder domain.Embedder, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{embedder: embedder, logger: logger}
}

// ValidateSources checks that every path exists and is a regular file.
// It runs before any embedding or write work so clearly bad input cannot
// leave partial side effects.
func (ix *Indexer) ValidateSources(paths []string) ([]string, error) {
	validated := make([]string, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, p)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%w: %s is not a file", domain.ErrSourceNotFound, p)
		}
		validated = append(validated, p)
	}
	return validated, nil
}

// FromDirectory returns all file paths under dir whose base name matches
// the glob pattern, lexicographically sorted for deterministic indexing
// order. With recursive set, subdirectories are searched too.
func (ix *Indexer) FromDirectory(dir, pattern string, recursive bool) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrDirectoryNotFound, dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotADirectory, dir)
	}
	if pattern == "" {
		pattern = "*"
	}

	var paths []string
	if recursive {
		err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			ok, err := filepath.Match(pattern, d.Name())
			if err != nil {
				return err
			}
			if ok {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			ok, err := filepath.Match(pattern, e.Name())
			if err != nil {
				return nil, err
			}
			if ok {
				paths = append(paths, filepath.Join(dir, e.Name()))
			}
		}
	}
	sort.Strings(paths)
	ix.logger.Info("scanned documents directory",
		zap.String("dir", dir), zap.String("pattern", pattern), zap.Int("found", len(paths)))
	return paths, nil
}

// Index embeds and writes the given sources in contiguous, in-order
// batches of batchSize (the last batch may be short). The first failing
// batch aborts the whole call; batches committed before it stay committed.
func (ix *Indexer) Index(ctx context.Context, store domain.DocumentStore, paths []string, batchSize int) error {
	if batchSize < 1 {
		return fmt.Errorf("batch size %d: %w", batchSize, domain.ErrInvalidBatchSize)
	}
	if len(paths) == 0 {
		ix.logger.Info("no documents to index")
		return nil
	}

	validated, err := ix.ValidateSources(paths)
	if err != nil {
		return err
	}

	totalBatches := (len(validated) + batchSize - 1) / batchSize
	ix.logger.Info("indexing documents",
		zap.Int("documents", len(validated)),
		zap.Int("batch_size", batchSize),
		zap.Int("batches", totalBatches))

	for start := 0; start < len(validated); start += batchSize {
		end := start + batchSize
		if end > len(validated) {
			end = len(validated)
		}
		batchNum := start/batchSize + 1
		if err := ix.indexBatch(ctx, store, validated[start:end]); err != nil {
			return fmt.Errorf("batch %d/%d: %w", batchNum, totalBatches, err)
		}
		ix.logger.Debug("batch indexed",
			zap.Int("batch", batchNum), zap.Int("total", totalBatches), zap.Int("size", end-start))
	}

	ix.logger.Info("document indexing completed", zap.Int("stored", store.Count()))
	return nil
}

func (ix *Indexer) indexBatch(ctx context.Context, store domain.DocumentStore, paths []string) error {
	docs := make([]domain.Document, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrSourceNotFound, p, err)
		}
		docs = append(docs, domain.Document{
			ID:       domain.DocumentID(p),
			Path:     p,
			Content:  string(data),
			Metadata: map[string]string{"source": p},
		})
	}

	embedded, err := ix.embedder.EmbedDocuments(ctx, docs)
	if err != nil {
		return err
	}
	if _, err := store.Write(embedded); err != nil {
		return err
	}
	return nil
}
