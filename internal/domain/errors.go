package domain

import "errors"

var (
	// ErrDimensionMismatch indicates a vector whose length disagrees with
	// the store's established dimensionality, on write or query.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInvalidTopK indicates a similarity search asked for fewer than
	// one result.
	ErrInvalidTopK = errors.New("top_k must be at least 1")

	// ErrInvalidBatchSize indicates an indexing batch size below 1.
	ErrInvalidBatchSize = errors.New("batch size must be at least 1")

	// ErrSourceNotFound indicates a document source that does not exist or
	// is not a readable file.
	ErrSourceNotFound = errors.New("document source not found")

	// ErrDirectoryNotFound indicates a documents directory that does not exist.
	ErrDirectoryNotFound = errors.New("directory not found")

	// ErrNotADirectory indicates a path given where a directory was expected.
	ErrNotADirectory = errors.New("path is not a directory")

	// ErrProvider wraps failures from an external embedding or generation
	// collaborator.
	ErrProvider = errors.New("provider failure")

	// ErrNoAnswer indicates the generator returned no candidate replies.
	ErrNoAnswer = errors.New("no answer generated")
)
