// Package index owns the persisted vector index: it is built once from
// a full chunk set, published atomically, and read-only afterwards.
package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/answerd/answerd/internal/corpus"
)

// Embedder turns text into a vector. The same implementation must be
// used for building the index and for queries, or similarity scores
// are meaningless.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Result is one search hit: the stored chunk and its cosine similarity
// to the query.
type Result struct {
	Chunk corpus.Chunk
	Score float32
}

// ErrEmptyCorpus is returned by Open when no persisted index exists and
// the chunk set is empty. An empty index is never created silently.
var ErrEmptyCorpus = errors.New("no persisted index and no chunks to build one from")

// LoadError reports a persisted index that exists but cannot be used.
// It is deliberately distinct from the rebuild path: rebuilding over an
// unreadable index would mask data loss.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading persisted index at %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
