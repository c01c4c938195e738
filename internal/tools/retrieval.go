package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/answerd/answerd/internal/index"
)

// NoDocumentsFound is the canonical result when retrieval matches
// nothing. The agent's reasoning step treats it as information, not an
// error, so the exact wording is part of the tool's contract.
const NoDocumentsFound = "No relevant documents found."

// Searcher is the slice of the index store the retrieval tool needs.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]index.Result, error)
}

// Retrieval searches the internal document index with a fixed result
// count and formats hits as provenance-tagged text blocks.
type Retrieval struct {
	store Searcher
	topK  int
}

// NewRetrieval creates the retrieval tool over the given store,
// returning at most topK chunks per query.
func NewRetrieval(store Searcher, topK int) *Retrieval {
	return &Retrieval{store: store, topK: topK}
}

func (t *Retrieval) Name() string {
	return "search_documents"
}

func (t *Retrieval) Description() string {
	return "Search internal company documents, policies, or rules."
}

// Invoke formats each hit as a source-tagged block, best match first.
func (t *Retrieval) Invoke(ctx context.Context, query string) (string, error) {
	results, err := t.store.Search(ctx, query, t.topK)
	if err != nil {
		return "", fmt.Errorf("searching documents: %w", err)
	}
	if len(results) == 0 {
		return NoDocumentsFound, nil
	}

	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = fmt.Sprintf("Source: %s\n---\n%s", r.Chunk.Source, r.Chunk.Text)
	}
	return strings.Join(blocks, "\n\n"), nil
}
