package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/answerd/answerd/internal/websearch"
)

// WebSearcher is the slice of the search provider client the tool needs.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]websearch.Result, error)
}

// WebSearch exposes the external search provider through the same
// callable contract as document retrieval, so the agent can use either
// interchangeably.
type WebSearch struct {
	client WebSearcher
}

// NewWebSearch creates the web search tool.
func NewWebSearch(client WebSearcher) *WebSearch {
	return &WebSearch{client: client}
}

func (t *WebSearch) Name() string {
	return "web_search"
}

func (t *WebSearch) Description() string {
	return "Search the public web for current or external information."
}

// Invoke returns the provider's hits in ranking order, one
// title/URL/snippet block per hit.
func (t *WebSearch) Invoke(ctx context.Context, query string) (string, error) {
	results, err := t.client.Search(ctx, query)
	if err != nil {
		return "", fmt.Errorf("searching web: %w", err)
	}
	if len(results) == 0 {
		return "No web results found.", nil
	}

	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = fmt.Sprintf("%s (%s)\n%s", r.Title, r.URL, r.Content)
	}
	return strings.Join(blocks, "\n\n"), nil
}
