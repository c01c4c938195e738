// Package tools defines the callable contract the agent dispatches on,
// and the two tools this service registers: internal document retrieval
// and public web search.
package tools

import "context"

// Tool is a named, described callable the reasoning step may invoke.
// Invoke must be a pure function of its query: no shared mutable state,
// so the agent may run several invocations concurrently.
type Tool interface {
	Name() string
	Description() string
	Invoke(ctx context.Context, query string) (string, error)
}

// Registry maps tool names to tools for exact-name dispatch.
type Registry map[string]Tool

// NewRegistry builds a Registry from the given tools. Duplicate names
// are a programming error; the later registration wins.
func NewRegistry(ts ...Tool) Registry {
	r := make(Registry, len(ts))
	for _, t := range ts {
		r[t.Name()] = t
	}
	return r
}

// Lookup returns the tool registered under name.
func (r Registry) Lookup(name string) (Tool, bool) {
	t, ok := r[name]
	return t, ok
}
