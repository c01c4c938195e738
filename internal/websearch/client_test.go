package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %q, want /search", r.URL.Path)
		}
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.APIKey != "tv-key" {
			t.Errorf("api key = %q", req.APIKey)
		}
		if req.Query != "golang release date" {
			t.Errorf("query = %q", req.Query)
		}
		if req.MaxResults != 2 {
			t.Errorf("max results = %d, want 2", req.MaxResults)
		}
		json.NewEncoder(w).Encode(searchResponse{Results: []Result{
			{Title: "first", URL: "https://a", Content: "Go was announced in 2009."},
			{Title: "second", URL: "https://b", Content: "More history."},
		}})
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("tv-key", 2, srv.URL)
	results, err := c.Search(context.Background(), "golang release date")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Title != "first" {
		t.Errorf("provider order not preserved: %+v", results)
	}
}

func TestSearch_CapsResultCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(searchResponse{Results: []Result{
			{Title: "1"}, {Title: "2"}, {Title: "3"}, {Title: "4"},
		}})
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("k", 2, srv.URL)
	results, err := c.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want 2 (capped)", len(results))
	}
}

func TestSearch_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("k", 2, srv.URL)
	if _, err := c.Search(context.Background(), "q"); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"<p>hello <b>world</b></p>", "hello world"},
		{"a < b but not markup", "a < b but not markup"},
	}
	for _, tt := range tests {
		if got := stripMarkup(tt.in); got != tt.want {
			t.Errorf("stripMarkup(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
