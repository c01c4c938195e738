package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/answerd/answerd/internal/corpus"
)

// fakeEmbedder returns preset vectors per text, so similarity ordering
// is fully controlled by the test. Builds embed chunks from several
// goroutines, so the call counter is atomic.
type fakeEmbedder struct {
	vecs  map[string][]float32
	calls atomic.Int64
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vecs[text]; ok {
		return v, nil
	}
	return []float32{1, 1, 1}, nil
}

func testChunks() []corpus.Chunk {
	return []corpus.Chunk{
		{Text: "alpha", Source: "a.txt"},
		{Text: "beta", Source: "b.txt"},
		{Text: "gamma", Source: "c.txt"},
		{Text: "delta", Source: "d.txt"},
		{Text: "epsilon", Source: "e.txt"},
	}
}

func testEmbedder() *fakeEmbedder {
	return &fakeEmbedder{vecs: map[string][]float32{
		"alpha":   {1, 0, 0},
		"beta":    {0.9, 0.1, 0},
		"gamma":   {0.5, 0.5, 0},
		"delta":   {0, 1, 0},
		"epsilon": {0, 0, 1},
		"query":   {1, 0, 0},
	}}
}

func TestOpen_BuildAndSearchOrdering(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(context.Background(), testChunks(), testEmbedder(), dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if store.Count() != 5 {
		t.Errorf("count = %d, want 5", store.Count())
	}

	results, err := store.Search(context.Background(), "query", 4)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}

	wantOrder := []string{"alpha", "beta", "gamma", "delta"}
	for i, want := range wantOrder {
		if results[i].Chunk.Text != want {
			t.Errorf("result %d = %q, want %q", i, results[i].Chunk.Text, want)
		}
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not ordered most-similar first at index %d", i)
		}
	}
}

func TestSearch_NeverExceedsKOrIndexSize(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(context.Background(), testChunks()[:2], testEmbedder(), dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	results, err := store.Search(context.Background(), "query", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want 2 (index size)", len(results))
	}
}

func TestOpen_ReusesExistingIndexIgnoringChunks(t *testing.T) {
	dir := t.TempDir()
	emb := testEmbedder()

	first, err := Open(context.Background(), testChunks(), emb, dir)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	firstResults, err := first.Search(context.Background(), "query", 3)
	if err != nil {
		t.Fatalf("first Search: %v", err)
	}
	first.Close()

	// A completely different chunk set must be ignored when a persisted
	// index exists.
	other := []corpus.Chunk{{Text: "unrelated", Source: "x.txt"}}
	second, err := Open(context.Background(), other, emb, dir)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer second.Close()

	if second.Count() != 5 {
		t.Errorf("reused index count = %d, want 5", second.Count())
	}

	secondResults, err := second.Search(context.Background(), "query", 3)
	if err != nil {
		t.Fatalf("second Search: %v", err)
	}
	if len(firstResults) != len(secondResults) {
		t.Fatalf("result counts differ: %d vs %d", len(firstResults), len(secondResults))
	}
	for i := range firstResults {
		if firstResults[i].Chunk != secondResults[i].Chunk || firstResults[i].Score != secondResults[i].Score {
			t.Errorf("result %d differs after reuse: %+v vs %+v", i, firstResults[i], secondResults[i])
		}
	}
}

func TestOpen_EmptyCorpusNoIndex(t *testing.T) {
	_, err := Open(context.Background(), nil, testEmbedder(), t.TempDir())
	if !errors.Is(err, ErrEmptyCorpus) {
		t.Fatalf("err = %v, want ErrEmptyCorpus", err)
	}
}

func TestOpen_CorruptIndexIsLoadErrorNotRebuild(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, dbFileName), []byte("not a database"), 0o644); err != nil {
		t.Fatal(err)
	}

	emb := testEmbedder()
	_, err := Open(context.Background(), testChunks(), emb, dir)

	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("err = %v, want *LoadError", err)
	}
	if n := emb.calls.Load(); n != 0 {
		t.Errorf("embedder called %d times during failed load, want 0 (no silent rebuild)", n)
	}
}

func TestOpen_FailedBuildLeavesNoMarker(t *testing.T) {
	dir := t.TempDir()
	bad := &fakeEmbedder{err: errors.New("backend down")}

	if _, err := Open(context.Background(), testChunks(), bad, dir); err == nil {
		t.Fatal("expected build failure")
	}
	if _, err := os.Stat(filepath.Join(dir, dbFileName)); !os.IsNotExist(err) {
		t.Fatalf("marker file exists after failed build (stat err = %v)", err)
	}

	// A later build with a working embedder succeeds from scratch.
	store, err := Open(context.Background(), testChunks(), testEmbedder(), dir)
	if err != nil {
		t.Fatalf("rebuild after failure: %v", err)
	}
	store.Close()
}

func TestSearch_EmptyIndexReturnsEmpty(t *testing.T) {
	s := &Store{}
	results, err := s.Search(context.Background(), "anything", 4)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestSearch_RejectsNonPositiveK(t *testing.T) {
	s := &Store{}
	if _, err := s.Search(context.Background(), "q", 0); err == nil {
		t.Fatal("expected error for k = 0")
	}
}

func TestOpen_BuildEmbedsEveryChunkOnce(t *testing.T) {
	emb := testEmbedder()
	store, err := Open(context.Background(), testChunks(), emb, t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if n := emb.calls.Load(); n != 5 {
		t.Errorf("embedder called %d times during build, want 5", n)
	}
}
