package corpus

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Document is one ingested file: its full text and the basename it came
// from. Documents exist only between loading and chunking; retrieval
// works on Chunks.
type Document struct {
	Content string
	Source  string
}

// Chunk is a bounded window of a document's content, carrying the
// document's source tag. Chunks are the unit of embedding and search.
type Chunk struct {
	Text   string
	Source string
}

// LoadDir reads every recognized file in dir into a Document. Files with
// unknown extensions are ignored. A file that cannot be read is skipped
// with a warning; it never aborts the whole pass. A missing directory
// yields an empty corpus, not an error; whether that is fatal depends
// on whether a persisted index already exists.
func LoadDir(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("data directory not found", "dir", dir)
			return nil, nil
		}
		return nil, fmt.Errorf("reading data directory %s: %w", dir, err)
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		var content string
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".txt", ".md":
			data, err := os.ReadFile(path)
			if err != nil {
				slog.Warn("skipping unreadable file", "path", path, "error", err)
				continue
			}
			content = string(data)
		case ".pdf":
			text, err := readPDF(path)
			if err != nil {
				slog.Warn("skipping unreadable PDF", "path", path, "error", err)
				continue
			}
			content = text
		default:
			continue
		}

		docs = append(docs, Document{
			Content: content,
			Source:  entry.Name(),
		})
	}

	slog.Info("loaded corpus", "dir", dir, "documents", len(docs))
	return docs, nil
}
