package corpus

// Split cuts each document into windows of at most chunkSize characters.
// Consecutive windows from the same document share chunkOverlap trailing
// characters: window i+1 starts chunkOverlap characters before window i
// ends. Cuts prefer paragraph boundaries, then line boundaries, then
// word boundaries, and fall back to a hard character cut when the
// window holds none. The output is fully determined by the input and
// parameters, so an index built from it can be rebuilt byte-identical.
//
// chunkSize must be positive and chunkOverlap must be in
// [0, chunkSize); config.Load enforces this.
func Split(docs []Document, chunkSize, chunkOverlap int) []Chunk {
	var chunks []Chunk
	for _, d := range docs {
		for _, text := range splitText(d.Content, chunkSize, chunkOverlap) {
			chunks = append(chunks, Chunk{Text: text, Source: d.Source})
		}
	}
	return chunks
}

func splitText(content string, size, overlap int) []string {
	runes := []rune(content)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= size {
		return []string{content}
	}

	var out []string
	start := 0
	for {
		end := start + size
		if end >= len(runes) {
			out = append(out, string(runes[start:]))
			break
		}
		cut := breakPoint(runes, start, end, overlap)
		out = append(out, string(runes[start:cut]))
		start = cut - overlap
	}
	return out
}

// breakPoint picks the cut position for the window runes[start:end].
// The separator stays with the earlier chunk. Candidates closer than
// overlap+1 to the window start are rejected so the next window always
// advances past the current one.
func breakPoint(runes []rune, start, end, overlap int) int {
	min := start + overlap + 1

	for p := end; p >= min; p-- {
		if p >= 2 && runes[p-1] == '\n' && runes[p-2] == '\n' {
			return p
		}
	}
	for p := end; p >= min; p-- {
		if runes[p-1] == '\n' {
			return p
		}
	}
	for p := end; p >= min; p-- {
		if runes[p-1] == ' ' {
			return p
		}
	}
	return end
}
