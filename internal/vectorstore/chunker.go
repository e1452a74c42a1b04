package vectorstore

import "strings"

const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
)

// Split cuts text into rune windows of size with overlap runes shared
// between neighbours. Whitespace-only chunks are dropped.
func Split(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	chunks := make([]string, 0, len(runes)/size+1)
	step := size - overlap
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		if c := strings.TrimSpace(string(runes[start:end])); c != "" {
			chunks = append(chunks, c)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}
