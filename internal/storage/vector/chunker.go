package vector

import (
	"strings"
)

// Chunker splits content into overlapping windows sized for embedding
type Chunker struct {
	ChunkSize    int
	ChunkOverlap int
	MinChunkSize int
}

// NewChunker creates a chunker with the configured sizes; zero values fall
// back to defaults
func NewChunker(chunkSize, chunkOverlap, minChunkSize int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	if minChunkSize <= 0 {
		minChunkSize = 100
	}
	return &Chunker{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		MinChunkSize: minChunkSize,
	}
}

// Split breaks content into overlapping chunks. Breaks prefer a sentence
// boundary within the last 20% of the window. The cursor always advances at
// least one character, so the loop terminates on any input.
func (c *Chunker) Split(content string) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	runes := []rune(content)
	if len(runes) <= c.ChunkSize {
		return []string{content}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + c.ChunkSize
		if end >= len(runes) {
			tail := strings.TrimSpace(string(runes[start:]))
			if len(tail) >= c.MinChunkSize && tail != "" {
				chunks = append(chunks, tail)
			} else if len(chunks) > 0 && tail != "" {
				// Fold an undersized tail into the previous chunk
				chunks[len(chunks)-1] = chunks[len(chunks)-1] + " " + tail
			} else if tail != "" {
				chunks = append(chunks, tail)
			}
			break
		}

		if boundary := c.sentenceBreak(runes, start, end); boundary > start {
			end = boundary
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := end - c.ChunkOverlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// sentenceBreak looks for a sentence end within the last 20% of the window
// and returns the position just after it, or -1
func (c *Chunker) sentenceBreak(runes []rune, start, end int) int {
	searchFrom := end - c.ChunkSize/5
	if searchFrom < start {
		searchFrom = start
	}
	for i := end - 1; i > searchFrom; i-- {
		switch runes[i] {
		case '.', '!', '?', '\n':
			return i + 1
		}
	}
	return -1
}
