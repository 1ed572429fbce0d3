package chunker

import (
	"strings"

	"ytrag/internal/domain"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// boundaries are tried in order; within a level the latest match wins.
var boundaries = [][]string{
	{"\n\n"},
	{"\n"},
	{". ", "? ", "! "},
	{" "},
}

// RecursiveChunker splits text into windows of at most size runes. Each window
// ends at the largest boundary found in its back half, and the next window
// starts exactly overlap runes before that cut.
type RecursiveChunker struct {
	size    int
	overlap int
}

// NewRecursiveChunker validates the window settings. An invalid combination is
// a configuration error and must be reported at startup.
func NewRecursiveChunker(size, overlap int) (*RecursiveChunker, error) {
	if size <= 0 {
		return nil, domain.ConfigError("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, domain.ConfigError("chunk overlap must not be negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, domain.ConfigError("chunk overlap %d must be smaller than chunk size %d", overlap, size)
	}
	return &RecursiveChunker{size: size, overlap: overlap}, nil
}

func (c *RecursiveChunker) Size() int    { return c.size }
func (c *RecursiveChunker) Overlap() int { return c.overlap }

// Split returns the ordered chunks of text. Empty text yields no chunks.
func (c *RecursiveChunker) Split(text string) []string {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}
	if n <= c.size {
		return []string{text}
	}
	chunks := make([]string, 0, n/(c.size-c.overlap)+1)
	start := 0
	for {
		end := start + c.size
		if end >= n {
			chunks = append(chunks, string(runes[start:]))
			return chunks
		}
		cut := c.cutPoint(runes, start, end)
		chunks = append(chunks, string(runes[start:cut]))
		start = cut - c.overlap
	}
}

// Chunk splits text and tags every piece with its source and position.
func (c *RecursiveChunker) Chunk(sourceID, text string) []domain.Chunk {
	parts := c.Split(text)
	out := make([]domain.Chunk, len(parts))
	for i, p := range parts {
		out[i] = domain.Chunk{SourceID: sourceID, Text: p, Index: i}
	}
	return out
}

// cutPoint picks where the window [start, end) should end. The cut never
// lands at or before start+overlap, so every step makes progress.
func (c *RecursiveChunker) cutPoint(runes []rune, start, end int) int {
	lowest := start + c.size/2
	if floor := start + c.overlap + 1; floor > lowest {
		lowest = floor
	}
	for _, level := range boundaries {
		best := -1
		for _, sep := range level {
			if cut := lastCut(runes, []rune(sep), lowest, end); cut > best {
				best = cut
			}
		}
		if best > 0 {
			return best
		}
	}
	return end
}

// lastCut returns the position just after the last occurrence of sep whose
// end lies in [lowest, end], or -1.
func lastCut(runes, sep []rune, lowest, end int) int {
	for i := end - len(sep); i+len(sep) >= lowest && i >= 0; i-- {
		if runesEqual(runes[i:i+len(sep)], sep) {
			return i + len(sep)
		}
	}
	return -1
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Join rebuilds the text that produced chunks under the given overlap.
// It is exact for chunks produced by Split with the same overlap.
func Join(chunks []string, overlap int) string {
	if len(chunks) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(chunks[0])
	for _, ch := range chunks[1:] {
		r := []rune(ch)
		if len(r) <= overlap {
			continue
		}
		b.WriteString(string(r[overlap:]))
	}
	return b.String()
}
