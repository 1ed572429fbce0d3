package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytrag/internal/domain"
)

func mustChunker(t *testing.T, size, overlap int) *RecursiveChunker {
	t.Helper()
	c, err := NewRecursiveChunker(size, overlap)
	require.NoError(t, err)
	return c
}

func prose(words int) string {
	vocab := []string{"the", "speaker", "explains", "gradient", "descent", "and", "then", "moves", "to", "backpropagation"}
	var b strings.Builder
	for i := 0; i < words; i++ {
		if i > 0 {
			switch {
			case i%97 == 0:
				b.WriteString(".\n\n")
			case i%13 == 0:
				b.WriteString(". ")
			default:
				b.WriteString(" ")
			}
		}
		b.WriteString(vocab[i%len(vocab)])
	}
	return b.String()
}

func TestNewRecursiveChunker_RejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
	}{
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
		{"zero size", 0, 0},
		{"negative overlap", 10, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewRecursiveChunker(tt.size, tt.overlap)
			assert.Nil(t, c)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}

func TestSplit_EmptyText(t *testing.T) {
	c := mustChunker(t, 100, 20)
	assert.Empty(t, c.Split(""))
}

func TestSplit_ShortTextIsSingleChunk(t *testing.T) {
	c := mustChunker(t, 100, 20)
	text := "A short transcript."
	assert.Equal(t, []string{text}, c.Split(text))

	exact := strings.Repeat("x", 100)
	assert.Equal(t, []string{exact}, c.Split(exact))
}

func TestSplit_HardCutScenario(t *testing.T) {
	c := mustChunker(t, 1000, 200)
	text := strings.Repeat("abcdefghij", 240)
	require.Equal(t, 2400, len(text))

	chunks := c.Split(text)

	require.Len(t, chunks, 3)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len(ch), 1000)
	}
	assert.Equal(t, chunks[0][800:1000], chunks[1][0:200])
	assert.Equal(t, chunks[1][800:1000], chunks[2][0:200])
}

func TestSplit_PrefersParagraphBoundary(t *testing.T) {
	c := mustChunker(t, 50, 10)
	text := "Para one is here and long enough.\n\nSecond paragraph text goes on and on and on."

	chunks := c.Split(text)

	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, "Para one is here and long enough.\n\n", chunks[0])
}

func TestSplit_PrefersSentenceOverWord(t *testing.T) {
	c := mustChunker(t, 40, 5)
	text := "First sentence is right here. Second one follows after it."

	chunks := c.Split(text)

	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, "First sentence is right here. ", chunks[0])
}

func TestSplit_FallsBackToWordBoundary(t *testing.T) {
	c := mustChunker(t, 20, 0)
	text := "alpha beta gamma delta epsilon zeta eta theta"

	chunks := c.Split(text)

	assert.Equal(t, "alpha beta gamma ", chunks[0])
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestSplit_IgnoresBoundaryInFrontHalf(t *testing.T) {
	c := mustChunker(t, 40, 4)
	text := "Hi.\n\n" + strings.Repeat("y", 80)

	chunks := c.Split(text)

	assert.Len(t, []rune(chunks[0]), 40)
}

func TestSplit_CoverageAndOverlap(t *testing.T) {
	settings := []struct{ size, overlap int }{
		{1000, 200},
		{300, 50},
		{120, 0},
		{64, 63},
		{10, 3},
	}
	text := prose(900)
	for _, s := range settings {
		t.Run(fmt.Sprintf("size=%d overlap=%d", s.size, s.overlap), func(t *testing.T) {
			c := mustChunker(t, s.size, s.overlap)
			chunks := c.Split(text)
			require.NotEmpty(t, chunks)

			assert.Equal(t, text, Join(chunks, s.overlap))
			for i, ch := range chunks {
				assert.LessOrEqual(t, utf8.RuneCountInString(ch), s.size, "chunk %d too long", i)
			}
			for i := 0; i+1 < len(chunks); i++ {
				cur, next := []rune(chunks[i]), []rune(chunks[i+1])
				require.Greater(t, len(cur), s.overlap)
				assert.Equal(t, string(cur[len(cur)-s.overlap:]), string(next[:s.overlap]), "boundary %d", i)
			}
		})
	}
}

func TestSplit_Deterministic(t *testing.T) {
	c := mustChunker(t, 200, 40)
	text := prose(500)
	assert.Equal(t, c.Split(text), c.Split(text))
}

func TestSplit_CountsRunesNotBytes(t *testing.T) {
	c := mustChunker(t, 10, 2)
	text := strings.Repeat("héllo wörld ", 10)

	chunks := c.Split(text)

	for _, ch := range chunks {
		assert.True(t, utf8.ValidString(ch))
		assert.LessOrEqual(t, utf8.RuneCountInString(ch), 10)
	}
	assert.Equal(t, text, Join(chunks, 2))
}

func TestChunk_TagsSourceAndIndex(t *testing.T) {
	c := mustChunker(t, 1000, 200)
	chunks := c.Chunk("abc123", strings.Repeat("z", 2400))

	require.Len(t, chunks, 3)
	for i, ch := range chunks {
		assert.Equal(t, "abc123", ch.SourceID)
		assert.Equal(t, i, ch.Index)
	}
}

func TestJoin_Empty(t *testing.T) {
	assert.Equal(t, "", Join(nil, 10))
}
