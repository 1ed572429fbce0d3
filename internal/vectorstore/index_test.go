package vectorstore_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytrag/internal/chunker"
	"ytrag/internal/domain"
	"ytrag/internal/embedding/hashing"
	"ytrag/internal/vectorstore"
	"ytrag/internal/vectorstore/memory"
)

type failingEmbedder struct{ *hashing.Embedder }

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("quota exceeded")
}

func (failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("quota exceeded")
}

type failingStore struct{ vectorstore.Storage }

func (failingStore) Init(context.Context, int) error { return nil }

func (failingStore) Upsert(context.Context, []vectorstore.Record) error {
	return errors.New("connection refused")
}

func newIndex() (*vectorstore.Index, *memory.Storage) {
	store := memory.NewStorage()
	return vectorstore.NewIndex(hashing.NewEmbedder(256), store, 2, nil), store
}

func TestIndex_UpsertAndQueryScopedToSource(t *testing.T) {
	ctx := context.Background()
	idx, store := newIndex()

	n, err := idx.Upsert(ctx, "cooking", []string{
		"Whisk the eggs with sugar until pale.",
		"Bake the sponge for thirty minutes.",
		"Let the cake cool before slicing.",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	_, err = idx.Upsert(ctx, "physics", []string{"Eggs and sugar appear in no equation of motion."})
	require.NoError(t, err)
	assert.Equal(t, 4, store.Len())

	res, err := idx.Query(ctx, "cooking", "how long to bake the sponge?", 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "Bake the sponge for thirty minutes.", res[0].Chunk.Text)
	assert.Equal(t, 1, res[0].Chunk.Index)
	for _, r := range res {
		assert.Equal(t, "cooking", r.Chunk.SourceID)
	}
}

func TestIndex_ReupsertDuplicates(t *testing.T) {
	ctx := context.Background()
	idx, store := newIndex()
	chunks := []string{"alpha beta", "gamma delta"}

	_, err := idx.Upsert(ctx, "s", chunks)
	require.NoError(t, err)
	_, err = idx.Upsert(ctx, "s", chunks)
	require.NoError(t, err)

	assert.Equal(t, 4, store.Len())
}

func TestIndex_EmptyUpsert(t *testing.T) {
	idx, store := newIndex()
	n, err := idx.Upsert(context.Background(), "s", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, store.Len())
}

func TestIndex_QueryUnknownSource(t *testing.T) {
	idx, _ := newIndex()
	res, err := idx.Query(context.Background(), "never-seen", "anything", 0)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestIndex_FailuresAreRetrievalErrors(t *testing.T) {
	ctx := context.Background()

	idx := vectorstore.NewIndex(failingEmbedder{hashing.NewEmbedder(8)}, memory.NewStorage(), 0, nil)
	_, err := idx.Upsert(ctx, "s", []string{"x"})
	assert.ErrorIs(t, err, domain.ErrRetrieval)
	_, err = idx.Query(ctx, "s", "x", 3)
	assert.ErrorIs(t, err, domain.ErrRetrieval)

	idx = vectorstore.NewIndex(hashing.NewEmbedder(8), failingStore{}, 0, nil)
	_, err = idx.Upsert(ctx, "s", []string{"x"})
	assert.ErrorIs(t, err, domain.ErrRetrieval)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIndex_TwentyFourHundredCharScenario(t *testing.T) {
	ctx := context.Background()
	text := strings.Repeat("a", 2400)
	c, err := chunker.NewRecursiveChunker(1000, 200)
	require.NoError(t, err)
	chunks := c.Split(text)
	require.Len(t, chunks, 3)
	assert.Equal(t, chunks[0][800:1000], chunks[1][0:200])

	idx, _ := newIndex()
	_, err = idx.Upsert(ctx, "abc123", chunks)
	require.NoError(t, err)
	_, err = idx.Upsert(ctx, "other", []string{"a b c", "aaaa"})
	require.NoError(t, err)

	res, err := idx.Query(ctx, "abc123", "what is the main topic?", 10)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(res), 10)
	assert.Len(t, res, 3)
	for i, r := range res {
		assert.Equal(t, "abc123", r.Chunk.SourceID)
		if i > 0 {
			assert.GreaterOrEqual(t, res[i-1].Score, r.Score)
		}
	}
}
