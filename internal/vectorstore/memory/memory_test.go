package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytrag/internal/vectorstore"
)

func rec(source string, idx int, v ...float32) vectorstore.Record {
	return vectorstore.Record{SourceID: source, Index: idx, Text: source, Embedding: v}
}

func TestInit(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	assert.Error(t, s.Init(ctx, 0))
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Init(ctx, 2))
	assert.Error(t, s.Init(ctx, 3))
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	s := NewStorage()
	require.NoError(t, s.Init(context.Background(), 2))
	err := s.Upsert(context.Background(), []vectorstore.Record{rec("a", 0, 1, 0), rec("a", 1, 1)})
	assert.Error(t, err)
	assert.Zero(t, s.Len())
}

func TestSearch_ScopedAndOrdered(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, []vectorstore.Record{
		rec("a", 0, 0, 1),
		rec("b", 0, 1, 0),
		rec("a", 1, 1, 0),
		rec("a", 2, 1, 1),
	}))

	res, err := s.Search(ctx, []float32{1, 0}, "a", 10)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, []int{1, 2, 0}, []int{res[0].Chunk.Index, res[1].Chunk.Index, res[2].Chunk.Index})
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)
	for _, r := range res {
		assert.Equal(t, "a", r.Chunk.SourceID)
	}

	res, err = s.Search(ctx, []float32{1, 0}, "a", 2)
	require.NoError(t, err)
	assert.Len(t, res, 2)

	res, err = s.Search(ctx, []float32{1, 0}, "unknown", 5)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Init(ctx, 2))
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Upsert(ctx, []vectorstore.Record{rec("a", i, 1, 1)}))
	}

	res, err := s.Search(ctx, []float32{1, 1}, "a", 10)
	require.NoError(t, err)
	for i, r := range res {
		assert.Equal(t, i, r.Chunk.Index)
	}
}

func TestSearch_ZeroVector(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, []vectorstore.Record{rec("a", 0, 1, 0)}))

	res, err := s.Search(ctx, []float32{0, 0}, "a", 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Zero(t, res[0].Score)
}
