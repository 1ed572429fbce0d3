package vectorstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ytrag/internal/domain"
	"ytrag/internal/embedding"
)

const (
	DefaultTopK      = 10
	defaultBatchSize = 32
)

// Index embeds chunks and stores them in a Storage backend tagged by source.
type Index struct {
	embedder  embedding.Embedder
	store     Storage
	batchSize int
	log       *zap.Logger

	mu        sync.Mutex
	dimension int
}

// NewIndex builds an Index. batchSize <= 0 selects the default.
func NewIndex(e embedding.Embedder, s Storage, batchSize int, log *zap.Logger) *Index {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Index{embedder: e, store: s, batchSize: batchSize, log: log.Named("index")}
}

// Upsert embeds chunks in order and stores them under sourceID.
// It returns the number of records written. Re-upserting the same chunks
// adds new records.
func (x *Index) Upsert(ctx context.Context, sourceID string, chunks []string) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	written := 0
	for start := 0; start < len(chunks); start += x.batchSize {
		end := min(start+x.batchSize, len(chunks))
		vectors, err := x.embedder.EmbedBatch(ctx, chunks[start:end])
		if err != nil {
			return written, domain.Wrap(domain.ErrRetrieval, "embed chunks", err)
		}
		if len(vectors) != end-start {
			return written, domain.Wrap(domain.ErrRetrieval, "embed chunks",
				fmt.Errorf("got %d vectors for %d chunks", len(vectors), end-start))
		}
		if err := x.ensureInit(ctx, len(vectors[0])); err != nil {
			return written, err
		}
		records := make([]Record, len(vectors))
		for i, v := range vectors {
			records[i] = Record{
				ID:        uuid.NewString(),
				SourceID:  sourceID,
				Index:     start + i,
				Text:      chunks[start+i],
				Embedding: v,
			}
		}
		if err := x.store.Upsert(ctx, records); err != nil {
			return written, domain.Wrap(domain.ErrRetrieval, "store vectors", err)
		}
		written += len(records)
	}
	x.log.Debug("indexed chunks", zap.String("source", sourceID), zap.Int("count", written))
	return written, nil
}

// Query returns up to k chunks of sourceID closest to question.
// k <= 0 selects DefaultTopK.
func (x *Index) Query(ctx context.Context, sourceID, question string, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	vector, err := x.embedder.Embed(ctx, question)
	if err != nil {
		return nil, domain.Wrap(domain.ErrRetrieval, "embed question", err)
	}
	if err := x.ensureInit(ctx, len(vector)); err != nil {
		return nil, err
	}
	results, err := x.store.Search(ctx, vector, sourceID, k)
	if err != nil {
		return nil, domain.Wrap(domain.ErrRetrieval, "search vectors", err)
	}
	x.log.Debug("queried index", zap.String("source", sourceID), zap.Int("results", len(results)))
	return results, nil
}

func (x *Index) ensureInit(ctx context.Context, dimension int) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.dimension == dimension {
		return nil
	}
	if x.dimension != 0 {
		return domain.Wrap(domain.ErrRetrieval, "init store",
			fmt.Errorf("embedding dimension changed from %d to %d", x.dimension, dimension))
	}
	if err := x.store.Init(ctx, dimension); err != nil {
		return domain.Wrap(domain.ErrRetrieval, "init store", err)
	}
	x.dimension = dimension
	return nil
}
