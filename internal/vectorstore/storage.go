package vectorstore

import (
	"context"

	"ytrag/internal/domain"
)

// Record is one embedded chunk as held by a backend.
type Record struct {
	ID        string
	SourceID  string
	Index     int
	Text      string
	Embedding []float32
}

// Storage persists vectors and supports similarity search scoped to a source.
// Init is idempotent; it creates the collection or table when missing.
type Storage interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, records []Record) error
	// Search returns at most k records whose SourceID equals sourceID, by
	// descending score with ties in insertion order.
	Search(ctx context.Context, vector []float32, sourceID string, k int) ([]domain.SearchResult, error)
}
