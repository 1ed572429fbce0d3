package domain

import (
	"context"
	"time"
)

// Segment is one timed piece of a transcript as returned by a fetcher.
type Segment struct {
	Text     string
	Start    time.Duration
	Duration time.Duration
}

// Chunk is a bounded slice of a source's transcript used as the unit of retrieval.
type Chunk struct {
	SourceID string
	Text     string
	Index    int
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// CacheEntry is the persisted form of a processed source.
type CacheEntry struct {
	SourceID string   `json:"videoId"`
	Chunks   []string `json:"transcript"`
}

// Role names the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn sent to a language model or shown in a session.
type Message struct {
	Role    Role
	Content string
}

// CacheStore keeps previously processed sources so they are not fetched twice.
// Put only changes the in-process view; Persist makes it durable.
type CacheStore interface {
	Load(ctx context.Context) error
	Get(ctx context.Context, sourceID string) ([]string, bool, error)
	Put(ctx context.Context, sourceID string, chunks []string) error
	Persist(ctx context.Context) error
}

// TranscriptFetcher returns the timed transcript of a source.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, sourceID string) ([]Segment, error)
}

// Chunker splits text into overlapping windows suitable for indexing.
type Chunker interface {
	Split(text string) []string
	Overlap() int
}

// VectorIndex stores chunk embeddings tagged by source and answers
// nearest-neighbour queries scoped to one source.
type VectorIndex interface {
	Upsert(ctx context.Context, sourceID string, chunks []string) (int, error)
	Query(ctx context.Context, sourceID, question string, k int) ([]SearchResult, error)
}

// AnswerComposer turns a question and retrieved context into a grounded answer.
type AnswerComposer interface {
	Compose(ctx context.Context, question string, results []SearchResult) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
