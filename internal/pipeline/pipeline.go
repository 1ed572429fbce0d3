// Package pipeline sequences transcript ingestion and question answering
// over a single active source.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"ytrag/internal/chunker"
	"ytrag/internal/domain"
	"ytrag/internal/transcript"
)

const (
	DefaultTopK             = 10
	DefaultSummarySentences = 3
)

// Deps are the collaborators the pipeline drives. Summarizer and Logger are optional.
type Deps struct {
	Cache      domain.CacheStore
	Fetcher    domain.TranscriptFetcher
	Chunker    domain.Chunker
	Index      domain.VectorIndex
	Composer   domain.AnswerComposer
	Summarizer domain.Summarizer
	Logger     *zap.Logger
}

// Options tune retrieval and ingestion.
type Options struct {
	TopK             int
	WithTimestamps   bool
	SummarySentences int
}

// IngestResult describes a completed Submit.
type IngestResult struct {
	SourceID        string
	FromCache       bool
	Chunks          int
	Indexed         int
	TranscriptRunes int
	Summary         string
}

// Answer is a composed reply with the chunks it was grounded on.
type Answer struct {
	SourceID string
	Question string
	Text     string
	Sources  []domain.SearchResult
}

// Pipeline is the Idle → Fetching → Chunking → Indexing → Ready and
// Ready → Retrieving → Composing → Answered state machine.
// Calls must be serialized by the caller; the mutex only guards state.
type Pipeline struct {
	deps Deps
	opts Options
	log  *zap.Logger

	mu     sync.Mutex
	state  State
	active string
}

func New(deps Deps, opts Options) *Pipeline {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.SummarySentences <= 0 {
		opts.SummarySentences = DefaultSummarySentences
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{deps: deps, opts: opts, log: log.Named("pipeline")}
}

// State returns the current state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// ActiveSource returns the source questions are answered from, or "".
func (p *Pipeline) ActiveSource() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Submit makes the source named by urlOrID the active one. A cached source
// is re-indexed without fetching. A fresh transcript is cached and persisted
// before it is indexed, so a failed indexing step can be retried without a
// second fetch. On any failure the pipeline returns to Idle with no active
// source.
func (p *Pipeline) Submit(ctx context.Context, urlOrID string) (*IngestResult, error) {
	id := transcript.ExtractVideoID(urlOrID)
	if id == "" {
		p.transition(Idle, "")
		return nil, fmt.Errorf("submit: %w: empty source id", domain.ErrTranscriptNotFound)
	}
	log := p.log.With(zap.String("source", id))
	p.transition(Fetching, "")

	res, err := p.ingest(ctx, log, id)
	if err != nil {
		p.transition(Idle, "")
		log.Warn("ingestion failed", zap.Error(err))
		return nil, err
	}
	p.transition(Ready, id)
	log.Info("source ready",
		zap.Bool("from_cache", res.FromCache),
		zap.Int("chunks", res.Chunks),
		zap.Int("indexed", res.Indexed))
	return res, nil
}

func (p *Pipeline) ingest(ctx context.Context, log *zap.Logger, id string) (*IngestResult, error) {
	res := &IngestResult{SourceID: id}

	chunks, hit, err := p.deps.Cache.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}

	var text string
	if hit {
		log.Debug("cache hit", zap.Int("chunks", len(chunks)))
		res.FromCache = true
		text = chunker.Join(chunks, p.deps.Chunker.Overlap())
	} else {
		segments, err := p.deps.Fetcher.Fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		text = transcript.Normalize(segments, p.opts.WithTimestamps)

		p.transition(Chunking, "")
		chunks = p.deps.Chunker.Split(text)
		if len(chunks) == 0 {
			return nil, fmt.Errorf("chunk transcript: %w: transcript is empty", domain.ErrTranscriptNotFound)
		}
		if err := p.deps.Cache.Put(ctx, id, chunks); err != nil {
			return nil, fmt.Errorf("cache put: %w", err)
		}
		if err := p.deps.Cache.Persist(ctx); err != nil {
			return nil, fmt.Errorf("cache persist: %w", err)
		}
	}
	res.Chunks = len(chunks)
	res.TranscriptRunes = utf8.RuneCountInString(text)

	p.transition(Indexing, "")
	n, err := p.deps.Index.Upsert(ctx, id, chunks)
	if err != nil {
		return nil, err
	}
	res.Indexed = n

	if p.deps.Summarizer != nil {
		summary, err := p.deps.Summarizer.Summarize(text, p.opts.SummarySentences)
		if err != nil {
			log.Warn("summary failed", zap.Error(err))
		}
		res.Summary = summary
	}
	return res, nil
}

// Ask answers question from the active source. Without one it fails with
// ErrNoActiveSource before contacting any collaborator.
func (p *Pipeline) Ask(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	p.mu.Lock()
	id, state := p.active, p.state
	p.mu.Unlock()
	if id == "" || !state.CanAsk() {
		return nil, domain.ErrNoActiveSource
	}
	if question == "" {
		return nil, errors.New("question is empty")
	}
	log := p.log.With(zap.String("source", id))

	p.transition(Retrieving, id)
	results, err := p.deps.Index.Query(ctx, id, question, p.opts.TopK)
	if err != nil {
		p.transition(Ready, id)
		return nil, err
	}
	log.Debug("retrieved context", zap.Int("results", len(results)))

	p.transition(Composing, id)
	text, err := p.deps.Composer.Compose(ctx, question, results)
	if err != nil {
		p.transition(Ready, id)
		return nil, err
	}
	p.transition(Answered, id)
	return &Answer{SourceID: id, Question: question, Text: text, Sources: results}, nil
}

func (p *Pipeline) transition(to State, active string) {
	p.mu.Lock()
	from := p.state
	p.state, p.active = to, active
	p.mu.Unlock()
	if from != to {
		p.log.Debug("state change", zap.Stringer("from", from), zap.Stringer("to", to))
	}
}
