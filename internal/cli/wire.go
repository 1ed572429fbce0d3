package cli

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ytrag/internal/answer"
	"ytrag/internal/cache"
	"ytrag/internal/chunker"
	"ytrag/internal/config"
	"ytrag/internal/domain"
	"ytrag/internal/embedding"
	"ytrag/internal/embedding/gemini"
	"ytrag/internal/embedding/hashing"
	"ytrag/internal/embedding/openai"
	"ytrag/internal/llm"
	geminillm "ytrag/internal/llm/gemini"
	openaillm "ytrag/internal/llm/openai"
	"ytrag/internal/pipeline"
	"ytrag/internal/summarizer"
	"ytrag/internal/transcript"
	"ytrag/internal/tui"
	"ytrag/internal/vectorstore"
	"ytrag/internal/vectorstore/memory"
	"ytrag/internal/vectorstore/pgvector"
	"ytrag/internal/vectorstore/qdrant"
)

// engineFactory builds the pipeline from configuration. Tests replace it.
var engineFactory = buildEngine

// closers runs cleanup funcs in reverse order of registration.
type closers []func()

func (c *closers) add(f func()) { *c = append(*c, f) }

func (c closers) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func buildEngine(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (tui.Engine, func(), error) {
	var cl closers
	fail := func(err error) (tui.Engine, func(), error) {
		cl.run()
		return nil, nil, err
	}

	store, err := buildCache(cfg.Cache, log, &cl)
	if err != nil {
		return fail(err)
	}
	if err := store.Load(ctx); err != nil {
		return fail(fmt.Errorf("load cache: %w", err))
	}
	fetcher, err := buildFetcher(cfg.Transcript)
	if err != nil {
		return fail(err)
	}
	ch, err := chunker.NewRecursiveChunker(cfg.Chunker.Size, cfg.Chunker.Overlap)
	if err != nil {
		return fail(err)
	}
	emb, err := buildEmbedder(ctx, cfg.Embedder, &cl)
	if err != nil {
		return fail(err)
	}
	storage, err := buildStorage(ctx, cfg.VectorStore, &cl)
	if err != nil {
		return fail(err)
	}
	gen := &lazyGenerator{build: func() (llm.Generator, error) {
		return buildGenerator(ctx, cfg.LLM, &cl)
	}}

	p := pipeline.New(pipeline.Deps{
		Cache:      store,
		Fetcher:    fetcher,
		Chunker:    ch,
		Index:      vectorstore.NewIndex(emb, storage, cfg.Embedder.BatchSize, log),
		Composer:   answer.NewComposer(gen, log),
		Summarizer: summarizer.NewFrequencySummarizer(),
		Logger:     log,
	}, pipeline.Options{
		TopK:             cfg.Retrieval.TopK,
		WithTimestamps:   cfg.Transcript.Timestamps,
		SummarySentences: cfg.Retrieval.SummarySentences,
	})
	log.Debug("pipeline assembled",
		zap.String("embedder", emb.Name()),
		zap.String("vector_store", cfg.VectorStore.Type),
		zap.String("llm", cfg.LLM.Type),
		zap.String("cache", cfg.Cache.Type))
	return p, func() { cl.run() }, nil
}

func buildCache(cfg config.CacheConfig, log *zap.Logger, cl *closers) (domain.CacheStore, error) {
	switch cfg.Type {
	case "sqlite":
		s, err := cache.NewSQLiteStore(cfg.Path, log)
		if err != nil {
			return nil, err
		}
		cl.add(func() { _ = s.Close() })
		return s, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: os.Getenv("REDIS_PASSWORD")})
		cl.add(func() { _ = client.Close() })
		return cache.NewRedisStore(client, cfg.RedisPrefix, log), nil
	default:
		return cache.NewJSONFileStore(cfg.Path, log), nil
	}
}

func buildFetcher(cfg config.TranscriptConfig) (domain.TranscriptFetcher, error) {
	switch cfg.Type {
	case "file":
		return transcript.NewFileFetcher(cfg.Dir), nil
	default:
		return transcript.NewYouTubeFetcher(transcript.YouTubeConfig{
			BaseURL:  cfg.BaseURL,
			Language: cfg.Language,
			Timeout:  time.Duration(cfg.TimeoutSecs) * time.Second,
		}), nil
	}
}

func buildEmbedder(ctx context.Context, cfg config.EmbedderConfig, cl *closers) (embedding.Embedder, error) {
	switch cfg.Type {
	case "gemini":
		key, err := requireEnv(cfg.Gemini.APIKeyEnv)
		if err != nil {
			return nil, err
		}
		e, err := gemini.NewEmbedder(ctx, key, cfg.Gemini.Model)
		if err != nil {
			return nil, err
		}
		cl.add(func() { _ = e.Close() })
		return e, nil
	case "openai":
		c, err := openai.NewClient(openai.Config{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKeyEnv:  cfg.OpenAI.APIKeyEnv,
			Model:      cfg.OpenAI.Model,
			Timeout:    time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			MaxRetries: cfg.OpenAI.MaxRetries,
		})
		if err != nil {
			return nil, domain.ConfigError("openai embedder: %v", err)
		}
		return c, nil
	default:
		return hashing.NewEmbedder(cfg.Dimension), nil
	}
}

func buildStorage(ctx context.Context, cfg config.VectorStoreConfig, cl *closers) (vectorstore.Storage, error) {
	switch cfg.Type {
	case "qdrant":
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     os.Getenv(cfg.Qdrant.APIKeyEnv),
			Collection: cfg.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	case "pgvector":
		dsn, err := requireEnv(cfg.PGVector.DSNEnv)
		if err != nil {
			return nil, err
		}
		s, err := pgvector.Open(ctx, dsn, cfg.PGVector.Table)
		if err != nil {
			return nil, err
		}
		cl.add(func() { _ = s.Close() })
		return s, nil
	default:
		return memory.NewStorage(), nil
	}
}

func buildGenerator(ctx context.Context, cfg config.LLMConfig, cl *closers) (llm.Generator, error) {
	switch cfg.Type {
	case "openai":
		c, err := openaillm.NewClient(openaillm.Config{
			BaseURL:     cfg.OpenAI.BaseURL,
			APIKeyEnv:   cfg.OpenAI.APIKeyEnv,
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.Temperature,
			Timeout:     time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, domain.ConfigError("openai llm: %v", err)
		}
		return c, nil
	default:
		key, err := requireEnv(cfg.Gemini.APIKeyEnv)
		if err != nil {
			return nil, err
		}
		g, err := geminillm.NewGenerator(ctx, key, cfg.Gemini.Model, float32(cfg.Temperature))
		if err != nil {
			return nil, err
		}
		cl.add(func() { _ = g.Close() })
		return g, nil
	}
}

// lazyGenerator builds the LLM client on the first Generate call, so commands
// that never answer questions run without LLM credentials.
type lazyGenerator struct {
	build func() (llm.Generator, error)
	once  sync.Once
	gen   llm.Generator
	err   error
}

func (g *lazyGenerator) Generate(ctx context.Context, messages []domain.Message) (string, error) {
	g.once.Do(func() { g.gen, g.err = g.build() })
	if g.err != nil {
		return "", g.err
	}
	return g.gen.Generate(ctx, messages)
}

func requireEnv(name string) (string, error) {
	v := os.Getenv(name)
	if v == "" {
		return "", domain.ConfigError("environment variable %s is not set", name)
	}
	return v, nil
}
