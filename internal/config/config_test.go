package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytrag/internal/domain"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Chunker.Size)
	assert.Equal(t, 200, cfg.Chunker.Overlap)
	assert.Equal(t, 10, cfg.Retrieval.TopK)
	assert.Equal(t, "youtube", cfg.Transcript.Type)
	assert.Equal(t, "json", cfg.Cache.Type)
	assert.Equal(t, "data.json", filepath.Base(cfg.Cache.Path))
	assert.Equal(t, "GOOGLE_API_KEY", cfg.LLM.Gemini.APIKeyEnv)
	require.NoError(t, cfg.Validate())
}

func TestLoad_OverridesAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
chunker:
  size: 500
  overlap: 50
embedder:
  type: openai
  openai:
    base_url: http://localhost:11434/v1
    model: nomic-embed-text
vector_store:
  type: qdrant
llm:
  type: openai
cache:
  type: sqlite
retrieval:
  top_k: 4
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Chunker.Size)
	assert.Equal(t, 4, cfg.Retrieval.TopK)
	assert.Equal(t, "nomic-embed-text", cfg.Embedder.OpenAI.Model)
	assert.Empty(t, cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, "OPENAI_API_KEY", cfg.LLM.OpenAI.APIKeyEnv)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.OpenAI.Model)
	assert.Equal(t, "http://localhost:6333", cfg.VectorStore.Qdrant.URL)
	assert.Equal(t, "cache.db", filepath.Base(cfg.Cache.Path))
}

func TestLoad_InvalidChunkerIsConfigurationError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunker:\n  size: 100\n  overlap: 100\n"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunker: [\n"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"zero size", func(c *AppConfig) { c.Chunker.Size = 0 }},
		{"negative overlap", func(c *AppConfig) { c.Chunker.Overlap = -1 }},
		{"zero top_k", func(c *AppConfig) { c.Retrieval.TopK = 0 }},
		{"unknown embedder", func(c *AppConfig) { c.Embedder.Type = "tfidf" }},
		{"unknown store", func(c *AppConfig) { c.VectorStore.Type = "pinecone" }},
		{"unknown cache", func(c *AppConfig) { c.Cache.Type = "s3" }},
		{"file fetcher without dir", func(c *AppConfig) { c.Transcript.Type = "file" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), domain.ErrConfiguration)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Retrieval.TopK = 7
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Retrieval.TopK)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("YTRAG_TEST_FROM_DOTENV=loaded\n"), 0o600))
	t.Setenv("YTRAG_TEST_FROM_DOTENV", "")
	require.NoError(t, os.Unsetenv("YTRAG_TEST_FROM_DOTENV"))

	require.NoError(t, LoadEnv(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "loaded", os.Getenv("YTRAG_TEST_FROM_DOTENV"))
}
