package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ytrag/internal/domain"
)

// TranscriptConfig selects where transcripts come from.
type TranscriptConfig struct {
	Type        string `yaml:"type"`
	Language    string `yaml:"lang"`
	BaseURL     string `yaml:"base_url,omitempty"`
	Dir         string `yaml:"dir,omitempty"`
	Timestamps  bool   `yaml:"timestamps"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// ChunkerConfig configures how transcripts are split into chunks.
type ChunkerConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// OpenAIConfig holds settings shared by the OpenAI-compatible clients.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries,omitempty"`
}

// GeminiConfig names the model and the env var holding the API key.
type GeminiConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type      string        `yaml:"type"`
	Dimension int           `yaml:"dimension,omitempty"`
	BatchSize int           `yaml:"batch_size,omitempty"`
	Gemini    *GeminiConfig `yaml:"gemini,omitempty"`
	OpenAI    *OpenAIConfig `yaml:"openai,omitempty"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type     string          `yaml:"type"`
	Qdrant   *QdrantConfig   `yaml:"qdrant,omitempty"`
	PGVector *PGVectorConfig `yaml:"pgvector,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// PGVectorConfig contains connection details for a Postgres/pgvector store.
type PGVectorConfig struct {
	DSNEnv string `yaml:"dsn_env"`
	Table  string `yaml:"table"`
}

// LLMConfig selects and configures the answer generator.
type LLMConfig struct {
	Type        string        `yaml:"type"`
	Temperature float64       `yaml:"temperature"`
	Gemini      *GeminiConfig `yaml:"gemini,omitempty"`
	OpenAI      *OpenAIConfig `yaml:"openai,omitempty"`
}

// CacheConfig selects the transcript cache backend.
type CacheConfig struct {
	Type        string `yaml:"type"`
	Path        string `yaml:"path"`
	RedisAddr   string `yaml:"redis_addr,omitempty"`
	RedisPrefix string `yaml:"redis_prefix,omitempty"`
}

// RetrievalConfig tunes the question flow.
type RetrievalConfig struct {
	TopK             int `yaml:"top_k"`
	SummarySentences int `yaml:"summary_sentences"`
}

// LogConfig configures the application logger.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Transcript  TranscriptConfig  `yaml:"transcript"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	LLM         LLMConfig         `yaml:"llm"`
	Cache       CacheConfig       `yaml:"cache"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Log         LogConfig         `yaml:"log"`
}

// LoadEnv reads KEY=VALUE pairs from the given .env files (./.env when none
// are given) into the process environment. Missing files are ignored and
// variables already set win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyConfigDefaults(cfg)
			return cfg, nil
		}
		return nil, err
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, domain.ConfigError("parse %s: %v", path, err)
	}
	applyConfigDefaults(cfg)
	return cfg, cfg.Validate()
}

// LoadDefault tries ./config.yaml first, then ~/.config/ytrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/ytrag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyConfigDefaults(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports settings that cannot work as ErrConfiguration.
func (c *AppConfig) Validate() error {
	if c.Chunker.Size <= 0 {
		return domain.ConfigError("chunker.size must be positive, got %d", c.Chunker.Size)
	}
	if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.Size {
		return domain.ConfigError("chunker.overlap must be in [0, %d), got %d", c.Chunker.Size, c.Chunker.Overlap)
	}
	if c.Retrieval.TopK <= 0 {
		return domain.ConfigError("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	checks := []struct {
		field, value string
		allowed      []string
	}{
		{"transcript.type", c.Transcript.Type, []string{"youtube", "file"}},
		{"embedder.type", c.Embedder.Type, []string{"hashing", "gemini", "openai"}},
		{"vector_store.type", c.VectorStore.Type, []string{"memory", "qdrant", "pgvector"}},
		{"llm.type", c.LLM.Type, []string{"gemini", "openai"}},
		{"cache.type", c.Cache.Type, []string{"json", "sqlite", "redis"}},
		{"log.level", c.Log.Level, []string{"debug", "info", "warn", "error"}},
	}
	for _, ch := range checks {
		if !oneOf(ch.value, ch.allowed) {
			return domain.ConfigError("unknown %s %q (want one of %v)", ch.field, ch.value, ch.allowed)
		}
	}
	if c.Transcript.Type == "file" && c.Transcript.Dir == "" {
		return domain.ConfigError("transcript.dir is required for the file fetcher")
	}
	if c.VectorStore.Type == "qdrant" && (c.VectorStore.Qdrant == nil || c.VectorStore.Qdrant.URL == "") {
		return domain.ConfigError("vector_store.qdrant.url is required")
	}
	return nil
}

// DataDir is where the cache lives by default.
func DataDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "ytrag")
	}
	return ".ytrag"
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ytrag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Transcript:  TranscriptConfig{Type: "youtube", Language: "en", TimeoutSecs: 20},
		Chunker:     ChunkerConfig{Size: 1000, Overlap: 200},
		Embedder:    EmbedderConfig{Type: "hashing"},
		VectorStore: VectorStoreConfig{Type: "memory"},
		LLM:         LLMConfig{Type: "gemini", Temperature: 0.2},
		Cache:       CacheConfig{Type: "json"},
		Retrieval:   RetrievalConfig{TopK: 10, SummarySentences: 3},
		Log:         LogConfig{Level: "info"},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "gemini" || cfg.LLM.Type == "gemini" {
		for _, g := range []**GeminiConfig{&cfg.Embedder.Gemini, &cfg.LLM.Gemini} {
			if *g == nil {
				*g = &GeminiConfig{}
			}
			if (*g).APIKeyEnv == "" {
				(*g).APIKeyEnv = "GOOGLE_API_KEY"
			}
		}
	}
	if cfg.Embedder.Type == "openai" {
		cfg.Embedder.OpenAI = openAIDefaults(cfg.Embedder.OpenAI, "text-embedding-3-small", 30)
	}
	if cfg.LLM.Type == "openai" {
		cfg.LLM.OpenAI = openAIDefaults(cfg.LLM.OpenAI, "gpt-4o-mini", 60)
	}
	switch cfg.VectorStore.Type {
	case "qdrant":
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		q := cfg.VectorStore.Qdrant
		if q.URL == "" {
			q.URL = "http://localhost:6333"
		}
		if q.APIKeyEnv == "" {
			q.APIKeyEnv = "QDRANT_API_KEY"
		}
		if q.Collection == "" {
			q.Collection = "ytrag_transcripts"
		}
		if q.TimeoutSecs == 0 {
			q.TimeoutSecs = 15
		}
	case "pgvector":
		if cfg.VectorStore.PGVector == nil {
			cfg.VectorStore.PGVector = &PGVectorConfig{}
		}
		if cfg.VectorStore.PGVector.DSNEnv == "" {
			cfg.VectorStore.PGVector.DSNEnv = "DATABASE_URL"
		}
	}
	if cfg.Cache.Type == "redis" && cfg.Cache.RedisAddr == "" {
		cfg.Cache.RedisAddr = "localhost:6379"
	}
	if cfg.Cache.Path == "" {
		name := "data.json"
		if cfg.Cache.Type == "sqlite" {
			name = "cache.db"
		}
		cfg.Cache.Path = filepath.Join(DataDir(), name)
	}
}

func openAIDefaults(c *OpenAIConfig, model string, timeout int) *OpenAIConfig {
	if c == nil {
		c = &OpenAIConfig{}
	}
	// A custom base URL (e.g. a local Ollama) may need no key at all.
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
		if c.APIKeyEnv == "" {
			c.APIKeyEnv = "OPENAI_API_KEY"
		}
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = timeout
	}
	return c
}
