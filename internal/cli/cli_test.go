package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ytrag/internal/config"
	"ytrag/internal/domain"
	"ytrag/internal/llm"
	"ytrag/internal/pipeline"
	"ytrag/internal/tui"
)

type stubEngine struct {
	submitted []string
	err       error
}

func (s *stubEngine) Submit(_ context.Context, id string) (*pipeline.IngestResult, error) {
	s.submitted = append(s.submitted, id)
	if s.err != nil {
		return nil, s.err
	}
	return &pipeline.IngestResult{SourceID: id, FromCache: true, Chunks: 3, Indexed: 3, TranscriptRunes: 2400, Summary: "Short summary."}, nil
}

func (s *stubEngine) Ask(_ context.Context, q string) (*pipeline.Answer, error) {
	return &pipeline.Answer{Question: q, Text: "stub answer"}, nil
}

func (s *stubEngine) ActiveSource() string { return "" }

// run executes the root command with args and returns its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		askJSON, askShowSources, verbose, configPath = false, false, false, ""
		logCleanup()
	}()
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func withEngine(t *testing.T, e tui.Engine) {
	t.Helper()
	orig := engineFactory
	engineFactory = func(context.Context, *config.AppConfig, *zap.Logger) (tui.Engine, func(), error) {
		return e, func() {}, nil
	}
	t.Cleanup(func() { engineFactory = orig })
}

func TestCommands_Metadata(t *testing.T) {
	assert.Equal(t, "ingest [url]", ingestCmd.Use)
	assert.Equal(t, "ask [url] [question]", askCmd.Use)
	assert.Contains(t, chatCmd.Long, "/video")

	flag := askCmd.Flags().Lookup("json")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
}

func TestAsk_RequiresTwoArgs(t *testing.T) {
	cfg := writeConfig(t, "log:\n  level: error\n")
	_, err := run(t, "ask", "--config", cfg, "abc123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg(s)")
}

func TestIngest_PrintsSummary(t *testing.T) {
	e := &stubEngine{}
	withEngine(t, e)
	cfg := writeConfig(t, "log:\n  level: error\n")

	out, err := run(t, "ingest", "--config", cfg, "https://www.youtube.com/watch?v=abc123")

	require.NoError(t, err)
	assert.Equal(t, []string{"https://www.youtube.com/watch?v=abc123"}, e.submitted)
	assert.Contains(t, out, "(cached)")
	assert.Contains(t, out, "Chunks:  3 (3 indexed)")
	assert.Contains(t, out, "Short summary.")
}

func TestIngest_PropagatesError(t *testing.T) {
	withEngine(t, &stubEngine{err: domain.ErrTranscriptNotFound})
	cfg := writeConfig(t, "log:\n  level: error\n")

	_, err := run(t, "ingest", "--config", cfg, "nope")
	assert.ErrorIs(t, err, domain.ErrTranscriptNotFound)
}

func TestInvalidConfigFails(t *testing.T) {
	cfg := writeConfig(t, "chunker:\n  size: 10\n  overlap: 20\n")
	_, err := run(t, "ingest", "--config", cfg, "abc123")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestChat_PassesInitialURL(t *testing.T) {
	withEngine(t, &stubEngine{})
	var got tea.Model
	orig := runProgram
	runProgram = func(m tea.Model) error {
		got = m
		return nil
	}
	t.Cleanup(func() { runProgram = orig })
	cfg := writeConfig(t, "log:\n  level: error\n")

	_, err := run(t, "chat", "--config", cfg, "abc123")

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.NotNil(t, got.Init())
}

func TestAsk_EndToEndWithLocalBackends(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "talk42.json"), []byte(`[
		{"text":"Welcome to this talk about Go concurrency.","start":0,"duration":3},
		{"text":"Goroutines are cheap threads managed by the runtime.","start":3,"duration":4},
		{"text":"Channels let goroutines communicate without shared memory.","start":7,"duration":4},
		{"text":"Finally, the select statement waits on several channels at once.","start":11,"duration":5}
	]`), 0o644))

	var prompts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompts = append(prompts, req.Messages[len(req.Messages)-1].Content)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Channels."}}]}`))
	}))
	defer srv.Close()

	cfg := writeConfig(t, fmt.Sprintf(`
transcript:
  type: file
  dir: %s
chunker:
  size: 80
  overlap: 16
embedder:
  type: hashing
vector_store:
  type: memory
llm:
  type: openai
  openai:
    base_url: %s
cache:
  type: json
  path: %s
retrieval:
  top_k: 2
log:
  level: error
`, dir, srv.URL, filepath.Join(dir, "data.json")))

	out, err := run(t, "ask", "--config", cfg, "--json", "talk42", "How do goroutines communicate?")
	require.NoError(t, err)

	var got answerJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "talk42", got.SourceID)
	assert.Equal(t, "Channels.", got.Answer)
	assert.Len(t, got.Sources, 2)
	require.Len(t, prompts, 1)
	assert.True(t, strings.HasPrefix(prompts[0], "Context:\n"))
	assert.True(t, strings.HasSuffix(prompts[0], "\n\nQuestion: How do goroutines communicate?"))

	_, err = os.Stat(filepath.Join(dir, "data.json"))
	assert.NoError(t, err)
}

func TestIsChat(t *testing.T) {
	assert.True(t, isChat(rootCmd))
	assert.True(t, isChat(chatCmd))
	assert.False(t, isChat(ingestCmd))
	assert.False(t, isChat(askCmd))
}

func writeTalk(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "talk7.json"), []byte(`[
		{"text":"Today we look at how caches expire entries.","start":0,"duration":3},
		{"text":"A time to live removes stale values automatically.","start":3,"duration":4}
	]`), 0o644))
}

func localConfig(t *testing.T, dir string) string {
	t.Helper()
	return writeConfig(t, fmt.Sprintf(`
transcript:
  type: file
  dir: %s
cache:
  type: json
  path: %s
log:
  level: error
`, dir, filepath.Join(dir, "data.json")))
}

func TestIngest_DoesNotNeedLLMKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	dir := t.TempDir()
	writeTalk(t, dir)

	out, err := run(t, "ingest", "--config", localConfig(t, dir), "talk7")

	require.NoError(t, err)
	assert.Contains(t, out, "Video:   talk7")
	assert.Contains(t, out, "Chunks:")
}

func TestAsk_MissingLLMKeyIsConfigError(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	dir := t.TempDir()
	writeTalk(t, dir)

	_, err := run(t, "ask", "--config", localConfig(t, dir), "talk7", "What removes stale values?")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "GOOGLE_API_KEY")
}

type countingGenerator struct{ calls int }

func (g *countingGenerator) Generate(context.Context, []domain.Message) (string, error) {
	g.calls++
	return "ok", nil
}

func TestLazyGenerator_BuildsOnce(t *testing.T) {
	builds := 0
	inner := &countingGenerator{}
	g := &lazyGenerator{build: func() (llm.Generator, error) {
		builds++
		return inner, nil
	}}
	assert.Equal(t, 0, builds)

	for i := 0; i < 3; i++ {
		got, err := g.Generate(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
	}
	assert.Equal(t, 1, builds)
	assert.Equal(t, 3, inner.calls)
}

func TestLazyGenerator_KeepsBuildError(t *testing.T) {
	builds := 0
	g := &lazyGenerator{build: func() (llm.Generator, error) {
		builds++
		return nil, domain.ConfigError("no key")
	}}

	_, err := g.Generate(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	_, err = g.Generate(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Equal(t, 1, builds)
}
