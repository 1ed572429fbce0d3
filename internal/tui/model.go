package tui

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ytrag/internal/domain"
	"ytrag/internal/pipeline"
)

// Engine is the TUI-facing subset of the pipeline.
type Engine interface {
	Submit(ctx context.Context, urlOrID string) (*pipeline.IngestResult, error)
	Ask(ctx context.Context, question string) (*pipeline.Answer, error)
	ActiveSource() string
}

type ingestedMsg struct {
	res *pipeline.IngestResult
	err error
}

type answeredMsg struct {
	ans *pipeline.Answer
	err error
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	ctx         context.Context
	engine      Engine
	input       textinput.Model
	viewport    viewport.Model
	session     Session
	summary     string
	status      string
	busy        bool
	showSources bool
	cursor      int
	ready       bool
	lastQuery   string
}

// New creates a new TUI model. A non-empty initial URL is loaded on start.
func New(ctx context.Context, engine Engine, initial string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Paste a YouTube URL or video id"
	ti.Focus()
	ti.CharLimit = 0
	if initial != "" {
		ti.SetValue(initial)
	}
	vp := viewport.New(0, 0)
	return Model{
		ctx:      ctx,
		engine:   engine,
		input:    ti,
		viewport: vp,
		status:   "Enter a video to start. /video <url> switches, /clear resets, ctrl+s shows sources.",
	}
}

// Init starts the cursor blink and loads the initial video, if any.
func (m Model) Init() tea.Cmd {
	if v := strings.TrimSpace(m.input.Value()); v != "" {
		return tea.Batch(textinput.Blink, m.submit(v))
	}
	return textinput.Blink
}

// Update handles key, window and pipeline events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := chatBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 3 + 1 + ih // header, source, summary + status + input box
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-ch)
		m.refresh()
		return m, nil

	case ingestedMsg:
		m.busy = false
		m.input.Reset()
		if msg.err != nil {
			m.session.SourceID = ""
			m.summary = ""
			m.status = describeError(msg.err)
			m.refresh()
			return m, nil
		}
		if msg.res.SourceID != m.session.SourceID {
			m.session.clear()
		}
		m.session.SourceID = msg.res.SourceID
		m.summary = msg.res.Summary
		origin := "fetched"
		if msg.res.FromCache {
			origin = "loaded from cache"
		}
		m.status = fmt.Sprintf("Transcript %s: %d runes, %d chunks indexed. Ask a question.",
			origin, msg.res.TranscriptRunes, msg.res.Indexed)
		m.refresh()
		return m, nil

	case answeredMsg:
		m.busy = false
		if msg.err != nil {
			m.status = describeError(msg.err)
			m.refresh()
			return m, nil
		}
		m.session.add(Turn{Role: domain.RoleAssistant, Content: msg.ans.Text, Sources: msg.ans.Sources})
		m.lastQuery = msg.ans.Question
		m.cursor = 0
		m.status = fmt.Sprintf("Answered from %d source chunks.", len(msg.ans.Sources))
		m.refresh()
		m.viewport.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			return m.handleEnter()
		case "ctrl+s":
			m.showSources = !m.showSources
			m.cursor = 0
			m.refresh()
			return m, nil
		case "down":
			if n := len(m.session.lastSources()); m.showSources && n > 0 {
				m.cursor = (m.cursor + 1) % n
				m.refresh()
				return m, nil
			}
		case "up":
			if n := len(m.session.lastSources()); m.showSources && n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
				m.refresh()
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	if line == "" || m.busy {
		return m, nil
	}
	switch {
	case line == "/clear":
		m.session.clear()
		m.showSources = false
		m.input.Reset()
		m.status = "Session cleared."
		m.refresh()
		return m, nil
	case strings.HasPrefix(line, "/video"):
		target := strings.TrimSpace(strings.TrimPrefix(line, "/video"))
		if target == "" {
			m.status = "Usage: /video <url or id>"
			return m, nil
		}
		return m.startSubmit(target)
	case m.engine.ActiveSource() == "":
		return m.startSubmit(line)
	}

	m.session.add(Turn{Role: domain.RoleUser, Content: line})
	m.input.Reset()
	m.busy = true
	m.status = "Thinking..."
	m.refresh()
	m.viewport.GotoBottom()
	return m, m.ask(line)
}

func (m Model) startSubmit(target string) (tea.Model, tea.Cmd) {
	m.busy = true
	m.status = "Fetching transcript for " + target + "..."
	return m, m.submit(target)
}

func (m Model) submit(target string) tea.Cmd {
	ctx, engine := m.ctx, m.engine
	return func() tea.Msg {
		res, err := engine.Submit(ctx, target)
		return ingestedMsg{res: res, err: err}
	}
}

func (m Model) ask(question string) tea.Cmd {
	ctx, engine := m.ctx, m.engine
	return func() tea.Msg {
		ans, err := engine.Ask(ctx, question)
		return answeredMsg{ans: ans, err: err}
	}
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("YouTube Transcript Chat")
	source := "no video loaded"
	if m.session.SourceID != "" {
		source = "video " + m.session.SourceID
	}
	sourceLine := dimStyle.Render(source)
	summary := dimStyle.Render(truncate(m.summary, max(20, m.viewport.Width)))
	chat := chatBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + sourceLine + "\n" + summary + "\n" + chat + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	if m.showSources {
		m.viewport.SetContent(m.renderCurrentSource())
		return
	}
	m.viewport.SetContent(m.renderTurns())
}

func (m Model) renderTurns() string {
	if len(m.session.Turns) == 0 {
		return "No messages yet."
	}
	width := max(20, m.viewport.Width-2)
	var b strings.Builder
	for i, t := range m.session.Turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		style, who := assistantStyle, "assistant"
		if t.Role == domain.RoleUser {
			style, who = userStyle, "you"
		}
		b.WriteString(style.Render(who))
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(width).Render(t.Content))
		if len(t.Sources) > 0 {
			b.WriteString("\n")
			b.WriteString(dimStyle.Render(fmt.Sprintf("(%d sources)", len(t.Sources))))
		}
	}
	return b.String()
}

func (m Model) renderCurrentSource() string {
	sources := m.session.lastSources()
	if len(sources) == 0 {
		return "No sources yet."
	}
	r := sources[m.cursor%len(sources)]
	title := fmt.Sprintf("Source %d/%d  chunk #%d  score=%.3f", m.cursor%len(sources)+1, len(sources), r.Chunk.Index, r.Score)
	body := highlightBestSentence(r.Chunk.Text, m.lastQuery)
	return title + "\n\n" + lipgloss.NewStyle().Width(max(20, m.viewport.Width-2)).Render(body)
}

func describeError(err error) string {
	switch {
	case errors.Is(err, domain.ErrTranscriptNotFound):
		return "No transcript available for that video: " + err.Error()
	case errors.Is(err, domain.ErrUpstream):
		return "Could not reach YouTube: " + err.Error()
	case errors.Is(err, domain.ErrRetrieval):
		return "Search failed: " + err.Error()
	case errors.Is(err, domain.ErrGeneration):
		return "The model could not answer: " + err.Error()
	case errors.Is(err, domain.ErrNoActiveSource):
		return "Load a video first."
	}
	return "Error: " + err.Error()
}

func truncate(s string, n int) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}

var (
	chatBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`[^.!?]+[.!?]*`)
)

// highlightBestSentence emphasises the sentence sharing most words with query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.TrimSpace(text)
	}
	bestIdx, bestScore := 0, -1
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestScore, bestIdx = score, i
		}
	}
	out := make([]string, 0, len(sentences))
	for i, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if i == bestIdx {
			s = highlightStyle.Render(s)
		}
		out = append(out, s)
	}
	return strings.Join(out, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	seen := map[string]struct{}{}
	for _, t := range unicodeWordRe.FindAllString(strings.ToLower(sentence), -1) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
