// Package gemini generates answers with Google's Gemini chat models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"ytrag/internal/domain"
)

const DefaultModel = "gemini-2.5-flash"

// Generator wraps a genai generative model.
type Generator struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGenerator opens a genai client authenticated with apiKey.
func NewGenerator(ctx context.Context, apiKey, model string, temperature float32) (*Generator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini generator: missing API key")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Generator{client: client, model: model, temperature: temperature}, nil
}

// Generate sends the last message to a chat session primed with the earlier
// ones. System messages become the model's SystemInstruction.
func (g *Generator) Generate(ctx context.Context, messages []domain.Message) (string, error) {
	system, history := toContents(messages)
	if len(history) == 0 {
		return "", errors.New("gemini: no user message to send")
	}
	last := history[len(history)-1]
	if last.Role != "user" {
		return "", fmt.Errorf("gemini: last message has role %q, want user", last.Role)
	}

	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(g.temperature)
	if system != nil {
		model.SystemInstruction = system
	}
	chat := model.StartChat()
	chat.History = history[:len(history)-1]

	resp, err := chat.SendMessage(ctx, last.Parts...)
	if err != nil {
		return "", fmt.Errorf("gemini chat SendMessage failed: %w", err)
	}
	return responseText(resp)
}

func (g *Generator) Close() error { return g.client.Close() }

func toContents(messages []domain.Message) (*genai.Content, []*genai.Content) {
	var system *genai.Content
	history := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			if system == nil {
				system = &genai.Content{}
			}
			system.Parts = append(system.Parts, genai.Text(m.Content))
		case domain.RoleAssistant:
			history = append(history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(m.Content)}})
		default:
			history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(m.Content)}})
		}
	}
	return system, history
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini returned no candidates")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	if b.Len() == 0 {
		return "", errors.New("gemini returned an empty response")
	}
	return b.String(), nil
}
