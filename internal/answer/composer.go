// Package answer turns retrieved transcript chunks into a grounded answer.
package answer

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"ytrag/internal/domain"
	"ytrag/internal/llm"
)

// SystemInstruction restricts the model to the supplied context.
const SystemInstruction = "You are an assistant that answers questions about a video using only its transcript. " +
	"Answer strictly from the context provided with the question. " +
	"If the context does not contain the answer, say that the video does not cover it. " +
	"Do not use outside knowledge."

// Composer assembles a prompt from search results and asks a Generator.
type Composer struct {
	gen llm.Generator
	log *zap.Logger
}

func NewComposer(gen llm.Generator, log *zap.Logger) *Composer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Composer{gen: gen, log: log.Named("answer")}
}

// Compose issues exactly one generation call, even when results is empty.
func (c *Composer) Compose(ctx context.Context, question string, results []domain.SearchResult) (string, error) {
	messages := Prompt(question, results)
	c.log.Debug("composing answer",
		zap.Int("context_chunks", len(results)),
		zap.Int("prompt_chars", len(messages[1].Content)))
	text, err := c.gen.Generate(ctx, messages)
	if err != nil {
		return "", domain.Wrap(domain.ErrGeneration, "compose answer", err)
	}
	return strings.TrimSpace(text), nil
}

// Prompt builds the system and user turns for question, with the chunk texts
// of results in retrieval order separated by blank lines.
func Prompt(question string, results []domain.SearchResult) []domain.Message {
	var b strings.Builder
	b.WriteString("Context:\n")
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(r.Chunk.Text)
	}
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	return []domain.Message{
		{Role: domain.RoleSystem, Content: SystemInstruction},
		{Role: domain.RoleUser, Content: b.String()},
	}
}
