package llm

import (
	"context"

	"ytrag/internal/domain"
)

// Generator produces a completion for an ordered list of chat messages.
// A leading system message, when present, is the model's instruction.
type Generator interface {
	Generate(ctx context.Context, messages []domain.Message) (string, error)
}
