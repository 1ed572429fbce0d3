package domain

import (
	"errors"
	"fmt"
)

// Error categories surfaced by the pipeline. Adapters wrap the underlying
// cause so both the category and the cause match with errors.Is.
var (
	// ErrTranscriptNotFound means the source has no transcript. Terminal.
	ErrTranscriptNotFound = errors.New("transcript not found")

	// ErrUpstream is a network or service failure while fetching a transcript.
	ErrUpstream = errors.New("upstream failure")

	// ErrRetrieval is an embedding or vector index failure.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrGeneration is a language model failure while composing an answer.
	ErrGeneration = errors.New("generation failed")

	// ErrConfiguration is an invalid setting detected at startup.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrNoActiveSource means a question was asked before any source was ingested.
	ErrNoActiveSource = errors.New("no active source")
)

// Wrap tags err with a category and an operation name.
// It returns nil when err is nil.
func Wrap(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// ConfigError builds an ErrConfiguration error with a formatted reason.
func ConfigError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
