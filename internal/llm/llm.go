// Package llm wraps the chat-completion providers behind one interface.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyCompletion is returned when a provider answers with no text.
var ErrEmptyCompletion = errors.New("completion returned no content")

// Request is a single-turn chat completion.
type Request struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

// Completer is implemented by every provider client.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	// Stream calls onDelta for each text fragment as it arrives. An error
	// returned by onDelta aborts the stream and is returned unchanged.
	Stream(ctx context.Context, req Request, onDelta func(string) error) error
}
