// Package llm talks to chat-completion providers.
package llm

import (
	"context"
	"strings"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// StreamChunk is one piece of a streamed completion. The final chunk has
// Done set; a failed stream ends with a chunk carrying Error.
type StreamChunk struct {
	Delta string
	Done  bool
	Error error
}

// Provider generates completions for a conversation.
type Provider interface {
	Name() string
	Generate(ctx context.Context, msgs []Message) (string, error)
	// Stream returns a channel that is closed after the final chunk.
	Stream(ctx context.Context, msgs []Message) (<-chan StreamChunk, error)
}

// Options are sampling parameters shared by all providers.
type Options struct {
	Temperature float32
	MaxTokens   int
}

// DefaultOptions returns temperature 0.7 and 2000 max tokens.
func DefaultOptions() Options {
	return Options{Temperature: 0.7, MaxTokens: 2000}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Temperature == 0 {
		o.Temperature = d.Temperature
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = d.MaxTokens
	}
	return o
}

// Collect drains a stream, calling onDelta for each piece of text, and returns
// the full text.
func Collect(ch <-chan StreamChunk, onDelta func(string)) (string, error) {
	var sb strings.Builder
	for chunk := range ch {
		if chunk.Error != nil {
			return sb.String(), chunk.Error
		}
		if chunk.Delta != "" {
			sb.WriteString(chunk.Delta)
			if onDelta != nil {
				onDelta(chunk.Delta)
			}
		}
		if chunk.Done {
			break
		}
	}
	return sb.String(), nil
}

// send delivers c unless ctx is cancelled first.
func send(ctx context.Context, ch chan<- StreamChunk, c StreamChunk) bool {
	select {
	case ch <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
