package llm

import (
	"context"
	"errors"
	"fmt"
)

// Role tags a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is a chat call. Zero MaxTokens and nil Temperature mean "use the
// provider default".
type Request struct {
	Messages    []Message
	Temperature *float64
	MaxTokens   int
}

// Usage holds the token counters reported by the backend.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the generated text plus optional usage.
type Response struct {
	Content string
	Usage   *Usage
}

// Chatter is the chat capability the compression pipeline consumes.
type Chatter interface {
	Chat(ctx context.Context, req Request) (*Response, error)
}

// Float returns a pointer to v, for Request.Temperature.
func Float(v float64) *float64 {
	return &v
}

var (
	// ErrEmptyResponse means the backend returned no text.
	ErrEmptyResponse = errors.New("empty response from llm")

	// ErrUnknownProvider means the configured provider has no default base URL.
	ErrUnknownProvider = errors.New("unknown llm provider")
)

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RetryableError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("retryable error: %s", truncate(e.Message, 200))
	}
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
