package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient adapts the Anthropic Messages API to Chatter. System
// messages are lifted into the request's system prompt.
type AnthropicClient struct {
	client anthropic.Client
	model  string
}

// NewAnthropicClient creates a client. An empty baseURL uses the SDK default.
// SDK retries are disabled; callers decide whether to retry.
func NewAnthropicClient(apiKey, baseURL, model string, timeout time.Duration) *AnthropicClient {
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicClient{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

// Chat sends req through Messages.New.
func (c *AnthropicClient) Chat(ctx context.Context, req Request) (*Response, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = DefaultMaxOutputTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
	}

	var system []string
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{
			{Text: strings.Join(system, "\n\n")},
		}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500 {
				return nil, &RetryableError{StatusCode: apiErr.StatusCode, Message: apiErr.Error(), Err: err}
			}
			return nil, fmt.Errorf("anthropic api: %w", err)
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("anthropic api: %w", err)
		}
		return nil, &RetryableError{Message: err.Error(), Err: err}
	}

	var text strings.Builder
	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	if text.Len() == 0 {
		return nil, ErrEmptyResponse
	}

	in := int(message.Usage.InputTokens)
	out := int(message.Usage.OutputTokens)
	return &Response{
		Content: text.String(),
		Usage: &Usage{
			PromptTokens:     in,
			CompletionTokens: out,
			TotalTokens:      in + out,
		},
	}, nil
}
