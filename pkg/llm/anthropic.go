package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"toolforge/pkg/llm/llmerrors"
)

// AnthropicClient wraps the Anthropic API client to implement the Client interface.
type AnthropicClient struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicClient creates a new Claude client.
func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}
}

// splitSystem extracts system messages into a separate prompt. The Anthropic
// API takes the system prompt as a top-level parameter, not a message.
func splitSystem(messages []CompletionMessage) (systemPrompt string, rest []CompletionMessage, err error) {
	var systemParts []string
	for i := range messages {
		msg := &messages[i]
		if msg.Role == RoleSystem {
			systemParts = append(systemParts, msg.Content)
		} else {
			rest = append(rest, *msg)
		}
	}
	if len(rest) == 0 {
		return "", nil, fmt.Errorf("must have at least one non-system message")
	}
	if rest[len(rest)-1].Role != RoleUser {
		return "", nil, fmt.Errorf("last message must be user role, got %s", rest[len(rest)-1].Role)
	}
	return strings.Join(systemParts, "\n\n"), rest, nil
}

// Complete implements the Client interface.
func (c *AnthropicClient) Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error) {
	systemPrompt, rest, err := splitSystem(in.Messages)
	if err != nil {
		return CompletionResponse{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeMalformed, err, "message conversion error")
	}

	messages := make([]anthropic.MessageParam, 0, len(rest))
	for i := range rest {
		msg := &rest[i]
		messages = append(messages, anthropic.MessageParam{
			Role:    anthropic.MessageParamRole(msg.Role),
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(msg.Content)},
		})
	}

	params := anthropic.MessageNewParams{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   int64(in.MaxTokens),
		Temperature: anthropic.Float(float64(in.Temperature)),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt, Type: "text"}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return CompletionResponse{}, llmerrors.Wrap(err)
	}

	var sb strings.Builder
	for i := range resp.Content {
		block := &resp.Content[i]
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "no text content in response")
	}

	return CompletionResponse{
		Content:    sb.String(),
		StopReason: string(resp.StopReason),
	}, nil
}

// ModelName returns the model name for this client.
func (c *AnthropicClient) ModelName() string {
	return string(c.model)
}
