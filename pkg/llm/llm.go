// Package llm provides the client interface and provider implementations for
// the generative code service boundary.
package llm

import (
	"context"
	"fmt"

	"toolforge/pkg/config"
)

// CompletionRole represents the role of a message in a conversation.
type CompletionRole string

const (
	// RoleSystem indicates a system message that provides instructions or context.
	RoleSystem CompletionRole = "system"
	// RoleUser indicates a message from the human user.
	RoleUser CompletionRole = "user"
	// RoleAssistant indicates a message from the model.
	RoleAssistant CompletionRole = "assistant"
)

const (
	// TemperatureIdeation allows exploration when generating tool ideas.
	TemperatureIdeation float32 = 0.8

	// TemperatureCodegen uses slight randomness (0.3) for code generation to
	// avoid getting stuck in repair loops while staying consistent.
	TemperatureCodegen float32 = 0.3
)

// CompletionMessage represents a message in a completion request.
type CompletionMessage struct {
	Content string
	Role    CompletionRole
}

// CompletionRequest represents a request to generate a completion.
type CompletionRequest struct {
	Messages    []CompletionMessage
	MaxTokens   int
	Temperature float32
}

// CompletionResponse represents a response from a completion request.
type CompletionResponse struct {
	Content    string // Main response text
	StopReason string // Why the response stopped: "end_turn", "max_tokens", etc.
}

// Client defines the interface for generative service interactions.
type Client interface {
	// Complete generates a completion synchronously.
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

	// ModelName returns the model name for this client.
	ModelName() string
}

// NewCompletionRequest creates a new completion request with default values.
func NewCompletionRequest(messages []CompletionMessage) CompletionRequest {
	return CompletionRequest{
		Messages:    messages,
		MaxTokens:   4096,
		Temperature: TemperatureCodegen,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleUser, Content: content}
}

// NewClient constructs the configured provider client, wrapped with transport
// retries and metrics recording.
func NewClient(cfg config.LLMConfig) (Client, error) {
	var raw Client
	switch cfg.Provider {
	case config.ProviderAnthropic:
		raw = NewAnthropicClient(cfg.APIKey(), cfg.Model)
	case config.ProviderOpenAI:
		raw = NewOpenAIClient(cfg.APIKey(), cfg.Model)
	case config.ProviderGoogle:
		raw = NewGoogleClient(cfg.APIKey(), cfg.Model)
	case config.ProviderOllama:
		raw = NewOllamaClient(cfg.Host, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", cfg.Provider)
	}

	retried := NewRetryableClient(raw, DefaultRetryConfig)
	metered := NewMetricsClient(retried, cfg.Provider)
	return NewBoundedClient(metered, cfg.Timeout, cfg.MaxTokens, cfg.Temperature), nil
}
