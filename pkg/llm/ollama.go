package llm

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"toolforge/pkg/llm/llmerrors"
)

// OllamaClient wraps the Ollama API client to implement the Client interface.
// Ollama is a local model runtime, useful for credential-free runs.
type OllamaClient struct {
	client *api.Client
	model  string
}

// NewOllamaClient creates a new Ollama client.
// hostURL should be the Ollama server URL (e.g. "http://localhost:11434").
func NewOllamaClient(hostURL, model string) *OllamaClient {
	parsed, err := url.Parse(hostURL)
	if err != nil {
		parsed, _ = url.Parse("http://localhost:11434")
	}
	return &OllamaClient{
		client: api.NewClient(parsed, http.DefaultClient),
		model:  model,
	}
}

// Complete implements the Client interface.
func (c *OllamaClient) Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error) {
	messages := make([]api.Message, 0, len(in.Messages))
	for i := range in.Messages {
		msg := &in.Messages[i]
		messages = append(messages, api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": in.Temperature,
			"num_predict": in.MaxTokens,
		},
	}

	var response api.ChatResponse
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		return CompletionResponse{}, llmerrors.Wrap(err)
	}
	if response.Message.Content == "" {
		return CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "empty response from Ollama")
	}

	return CompletionResponse{
		Content:    response.Message.Content,
		StopReason: response.DoneReason,
	}, nil
}

// ModelName returns the model name for this client.
func (c *OllamaClient) ModelName() string {
	return c.model
}
