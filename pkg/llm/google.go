package llm

import (
	"context"

	"google.golang.org/genai"

	"toolforge/pkg/llm/llmerrors"
)

// GoogleClient wraps the Google GenAI client to implement the Client interface.
type GoogleClient struct {
	client *genai.Client
	apiKey string
	model  string
}

// NewGoogleClient creates a new Gemini client. Client construction requires a
// context, so the underlying client is created lazily on first use.
func NewGoogleClient(apiKey, model string) *GoogleClient {
	return &GoogleClient{apiKey: apiKey, model: model}
}

// Complete implements the Client interface.
func (c *GoogleClient) Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error) {
	if c.client == nil {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  c.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return CompletionResponse{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeUnavailable, err, "failed to create Gemini client")
		}
		c.client = client
	}

	var contents []*genai.Content
	var systemInstruction string
	for i := range in.Messages {
		msg := &in.Messages[i]
		switch msg.Role {
		case RoleSystem:
			if systemInstruction != "" {
				systemInstruction += "\n\n"
			}
			systemInstruction += msg.Content
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		case RoleUser:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     &in.Temperature,
		MaxOutputTokens: int32(in.MaxTokens), //nolint:gosec // MaxTokens validated at config layer
	}
	if systemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		}
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return CompletionResponse{}, llmerrors.Wrap(err)
	}
	if result == nil || result.Text() == "" {
		return CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "empty response from Gemini API")
	}

	stopReason := ""
	if len(result.Candidates) > 0 {
		stopReason = string(result.Candidates[0].FinishReason)
	}

	return CompletionResponse{
		Content:    result.Text(),
		StopReason: stopReason,
	}, nil
}

// ModelName returns the model name for this client.
func (c *GoogleClient) ModelName() string {
	return c.model
}
