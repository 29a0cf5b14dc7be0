package embed

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"
)

const defaultGoogleModel = "gemini-embedding-001"

// GoogleEngine generates embeddings via the Gemini API.
type GoogleEngine struct {
	apiKey string
	model  string

	mu     sync.Mutex
	client *genai.Client
}

// NewGoogleEngine creates a Gemini embedding engine. The underlying client is
// built lazily on first use because construction needs a context.
func NewGoogleEngine(apiKey, model string) (*GoogleEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google embedding requires an API key")
	}
	if model == "" {
		model = defaultGoogleModel
	}
	return &GoogleEngine{apiKey: apiKey, model: model}, nil
}

func (e *GoogleEngine) getClient(ctx context.Context) (*genai.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		return e.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  e.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	e.client = client
	return client, nil
}

// Embed generates an embedding for a single text.
func (e *GoogleEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one request.
func (e *GoogleEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	client, err := e.getClient(ctx)
	if err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	result, err := client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType: "SEMANTIC_SIMILARITY",
	})
	if err != nil {
		return nil, fmt.Errorf("genai embed failed: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("genai returned %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}

	vecs := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		vecs[i] = emb.Values
	}
	return vecs, nil
}

// Name returns the engine name.
func (e *GoogleEngine) Name() string {
	return "google:" + e.model
}
