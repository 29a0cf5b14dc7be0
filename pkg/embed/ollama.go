package embed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

const defaultOllamaModel = "nomic-embed-text"

// OllamaEngine generates embeddings via a local Ollama server.
type OllamaEngine struct {
	client *api.Client
	model  string
}

// NewOllamaEngine creates an Ollama embedding engine. An empty host falls
// back to the standard local endpoint.
func NewOllamaEngine(host, model string) (*OllamaEngine, error) {
	if host == "" {
		host = "http://localhost:11434"
	}
	if model == "" {
		model = defaultOllamaModel
	}

	parsed, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}

	return &OllamaEngine{
		client: api.NewClient(parsed, http.DefaultClient),
		model:  model,
	}, nil
}

// Embed generates an embedding for a single text.
func (e *OllamaEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one request.
func (e *OllamaEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model: e.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed failed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}

// Name returns the engine name.
func (e *OllamaEngine) Name() string {
	return "ollama:" + e.model
}
