// Package embed generates vector embeddings for corpus items. Two backends
// are supported: a local Ollama server and the Gemini embedding API.
package embed

import (
	"context"
	"fmt"
	"math"
)

// Engine generates vector embeddings for text.
type Engine interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Name returns the engine name for logging and summaries.
	Name() string
}

// NewEngine creates an embedding engine for the configured provider.
func NewEngine(provider, model, host, apiKey string) (Engine, error) {
	switch provider {
	case "ollama", "":
		return NewOllamaEngine(host, model)
	case "google":
		return NewGoogleEngine(apiKey, model)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", provider)
	}
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns an error on dimension mismatch; zero-magnitude vectors score 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimension mismatch: %d != %d", len(a), len(b))
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB)), nil
}
