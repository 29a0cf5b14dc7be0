package embed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"zero magnitude", []float32{0, 0}, []float32{1, 1}, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCosineSimilarityDimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	assert.Error(t, err)
}

func TestNewEngineUnsupportedProvider(t *testing.T) {
	_, err := NewEngine("pinecone", "", "", "")
	assert.Error(t, err)
}

func TestNewEngineDefaultsToOllama(t *testing.T) {
	engine, err := NewEngine("", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "ollama:"+defaultOllamaModel, engine.Name())
}

func TestGoogleEngineRequiresKey(t *testing.T) {
	_, err := NewGoogleEngine("", "")
	assert.Error(t, err)
}
