package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolforge/pkg/corpus"
)

func item(id string, vec []float32) corpus.Item {
	return corpus.Item{ID: id, Title: "item " + id, Embedding: vec}
}

func TestNewSkipsUnembedded(t *testing.T) {
	idx := New([]corpus.Item{
		item("a", []float32{1, 0}),
		item("b", nil),
	})
	assert.Equal(t, 1, idx.Len())
}

func TestQueryOrdersByScore(t *testing.T) {
	idx := New([]corpus.Item{
		item("far", []float32{0, 1}),
		item("near", []float32{0.9, 0.1}),
		item("exact", []float32{1, 0}),
	})

	matches := idx.Query([]float32{1, 0}, "")
	require.Len(t, matches, 3)
	assert.Equal(t, "exact", matches[0].Item.ID)
	assert.Equal(t, "near", matches[1].Item.ID)
	assert.Equal(t, "far", matches[2].Item.ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
}

func TestQueryExcludesSelf(t *testing.T) {
	idx := New([]corpus.Item{
		item("self", []float32{1, 0}),
		item("other", []float32{1, 0}),
	})

	matches := idx.Query([]float32{1, 0}, "self")
	require.Len(t, matches, 1)
	assert.Equal(t, "other", matches[0].Item.ID)
}

func TestNeighborsThreshold(t *testing.T) {
	idx := New([]corpus.Item{
		item("dup", []float32{1, 0}),
		item("related", []float32{0.8, 0.6}),
		item("unrelated", []float32{0, 1}),
	})

	matches := idx.Neighbors([]float32{1, 0}, "", 0.9)
	require.Len(t, matches, 1)
	assert.Equal(t, "dup", matches[0].Item.ID)
}
