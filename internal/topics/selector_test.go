package topics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolforge/internal/index"
	"toolforge/pkg/corpus"
)

func item(id, title string, age time.Duration, vec []float32) corpus.Item {
	return corpus.Item{
		ID:         id,
		Title:      title,
		IngestedAt: time.Now().UTC().Add(-age),
		Embedding:  vec,
	}
}

func TestSelectCollapsesNearDuplicates(t *testing.T) {
	items := []corpus.Item{
		item("a1", "quantum chips", time.Hour, []float32{1, 0, 0}),
		item("a2", "quantum chips again", time.Hour, []float32{0.99, 0.01, 0}),
		item("b1", "storage outage", time.Hour, []float32{0, 1, 0}),
	}
	sel := NewSelector(0.92, 48*time.Hour)

	topics := sel.Select(index.New(items), 10)
	require.Len(t, topics, 2, "near-duplicates must share a topic")

	var quantum *Topic
	for i := range topics {
		if topics[i].Label == "quantum chips" {
			quantum = &topics[i]
		}
	}
	require.NotNil(t, quantum)
	assert.Len(t, quantum.Items, 2)
}

func TestSelectRanksLargerFresherClustersFirst(t *testing.T) {
	items := []corpus.Item{
		item("big1", "popular story", time.Hour, []float32{1, 0, 0}),
		item("big2", "popular story redux", time.Hour, []float32{0.99, 0.01, 0}),
		item("small", "niche story", time.Hour, []float32{0, 1, 0}),
	}
	sel := NewSelector(0.92, 48*time.Hour)

	topics := sel.Select(index.New(items), 10)
	require.Len(t, topics, 2)
	assert.Equal(t, "popular story", topics[0].Label)
	assert.Greater(t, topics[0].Score, topics[1].Score)
}

func TestSelectRecencyWeighting(t *testing.T) {
	items := []corpus.Item{
		item("fresh", "fresh story", time.Hour, []float32{1, 0, 0}),
		item("stale", "stale story", 47*time.Hour, []float32{0, 1, 0}),
	}
	sel := NewSelector(0.92, 48*time.Hour)

	topics := sel.Select(index.New(items), 10)
	require.Len(t, topics, 2)
	assert.Equal(t, "fresh story", topics[0].Label, "fresh singleton outranks stale singleton")
}

func TestSelectTiesBrokenByEarliestTimestamp(t *testing.T) {
	ts := time.Now().UTC().Add(-time.Hour)
	older := corpus.Item{ID: "older", Title: "older story", IngestedAt: ts.Add(-time.Minute), Embedding: []float32{1, 0}}
	newer := corpus.Item{ID: "newer", Title: "newer story", IngestedAt: ts, Embedding: []float32{0, 1}}

	// Zero half-life degenerates to pure frequency, forcing an exact tie.
	sel := NewSelector(0.92, 0)
	topics := sel.Select(index.New([]corpus.Item{newer, older}), 10)
	require.Len(t, topics, 2)
	assert.Equal(t, "older story", topics[0].Label)
}

func TestSelectHonorsLimit(t *testing.T) {
	items := []corpus.Item{
		item("a", "a", time.Hour, []float32{1, 0, 0}),
		item("b", "b", time.Hour, []float32{0, 1, 0}),
		item("c", "c", time.Hour, []float32{0, 0, 1}),
	}
	sel := NewSelector(0.92, 48*time.Hour)

	assert.Len(t, sel.Select(index.New(items), 2), 2)
	assert.Empty(t, sel.Select(index.New(items), 0))
}

func TestSelectDeterministic(t *testing.T) {
	items := []corpus.Item{
		item("x", "x story", 2*time.Hour, []float32{1, 0, 0}),
		item("y", "y story", time.Hour, []float32{0.99, 0.01, 0}),
		item("z", "z story", 3*time.Hour, []float32{0, 1, 0}),
	}
	sel := NewSelector(0.92, 48*time.Hour)

	first := sel.Select(index.New(items), 10)
	second := sel.Select(index.New(items), 10)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Label, second[i].Label)
	}
}

func TestLabelPrefersKeyword(t *testing.T) {
	it := corpus.Item{Keyword: "ai chips", Title: "long headline"}
	assert.Equal(t, "ai chips", label(it))
	it.Keyword = ""
	assert.Equal(t, "long headline", label(it))
}
