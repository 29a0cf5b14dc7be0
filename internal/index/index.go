// Package index provides an in-memory vector similarity index over corpus
// items. The index is rebuilt from scratch each run and discarded afterwards;
// nothing here persists.
package index

import (
	"sort"

	"toolforge/pkg/corpus"
	"toolforge/pkg/embed"
	"toolforge/pkg/logx"
)

// Match pairs an indexed item with its similarity to a query vector.
type Match struct {
	Item  corpus.Item
	Score float64
}

// Index holds embedded items for the duration of one run. It is built once
// and then only read, so no locking is needed.
type Index struct {
	logger *logx.Logger
	items  []corpus.Item
}

// New creates an index over items that carry embeddings. Items without an
// embedding are skipped; they cannot participate in similarity queries.
func New(items []corpus.Item) *Index {
	idx := &Index{logger: logx.NewLogger("index")}
	for _, it := range items {
		if len(it.Embedding) > 0 {
			idx.items = append(idx.items, it)
		}
	}
	if skipped := len(items) - len(idx.items); skipped > 0 {
		idx.logger.Warn("skipped %d items without embeddings", skipped)
	}
	return idx
}

// Len returns the number of indexed items.
func (idx *Index) Len() int {
	return len(idx.items)
}

// Items returns the indexed items.
func (idx *Index) Items() []corpus.Item {
	return idx.items
}

// Query returns all indexed items scored against the query vector, highest
// similarity first. Items whose id matches excludeID are left out so an item
// never matches itself.
func (idx *Index) Query(vec []float32, excludeID string) []Match {
	matches := make([]Match, 0, len(idx.items))
	for _, it := range idx.items {
		if it.ID == excludeID {
			continue
		}
		score, err := embed.CosineSimilarity(vec, it.Embedding)
		if err != nil {
			idx.logger.Warn("skipping item %s: %v", it.ID, err)
			continue
		}
		matches = append(matches, Match{Item: it, Score: score})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// Neighbors returns the indexed items whose similarity to the query vector
// meets or exceeds threshold, highest first.
func (idx *Index) Neighbors(vec []float32, excludeID string, threshold float64) []Match {
	matches := idx.Query(vec, excludeID)
	for i, m := range matches {
		if m.Score < threshold {
			return matches[:i]
		}
	}
	return matches
}
