// Package topics ranks deduplicated corpus items into a bounded ordered list
// of topics for a run. Selection is a pure transform: given the same items
// and the same similarity scores it always produces the same topics.
package topics

import (
	"math"
	"sort"
	"time"

	"toolforge/internal/index"
	"toolforge/pkg/corpus"
	"toolforge/pkg/logx"
)

// Topic is a ranked cluster of related corpus items.
type Topic struct {
	// Label is the human-readable topic name, taken from the cluster's
	// earliest item.
	Label string

	// Score is the recency-weighted frequency score used for ranking.
	Score float64

	// Items are the supporting corpus items, earliest first.
	Items []corpus.Item
}

// Selector clusters near-duplicate items and ranks the clusters.
type Selector struct {
	logger    *logx.Logger
	threshold float64
	window    time.Duration
}

// NewSelector creates a selector. Items scoring at or above threshold against
// each other land in the same cluster; window controls recency weighting.
func NewSelector(threshold float64, window time.Duration) *Selector {
	return &Selector{
		logger:    logx.NewLogger("topics"),
		threshold: threshold,
		window:    window,
	}
}

// Select returns the top-ranked topics from the indexed items, at most limit.
// Ties in score are broken by earliest supporting-item timestamp.
func (s *Selector) Select(idx *index.Index, limit int) []Topic {
	items := append([]corpus.Item(nil), idx.Items()...)
	if len(items) == 0 || limit <= 0 {
		return nil
	}

	// Stable input order so cluster assignment is reproducible.
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].IngestedAt.Equal(items[j].IngestedAt) {
			return items[i].IngestedAt.Before(items[j].IngestedAt)
		}
		return items[i].ID < items[j].ID
	})

	clusters := s.cluster(idx, items)

	now := time.Now().UTC()
	topics := make([]Topic, 0, len(clusters))
	for _, members := range clusters {
		topics = append(topics, Topic{
			Label: label(members[0]),
			Score: s.score(members, now),
			Items: members,
		})
	}

	sort.SliceStable(topics, func(i, j int) bool {
		if topics[i].Score != topics[j].Score {
			return topics[i].Score > topics[j].Score
		}
		ti, tj := topics[i].Items[0].IngestedAt, topics[j].Items[0].IngestedAt
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return topics[i].Label < topics[j].Label
	})

	if len(topics) > limit {
		topics = topics[:limit]
	}
	s.logger.Info("selected %d topics from %d items (%d clusters)", len(topics), len(items), len(clusters))
	return topics
}

// cluster groups items single-link: any pair scoring at or above the
// threshold joins the same cluster. Near-duplicates therefore collapse into
// one topic instead of inflating the ranking.
func (s *Selector) cluster(idx *index.Index, items []corpus.Item) [][]corpus.Item {
	parent := make(map[string]string, len(items))
	for _, it := range items {
		parent[it.ID] = it.ID
	}
	var find func(id string) string
	find = func(id string) string {
		if parent[id] != id {
			parent[id] = find(parent[id])
		}
		return parent[id]
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for _, it := range items {
		for _, m := range idx.Neighbors(it.Embedding, it.ID, s.threshold) {
			union(it.ID, m.Item.ID)
		}
	}

	grouped := make(map[string][]corpus.Item)
	var order []string
	for _, it := range items {
		root := find(it.ID)
		if _, seen := grouped[root]; !seen {
			order = append(order, root)
		}
		grouped[root] = append(grouped[root], it)
	}

	clusters := make([][]corpus.Item, 0, len(order))
	for _, root := range order {
		clusters = append(clusters, grouped[root])
	}
	return clusters
}

// score computes a recency-weighted frequency score: each item contributes a
// weight that halves every half-window of age, so a cluster of fresh items
// outranks an equally large cluster of stale ones.
func (s *Selector) score(members []corpus.Item, now time.Time) float64 {
	halfLife := s.window / 2
	if halfLife <= 0 {
		return float64(len(members))
	}
	var total float64
	for _, it := range members {
		age := now.Sub(it.IngestedAt)
		if age < 0 {
			age = 0
		}
		total += math.Pow(0.5, float64(age)/float64(halfLife))
	}
	return total
}

func label(it corpus.Item) string {
	if it.Keyword != "" {
		return it.Keyword
	}
	return it.Title
}
