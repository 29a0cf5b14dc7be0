package corpus

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "corpus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testItem(id string, ingestedAt time.Time) Item {
	return Item{
		ID:         id,
		Source:     "rss",
		Title:      "title " + id,
		Published:  ingestedAt.Add(-time.Hour),
		IngestedAt: ingestedAt,
	}
}

func TestAppendBatchDeduplicates(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	n, err := store.AppendBatch(ctx, []Item{testItem("a", now), testItem("b", now)})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Re-appending the same ids is a no-op.
	n, err = store.AppendBatch(ctx, []Item{testItem("a", now), testItem("c", now)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	items, err := store.RecentItems(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestRecentItemsWindowAndOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := store.AppendBatch(ctx, []Item{
		testItem("old", now.Add(-72*time.Hour)),
		testItem("mid", now.Add(-2*time.Hour)),
		testItem("new", now.Add(-1*time.Minute)),
	})
	require.NoError(t, err)

	items, err := store.RecentItems(ctx, 48*time.Hour)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "new", items[0].ID, "newest first")
	assert.Equal(t, "mid", items[1].ID)
}

func TestEmbeddingRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	item := testItem("vec", now)
	item.Embedding = []float32{0.25, -1.5, 3.0}
	_, err := store.AppendBatch(ctx, []Item{item})
	require.NoError(t, err)

	items, err := store.RecentItems(ctx, time.Hour)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, item.Embedding, items[0].Embedding)
}

func TestSetEmbedding(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := store.AppendBatch(ctx, []Item{testItem("late", now)})
	require.NoError(t, err)

	require.NoError(t, store.SetEmbedding(ctx, "late", []float32{1, 2}))

	items, err := store.RecentItems(ctx, time.Hour)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, []float32{1, 2}, items[0].Embedding)
}

func TestPurge(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := store.AppendBatch(ctx, []Item{
		testItem("stale", now.Add(-15*24*time.Hour)),
		testItem("fresh", now),
	})
	require.NoError(t, err)

	removed, err := store.Purge(ctx, 14*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	items, err := store.RecentItems(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "fresh", items[0].ID)
}

func TestRecordRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec := RunRecord{
		RunID:          "run-1",
		RunDate:        "2026-08-31",
		ItemsAdded:     12,
		TopicsSelected: 3,
		ToolsPassed:    2,
		ToolsAbandoned: 1,
		CommittedRef:   "abc123",
	}
	require.NoError(t, store.RecordRun(ctx, rec))
	// Re-recording the same run replaces the row instead of failing.
	rec.ToolsPassed = 3
	require.NoError(t, store.RecordRun(ctx, rec))
}

func TestEmbeddingCodec(t *testing.T) {
	assert.Nil(t, encodeEmbedding(nil))
	assert.Nil(t, decodeEmbedding(nil))

	vec := []float32{0, 1.5, -2.25}
	assert.Equal(t, vec, decodeEmbedding(encodeEmbedding(vec)))
}
