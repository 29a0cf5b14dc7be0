package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolforge/pkg/config"
)

const sampleFeed = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Example Feed</title>
    <item>
      <title>New inference runtime released</title>
      <link>https://example.com/a</link>
      <description>Faster and smaller.</description>
      <guid>feed-a</guid>
      <pubDate>Mon, 31 Aug 2026 08:00:00 +0000</pubDate>
    </item>
    <item>
      <title></title>
      <link>https://example.com/skip</link>
    </item>
    <item>
      <title>Second story</title>
      <link>https://example.com/b</link>
    </item>
  </channel>
</rss>`

func TestRSSFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "toolforge")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	src := NewRSS("example", srv.URL)
	items, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2, "entries without a title are skipped")

	first := items[0]
	assert.Equal(t, "example", first.Source)
	assert.Equal(t, "New inference runtime released", first.Title)
	assert.Equal(t, "https://example.com/a", first.URL)
	assert.Equal(t, ItemID("example", "feed-a"), first.ID)
	assert.Equal(t, time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC), first.Published)

	// No guid falls back to the link for id derivation.
	assert.Equal(t, ItemID("example", "https://example.com/b"), items[1].ID)
}

func TestRSSFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewRSS("down", srv.URL).Fetch(context.Background())
	assert.Error(t, err)
}

func TestRSSFetchBadXML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<not-a-feed"))
	}))
	defer srv.Close()

	_, err := NewRSS("garbled", srv.URL).Fetch(context.Background())
	assert.Error(t, err)
}

func TestItemIDStable(t *testing.T) {
	a := ItemID("rss", "guid-1")
	assert.Equal(t, a, ItemID("rss", "guid-1"))
	assert.NotEqual(t, a, ItemID("rss", "guid-2"))
	assert.NotEqual(t, a, ItemID("other", "guid-1"))
}

func TestFromConfig(t *testing.T) {
	srcs, err := FromConfig([]config.SourceConfig{
		{Name: "hn", Type: "rss", URL: "https://example.com/rss"},
	})
	require.NoError(t, err)
	require.Len(t, srcs, 1)
	assert.Equal(t, "hn", srcs[0].Name())

	_, err = FromConfig([]config.SourceConfig{{Name: "x", Type: "imap"}})
	assert.Error(t, err)
}

func TestParsePubDate(t *testing.T) {
	fallback := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	parsed := parsePubDate("Mon, 31 Aug 2026 08:00:00 +0000", fallback)
	assert.Equal(t, 2026, parsed.Year())
	assert.Equal(t, fallback, parsePubDate("not a date", fallback))
}
