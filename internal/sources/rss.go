package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"toolforge/pkg/corpus"
	"toolforge/pkg/logx"
)

const (
	rssTimeout   = 20 * time.Second
	rssUserAgent = "toolforge/1.0 (autonomous news aggregator)"
	maxFeedBytes = 4 << 20
)

// RSSSource ingests an RSS 2.0 feed.
type RSSSource struct {
	logger *logx.Logger
	name   string
	url    string
	client *http.Client
}

// NewRSS creates an RSS connector.
func NewRSS(name, url string) *RSSSource {
	return &RSSSource{
		logger: logx.NewLogger("rss"),
		name:   name,
		url:    url,
		client: &http.Client{Timeout: rssTimeout},
	}
}

// Name returns the connector name.
func (s *RSSSource) Name() string {
	return s.name
}

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	GUID        string `xml:"guid"`
	PubDate     string `xml:"pubDate"`
}

// Fetch pulls and parses the feed into corpus items.
func (s *RSSSource) Fetch(ctx context.Context) ([]corpus.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", s.name, err)
	}
	req.Header.Set("User-Agent", rssUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s returned status %d", s.name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read feed %s: %w", s.name, err)
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", s.name, err)
	}

	now := time.Now().UTC()
	items := make([]corpus.Item, 0, len(feed.Channel.Items))
	for _, entry := range feed.Channel.Items {
		title := strings.TrimSpace(entry.Title)
		if title == "" {
			continue
		}
		guid := entry.GUID
		if guid == "" {
			guid = entry.Link
		}
		if guid == "" {
			guid = title
		}
		items = append(items, corpus.Item{
			ID:          ItemID(s.name, guid),
			Source:      s.name,
			Title:       title,
			Description: strings.TrimSpace(entry.Description),
			URL:         entry.Link,
			Published:   parsePubDate(entry.PubDate, now),
			IngestedAt:  now,
		})
	}

	s.logger.Info("%s: fetched %d items", s.name, len(items))
	return items, nil
}

// pubDateLayouts are the timestamp formats seen in the wild, tried in order.
var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
}

func parsePubDate(raw string, fallback time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range pubDateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC()
		}
	}
	return fallback
}
