// Package trends resolves per-topic trend feeds and fetches "trends to watch" items from them.
package trends

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"newsroom/internal/core"
	"newsroom/internal/fetch"
	"newsroom/internal/logger"
	"os"
	"strings"

	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"
)

// DefaultMaxItems caps the number of items taken from one trend feed.
const DefaultMaxItems = 10

// FeedEntry maps one topic to its trend feed.
type FeedEntry struct {
	TopicID int64  `yaml:"topic_id"`
	Topic   string `yaml:"topic"`
	URL     string `yaml:"url"`
}

type feedFile struct {
	Feeds []FeedEntry `yaml:"feeds"`
}

// FeedMap is the topic to trend-feed table. The zero value has no feeds.
type FeedMap struct {
	byTopic map[int64]FeedEntry
}

// NewFeedMap builds a FeedMap from entries. Later entries win on duplicate topic ids.
func NewFeedMap(entries []FeedEntry) (*FeedMap, error) {
	m := &FeedMap{byTopic: make(map[int64]FeedEntry, len(entries))}
	for i, entry := range entries {
		entry.URL = strings.TrimSpace(entry.URL)
		if entry.URL == "" {
			return nil, fmt.Errorf("trend feed entry %d (topic %d) has no url", i, entry.TopicID)
		}
		m.byTopic[entry.TopicID] = entry
	}
	return m, nil
}

// LoadFeedMap reads a YAML mapping file. A missing file yields an empty map.
func LoadFeedMap(path string) (*FeedMap, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		logger.Warn("Trend feed mapping not found, trends disabled", "path", path)
		return &FeedMap{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open trend feed mapping: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseFeedMap(f)
}

// ParseFeedMap decodes a YAML mapping document.
func ParseFeedMap(r io.Reader) (*FeedMap, error) {
	var doc feedFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse trend feed mapping: %w", err)
	}
	return NewFeedMap(doc.Feeds)
}

// Lookup returns the feed URL for a topic. Unknown topics report ok=false.
func (m *FeedMap) Lookup(topicID int64) (string, bool) {
	if m == nil || m.byTopic == nil {
		return "", false
	}
	entry, ok := m.byTopic[topicID]
	if !ok {
		return "", false
	}
	return entry.URL, true
}

// Len returns the number of mapped topics.
func (m *FeedMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.byTopic)
}

// Fetcher pulls trend items for topics using a FeedMap.
type Fetcher struct {
	feeds     *FeedMap
	client    *http.Client
	userAgent string
	maxItems  int
	parser    *gofeed.Parser
	log       *slog.Logger
}

// NewFetcher creates a trend Fetcher. maxItems <= 0 uses DefaultMaxItems.
func NewFetcher(feeds *FeedMap, client *http.Client, userAgent string, maxItems int) *Fetcher {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return &Fetcher{
		feeds:     feeds,
		client:    client,
		userAgent: userAgent,
		maxItems:  maxItems,
		parser:    gofeed.NewParser(),
		log:       logger.Get(),
	}
}

// Fetch returns trend items for the topic, or an empty list when the topic has
// no mapped feed or the feed cannot be read.
func (f *Fetcher) Fetch(ctx context.Context, topic core.TopicContext) []core.TrendItem {
	items := []core.TrendItem{}

	feedURL, ok := f.feeds.Lookup(topic.TopicID)
	if !ok {
		f.log.Debug("No trend feed for topic", "topic_id", topic.TopicID, "topic", topic.TopicName)
		return items
	}

	header := http.Header{}
	if f.userAgent != "" {
		header.Set("User-Agent", f.userAgent)
	}
	body, err := fetch.Get(ctx, f.client, feedURL, header)
	if err != nil {
		f.log.Warn("Failed to fetch trend feed", "topic", topic.TopicName, "url", feedURL, "error", err)
		return items
	}

	feed, err := f.parser.Parse(bytes.NewReader(body))
	if err != nil {
		f.log.Warn("Failed to parse trend feed", "topic", topic.TopicName, "url", feedURL, "error", err)
		return items
	}

	for _, entry := range feed.Items {
		if len(items) == f.maxItems {
			break
		}
		if entry == nil || strings.TrimSpace(entry.Title) == "" {
			continue
		}

		summary := entry.Description
		if summary == "" {
			summary = entry.Content
		}
		items = append(items, core.TrendItem{
			Title:   strings.TrimSpace(entry.Title),
			Summary: fetch.StripHTML(summary),
			Link:    entry.Link,
		})
	}

	f.log.Debug("Fetched trend feed", "topic", topic.TopicName, "items", len(items))
	return items
}

// FetchAll fetches trends for each topic in order and interleaves them round-robin,
// so a head slice of the result draws from every topic that has trends.
func (f *Fetcher) FetchAll(ctx context.Context, topics []core.TopicContext) []core.TrendItem {
	perTopic := make([][]core.TrendItem, 0, len(topics))
	for _, topic := range topics {
		if items := f.Fetch(ctx, topic); len(items) > 0 {
			perTopic = append(perTopic, items)
		}
	}
	return Interleave(perTopic)
}

// Interleave takes one item from each list in turn until all are exhausted.
func Interleave(lists [][]core.TrendItem) []core.TrendItem {
	total := 0
	for _, l := range lists {
		total += len(l)
	}

	out := make([]core.TrendItem, 0, total)
	for i := 0; len(out) < total; i++ {
		for _, l := range lists {
			if i < len(l) {
				out = append(out, l[i])
			}
		}
	}
	return out
}
