package sources

import (
	"bytes"
	"context"
	"net/http"
	"newsroom/internal/core"
	"newsroom/internal/logger"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// RecencyWindow is the maximum age of an RSS entry admitted into the pool.
const RecencyWindow = 7 * 24 * time.Hour

// RSSAdapter reads RSS, Atom and JSON feeds and fetches the full text of each fresh entry.
type RSSAdapter struct {
	httpSource
	extractor ContentExtractor
	parser    *gofeed.Parser
	now       func() time.Time
}

// NewRSSAdapter creates an adapter for syndication feeds.
func NewRSSAdapter(client *http.Client, userAgent string, extractor ContentExtractor) *RSSAdapter {
	return &RSSAdapter{
		httpSource: httpSource{client: client, userAgent: userAgent, log: logger.Get()},
		extractor:  extractor,
		parser:     gofeed.NewParser(),
		now:        time.Now,
	}
}

// WithClock replaces the wall clock used for the recency window.
func (a *RSSAdapter) WithClock(now func() time.Time) *RSSAdapter {
	a.now = now
	return a
}

// Fetch returns fresh, deduplicated entries whose linked page yields content.
func (a *RSSAdapter) Fetch(ctx context.Context, sourceURL string) (articles []core.Article) {
	defer recoverFetch(a.log, core.SourceTypeRSS, sourceURL, &articles)
	articles = []core.Article{}

	body, err := a.get(ctx, sourceURL)
	if err != nil {
		a.log.Warn("RSS scraping error", "url", sourceURL, "error", err)
		return articles
	}

	feed, err := a.parser.Parse(bytes.NewReader(body))
	if err != nil {
		a.log.Warn("RSS scraping error", "url", sourceURL, "error", err)
		return articles
	}

	items := feed.Items
	if len(items) > MaxItemsPerSource {
		items = items[:MaxItemsPerSource]
	}

	now := a.now()
	seen := make(map[string]bool, len(items))

	for _, item := range items {
		if item == nil || item.Link == "" || seen[item.Link] {
			continue
		}
		seen[item.Link] = true

		published := publishedAt(item, now)
		if now.Sub(published) > RecencyWindow {
			a.log.Debug("Skipping stale entry", "link", item.Link, "published", published)
			continue
		}

		content := a.extractor.Extract(ctx, item.Link)
		if content == "" {
			continue
		}

		articles = append(articles, core.Article{
			Source:    item.Link,
			Title:     strings.TrimSpace(item.Title),
			Content:   core.TruncateContent(content),
			Published: &published,
		})
	}

	a.log.Debug("Fetched RSS source", "url", sourceURL, "items", len(feed.Items), "articles", len(articles))
	return articles
}

// publishedAt prefers the published date, then the updated date, then now.
func publishedAt(item *gofeed.Item, now time.Time) time.Time {
	switch {
	case item.PublishedParsed != nil:
		return *item.PublishedParsed
	case item.UpdatedParsed != nil:
		return *item.UpdatedParsed
	default:
		return now
	}
}
