package sources

import (
	"bytes"
	"context"
	"net/http"
	"newsroom/internal/core"
	"newsroom/internal/logger"
	"strings"

	"github.com/mmcdole/gofeed/atom"
)

// ArxivAdapter reads arXiv API responses, which are Atom documents.
// Paper abstracts are used as content directly; no extraction or score filtering.
type ArxivAdapter struct {
	httpSource
}

// NewArxivAdapter creates an adapter for the arXiv query API.
func NewArxivAdapter(client *http.Client, userAgent string) *ArxivAdapter {
	return &ArxivAdapter{
		httpSource: httpSource{client: client, userAgent: userAgent, log: logger.Get()},
	}
}

// Fetch returns up to MaxItemsPerSource entries that carry both a title and a summary.
func (a *ArxivAdapter) Fetch(ctx context.Context, sourceURL string) (articles []core.Article) {
	defer recoverFetch(a.log, core.SourceTypeArxiv, sourceURL, &articles)
	articles = []core.Article{}

	body, err := a.get(ctx, sourceURL)
	if err != nil {
		a.log.Warn("ArXiv scraping error", "url", sourceURL, "error", err)
		return articles
	}

	parser := &atom.Parser{}
	feed, err := parser.Parse(bytes.NewReader(body))
	if err != nil {
		a.log.Warn("ArXiv scraping error", "url", sourceURL, "error", err)
		return articles
	}

	entries := feed.Entries
	if len(entries) > MaxItemsPerSource {
		entries = entries[:MaxItemsPerSource]
	}

	for _, entry := range entries {
		title := collapseWhitespace(entry.Title)
		summary := collapseWhitespace(entry.Summary)
		if title == "" || summary == "" {
			continue
		}

		article := core.Article{
			Source:    htmlLink(entry.Links),
			Title:     title,
			Content:   core.TruncateContent(summary),
			Published: entry.PublishedParsed,
		}
		articles = append(articles, article)
	}

	a.log.Debug("Fetched arXiv source", "url", sourceURL, "articles", len(articles))
	return articles
}

// htmlLink returns the abstract page link, or "" when the entry has none.
func htmlLink(links []*atom.Link) string {
	for _, link := range links {
		if link != nil && link.Type == "text/html" {
			return link.Href
		}
	}
	return ""
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
