package sources

import (
	"context"
	"net/http"
	"newsroom/internal/core"
	"newsroom/internal/logger"
	"strings"
	"time"
)

// APIAdapter reads Algolia/Hacker News style search responses ({"hits": [...]}).
type APIAdapter struct {
	httpSource
	extractor ContentExtractor
}

type apiResponse struct {
	Hits []apiHit `json:"hits"`
}

type apiHit struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	CreatedAt string `json:"created_at"`
}

// NewAPIAdapter creates an adapter for generic JSON search APIs.
func NewAPIAdapter(client *http.Client, userAgent string, extractor ContentExtractor) *APIAdapter {
	return &APIAdapter{
		httpSource: httpSource{client: client, userAgent: userAgent, log: logger.Get()},
		extractor:  extractor,
	}
}

// Fetch returns up to MaxItemsPerSource articles whose linked page yields content.
func (a *APIAdapter) Fetch(ctx context.Context, sourceURL string) (articles []core.Article) {
	defer recoverFetch(a.log, core.SourceTypeAPI, sourceURL, &articles)
	articles = []core.Article{}

	var resp apiResponse
	if err := a.getJSON(ctx, sourceURL, &resp); err != nil {
		a.log.Warn("API scraping error", "url", sourceURL, "error", err)
		return articles
	}

	hits := resp.Hits
	if len(hits) > MaxItemsPerSource {
		hits = hits[:MaxItemsPerSource]
	}

	for _, hit := range hits {
		title := strings.TrimSpace(hit.Title)
		if title == "" || hit.URL == "" {
			continue
		}

		content := a.extractor.Extract(ctx, hit.URL)
		if content == "" {
			a.log.Debug("Skipping hit without content", "url", hit.URL)
			continue
		}

		article := core.Article{
			Source:  hit.URL,
			Title:   title,
			Content: core.TruncateContent(content),
		}
		if published, err := time.Parse(time.RFC3339, hit.CreatedAt); err == nil {
			article.Published = &published
		}
		articles = append(articles, article)
	}

	a.log.Debug("Fetched API source", "url", sourceURL, "articles", len(articles))
	return articles
}
