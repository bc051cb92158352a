package sources

import (
	"context"
	"fmt"
	"net/http"
	"newsroom/internal/core"
	"newsroom/internal/logger"
	"strings"
	"unicode/utf8"
)

const (
	// minRedditScore is exclusive: a post needs more than this many points.
	minRedditScore = 10
	// minRedditContent is the length below which selftext or extracted text is not used.
	minRedditContent = 100
)

// RedditAdapter reads Reddit listing JSON ({"data": {"children": [{"data": {...}}]}}).
type RedditAdapter struct {
	httpSource
	extractor ContentExtractor
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Score    float64 `json:"score"`
	Selftext string  `json:"selftext"`
}

// NewRedditAdapter creates an adapter for Reddit listing endpoints.
func NewRedditAdapter(client *http.Client, userAgent string, extractor ContentExtractor) *RedditAdapter {
	return &RedditAdapter{
		httpSource: httpSource{client: client, userAgent: userAgent, log: logger.Get()},
		extractor:  extractor,
	}
}

// Fetch returns posts with a score above 10. Content is never empty: when neither
// the selftext nor the linked page is long enough a placeholder is synthesized.
func (a *RedditAdapter) Fetch(ctx context.Context, sourceURL string) (articles []core.Article) {
	defer recoverFetch(a.log, core.SourceTypeReddit, sourceURL, &articles)
	articles = []core.Article{}

	var listing redditListing
	if err := a.getJSON(ctx, sourceURL, &listing); err != nil {
		a.log.Warn("Reddit scraping error", "url", sourceURL, "error", err)
		return articles
	}

	children := listing.Data.Children
	if len(children) > MaxItemsPerSource {
		children = children[:MaxItemsPerSource]
	}

	for _, child := range children {
		post := child.Data
		title := strings.TrimSpace(post.Title)
		if title == "" || post.URL == "" || post.Score <= minRedditScore {
			continue
		}

		articles = append(articles, core.Article{
			Source:  post.URL,
			Title:   title,
			Content: core.TruncateContent(a.content(ctx, post, title)),
		})
	}

	a.log.Debug("Fetched Reddit source", "url", sourceURL, "articles", len(articles))
	return articles
}

func (a *RedditAdapter) content(ctx context.Context, post redditPost, title string) string {
	if utf8.RuneCountInString(post.Selftext) > minRedditContent {
		return post.Selftext
	}
	if content := a.extractor.Extract(ctx, post.URL); utf8.RuneCountInString(content) >= minRedditContent {
		return content
	}
	return placeholderContent(title)
}

func placeholderContent(title string) string {
	return fmt.Sprintf("Recent news: %s. This article discusses important developments in the field.", title)
}
