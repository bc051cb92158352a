package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"newsroom/internal/core"
	"newsroom/internal/fetch"
	"strings"
	"sync"
	"testing"
	"time"
)

// mockExtractor returns canned content per URL, or a generic body when no entry exists.
type mockExtractor struct {
	mu      sync.Mutex
	content map[string]string
	calls   []string
}

func (m *mockExtractor) Extract(ctx context.Context, pageURL string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, pageURL)
	if content, ok := m.content[pageURL]; ok {
		return content
	}
	return "Extracted body text for " + pageURL
}

func serve(t *testing.T, contentType, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

const unreachableURL = "http://127.0.0.1:1/feed"

func TestAPIAdapter(t *testing.T) {
	hits := []map[string]any{
		{"title": "Kept", "url": "https://a.example/1", "created_at": "2025-01-10T08:00:00Z"},
		{"title": "", "url": "https://a.example/2"},
		{"title": "No URL", "url": ""},
		{"title": "Empty content", "url": "https://a.example/empty"},
		{"title": "Long", "url": "https://a.example/long", "created_at": "yesterday"},
	}
	body, _ := json.Marshal(map[string]any{"hits": hits})
	server := serve(t, "application/json", string(body))

	extractor := &mockExtractor{content: map[string]string{
		"https://a.example/empty": "",
		"https://a.example/long":  strings.Repeat("x", 2000),
	}}
	adapter := NewAPIAdapter(server.Client(), "test", extractor)

	articles := adapter.Fetch(context.Background(), server.URL)
	if len(articles) != 2 {
		t.Fatalf("Expected 2 articles, got %d: %+v", len(articles), articles)
	}
	if articles[0].Title != "Kept" || articles[0].Source != "https://a.example/1" {
		t.Errorf("Unexpected first article: %+v", articles[0])
	}
	if articles[0].Published == nil || !articles[0].Published.Equal(time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected created_at as published, got %v", articles[0].Published)
	}
	if articles[1].Published != nil {
		t.Errorf("Unparseable created_at should leave published empty, got %v", articles[1].Published)
	}
	if len([]rune(articles[1].Content)) != core.MaxContentLength {
		t.Errorf("Expected content truncated to %d, got %d", core.MaxContentLength, len(articles[1].Content))
	}
}

func TestAPIAdapterCapsItems(t *testing.T) {
	hits := make([]map[string]any, 20)
	for i := range hits {
		hits[i] = map[string]any{"title": fmt.Sprintf("Hit %d", i), "url": fmt.Sprintf("https://a.example/%d", i)}
	}
	body, _ := json.Marshal(map[string]any{"hits": hits})
	server := serve(t, "application/json", string(body))

	extractor := &mockExtractor{}
	articles := NewAPIAdapter(server.Client(), "test", extractor).Fetch(context.Background(), server.URL)
	if len(articles) != MaxItemsPerSource {
		t.Errorf("Expected %d articles, got %d", MaxItemsPerSource, len(articles))
	}
	if len(extractor.calls) != MaxItemsPerSource {
		t.Errorf("Expected only %d items examined, got %d", MaxItemsPerSource, len(extractor.calls))
	}
}

func TestRedditAdapter(t *testing.T) {
	longSelftext := strings.Repeat("self text ", 20)
	listing := map[string]any{
		"data": map[string]any{
			"children": []map[string]any{
				{"data": map[string]any{"title": "Ten points", "url": "https://r.example/10", "score": 10}},
				{"data": map[string]any{"title": "Eleven points", "url": "https://r.example/11", "score": 11}},
				{"data": map[string]any{"title": "Self post", "url": "https://r.example/self", "score": 50, "selftext": longSelftext}},
				{"data": map[string]any{"title": "Thin page", "url": "https://r.example/thin", "score": 99}},
				{"data": map[string]any{"title": "", "url": "https://r.example/untitled", "score": 99}},
			},
		},
	}
	body, _ := json.Marshal(listing)
	server := serve(t, "application/json", string(body))

	extractor := &mockExtractor{content: map[string]string{
		"https://r.example/11":   strings.Repeat("article ", 20),
		"https://r.example/thin": "too short",
	}}
	articles := NewRedditAdapter(server.Client(), "test", extractor).Fetch(context.Background(), server.URL)

	if len(articles) != 3 {
		t.Fatalf("Expected 3 articles, got %d: %+v", len(articles), articles)
	}
	for _, a := range articles {
		if a.Title == "Ten points" {
			t.Error("Post with score 10 must be excluded")
		}
		if a.Content == "" {
			t.Errorf("Reddit articles must never have empty content: %+v", a)
		}
	}
	if articles[0].Title != "Eleven points" {
		t.Errorf("Expected score-11 post first, got %q", articles[0].Title)
	}
	if articles[1].Content != longSelftext {
		t.Errorf("Expected selftext content, got %q", articles[1].Content)
	}
	want := "Recent news: Thin page. This article discusses important developments in the field."
	if articles[2].Content != want {
		t.Errorf("Expected placeholder %q, got %q", want, articles[2].Content)
	}
	for _, call := range extractor.calls {
		if call == "https://r.example/self" {
			t.Error("Extractor should not be called when selftext is long enough")
		}
	}
}

func arxivFeed(n int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><feed xmlns="http://www.w3.org/2005/Atom"><title>arXiv</title>`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<entry>
  <id>http://arxiv.org/abs/%[1]d</id>
  <title>Paper
     number %[1]d</title>
  <summary>  An abstract
  spanning lines %[1]d. </summary>
  <published>2025-01-10T00:00:00Z</published>
  <link href="http://arxiv.org/abs/%[1]d" rel="alternate" type="text/html"/>
  <link title="pdf" href="http://arxiv.org/pdf/%[1]d" rel="related" type="application/pdf"/>
</entry>`, i)
	}
	b.WriteString(`<entry><id>x</id><title>No summary</title></entry>`)
	b.WriteString(`</feed>`)
	return b.String()
}

func TestArxivAdapter(t *testing.T) {
	server := serve(t, "application/atom+xml", arxivFeed(2))

	articles := NewArxivAdapter(server.Client(), "test").Fetch(context.Background(), server.URL)
	if len(articles) != 2 {
		t.Fatalf("Expected 2 articles, got %d", len(articles))
	}
	first := articles[0]
	if first.Title != "Paper number 0" {
		t.Errorf("Expected whitespace-normalized title, got %q", first.Title)
	}
	if first.Content != "An abstract spanning lines 0." {
		t.Errorf("Unexpected summary: %q", first.Content)
	}
	if first.Source != "http://arxiv.org/abs/0" {
		t.Errorf("Expected text/html link, got %q", first.Source)
	}
	if first.Published == nil {
		t.Error("Expected published date from entry")
	}
}

func TestArxivAdapterCapsItems(t *testing.T) {
	server := serve(t, "application/atom+xml", arxivFeed(20))
	articles := NewArxivAdapter(server.Client(), "test").Fetch(context.Background(), server.URL)
	if len(articles) != MaxItemsPerSource {
		t.Errorf("Expected %d articles, got %d", MaxItemsPerSource, len(articles))
	}
}

type rssItem struct {
	link      string
	published time.Time
}

func rssFeed(items []rssItem) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>Test</title><link>https://feed.example</link><description>d</description>`)
	for i, item := range items {
		fmt.Fprintf(&b, "<item><title>Item %d</title><link>%s</link>", i, item.link)
		if !item.published.IsZero() {
			fmt.Fprintf(&b, "<pubDate>%s</pubDate>", item.published.Format(time.RFC1123Z))
		}
		b.WriteString("</item>")
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func TestRSSAdapterRecencyWindow(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	server := serve(t, "application/rss+xml", rssFeed([]rssItem{
		{link: "https://n.example/stale", published: now.Add(-8 * 24 * time.Hour)},
		{link: "https://n.example/boundary", published: now.Add(-RecencyWindow + time.Second)},
		{link: "https://n.example/over", published: now.Add(-RecencyWindow - time.Second)},
		{link: "https://n.example/undated"},
	}))

	adapter := NewRSSAdapter(server.Client(), "test", &mockExtractor{}).WithClock(func() time.Time { return now })
	articles := adapter.Fetch(context.Background(), server.URL)

	var links []string
	for _, a := range articles {
		links = append(links, a.Source)
	}
	want := []string{"https://n.example/boundary", "https://n.example/undated"}
	if strings.Join(links, ",") != strings.Join(want, ",") {
		t.Fatalf("Expected %v, got %v", want, links)
	}
	if articles[1].Published == nil || !articles[1].Published.Equal(now) {
		t.Errorf("Undated entries should default to now, got %v", articles[1].Published)
	}
}

func TestRSSAdapterDedupesAndDropsEmpty(t *testing.T) {
	now := time.Now()
	server := serve(t, "application/rss+xml", rssFeed([]rssItem{
		{link: "https://n.example/a", published: now},
		{link: "https://n.example/a", published: now},
		{link: "", published: now},
		{link: "https://n.example/empty", published: now},
		{link: "https://n.example/b", published: now},
	}))

	extractor := &mockExtractor{content: map[string]string{"https://n.example/empty": ""}}
	articles := NewRSSAdapter(server.Client(), "test", extractor).Fetch(context.Background(), server.URL)

	if len(articles) != 2 {
		t.Fatalf("Expected 2 articles, got %d: %+v", len(articles), articles)
	}
	if articles[0].Source != "https://n.example/a" || articles[1].Source != "https://n.example/b" {
		t.Errorf("Unexpected articles: %+v", articles)
	}
}

func TestRSSAdapterCapsItems(t *testing.T) {
	now := time.Now()
	items := make([]rssItem, 20)
	for i := range items {
		items[i] = rssItem{link: fmt.Sprintf("https://n.example/%d", i), published: now}
	}
	server := serve(t, "application/rss+xml", rssFeed(items))

	articles := NewRSSAdapter(server.Client(), "test", &mockExtractor{}).Fetch(context.Background(), server.URL)
	if len(articles) != MaxItemsPerSource {
		t.Errorf("Expected %d articles, got %d", MaxItemsPerSource, len(articles))
	}
}

func TestAdaptersNeverFail(t *testing.T) {
	malformed := serve(t, "text/plain", "this is {not valid <json> or xml")
	client := &http.Client{Timeout: time.Second}
	extractor := &mockExtractor{}

	adapters := map[string]Adapter{
		"api":    NewAPIAdapter(client, "test", extractor),
		"reddit": NewRedditAdapter(client, "test", extractor),
		"arxiv":  NewArxivAdapter(client, "test"),
		"rss":    NewRSSAdapter(client, "test", extractor),
	}

	for name, adapter := range adapters {
		t.Run(name, func(t *testing.T) {
			for _, u := range []string{unreachableURL, malformed.URL, "::not a url::"} {
				articles := adapter.Fetch(context.Background(), u)
				if articles == nil || len(articles) != 0 {
					t.Errorf("Fetch(%q) = %v, want empty non-nil slice", u, articles)
				}
			}
		})
	}
}

// stubAdapter returns fixed articles after an optional delay.
type stubAdapter struct {
	delay    time.Duration
	articles []core.Article
	panics   bool
}

func (s *stubAdapter) Fetch(ctx context.Context, sourceURL string) []core.Article {
	if s.panics {
		panic("boom")
	}
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return []core.Article{}
	}
	out := make([]core.Article, len(s.articles))
	for i, a := range s.articles {
		a.Source = sourceURL + "#" + a.Title
		out[i] = a
	}
	return out
}

func TestAggregatorPreservesSourceOrder(t *testing.T) {
	registry := NewRegistry()
	registry.Register(core.SourceTypeAPI, &stubAdapter{delay: 50 * time.Millisecond, articles: []core.Article{{Title: "slow"}}})
	registry.Register(core.SourceTypeRSS, &stubAdapter{articles: []core.Article{{Title: "fast1"}, {Title: "fast2"}}})
	registry.Register(core.SourceTypeReddit, &stubAdapter{panics: true})

	aggregator := NewAggregator(registry, AggregateOptions{MaxConcurrency: 4, Timeout: time.Second})
	articles := aggregator.Aggregate(context.Background(), []core.Source{
		{URL: "https://api.example", Type: core.SourceTypeAPI, Active: true},
		{URL: "https://yt.example", Type: core.SourceTypeYouTube, Active: true},
		{URL: "https://reddit.example", Type: core.SourceTypeReddit, Active: true},
		{URL: "https://rss.example", Type: core.SourceTypeRSS, Active: true},
		{URL: "https://inactive.example", Type: core.SourceTypeRSS, Active: false},
	})

	var titles []string
	for _, a := range articles {
		titles = append(titles, a.Title)
	}
	if got := strings.Join(titles, ","); got != "slow,fast1,fast2" {
		t.Errorf("Expected source-order concatenation, got %q", got)
	}
}

func TestAggregatorAppliesPerSourceTimeout(t *testing.T) {
	registry := NewRegistry()
	registry.Register(core.SourceTypeAPI, &stubAdapter{delay: time.Minute, articles: []core.Article{{Title: "hung"}}})
	registry.Register(core.SourceTypeRSS, &stubAdapter{articles: []core.Article{{Title: "ok"}}})

	aggregator := NewAggregator(registry, AggregateOptions{MaxConcurrency: 2, Timeout: 100 * time.Millisecond})

	start := time.Now()
	articles := aggregator.Aggregate(context.Background(), []core.Source{
		{URL: "https://hung.example", Type: core.SourceTypeAPI, Active: true},
		{URL: "https://rss.example", Type: core.SourceTypeRSS, Active: true},
	})
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Aggregation blocked on hung source for %v", elapsed)
	}
	if len(articles) != 1 || articles[0].Title != "ok" {
		t.Errorf("Expected only the healthy source's article, got %+v", articles)
	}
}

// slowExtractor takes delay per page but gives up when ctx ends.
type slowExtractor struct {
	delay time.Duration
}

func (s *slowExtractor) Extract(ctx context.Context, pageURL string) string {
	select {
	case <-time.After(s.delay):
		return "Extracted body text for " + pageURL
	case <-ctx.Done():
		return ""
	}
}

func TestAggregatorBudgetCoversEveryExtraction(t *testing.T) {
	hits := make([]map[string]any, MaxItemsPerSource)
	for i := range hits {
		hits[i] = map[string]any{"title": fmt.Sprintf("Hit %d", i), "url": fmt.Sprintf("https://a.example/%d", i)}
	}
	body, _ := json.Marshal(map[string]any{"hits": hits})
	server := serve(t, "application/json", string(body))

	// Each page fits in one request timeout, but all of them together do not.
	requestTimeout := 100 * time.Millisecond
	registry := NewRegistry()
	registry.Register(core.SourceTypeAPI, NewAPIAdapter(server.Client(), "test", &slowExtractor{delay: 40 * time.Millisecond}))

	aggregator := NewAggregator(registry, AggregateOptions{MaxConcurrency: 1, Timeout: SourceBudget(requestTimeout)})
	articles := aggregator.Aggregate(context.Background(), []core.Source{
		{URL: server.URL, Type: core.SourceTypeAPI, Active: true},
	})
	if len(articles) != MaxItemsPerSource {
		t.Errorf("Expected all %d articles of a slow but healthy source, got %d", MaxItemsPerSource, len(articles))
	}
}

func TestSourceBudget(t *testing.T) {
	if got := SourceBudget(10 * time.Second); got != time.Minute {
		t.Errorf("SourceBudget(10s) = %v, want 1m", got)
	}
	if got := DefaultAggregateOptions().Timeout; got < SourceBudget(fetch.DefaultTimeout) {
		t.Errorf("Default source timeout %v is shorter than its requests need", got)
	}
}

// countingAdapter records peak concurrency.
type countingAdapter struct {
	mu       sync.Mutex
	inFlight int
	peak     int
}

func (c *countingAdapter) Fetch(ctx context.Context, sourceURL string) []core.Article {
	c.mu.Lock()
	c.inFlight++
	if c.inFlight > c.peak {
		c.peak = c.inFlight
	}
	c.mu.Unlock()

	time.Sleep(20 * time.Millisecond)

	c.mu.Lock()
	c.inFlight--
	c.mu.Unlock()
	return []core.Article{{Source: sourceURL, Title: "t", Content: "c"}}
}

func TestAggregatorBoundsConcurrency(t *testing.T) {
	counter := &countingAdapter{}
	registry := NewRegistry()
	registry.Register(core.SourceTypeRSS, counter)

	srcs := make([]core.Source, 12)
	for i := range srcs {
		srcs[i] = core.Source{URL: fmt.Sprintf("https://s.example/%d", i), Type: core.SourceTypeRSS, Active: true}
	}

	articles := NewAggregator(registry, AggregateOptions{MaxConcurrency: 3, Timeout: time.Second}).Aggregate(context.Background(), srcs)
	if len(articles) != 12 {
		t.Fatalf("Expected 12 articles, got %d", len(articles))
	}
	if counter.peak > 3 {
		t.Errorf("Expected at most 3 concurrent fetches, saw %d", counter.peak)
	}
	for i, a := range articles {
		if want := fmt.Sprintf("https://s.example/%d", i); a.Source != want {
			t.Errorf("articles[%d].Source = %q, want %q", i, a.Source, want)
		}
	}
}

func TestDefaultRegistry(t *testing.T) {
	registry := DefaultRegistry(http.DefaultClient, "test", &mockExtractor{})
	for _, st := range []core.SourceType{core.SourceTypeAPI, core.SourceTypeReddit, core.SourceTypeArxiv, core.SourceTypeRSS} {
		if _, ok := registry.Lookup(st); !ok {
			t.Errorf("Expected adapter for %s", st)
		}
	}
	if _, ok := registry.Lookup(core.SourceTypeYouTube); ok {
		t.Error("YOUTUBE should have no adapter")
	}
}
