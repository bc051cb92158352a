package sources

import (
	"context"
	"log/slog"
	"net/http"
	"newsroom/internal/core"
	"newsroom/internal/fetch"
	"newsroom/internal/logger"
	"sync"
	"time"
)

// Registry maps source types to adapters. YOUTUBE has no adapter by default.
type Registry struct {
	adapters map[core.SourceType]Adapter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[core.SourceType]Adapter)}
}

// DefaultRegistry wires the API, Reddit, arXiv and RSS adapters over one shared client.
func DefaultRegistry(client *http.Client, userAgent string, extractor ContentExtractor) *Registry {
	r := NewRegistry()
	r.Register(core.SourceTypeAPI, NewAPIAdapter(client, userAgent, extractor))
	r.Register(core.SourceTypeReddit, NewRedditAdapter(client, userAgent, extractor))
	r.Register(core.SourceTypeArxiv, NewArxivAdapter(client, userAgent))
	r.Register(core.SourceTypeRSS, NewRSSAdapter(client, userAgent, extractor))
	return r
}

// Register sets the adapter for a source type, replacing any previous one.
func (r *Registry) Register(sourceType core.SourceType, adapter Adapter) {
	r.adapters[sourceType] = adapter
}

// Lookup returns the adapter for a source type.
func (r *Registry) Lookup(sourceType core.SourceType) (Adapter, bool) {
	adapter, ok := r.adapters[sourceType]
	return adapter, ok
}

// AggregateOptions configures the aggregation process
type AggregateOptions struct {
	MaxConcurrency int           // Number of sources fetched concurrently (1..8)
	Timeout        time.Duration // Deadline applied to each whole source fetch
}

// SourceBudget is the whole-source deadline for a given per-request timeout: one
// listing request plus one page extraction for each examined item.
func SourceBudget(requestTimeout time.Duration) time.Duration {
	return requestTimeout * time.Duration(1+MaxItemsPerSource)
}

// DefaultAggregateOptions returns sensible defaults
func DefaultAggregateOptions() AggregateOptions {
	return AggregateOptions{
		MaxConcurrency: 4,
		Timeout:        SourceBudget(fetch.DefaultTimeout),
	}
}

// Aggregator fans source fetches out over a bounded worker pool.
type Aggregator struct {
	registry *Registry
	opts     AggregateOptions
	log      *slog.Logger
}

// NewAggregator creates an Aggregator. Out-of-range concurrency falls back to the default.
func NewAggregator(registry *Registry, opts AggregateOptions) *Aggregator {
	defaults := DefaultAggregateOptions()
	if opts.MaxConcurrency < 1 || opts.MaxConcurrency > 8 {
		opts.MaxConcurrency = defaults.MaxConcurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	return &Aggregator{registry: registry, opts: opts, log: logger.Get()}
}

// Aggregate fetches every active source and returns all admitted articles,
// concatenated in source input order regardless of completion order.
func (a *Aggregator) Aggregate(ctx context.Context, srcs []core.Source) []core.Article {
	if len(srcs) == 0 {
		return []core.Article{}
	}

	a.log.Info("Starting aggregation", "source_count", len(srcs), "max_concurrency", a.opts.MaxConcurrency)

	results := make([][]core.Article, len(srcs))
	sem := make(chan struct{}, a.opts.MaxConcurrency)
	var wg sync.WaitGroup
	skipped := 0

	for i, src := range srcs {
		if !src.Active {
			continue
		}

		adapter, ok := a.registry.Lookup(src.Type)
		if !ok {
			a.log.Warn("No adapter for source type, skipping", "type", src.Type, "url", src.URL)
			skipped++
			continue
		}

		select {
		case <-ctx.Done():
			a.log.Warn("Aggregation cancelled", "reason", ctx.Err())
			wg.Wait()
			return flatten(results)
		case sem <- struct{}{}: // Acquire semaphore
		}

		wg.Add(1)
		go func(i int, src core.Source, adapter Adapter) {
			defer wg.Done()
			defer func() { <-sem }() // Release semaphore

			results[i] = a.fetchOne(ctx, src, adapter)
		}(i, src, adapter)
	}

	wg.Wait()

	articles := flatten(results)
	a.log.Info("Aggregation completed", "sources", len(srcs), "skipped", skipped, "articles", len(articles))
	return articles
}

func (a *Aggregator) fetchOne(ctx context.Context, src core.Source, adapter Adapter) (articles []core.Article) {
	defer recoverFetch(a.log, src.Type, src.URL, &articles)

	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	start := time.Now()
	articles = adapter.Fetch(ctx, src.URL)
	a.log.Debug("Fetched source", "type", src.Type, "url", src.URL, "articles", len(articles), "duration", time.Since(start))
	return articles
}

func flatten(results [][]core.Article) []core.Article {
	articles := []core.Article{}
	for _, r := range results {
		articles = append(articles, r...)
	}
	return articles
}
