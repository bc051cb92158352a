// Package pipeline runs the end-to-end newsletter generation for one user:
// topics, sources, aggregation, trends, ranking, style, curation and rendering.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"newsroom/internal/core"
	"newsroom/internal/curate"
	"newsroom/internal/logger"
	"newsroom/internal/render"
	"time"
)

// Pipeline orchestrates newsletter generation
type Pipeline struct {
	topics     TopicLister
	sources    SourceLister
	aggregator ArticleAggregator
	trends     TrendFetcher
	style      StyleLoader
	curator    NewsletterCurator

	config *Config
	now    func() time.Time
	log    *slog.Logger
}

// Config holds pipeline configuration
type Config struct {
	// Prompt budget
	MaxArticles  int
	MaxTrends    int
	ArticleWords int
	TrendWords   int
	StyleSamples int

	// Output settings
	Title   string
	LogoURL string
	Theme   render.Theme
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		MaxArticles:  curate.DefaultMaxArticles,
		MaxTrends:    curate.DefaultMaxTrends,
		ArticleWords: 40,
		TrendWords:   30,
		StyleSamples: 3,
		Title:        render.DefaultTitle,
		Theme:        render.DefaultTheme(),
	}
}

// Components groups the collaborators a Pipeline needs.
type Components struct {
	Topics     TopicLister
	Sources    SourceLister
	Aggregator ArticleAggregator
	Trends     TrendFetcher
	Style      StyleLoader
	Curator    NewsletterCurator
}

// NewPipeline creates a new pipeline with all dependencies
func NewPipeline(c Components, config *Config) *Pipeline {
	if config == nil {
		config = DefaultConfig()
	}
	return &Pipeline{
		topics:     c.Topics,
		sources:    c.Sources,
		aggregator: c.Aggregator,
		trends:     c.Trends,
		style:      c.Style,
		curator:    c.Curator,
		config:     config,
		now:        time.Now,
		log:        logger.Get(),
	}
}

// WithClock replaces the clock used for the newsletter date.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Newsletter is the rendered result of one generation run
type Newsletter struct {
	UserID   int64
	Subject  string
	HTML     string
	Result   curate.Result
	Fallback bool // the model answer did not match the schema
	Topics   []core.TopicContext
	Stats    ProcessingStats
}

// ProcessingStats tracks pipeline execution metrics
type ProcessingStats struct {
	Topics          int
	Sources         int
	ArticlesFetched int
	TrendsFetched   int
	StyleExcerpts   int
	ProcessingTime  time.Duration
	StartTime       time.Time
	EndTime         time.Time
}

// Generate builds the newsletter for userID. Source, extraction and parse failures
// degrade the result instead of failing it; repository, model and render failures
// are returned.
func (p *Pipeline) Generate(ctx context.Context, userID int64) (*Newsletter, error) {
	startTime := p.now()
	stats := ProcessingStats{StartTime: startTime}
	log := p.log.With("user_id", userID)

	// Step 1: topics
	topics, err := p.topics.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load topics: %w", err)
	}
	stats.Topics = len(topics)

	topicIDs := make([]int64, 0, len(topics))
	topicNames := make([]string, 0, len(topics))
	for _, t := range topics {
		topicIDs = append(topicIDs, t.TopicID)
		topicNames = append(topicNames, t.TopicName)
	}
	if len(topics) == 0 {
		log.Warn("User has no topic subscriptions")
	}

	// Step 2: sources and aggregation
	srcs, err := p.sources.ListActiveByTopics(ctx, topicIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load sources: %w", err)
	}
	stats.Sources = len(srcs)

	articles := p.aggregator.Aggregate(ctx, srcs)
	stats.ArticlesFetched = len(articles)
	log.Info("Aggregated articles", "topics", len(topics), "sources", len(srcs), "articles", len(articles))

	// Step 3: trends
	trendItems := p.trends.FetchAll(ctx, topics)
	stats.TrendsFetched = len(trendItems)

	// Step 4: style
	excerpts := p.style.Load(ctx, userID, p.config.StyleSamples)
	stats.StyleExcerpts = len(excerpts)

	// Step 5: curation
	result, err := p.curator.Curate(ctx, curate.Request{
		Articles:      articles,
		Topics:        topicNames,
		Trends:        trendItems,
		StyleExcerpts: excerpts,
		MaxArticles:   p.config.MaxArticles,
		MaxTrends:     p.config.MaxTrends,
		ArticleWords:  p.config.ArticleWords,
		TrendWords:    p.config.TrendWords,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to curate newsletter: %w", err)
	}
	_, fallback := result.(curate.RawFallback)

	// Step 6: render
	html, err := render.HTML(result, render.Options{
		Title:   p.config.Title,
		LogoURL: p.config.LogoURL,
		Date:    startTime,
		Theme:   p.config.Theme,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render newsletter: %w", err)
	}

	stats.EndTime = p.now()
	stats.ProcessingTime = stats.EndTime.Sub(startTime)

	log.Info("Newsletter generated",
		"articles", stats.ArticlesFetched,
		"trends", stats.TrendsFetched,
		"fallback", fallback,
		"duration", stats.ProcessingTime,
	)

	return &Newsletter{
		UserID:   userID,
		Subject:  render.Subject(p.config.Title, startTime),
		HTML:     html,
		Result:   result,
		Fallback: fallback,
		Topics:   topics,
		Stats:    stats,
	}, nil
}
