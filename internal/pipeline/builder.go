package pipeline

import (
	"fmt"
	"net/http"
	"newsroom/internal/config"
	"newsroom/internal/curate"
	"newsroom/internal/fetch"
	"newsroom/internal/llm"
	"newsroom/internal/persistence"
	"newsroom/internal/relevance"
	"newsroom/internal/render"
	"newsroom/internal/sources"
	"newsroom/internal/style"
	"newsroom/internal/trends"
)

// Builder helps construct a fully configured Pipeline from application config
type Builder struct {
	cfg        *config.Config
	db         persistence.Repositories
	generator  llm.Generator
	httpClient *http.Client
	feeds      *trends.FeedMap
	registry   *sources.Registry
	style      StyleLoader
}

// NewBuilder creates a new pipeline builder
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg}
}

// WithDatabase sets the repositories used for topics, sources and style samples
func (b *Builder) WithDatabase(db persistence.Repositories) *Builder {
	b.db = db
	return b
}

// WithGenerator sets the LLM used for curation
func (b *Builder) WithGenerator(generator llm.Generator) *Builder {
	b.generator = generator
	return b
}

// WithHTTPClient overrides the shared outbound HTTP client
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithFeedMap overrides the trend feed mapping instead of loading trends.feeds_file
func (b *Builder) WithFeedMap(feeds *trends.FeedMap) *Builder {
	b.feeds = feeds
	return b
}

// WithRegistry overrides the source adapter registry
func (b *Builder) WithRegistry(registry *sources.Registry) *Builder {
	b.registry = registry
	return b
}

// WithStyleLoader overrides the style conditioner, mostly for reproducible sampling
func (b *Builder) WithStyleLoader(loader StyleLoader) *Builder {
	b.style = loader
	return b
}

// Build constructs a fully configured Pipeline
func (b *Builder) Build() (*Pipeline, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if b.db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if b.generator == nil {
		return nil, fmt.Errorf("LLM generator is required")
	}

	fetchTimeout := config.Duration(b.cfg.Fetch.Timeout, fetch.DefaultTimeout)
	userAgent := b.cfg.Fetch.UserAgent
	if userAgent == "" {
		userAgent = fetch.DefaultUserAgent
	}

	client := b.httpClient
	if client == nil {
		client = fetch.NewHTTPClient(fetchTimeout, b.cfg.Fetch.InsecureSkipVerify)
	}

	registry := b.registry
	if registry == nil {
		registry = sources.DefaultRegistry(client, userAgent, fetch.NewExtractor(client, userAgent))
	}

	opts := sources.DefaultAggregateOptions()
	opts.MaxConcurrency = b.cfg.Fetch.MaxConcurrency
	opts.Timeout = config.Duration(b.cfg.Fetch.SourceTimeout, sources.SourceBudget(fetchTimeout))
	aggregator := sources.NewAggregator(registry, opts)

	feeds := b.feeds
	if feeds == nil {
		var err error
		feeds, err = trends.LoadFeedMap(b.cfg.Trends.FeedsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load trend feeds: %w", err)
		}
	}

	loader := b.style
	if loader == nil {
		loader = style.NewConditioner(b.db.StyleSamples())
	}

	model := b.cfg.AI.Gemini.Model
	if model == "" {
		model = llm.DefaultModel
	}
	temperature := b.cfg.AI.Gemini.Temperature
	curator := curate.NewCurator(llm.NewLoggedClient(b.generator, model), relevance.NewRanker(nil), curate.Options{
		Model:       model,
		MaxTokens:   b.cfg.AI.Gemini.MaxTokens,
		Temperature: &temperature,
	})

	pipelineConfig := &Config{
		MaxArticles:  b.cfg.Curation.MaxArticles,
		MaxTrends:    b.cfg.Curation.MaxTrends,
		ArticleWords: b.cfg.Curation.ArticleWords,
		TrendWords:   b.cfg.Curation.TrendWords,
		StyleSamples: b.cfg.Curation.StyleSamples,
		Title:        b.cfg.App.Title,
		LogoURL:      b.cfg.App.LogoURL,
		Theme:        render.ThemeByName(b.cfg.App.Theme),
	}

	return NewPipeline(Components{
		Topics:     b.db.Topics(),
		Sources:    b.db.Sources(),
		Aggregator: aggregator,
		Trends:     trends.NewFetcher(feeds, client, userAgent, b.cfg.Trends.MaxItems),
		Style:      loader,
		Curator:    curator,
	}, pipelineConfig), nil
}
