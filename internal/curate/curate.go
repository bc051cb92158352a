// Package curate turns a ranked article pool into structured newsletter content using an LLM.
package curate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"newsroom/internal/core"
	"newsroom/internal/llm"
	"newsroom/internal/logger"
	"newsroom/internal/relevance"
)

const (
	// DefaultMaxArticles is how many ranked articles reach the prompt.
	DefaultMaxArticles = 3
	// DefaultMaxTrends is how many trend items reach the prompt.
	DefaultMaxTrends = 3
	// DefaultMaxTokens caps the completion length.
	DefaultMaxTokens = int32(2048)
	// DefaultTemperature is used when Options.Temperature is nil.
	DefaultTemperature = float32(0.7)

	defaultArticleWords = relevance.DefaultArticleWords
	defaultTrendWords   = relevance.DefaultTrendWords
)

// CuratedLink is one recommended article.
type CuratedLink struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Source  string `json:"source"`
	Link    string `json:"link"`
}

// TopicSummary is a short blurb for one subscribed topic.
type TopicSummary struct {
	Topic string `json:"topic"`
	Blurb string `json:"blurb"`
}

// Trend is one "trend to watch" entry.
type Trend struct {
	Title     string `json:"title"`
	Explainer string `json:"explainer"`
	Link      string `json:"link"`
}

// CurationResult is the structured newsletter content returned by the model.
type CurationResult struct {
	Intro        string         `json:"intro"`
	CuratedLinks []CuratedLink  `json:"curated_links"`
	Summaries    []TopicSummary `json:"summaries"`
	Commentary   string         `json:"commentary"`
	Trends       []Trend        `json:"trends"`
}

// Result is either Curated or RawFallback.
type Result interface {
	isResult()
}

// Curated wraps a response that matched the schema.
type Curated struct {
	CurationResult
}

// RawFallback carries a response body that could not be parsed into a CurationResult.
type RawFallback struct {
	RawText string
}

func (Curated) isResult()     {}
func (RawFallback) isResult() {}

// Request is everything one curation call needs. Zero limits use the defaults.
type Request struct {
	Articles      []core.Article
	Topics        []string
	Trends        []core.TrendItem
	StyleExcerpts []string
	MaxArticles   int
	MaxTrends     int
	ArticleWords  int
	TrendWords    int
}

func (r Request) withDefaults() Request {
	if r.MaxArticles <= 0 {
		r.MaxArticles = DefaultMaxArticles
	}
	if r.MaxTrends < 0 {
		r.MaxTrends = 0
	} else if r.MaxTrends == 0 {
		r.MaxTrends = DefaultMaxTrends
	}
	if r.ArticleWords <= 0 {
		r.ArticleWords = defaultArticleWords
	}
	if r.TrendWords <= 0 {
		r.TrendWords = defaultTrendWords
	}
	return r
}

// Options tunes the completion request.
type Options struct {
	Model       string
	MaxTokens   int32
	Temperature *float32 // nil uses DefaultTemperature; zero is a valid setting
}

// Curator builds the curation prompt, calls the model once and parses the answer.
type Curator struct {
	llm    llm.Generator
	ranker *relevance.Ranker
	opts   Options
	log    *slog.Logger
}

// NewCurator creates a Curator. A nil ranker uses keyword-count ranking.
func NewCurator(generator llm.Generator, ranker *relevance.Ranker, opts Options) *Curator {
	if ranker == nil {
		ranker = relevance.NewRanker(nil)
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Temperature == nil {
		temperature := DefaultTemperature
		opts.Temperature = &temperature
	}
	return &Curator{llm: generator, ranker: ranker, opts: opts, log: logger.Get()}
}

// Prepare ranks and truncates the request's articles and trends to what the prompt will contain.
func (c *Curator) Prepare(req Request) ([]core.Article, []core.TrendItem) {
	return c.prepare(req.withDefaults())
}

func (c *Curator) prepare(req Request) ([]core.Article, []core.TrendItem) {
	articles := c.ranker.Rank(req.Articles, req.Topics, req.MaxArticles)
	trends := relevance.TopTrends(req.Trends, req.MaxTrends)
	return relevance.SummarizeArticles(articles, req.ArticleWords), relevance.SummarizeTrends(trends, req.TrendWords)
}

// Curate returns Curated when the model answers with the expected JSON and RawFallback
// otherwise, including an empty answer. Only a failed model call is returned as an error.
func (c *Curator) Curate(ctx context.Context, req Request) (Result, error) {
	req = req.withDefaults()
	articles, trends := c.prepare(req)

	prompt := BuildPrompt(PromptInput{
		Articles:      articles,
		Topics:        req.Topics,
		Trends:        trends,
		StyleExcerpts: req.StyleExcerpts,
		MaxArticles:   req.MaxArticles,
		MaxTrends:     req.MaxTrends,
	})

	c.log.Info("Curating newsletter",
		"pool_size", len(req.Articles),
		"articles", len(articles),
		"trends", len(trends),
		"topics", len(req.Topics),
	)

	response, err := c.llm.GenerateText(ctx, prompt, llm.TextGenerationOptions{
		Model:          c.opts.Model,
		MaxTokens:      c.opts.MaxTokens,
		Temperature:    c.opts.Temperature,
		ResponseSchema: ResponseSchema(),
	})
	if errors.Is(err, llm.ErrEmptyResponse) {
		c.log.Warn("Curation response was empty, using raw fallback")
		return RawFallback{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("curation request failed: %w", err)
	}

	result := ParseResponse(response, req.MaxArticles, req.MaxTrends)
	if _, ok := result.(RawFallback); ok {
		c.log.Warn("Curation response did not match schema, using raw fallback", "response_chars", len(response))
	}
	return result, nil
}
