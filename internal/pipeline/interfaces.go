package pipeline

import (
	"context"
	"newsroom/internal/core"
	"newsroom/internal/curate"
)

// TopicLister returns a user's topic subscriptions
type TopicLister interface {
	ListForUser(ctx context.Context, userID int64) ([]core.TopicContext, error)
}

// SourceLister returns the active registered sources of a set of topics
type SourceLister interface {
	ListActiveByTopics(ctx context.Context, topicIDs []int64) ([]core.Source, error)
}

// ArticleAggregator fetches sources into one article pool.
// Implementations swallow per-source failures.
type ArticleAggregator interface {
	Aggregate(ctx context.Context, sources []core.Source) []core.Article
}

// TrendFetcher returns "trends to watch" items for topics
type TrendFetcher interface {
	FetchAll(ctx context.Context, topics []core.TopicContext) []core.TrendItem
}

// StyleLoader returns style excerpts for a user, never empty
type StyleLoader interface {
	Load(ctx context.Context, userID int64, maxSamples int) []string
}

// NewsletterCurator turns the prepared pool into a curation result
type NewsletterCurator interface {
	Curate(ctx context.Context, req curate.Request) (curate.Result, error)
}
