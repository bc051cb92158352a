// Package relevance ranks aggregated articles against a user's topics and
// trims them to the word budgets sent to the curator.
package relevance

import (
	"newsroom/internal/core"
	"sort"
	"strings"
)

const (
	// DefaultArticleWords is the word budget for each article's content in the prompt.
	DefaultArticleWords = 40
	// DefaultTrendWords is the word budget for each trend summary in the prompt.
	DefaultTrendWords = 30

	ellipsis = "..."
)

// Scorer assigns a relevance score to an article for a set of topics.
type Scorer interface {
	Score(article core.Article, topics []string) int
}

// KeywordCountScorer counts case-insensitive, non-overlapping occurrences of each
// topic in the article text. A single repeated keyword can dominate the score;
// no length normalization is applied.
type KeywordCountScorer struct{}

// Score implements Scorer.
func (KeywordCountScorer) Score(article core.Article, topics []string) int {
	text := strings.ToLower(article.Content + " " + article.Title)
	score := 0
	for _, topic := range topics {
		topic = strings.ToLower(strings.TrimSpace(topic))
		if topic == "" {
			continue
		}
		score += strings.Count(text, topic)
	}
	return score
}

// Ranker orders articles by relevance.
type Ranker struct {
	scorer Scorer
}

// NewRanker creates a Ranker. A nil scorer uses KeywordCountScorer.
func NewRanker(scorer Scorer) *Ranker {
	if scorer == nil {
		scorer = KeywordCountScorer{}
	}
	return &Ranker{scorer: scorer}
}

type scored struct {
	article core.Article
	score   int
}

// Rank returns at most maxArticles articles, highest score first.
// Ties keep their input order. The input slice is not modified.
func (r *Ranker) Rank(articles []core.Article, topics []string, maxArticles int) []core.Article {
	if maxArticles <= 0 || len(articles) == 0 {
		return []core.Article{}
	}

	ranked := make([]scored, len(articles))
	for i, a := range articles {
		ranked[i] = scored{article: a, score: r.scorer.Score(a, topics)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	n := min(maxArticles, len(ranked))
	out := make([]core.Article, n)
	for i := range out {
		out[i] = ranked[i].article
	}
	return out
}

// Score returns the keyword-count relevance of one article.
func Score(article core.Article, topics []string) int {
	return KeywordCountScorer{}.Score(article, topics)
}

// Rank ranks with the default keyword-count scorer.
func Rank(articles []core.Article, topics []string, maxArticles int) []core.Article {
	return NewRanker(nil).Rank(articles, topics, maxArticles)
}

// TopTrends head-slices trends to maxTrends. Trends arrive pre-filtered per topic,
// so no scoring is applied.
func TopTrends(trends []core.TrendItem, maxTrends int) []core.TrendItem {
	if maxTrends <= 0 || len(trends) == 0 {
		return []core.TrendItem{}
	}
	n := min(maxTrends, len(trends))
	out := make([]core.TrendItem, n)
	copy(out, trends[:n])
	return out
}

// SummarizeWords keeps the first n words of text, appending "..." when words were dropped.
func SummarizeWords(text string, n int) string {
	words := strings.Fields(text)
	if n <= 0 {
		if len(words) == 0 {
			return ""
		}
		return ellipsis
	}
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + ellipsis
}

// SummarizeArticles returns copies of articles with content cut to the word budget.
func SummarizeArticles(articles []core.Article, words int) []core.Article {
	out := make([]core.Article, len(articles))
	for i, a := range articles {
		a.Content = SummarizeWords(a.Content, words)
		out[i] = a
	}
	return out
}

// SummarizeTrends returns copies of trends with summaries cut to the word budget.
func SummarizeTrends(trends []core.TrendItem, words int) []core.TrendItem {
	out := make([]core.TrendItem, len(trends))
	for i, t := range trends {
		t.Summary = SummarizeWords(t.Summary, words)
		out[i] = t
	}
	return out
}
