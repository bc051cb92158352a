// Package sources fetches articles from heterogeneous content sources and
// normalizes them into core.Article values.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"newsroom/internal/core"
	"newsroom/internal/fetch"
)

// MaxItemsPerSource caps how many upstream items an adapter examines per call.
const MaxItemsPerSource = 5

// Adapter fetches one source URL and returns the articles it admits.
// Implementations never return errors; failures are logged and yield a partial or empty list.
type Adapter interface {
	Fetch(ctx context.Context, sourceURL string) []core.Article
}

// ContentExtractor returns readable body text for a page, or "" on failure.
type ContentExtractor interface {
	Extract(ctx context.Context, pageURL string) string
}

// httpSource holds what every HTTP-backed adapter needs.
type httpSource struct {
	client    *http.Client
	userAgent string
	log       *slog.Logger
}

func (s httpSource) get(ctx context.Context, sourceURL string) ([]byte, error) {
	header := http.Header{}
	if s.userAgent != "" {
		header.Set("User-Agent", s.userAgent)
	}
	return fetch.Get(ctx, s.client, sourceURL, header)
}

func (s httpSource) getJSON(ctx context.Context, sourceURL string, v any) error {
	body, err := s.get(ctx, sourceURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode JSON from %s: %w", sourceURL, err)
	}
	return nil
}

// recoverFetch turns a panic inside an adapter into a logged empty result.
func recoverFetch(log *slog.Logger, kind core.SourceType, sourceURL string, out *[]core.Article) {
	if r := recover(); r != nil {
		log.Error("Adapter panicked", "type", kind, "url", sourceURL, "panic", r)
		*out = []core.Article{}
	}
}
