// Package style picks excerpts of a user's own writing to condition the curator's tone.
package style

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"newsroom/internal/logger"
	"strings"
	"sync"
	"unicode/utf8"
)

const (
	// DefaultTone is returned when the user has no usable samples.
	DefaultTone = "Tone: warm, professional, concise. Style: clear summaries, actionable insights, and friendly editorial flow."
	// DefaultMaxSamples is how many excerpts are sampled by default.
	DefaultMaxSamples = 3

	minParagraphLength = 100
)

// SampleSource lists the text of a user's active style samples.
type SampleSource interface {
	ListActiveTexts(ctx context.Context, userID int64) ([]string, error)
}

// Conditioner samples style excerpts.
type Conditioner struct {
	samples SampleSource
	mu      sync.Mutex
	rng     *rand.Rand
	log     *slog.Logger
}

// NewConditioner creates a Conditioner with a randomly seeded source.
func NewConditioner(samples SampleSource) *Conditioner {
	return NewConditionerWithSeed(samples, rand.Uint64(), rand.Uint64())
}

// NewConditionerWithSeed creates a Conditioner whose sampling is reproducible.
func NewConditionerWithSeed(samples SampleSource, seed1, seed2 uint64) *Conditioner {
	return &Conditioner{
		samples: samples,
		rng:     rand.New(rand.NewPCG(seed1, seed2)),
		log:     logger.Get(),
	}
}

// Load returns up to maxSamples distinct paragraphs from the user's samples, or
// a single DefaultTone entry when there is nothing usable.
func (c *Conditioner) Load(ctx context.Context, userID int64, maxSamples int) []string {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}

	texts, err := c.samples.ListActiveTexts(ctx, userID)
	if err != nil {
		c.log.Warn("Failed to load style samples, using default tone", "user_id", userID, "error", err)
		return []string{DefaultTone}
	}
	if len(texts) == 0 {
		return []string{DefaultTone}
	}

	paragraphs := Paragraphs(texts)
	if len(paragraphs) == 0 {
		c.log.Debug("No style paragraph long enough, using default tone", "user_id", userID)
		return []string{DefaultTone}
	}

	return c.sample(paragraphs, maxSamples)
}

// Paragraphs joins sample texts with a space, splits on newlines and keeps
// trimmed paragraphs longer than 100 characters.
func Paragraphs(texts []string) []string {
	combined := strings.Join(texts, " ")
	var out []string
	for _, p := range strings.Split(combined, "\n") {
		p = strings.TrimSpace(p)
		if utf8.RuneCountInString(p) > minParagraphLength {
			out = append(out, p)
		}
	}
	return out
}

// sample draws k paragraphs without replacement.
func (c *Conditioner) sample(paragraphs []string, k int) []string {
	k = min(k, len(paragraphs))

	c.mu.Lock()
	perm := c.rng.Perm(len(paragraphs))
	c.mu.Unlock()

	out := make([]string, k)
	for i := 0; i < k; i++ {
		out[i] = paragraphs[perm[i]]
	}
	return out
}
