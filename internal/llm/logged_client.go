package llm

import (
	"context"
	"log/slog"
	"newsroom/internal/logger"
	"time"
)

// LoggedClient wraps a Generator and records latency and rough token usage per call.
type LoggedClient struct {
	next  Generator
	model string
	log   *slog.Logger
}

// NewLoggedClient wraps next. model is only used as a log attribute.
func NewLoggedClient(next Generator, model string) *LoggedClient {
	return &LoggedClient{next: next, model: model, log: logger.Get()}
}

// GenerateText implements Generator.
func (lc *LoggedClient) GenerateText(ctx context.Context, prompt string, options TextGenerationOptions) (string, error) {
	model := options.Model
	if model == "" {
		model = lc.model
	}

	startTime := time.Now()
	result, err := lc.next.GenerateText(ctx, prompt, options)
	latencyMs := time.Since(startTime).Milliseconds()

	if err != nil {
		lc.log.Error("LLM generation failed",
			"model", model,
			"latency_ms", latencyMs,
			"prompt_chars", len(prompt),
			"error", err,
		)
		return "", err
	}

	lc.log.Info("LLM generation completed",
		"model", model,
		"latency_ms", latencyMs,
		"structured", options.ResponseSchema != nil,
		"estimated_tokens", estimateTokens(prompt, result),
	)
	return result, nil
}

// estimateTokens approximates token count at four characters per token.
func estimateTokens(prompt, completion string) int {
	return (len(prompt) + len(completion)) / 4
}
