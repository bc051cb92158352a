package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"
)

const (
	// DefaultModel is the default Gemini model used for curation.
	DefaultModel = "gemini-flash-lite-latest" // Gemini Flash Lite (latest version)
	// DefaultTimeout bounds a single completion call.
	DefaultTimeout = 60 * time.Second
)

var (
	// ErrMissingAPIKey is returned when no Gemini API key is configured.
	ErrMissingAPIKey = errors.New("gemini API key is required. Set GEMINI_API_KEY environment variable or ai.gemini.api_key in config file")
	// ErrEmptyResponse is returned when the call succeeded but produced no text,
	// for example when the answer was blocked by a safety filter.
	ErrEmptyResponse = errors.New("empty response from LLM")
)

// Generator produces a completion for a prompt.
type Generator interface {
	GenerateText(ctx context.Context, prompt string, options TextGenerationOptions) (string, error)
}

// Client represents a client for interacting with an LLM.
type Client struct {
	modelName string
	timeout   time.Duration
	gClient   *genai.Client
}

// Config holds what NewClient needs.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// TextGenerationOptions contains options for text generation
type TextGenerationOptions struct {
	MaxTokens      int32         // Maximum number of tokens to generate
	Temperature    *float32      // Temperature for randomness (0.0 to 2.0); nil keeps the model default
	Model          string        // Model to use (optional, defaults to client's model)
	ResponseSchema *genai.Schema // Optional: schema for structured JSON output
}

// NewClient creates a Gemini client. A missing API key is a configuration error.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		modelName: cfg.Model,
		timeout:   cfg.Timeout,
		gClient:   gClient,
	}, nil
}

// ModelName returns the default model of the client.
func (c *Client) ModelName() string {
	return c.modelName
}

// GenerateText generates text using the LLM with specified options.
// It makes exactly one non-streaming request.
func (c *Client) GenerateText(ctx context.Context, prompt string, options TextGenerationOptions) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	modelName := c.modelName
	if options.Model != "" {
		modelName = options.Model
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}

	resp, err := c.gClient.Models.GenerateContent(ctx, modelName, contents, buildConfig(options))
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}

	return text, nil
}

// buildConfig maps options onto the SDK config, or nil when none are set.
func buildConfig(options TextGenerationOptions) *genai.GenerateContentConfig {
	if options.MaxTokens <= 0 && options.Temperature == nil && options.ResponseSchema == nil {
		return nil
	}

	config := &genai.GenerateContentConfig{}
	if options.MaxTokens > 0 {
		config.MaxOutputTokens = options.MaxTokens
	}
	if options.Temperature != nil {
		temp := *options.Temperature
		config.Temperature = &temp
	}
	if options.ResponseSchema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = options.ResponseSchema
	}
	return config
}
