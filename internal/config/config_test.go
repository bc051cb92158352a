package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "newsroom.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load(writeConfig(t, "logging:\n  level: debug\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.AI.Gemini.APIKey != "test-key" {
		t.Errorf("Expected API key from environment, got %q", cfg.AI.Gemini.APIKey)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected logging level from file, got %q", cfg.Logging.Level)
	}
	if cfg.Curation.MaxArticles != 3 || cfg.Curation.MaxTrends != 3 {
		t.Errorf("Unexpected curation defaults: %+v", cfg.Curation)
	}
	if cfg.Curation.ArticleWords != 40 || cfg.Curation.TrendWords != 30 {
		t.Errorf("Unexpected word budgets: %+v", cfg.Curation)
	}
	if cfg.Fetch.MaxConcurrency != 4 {
		t.Errorf("Expected default concurrency 4, got %d", cfg.Fetch.MaxConcurrency)
	}
	if cfg.Fetch.InsecureSkipVerify {
		t.Error("TLS verification must be enabled by default")
	}
	if cfg.Schedule.PassTimeout != "30m" || cfg.Fetch.SourceTimeout != "" {
		t.Errorf("Unexpected timeouts: pass %q source %q", cfg.Schedule.PassTimeout, cfg.Fetch.SourceTimeout)
	}
	if cfg.Server.WriteTimeout != 120*time.Second {
		t.Errorf("Expected write timeout 120s, got %v", cfg.Server.WriteTimeout)
	}
	if Get() != cfg {
		t.Error("Get should return the loaded configuration")
	}
}

func TestLoadMissingAPIKeyIsFatal(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	for _, key := range []string{"GEMINI_API_KEY", "GOOGLE_GEMINI_API_KEY", "GOOGLE_AI_API_KEY", "AI_GEMINI_API_KEY"} {
		t.Setenv(key, "")
	}

	_, err := Load(writeConfig(t, "app:\n  debug: false\n"))
	if err == nil {
		t.Fatal("Expected error when Gemini API key is missing")
	}
	if !strings.Contains(err.Error(), "Gemini API key is required") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "bad duration",
			body:    "fetch:\n  timeout: soon\n",
			wantErr: "invalid duration for fetch.timeout",
		},
		{
			name:    "bad source timeout",
			body:    "fetch:\n  source_timeout: forever\n",
			wantErr: "invalid duration for fetch.source_timeout",
		},
		{
			name:    "bad pass timeout",
			body:    "schedule:\n  pass_timeout: 1 hour\n",
			wantErr: "invalid duration for schedule.pass_timeout",
		},
		{
			name:    "concurrency too high",
			body:    "fetch:\n  max_concurrency: 32\n",
			wantErr: "fetch.max_concurrency",
		},
		{
			name:    "unknown driver",
			body:    "database:\n  driver: mongo\n",
			wantErr: "Unknown database driver",
		},
		{
			name:    "resend without key",
			body:    "delivery:\n  transport: resend\n",
			wantErr: "Resend transport requires an API key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Reset()
			t.Cleanup(Reset)
			t.Setenv("GEMINI_API_KEY", "test-key")
			t.Setenv("RESEND_API_KEY", "")

			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestIsValidAPIKey(t *testing.T) {
	if isValidAPIKey("") || isValidAPIKey("YOUR_API_KEY") {
		t.Error("Empty and placeholder keys must be rejected")
	}
	if !isValidAPIKey("AIza-real-key") {
		t.Error("Real-looking key should be accepted")
	}
}

func TestDuration(t *testing.T) {
	if got := Duration("", 5*time.Second); got != 5*time.Second {
		t.Errorf("Expected fallback, got %v", got)
	}
	if got := Duration("250ms", time.Second); got != 250*time.Millisecond {
		t.Errorf("Expected 250ms, got %v", got)
	}
	if got := Duration("bogus", time.Second); got != time.Second {
		t.Errorf("Expected fallback for invalid input, got %v", got)
	}
}
