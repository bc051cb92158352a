package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      App      `mapstructure:"app"`
	Logging  Logging  `mapstructure:"logging"`
	AI       AI       `mapstructure:"ai"`
	Database Database `mapstructure:"database"`
	Fetch    Fetch    `mapstructure:"fetch"`
	Curation Curation `mapstructure:"curation"`
	Trends   Trends   `mapstructure:"trends"`
	Delivery Delivery `mapstructure:"delivery"`
	Server   Server   `mapstructure:"server"`
	Schedule Schedule `mapstructure:"schedule"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	ConfigFile string `mapstructure:"config_file"`
	Title      string `mapstructure:"title"`    // Newsletter heading and subject prefix
	LogoURL    string `mapstructure:"logo_url"` // Optional header logo
	Theme      string `mapstructure:"theme"`    // default or minimal
}

// Logging holds logging configuration
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AI holds AI/LLM configuration
type AI struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Timeout     string  `mapstructure:"timeout"`
	MaxTokens   int32   `mapstructure:"max_tokens"`
	Temperature float32 `mapstructure:"temperature"`
}

// Database holds the source registry / delivery log database configuration
type Database struct {
	Driver string `mapstructure:"driver"` // postgres or sqlite3
	DSN    string `mapstructure:"dsn"`
}

// Fetch holds outbound HTTP configuration shared by adapters and the extractor
type Fetch struct {
	Timeout            string `mapstructure:"timeout"`
	SourceTimeout      string `mapstructure:"source_timeout"` // Whole-source budget; empty derives it from timeout
	UserAgent          string `mapstructure:"user_agent"`
	MaxConcurrency     int    `mapstructure:"max_concurrency"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
}

// Curation holds ranking and prompt budget configuration
type Curation struct {
	MaxArticles  int `mapstructure:"max_articles"`
	MaxTrends    int `mapstructure:"max_trends"`
	ArticleWords int `mapstructure:"article_words"`
	TrendWords   int `mapstructure:"trend_words"`
	StyleSamples int `mapstructure:"style_samples"`
}

// Trends holds trend feed configuration
type Trends struct {
	FeedsFile string `mapstructure:"feeds_file"`
	MaxItems  int    `mapstructure:"max_items"`
}

// Delivery holds transport configuration
type Delivery struct {
	Transport   string       `mapstructure:"transport"` // smtp or resend
	FromAddress string       `mapstructure:"from_address"`
	FromName    string       `mapstructure:"from_name"`
	Subject     string       `mapstructure:"subject"`
	Timeout     string       `mapstructure:"timeout"`
	SMTP        SMTPConfig   `mapstructure:"smtp"`
	Resend      ResendConfig `mapstructure:"resend"`
}

// SMTPConfig holds SMTP configuration
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// ResendConfig holds Resend email API configuration
type ResendConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// Server holds HTTP server configuration
type Server struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	AdminAPIKey  string        `mapstructure:"admin_api_key"` // Guards schedule triggers; empty disables them
	CORS         CORS          `mapstructure:"cors"`
}

// CORS holds CORS middleware configuration
type CORS struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Schedule holds scheduled run configuration
type Schedule struct {
	Interval    string `mapstructure:"interval"`
	PassTimeout string `mapstructure:"pass_timeout"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".newsroom")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.App.ConfigFile = viper.ConfigFileUsed()

	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.title", "Your Weekly Digest")
	viper.SetDefault("app.theme", "default")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("ai.gemini.model", "gemini-flash-lite-latest")
	viper.SetDefault("ai.gemini.timeout", "60s")
	viper.SetDefault("ai.gemini.max_tokens", 4096)
	viper.SetDefault("ai.gemini.temperature", 0.7)

	viper.SetDefault("database.driver", "sqlite3")
	viper.SetDefault("database.dsn", "newsroom.db")

	viper.SetDefault("fetch.timeout", "10s")
	viper.SetDefault("fetch.user_agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	viper.SetDefault("fetch.max_concurrency", 4)
	viper.SetDefault("fetch.insecure_skip_verify", false)

	viper.SetDefault("curation.max_articles", 3)
	viper.SetDefault("curation.max_trends", 3)
	viper.SetDefault("curation.article_words", 40)
	viper.SetDefault("curation.trend_words", 30)
	viper.SetDefault("curation.style_samples", 3)

	viper.SetDefault("trends.feeds_file", "trend_feeds.yaml")
	viper.SetDefault("trends.max_items", 10)

	viper.SetDefault("delivery.transport", "smtp")
	viper.SetDefault("delivery.from_name", "Newsroom")
	viper.SetDefault("delivery.subject", "Your Weekly Digest")
	viper.SetDefault("delivery.timeout", "15s")
	viper.SetDefault("delivery.smtp.port", 587)
	viper.SetDefault("delivery.resend.base_url", "https://api.resend.com")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "120s")
	viper.SetDefault("server.cors.enabled", false)

	viper.SetDefault("schedule.interval", "10m")
	viper.SetDefault("schedule.pass_timeout", "30m")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	bindEnvKeys("database.dsn", []string{
		"DATABASE_URL",
		"DATABASE_DSN",
	})

	bindEnvKeys("delivery.smtp.host", []string{
		"SMTP_HOST",
		"EMAIL_SMTP_HOST",
	})

	bindEnvKeys("delivery.smtp.username", []string{
		"SMTP_USERNAME",
		"EMAIL_USERNAME",
	})

	bindEnvKeys("delivery.smtp.password", []string{
		"SMTP_PASSWORD",
		"EMAIL_PASSWORD",
	})

	bindEnvKeys("delivery.resend.api_key", []string{
		"RESEND_API_KEY",
	})

	bindEnvKeys("server.admin_api_key", []string{
		"ADMIN_API_KEY",
	})

	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"NEWSROOM_DEBUG",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) error {
	if config.Trends.FeedsFile != "" {
		config.Trends.FeedsFile = expandPath(config.Trends.FeedsFile)
	}
	if config.Database.Driver == "sqlite3" && config.Database.DSN != "" {
		config.Database.DSN = expandPath(config.Database.DSN)
	}
	if config.App.Debug {
		config.Logging.Level = "debug"
	}

	durations := map[string]string{
		"ai.gemini.timeout":     config.AI.Gemini.Timeout,
		"fetch.timeout":         config.Fetch.Timeout,
		"fetch.source_timeout":  config.Fetch.SourceTimeout,
		"delivery.timeout":      config.Delivery.Timeout,
		"schedule.interval":     config.Schedule.Interval,
		"schedule.pass_timeout": config.Schedule.PassTimeout,
	}

	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig ensures required configuration is present
func validateConfig(config *Config) error {
	var errors []string

	if !isValidAPIKey(config.AI.Gemini.APIKey) {
		errors = append(errors, "Gemini API key is required. Set GEMINI_API_KEY environment variable or ai.gemini.api_key in config file.")
	}

	switch config.Database.Driver {
	case "postgres", "sqlite3":
	default:
		errors = append(errors, fmt.Sprintf("Unknown database driver: %s. Supported: postgres, sqlite3", config.Database.Driver))
	}
	if config.Database.DSN == "" {
		errors = append(errors, "Database DSN is required. Set DATABASE_URL or database.dsn")
	}

	if config.Fetch.MaxConcurrency < 1 || config.Fetch.MaxConcurrency > 8 {
		errors = append(errors, fmt.Sprintf("fetch.max_concurrency must be between 1 and 8, got %d", config.Fetch.MaxConcurrency))
	}

	if config.Curation.MaxArticles < 1 {
		errors = append(errors, "curation.max_articles must be at least 1")
	}
	if config.Curation.MaxTrends < 0 {
		errors = append(errors, "curation.max_trends cannot be negative")
	}

	switch config.Delivery.Transport {
	case "smtp":
		if config.Delivery.SMTP.Host != "" || config.Delivery.SMTP.Username != "" {
			if config.Delivery.SMTP.Host == "" {
				errors = append(errors, "SMTP host is required when SMTP is configured")
			}
			if config.Delivery.SMTP.Username != "" && config.Delivery.SMTP.Password == "" {
				errors = append(errors, "SMTP password is required when an SMTP username is set")
			}
		}
	case "resend":
		if !isValidAPIKey(config.Delivery.Resend.APIKey) {
			errors = append(errors, "Resend transport requires an API key. Set RESEND_API_KEY")
		}
	default:
		errors = append(errors, fmt.Sprintf("Unknown delivery transport: %s. Supported: smtp, resend", config.Delivery.Transport))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Duration parses a duration string that postProcessConfig already validated,
// returning fallback when it is empty.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// isValidAPIKey checks if an API key is valid (not empty and not a placeholder)
func isValidAPIKey(apiKey string) bool {
	if apiKey == "" {
		return false
	}

	placeholders := []string{
		"your-api-key", "your-gemini-key", "YOUR_API_KEY", "PLACEHOLDER", "TODO", "CHANGE_ME",
	}

	for _, placeholder := range placeholders {
		if apiKey == placeholder {
			return false
		}
	}

	return true
}

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
