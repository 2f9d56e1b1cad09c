package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port     string
	Debug    bool
	LogLevel string

	// Analysis configuration
	BrandTerm        string
	DefaultQuery     string
	DefaultLimit     int
	MaxLimit         int
	AnalyzeTimeout   time.Duration
	SourceTimeout    time.Duration
	EnabledSources   []string
	ArchiveAnalyses  bool
	BreakerThreshold int
	BreakerCooldown  time.Duration

	// Classifier configuration
	ClassifierConcurrency int
	ClassifierRPS         float64
	ClassifierBurst       int

	// LLM provider configuration
	LLMProvider    string // openai, nemotron, anthropic, gemini, bedrock, ollama, heuristic
	LLMModel       string
	LLMTemperature float64
	LLMMaxTokens   int

	OpenAIAPIKey     string
	OpenAIBaseURL    string
	NemotronAPIKey   string
	NemotronBaseURL  string
	AnthropicAPIKey  string
	GeminiAPIKey     string
	BedrockRegion    string
	OllamaBaseURL    string
	GoogleMapsAPIKey string

	// Source credentials
	RedditClientID     string
	RedditClientSecret string
	RedditUserAgent    string
	RedditAuthURL      string
	RedditBaseURL      string
	RedditTimeWindow   string
	TwitterBearerToken string
	TwitterBaseURL     string

	// Case store configuration
	CaseStore        string // memory, postgres, azure, local
	DatabaseURL      string
	StorageAccount   string
	StorageContainer string
	LocalStorageDir  string

	// Task queue configuration
	RedisEnabled      bool
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	WorkerConcurrency int
	QueueBuffer       int

	// Schedule configuration
	ReportSchedule string // "daily", "weekly" or "off"
	TimeZone       string
	PollInterval   time.Duration
	SweepInterval  time.Duration
	PendingGrace   time.Duration

	// Notification configuration
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string

	// HTTP configuration
	FrontendOrigin     string
	AllowedOrigins     []string
	CORSAllowAll       bool
	RateLimitPerMinute int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:     getEnv("PORT", "8000"),
		Debug:    getBoolEnv("DEBUG", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		BrandTerm:        getEnv("BRAND_TERM", "T-Mobile"),
		DefaultQuery:     getEnv("DEFAULT_QUERY", "T-Mobile"),
		DefaultLimit:     getIntEnv("DEFAULT_LIMIT", 9),
		MaxLimit:         getIntEnv("MAX_LIMIT", 100),
		AnalyzeTimeout:   getDurationEnv("ANALYZE_TIMEOUT", 45*time.Second),
		SourceTimeout:    getDurationEnv("SOURCE_TIMEOUT", 15*time.Second),
		EnabledSources:   getSliceEnv("SOURCES", []string{"reddit", "twitter", "app"}),
		ArchiveAnalyses:  getBoolEnv("ARCHIVE_ANALYSES", false),
		BreakerThreshold: getIntEnv("BREAKER_FAILURE_THRESHOLD", 5),
		BreakerCooldown:  getDurationEnv("BREAKER_COOLDOWN", 30*time.Second),

		ClassifierConcurrency: getIntEnv("CLASSIFIER_CONCURRENCY", 4),
		ClassifierRPS:         getFloatEnv("CLASSIFIER_RPS", 5),
		ClassifierBurst:       getIntEnv("CLASSIFIER_BURST", 4),

		LLMProvider:    strings.ToLower(getEnv("LLM_PROVIDER", "")),
		LLMModel:       getEnv("LLM_MODEL", ""),
		LLMTemperature: getFloatEnv("LLM_TEMPERATURE", 0.4),
		LLMMaxTokens:   getIntEnv("LLM_MAX_TOKENS", 900),

		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", ""),
		NemotronAPIKey:   getEnv("NEMOTRON_API_KEY", ""),
		NemotronBaseURL:  getEnv("NEMOTRON_BASE_URL", "https://integrate.api.nvidia.com/v1"),
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		BedrockRegion:    getEnv("AWS_REGION", ""),
		OllamaBaseURL:    getEnv("OLLAMA_BASE_URL", ""),
		GoogleMapsAPIKey: getEnv("GOOGLE_MAPS_API_KEY", ""),

		RedditClientID:     getEnv("REDDIT_CLIENT_ID", ""),
		RedditClientSecret: getEnv("REDDIT_CLIENT_SECRET", ""),
		RedditUserAgent:    getEnv("REDDIT_USER_AGENT", "FeedbackAI/1.0"),
		RedditAuthURL:      getEnv("REDDIT_AUTH_URL", "https://www.reddit.com/api/v1/access_token"),
		RedditBaseURL:      getEnv("REDDIT_BASE_URL", "https://oauth.reddit.com"),
		RedditTimeWindow:   getEnv("REDDIT_TIME_WINDOW", "day"),
		TwitterBearerToken: getEnv("TWITTER_BEARER_TOKEN", ""),
		TwitterBaseURL:     getEnv("TWITTER_BASE_URL", "https://api.twitter.com"),

		CaseStore:        strings.ToLower(getEnv("CASE_STORE", "memory")),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "feedback"),
		LocalStorageDir:  getEnv("LOCAL_STORAGE_DIR", "data"),

		RedisEnabled:      getBoolEnv("REDIS_ENABLED", false),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getIntEnv("REDIS_DB", 0),
		WorkerConcurrency: getIntEnv("WORKER_CONCURRENCY", 4),
		QueueBuffer:       getIntEnv("QUEUE_BUFFER", 256),

		ReportSchedule: getEnv("REPORT_SCHEDULE", "off"),
		TimeZone:       getEnv("TIMEZONE", "UTC"),
		PollInterval:   getDurationEnv("POLL_INTERVAL", 60*time.Second),
		SweepInterval:  getDurationEnv("SWEEP_INTERVAL", 2*time.Minute),
		PendingGrace:   getDurationEnv("PENDING_GRACE", 2*time.Minute),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),

		FrontendOrigin:     getEnv("FRONTEND_ORIGIN", "http://localhost:5173"),
		AllowedOrigins:     getSliceEnv("ALLOWED_ORIGINS", nil),
		CORSAllowAll:       getBoolEnv("CORS_ALLOW_ALL", false),
		RateLimitPerMinute: getIntEnv("RATE_LIMIT_PER_MINUTE", 30),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.ReportSchedule {
	case "daily", "weekly", "off":
	default:
		return fmt.Errorf("REPORT_SCHEDULE must be 'daily', 'weekly' or 'off'")
	}

	if c.DefaultLimit < 1 || c.DefaultLimit > c.MaxLimit {
		return fmt.Errorf("DEFAULT_LIMIT must be between 1 and MAX_LIMIT (%d)", c.MaxLimit)
	}

	if c.ClassifierConcurrency < 1 {
		return fmt.Errorf("CLASSIFIER_CONCURRENCY must be at least 1")
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}

	switch c.CaseStore {
	case "memory", "local":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when CASE_STORE is 'postgres'")
		}
	case "azure":
		if c.StorageAccount == "" {
			return fmt.Errorf("AZURE_STORAGE_ACCOUNT is required when CASE_STORE is 'azure'")
		}
	default:
		return fmt.Errorf("CASE_STORE must be one of memory, local, postgres, azure")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// HasRedditCredentials reports whether the Reddit connector can authenticate.
func (c *Config) HasRedditCredentials() bool {
	return c.RedditClientID != "" && c.RedditClientSecret != ""
}

// HasTwitterCredentials reports whether the Twitter connector can authenticate.
func (c *Config) HasTwitterCredentials() bool {
	return c.TwitterBearerToken != ""
}

// HasLLMCredentials reports whether the selected language model provider has what it needs.
func (c *Config) HasLLMCredentials() bool {
	switch c.ResolvedLLMProvider() {
	case "openai":
		return c.OpenAIAPIKey != ""
	case "nemotron":
		return c.NemotronAPIKey != ""
	case "anthropic":
		return c.AnthropicAPIKey != ""
	case "gemini":
		return c.GeminiAPIKey != ""
	case "bedrock", "ollama":
		return true
	}
	return false
}

// ResolvedLLMProvider returns LLM_PROVIDER, or the first provider with a key when unset.
func (c *Config) ResolvedLLMProvider() string {
	if c.LLMProvider != "" {
		return c.LLMProvider
	}
	switch {
	case c.NemotronAPIKey != "":
		return "nemotron"
	case c.OpenAIAPIKey != "":
		return "openai"
	case c.AnthropicAPIKey != "":
		return "anthropic"
	case c.GeminiAPIKey != "":
		return "gemini"
	}
	return "heuristic"
}

// CORSOrigins returns the union of FRONTEND_ORIGIN and ALLOWED_ORIGINS.
func (c *Config) CORSOrigins() []string {
	if c.CORSAllowAll {
		return []string{"*"}
	}
	seen := make(map[string]bool)
	var origins []string
	for _, origin := range append([]string{c.FrontendOrigin}, c.AllowedOrigins...) {
		origin = strings.TrimSpace(origin)
		if origin == "" || seen[origin] {
			continue
		}
		seen[origin] = true
		origins = append(origins, origin)
	}
	return origins
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return defaultValue
}
