package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/dvloznov/rosacash/internal/logger"
)

// LLM providers accepted in LLM_PROVIDER.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config is the runtime configuration shared by every binary.
type Config struct {
	// Google Cloud
	GoogleCloudProject string
	BigQueryDataset    string
	ReportBucket       string

	// HTTP
	Port     string
	APIToken string

	// Assistant
	LLMProvider  string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string

	// Sinks
	ElasticsearchURLs []string
	NotionToken       string
	NotionBillsDBID   string

	// Logging
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads the configuration from the environment, after loading a .env file if one exists.
func Load() (*Config, error) {
	// A missing .env is fine; the real environment wins either way.
	_ = godotenv.Load()

	config := &Config{
		GoogleCloudProject: getEnv("GOOGLE_CLOUD_PROJECT", ""),
		BigQueryDataset:    getEnv("BIGQUERY_DATASET", "rosacash"),
		ReportBucket:       getEnv("REPORT_BUCKET", ""),
		Port:               getEnv("PORT", "8080"),
		APIToken:           getEnv("API_TOKEN", ""),
		LLMProvider:        strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini)),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		ElasticsearchURLs:  splitList(getEnv("ELASTICSEARCH_URLS", "")),
		NotionToken:        getEnv("NOTION_TOKEN", ""),
		NotionBillsDBID:    getEnv("NOTION_BILLS_DB_ID", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:      getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:          getEnv("LOG_OUTPUT", "stdout"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.GoogleCloudProject == "" {
		return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required")
	}
	if c.BigQueryDataset == "" {
		return fmt.Errorf("BIGQUERY_DATASET must not be empty")
	}
	switch c.LLMProvider {
	case ProviderGemini:
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER is openai")
		}
	default:
		return fmt.Errorf("LLM_PROVIDER must be %s or %s, got %q", ProviderGemini, ProviderOpenAI, c.LLMProvider)
	}
	if (c.NotionToken == "") != (c.NotionBillsDBID == "") {
		return fmt.Errorf("NOTION_TOKEN and NOTION_BILLS_DB_ID must be set together")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
