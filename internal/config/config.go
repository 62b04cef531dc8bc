package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ydzat/literature-review-mcp/internal/llm"
)

const (
	defaultProvider = "siliconflow"
	defaultModel    = "Qwen/Qwen2.5-7B-Instruct"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// LLM
	LLMProvider    string
	LLMAPIKey      string
	LLMBaseURL     string
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMTimeout     time.Duration
	LLMRateLimit   float64
	LLMRateBurst   int

	// Compression
	CompressionEnabled bool
	CompressionTimeout time.Duration
	TokenizerExact     bool
	ModelCatalogPath   string

	// Worker pool
	WorkerCount    int
	MaxQueueSize   int
	MaxConcurrency int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("API_KEY"),

		LLMProvider:    envOr("LLM_PROVIDER", defaultProvider),
		LLMBaseURL:     os.Getenv("LLM_BASE_URL"),
		LLMModel:       os.Getenv("LLM_MODEL"),
		LLMMaxTokens:   envInt("LLM_MAX_TOKENS", 0),
		LLMTemperature: envFloat("LLM_TEMPERATURE", 0.7),
		LLMTimeout:     envDuration("LLM_TIMEOUT", 180*time.Second),
		LLMRateLimit:   envFloat("LLM_RATE_LIMIT", 0),
		LLMRateBurst:   envInt("LLM_RATE_BURST", 1),

		CompressionEnabled: envBool("COMPRESSION_ENABLED", true),
		CompressionTimeout: envDuration("COMPRESSION_TIMEOUT", 3*time.Minute),
		TokenizerExact:     envBool("TOKENIZER_EXACT", true),
		ModelCatalogPath:   os.Getenv("MODEL_CATALOG_PATH"),

		WorkerCount:    envInt("WORKER_COUNT", 3),
		MaxQueueSize:   envInt("MAX_QUEUE_SIZE", 100),
		MaxConcurrency: envInt("BATCH_CONCURRENCY", 3),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	cfg.LLMAPIKey = firstNonEmpty(os.Getenv("LLM_API_KEY"), os.Getenv("SILICONFLOW_API_KEY"))
	if cfg.LLMProvider == "anthropic" {
		cfg.LLMAPIKey = firstNonEmpty(cfg.LLMAPIKey, os.Getenv("ANTHROPIC_API_KEY"))
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = defaultModel
		if d, ok := llm.ProviderDefaults[cfg.LLMProvider]; ok {
			cfg.LLMModel = d.DefaultModel
		}
	}

	if cfg.LLMTemperature < 0 || cfg.LLMTemperature > 1 {
		cfg.LLMTemperature = 0.7
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = 180 * time.Second
	}
	if cfg.CompressionTimeout <= 0 {
		cfg.CompressionTimeout = 3 * time.Minute
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 3
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 3
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

// Validate checks what every LLM-backed command needs.
func (c Config) Validate() error {
	if c.LLMAPIKey == "" {
		return fmt.Errorf("LLM_API_KEY (or SILICONFLOW_API_KEY) is required")
	}
	if c.LLMProvider == "custom" && c.LLMBaseURL == "" {
		return fmt.Errorf("LLM_BASE_URL is required for the custom provider")
	}
	return nil
}

// ValidateServer additionally requires the service's bearer token.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY is required")
	}
	return nil
}

// ProviderOptions maps the LLM settings onto llm.Options.
func (c Config) ProviderOptions(catalog *llm.Catalog) llm.Options {
	return llm.Options{
		Provider:    c.LLMProvider,
		APIKey:      c.LLMAPIKey,
		BaseURL:     c.LLMBaseURL,
		Model:       c.LLMModel,
		MaxTokens:   c.LLMMaxTokens,
		Temperature: c.LLMTemperature,
		Timeout:     c.LLMTimeout,
		RateLimit:   c.LLMRateLimit,
		RateBurst:   c.LLMRateBurst,
		Catalog:     catalog,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
