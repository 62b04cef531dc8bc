package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"LLM_PROVIDER", "LLM_MODEL", "LLM_API_KEY", "SILICONFLOW_API_KEY", "LLM_TEMPERATURE", "WORKER_COUNT"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	if cfg.LLMProvider != "siliconflow" {
		t.Errorf("expected siliconflow provider, got %q", cfg.LLMProvider)
	}
	if cfg.LLMModel != "Qwen/Qwen2.5-7B-Instruct" {
		t.Errorf("expected provider default model, got %q", cfg.LLMModel)
	}
	if cfg.LLMTemperature != 0.7 {
		t.Errorf("expected temperature 0.7, got %v", cfg.LLMTemperature)
	}
	if cfg.WorkerCount != 3 || cfg.MaxConcurrency != 3 {
		t.Errorf("expected concurrency 3, got workers=%d batch=%d", cfg.WorkerCount, cfg.MaxConcurrency)
	}
	if !cfg.CompressionEnabled || cfg.CompressionTimeout != 3*time.Minute {
		t.Errorf("unexpected compression settings %v %v", cfg.CompressionEnabled, cfg.CompressionTimeout)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error without an LLM key")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "deepseek")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("SILICONFLOW_API_KEY", "sf-key")
	t.Setenv("LLM_MAX_TOKENS", "2048")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("COMPRESSION_ENABLED", "false")
	t.Setenv("WORKER_COUNT", "-1")
	t.Setenv("JOB_TTL", "30m")
	t.Setenv("API_KEY", "")

	cfg := Load()
	if cfg.LLMModel != "deepseek-chat" {
		t.Errorf("expected deepseek default model, got %q", cfg.LLMModel)
	}
	if cfg.LLMAPIKey != "sf-key" {
		t.Errorf("expected fallback key, got %q", cfg.LLMAPIKey)
	}
	if cfg.LLMMaxTokens != 2048 || cfg.LLMTemperature != 0.2 {
		t.Errorf("unexpected llm settings %d %v", cfg.LLMMaxTokens, cfg.LLMTemperature)
	}
	if cfg.CompressionEnabled {
		t.Error("expected compression disabled")
	}
	if cfg.WorkerCount != 3 {
		t.Errorf("expected invalid worker count reset to 3, got %d", cfg.WorkerCount)
	}
	if cfg.JobTTL != 30*time.Minute {
		t.Errorf("expected 30m TTL, got %v", cfg.JobTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
	if err := cfg.ValidateServer(); err == nil {
		t.Error("expected server validation to require API_KEY")
	}

	opts := cfg.ProviderOptions(nil)
	if opts.Provider != "deepseek" || opts.MaxTokens != 2048 || opts.APIKey != "sf-key" {
		t.Errorf("unexpected provider options %+v", opts)
	}
}

func TestLoad_AnthropicKey(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("SILICONFLOW_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "ant-key")
	t.Setenv("LLM_MODEL", "claude-3-haiku-20240307")

	cfg := Load()
	if cfg.LLMAPIKey != "ant-key" {
		t.Errorf("expected anthropic key, got %q", cfg.LLMAPIKey)
	}
}

func TestParseCatalog(t *testing.T) {
	cat, err := ParseCatalog([]byte(`
models:
  local-llama:
    context_window: 65536
    max_output_tokens: 8192
  tiny:
    max_output_tokens: 1024
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, ok := cat.Lookup("local-llama")
	if !ok || info.Name != "local-llama" || info.ContextWindow != 65536 || info.MaxOutputTokens != 8192 {
		t.Errorf("unexpected entry %+v (ok=%v)", info, ok)
	}
	info, ok = cat.Lookup("tiny")
	if !ok || info.ContextWindow != 32768 {
		t.Errorf("expected default context window filled in, got %+v", info)
	}
	if _, ok := cat.Lookup("gpt-4o"); !ok {
		t.Error("expected built-in models to remain available")
	}
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "models: [unterminated"},
		{"negative", "models:\n  m:\n    context_window: -1\n"},
		{"output exceeds window", "models:\n  m:\n    context_window: 1000\n    max_output_tokens: 1000\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseCatalog([]byte(tc.yaml)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	if _, err := LoadCatalog(""); err != nil {
		t.Fatalf("empty path: %v", err)
	}

	path := filepath.Join(t.TempDir(), "models.yaml")
	if err := os.WriteFile(path, []byte("models:\n  x:\n    context_window: 4096\n    max_output_tokens: 512\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cat, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info, ok := cat.Lookup("x"); !ok || info.ContextWindow != 4096 {
		t.Errorf("unexpected entry %+v", info)
	}

	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
