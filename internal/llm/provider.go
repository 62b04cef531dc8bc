package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Options configures a Provider.
type Options struct {
	Provider    string // openai, siliconflow, deepseek, anthropic or custom
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int     // Overrides the catalog's max output when > 0.
	Temperature float64 // Default temperature when a request sets none.
	Timeout     time.Duration
	RateLimit   float64 // Calls per second; ≤ 0 disables limiting.
	RateBurst   int
	Catalog     *Catalog
}

// Provider wraps a backend with model limits, default parameters, call
// pacing and stats.
type Provider struct {
	backend     Chatter
	info        ModelInfo
	maxTokens   int
	temperature float64
	limiter     *rate.Limiter
	log         *slog.Logger

	Stats *Stats
}

// NewProvider builds the backend named by opts.Provider.
func NewProvider(opts Options, log *slog.Logger) (*Provider, error) {
	var backend Chatter
	switch opts.Provider {
	case "anthropic":
		backend = NewAnthropicClient(opts.APIKey, opts.BaseURL, opts.Model, opts.Timeout)
	default:
		baseURL := opts.BaseURL
		if baseURL == "" {
			d, ok := ProviderDefaults[opts.Provider]
			if !ok {
				return nil, fmt.Errorf("%w: %q (set LLM_BASE_URL)", ErrUnknownProvider, opts.Provider)
			}
			baseURL = d.BaseURL
		}
		backend = NewOpenAIClient(baseURL, opts.APIKey, opts.Model, opts.Timeout)
	}
	return NewProviderWithBackend(backend, opts, log), nil
}

// NewProviderWithBackend wraps an existing backend.
func NewProviderWithBackend(backend Chatter, opts Options, log *slog.Logger) *Provider {
	if log == nil {
		log = slog.Default()
	}
	info, known := opts.Catalog.Lookup(opts.Model)
	if !known {
		log.Warn("unknown model, using default limits",
			"model", opts.Model,
			"context_window", info.ContextWindow,
			"max_output_tokens", info.MaxOutputTokens,
		)
	}
	p := &Provider{
		backend:     backend,
		info:        info,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		log:         log,
		Stats:       NewStats(time.Hour),
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return p
}

// Chat fills in default temperature and max tokens, waits for the rate
// limiter and records the call.
func (p *Provider) Chat(ctx context.Context, req Request) (*Response, error) {
	if req.Temperature == nil {
		req.Temperature = Float(p.temperature)
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = p.MaxOutputTokens()
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	start := time.Now()
	resp, err := p.backend.Chat(ctx, req)
	var usage *Usage
	if resp != nil {
		usage = resp.Usage
	}
	p.Stats.Record(time.Since(start), usage, err)
	if err != nil {
		return nil, fmt.Errorf("llm call failed: %w", err)
	}
	return resp, nil
}

// Model returns the model's catalog entry.
func (p *Provider) Model() ModelInfo {
	return p.info
}

// MaxOutputTokens is the configured override or the catalog value.
func (p *Provider) MaxOutputTokens() int {
	if p.maxTokens > 0 {
		return p.maxTokens
	}
	return p.info.MaxOutputTokens
}

// ContextWindow is the model's total token window.
func (p *Provider) ContextWindow() int {
	return p.info.ContextWindow
}

// Close releases backend resources when the backend supports it.
func (p *Provider) Close() {
	if c, ok := p.backend.(interface{ Close() }); ok {
		c.Close()
	}
}
