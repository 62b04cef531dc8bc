// Package compress shrinks long documents to fit a model's context window.
// Sections are compressed by an LLM in proportion to their importance and
// merged into a rolling buffer; any failed call falls back to truncation.
package compress

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/ydzat/literature-review-mcp/internal/llm"
	"github.com/ydzat/literature-review-mcp/internal/section"
)

const (
	// ReferencePlaceholder replaces a reference section compressed on its own.
	ReferencePlaceholder = "[references omitted]"

	// TruncationMarker is appended to text cut by the truncation fallback.
	TruncationMarker = "\n[... content truncated ...]"

	// DefaultCallTimeout bounds a single compression call.
	DefaultCallTimeout = 3 * time.Minute

	compressionTemperature = 0.3
	minRetention           = 0.3
	minOutputTokens        = 256
)

// SectionCompressor shrinks one section toward a token target.
type SectionCompressor struct {
	chat      llm.Chatter
	maxOutput int
	timeout   time.Duration
	log       *slog.Logger
	metrics   *Metrics
}

// NewSectionCompressor creates a compressor. maxOutput caps the output
// tokens requested per call; 0 leaves the cap to the backend.
func NewSectionCompressor(chat llm.Chatter, maxOutput int, timeout time.Duration, log *slog.Logger, metrics *Metrics) *SectionCompressor {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &SectionCompressor{
		chat:      chat,
		maxOutput: maxOutput,
		timeout:   timeout,
		log:       log,
		metrics:   metrics,
	}
}

// DesiredTokens is the length a section of type t is asked to shrink to when
// its target is targetTokens.
func DesiredTokens(t section.Type, targetTokens int) int {
	ratio := section.Importance(t)
	if ratio < minRetention {
		ratio = minRetention
	}
	return scale(targetTokens, ratio)
}

// scale returns floor(n × ratio), absorbing float error on exact products.
func scale(n int, ratio float64) int {
	return int(math.Floor(float64(n)*ratio + 1e-9))
}

// Compress returns sec's content shrunk toward targetTokens. It never fails:
// reference sections become a placeholder, sections already within target
// are returned as is, and a failed LLM call falls back to truncation.
func (c *SectionCompressor) Compress(ctx context.Context, sec section.Section, targetTokens int) string {
	if sec.Type == section.Reference {
		return ReferencePlaceholder
	}
	if sec.TokenCount <= targetTokens {
		return sec.Content
	}

	desired := DesiredTokens(sec.Type, targetTokens)
	log := c.log.With("section", sec.Title, "type", string(sec.Type))

	out, err := c.call(ctx, "section", llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: sectionSystemPrompt(sec.Type, desired)},
			{Role: llm.RoleUser, Content: sectionUserPrompt(sec)},
		},
		Temperature: llm.Float(compressionTemperature),
		MaxTokens:   c.outputCap(desired),
	})
	if err != nil {
		log.Warn("section compression failed, truncating",
			"tokens", sec.TokenCount,
			"desired", desired,
			"error", err,
		)
		c.metrics.recordFallback(string(sec.Type))
		return Truncate(sec.Content, desired, sec.TokenCount)
	}
	log.Debug("section compressed", "tokens", sec.TokenCount, "desired", desired)
	return out
}

// CompressBuffer asks the LLM to shrink an accumulated summary to about
// targetTokens. Unlike Compress it reports failure to the caller.
func (c *SectionCompressor) CompressBuffer(ctx context.Context, text string, targetTokens int) (string, error) {
	return c.call(ctx, "buffer", llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: bufferSystemPrompt(targetTokens)},
			{Role: llm.RoleUser, Content: text},
		},
		Temperature: llm.Float(compressionTemperature),
		MaxTokens:   c.outputCap(targetTokens),
	})
}

func (c *SectionCompressor) call(ctx context.Context, kind string, req llm.Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.chat.Chat(ctx, req)
	c.metrics.recordCall(kind, time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Content == "" {
		return "", llm.ErrEmptyResponse
	}
	return resp.Content, nil
}

func (c *SectionCompressor) outputCap(desired int) int {
	n := desired
	if n < minOutputTokens {
		n = minOutputTokens
	}
	if c.maxOutput > 0 && n > c.maxOutput {
		n = c.maxOutput
	}
	return n
}

// Truncate keeps the leading share desired/tokens of text's runes and
// appends TruncationMarker. The result is never empty.
func Truncate(text string, desired, tokens int) string {
	runes := []rune(text)
	keep := len(runes)
	if tokens > 0 && desired < tokens {
		keep = int(float64(len(runes)) * float64(desired) / float64(tokens))
	}
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + TruncationMarker
}
