package compress

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ydzat/literature-review-mcp/internal/section"
	"github.com/ydzat/literature-review-mcp/internal/tokens"
)

const (
	// PromptReserve is the headroom kept free for the compression prompt
	// when computing how much of the budget a section may use.
	PromptReserve = 1000

	bufferRetention = 0.3
)

// RollingAggregator builds a budget-bounded summary by appending sections in
// document order and re-compressing the buffer when it runs out of room.
type RollingAggregator struct {
	compressor *SectionCompressor
	counter    section.TokenCounter
	model      string
	reserve    int
	log        *slog.Logger
	metrics    *Metrics
}

// NewRollingAggregator creates an aggregator. model is the token counting
// hint.
func NewRollingAggregator(compressor *SectionCompressor, counter section.TokenCounter, model string, log *slog.Logger, metrics *Metrics) *RollingAggregator {
	if log == nil {
		log = slog.Default()
	}
	return &RollingAggregator{
		compressor: compressor,
		counter:    counter,
		model:      model,
		reserve:    PromptReserve,
		log:        log,
		metrics:    metrics,
	}
}

// reserveFor caps the prompt reserve at a tenth of small budgets, which a
// fixed reserve would otherwise consume entirely.
func (a *RollingAggregator) reserveFor(budget int) int {
	if r := budget / 10; r < a.reserve {
		if r < 0 {
			return 0
		}
		return r
	}
	return a.reserve
}

// Aggregate compresses sections into one text of roughly globalBudget
// tokens. Reference sections are dropped. The budget is soft: the final
// section is appended without any further shrinking, so the result can
// exceed globalBudget.
func (a *RollingAggregator) Aggregate(ctx context.Context, sections []section.Section, globalBudget int) string {
	var acc strings.Builder
	accTokens := 0
	reserve := a.reserveFor(globalBudget)

	for i, sec := range sections {
		log := a.log.With("section", sec.Title, "index", i+1, "of", len(sections))
		if sec.Type == section.Reference {
			log.Debug("skipping references")
			continue
		}

		available := globalBudget - accTokens - reserve
		if available <= 0 && acc.Len() > 0 {
			target := max(scale(globalBudget, bufferRetention), 1)
			log.Debug("buffer full, re-compressing", "buffer_tokens", accTokens, "target", target)
			shrunk, err := a.compressor.CompressBuffer(ctx, acc.String(), target)
			if err != nil {
				log.Warn("buffer re-compression failed, keeping buffer",
					"buffer_tokens", accTokens,
					"error", err,
				)
				a.metrics.recordBufferRecompress(false)
			} else {
				acc.Reset()
				acc.WriteString(shrunk)
				accTokens = a.count(shrunk)
				a.metrics.recordBufferRecompress(true)
			}
			available = globalBudget - accTokens - reserve
		}
		if available < 1 {
			available = 1
		}

		text := a.compressor.Compress(ctx, sec, available)
		fmt.Fprintf(&acc, "\n\n## %s\n\n%s", sec.Title, text)
		accTokens = a.count(acc.String())
		log.Debug("section appended", "tokens", sec.TokenCount, "target", available, "buffer_tokens", accTokens)
	}

	if accTokens > globalBudget {
		a.log.Warn("compressed output exceeds budget", "tokens", accTokens, "budget", globalBudget)
		a.metrics.recordOverBudget()
	}
	return acc.String()
}

func (a *RollingAggregator) count(text string) int {
	if a.counter == nil {
		return tokens.Estimate(text)
	}
	return a.counter.Count(text, a.model)
}
