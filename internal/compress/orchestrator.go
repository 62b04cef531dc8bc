package compress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ydzat/literature-review-mcp/internal/llm"
	"github.com/ydzat/literature-review-mcp/internal/section"
	"github.com/ydzat/literature-review-mcp/internal/tokens"
)

// ContextReserve is the headroom kept free of the context window on top of
// the model's max output when deciding whether a prompt needs compression.
const ContextReserve = 1000

// ErrNoReviews is returned by Review when there is nothing to combine.
var ErrNoReviews = errors.New("no paper reviews to combine")

// Options configures an Orchestrator.
type Options struct {
	Model           llm.ModelInfo
	MaxOutputTokens int // Defaults to Model.MaxOutputTokens.
	CallTimeout     time.Duration
	Disabled        bool
}

// Report describes one MaybeCompress decision.
type Report struct {
	InputTokens     int   `json:"input_tokens"`
	AvailableTokens int   `json:"available_tokens"`
	OutputTokens    int   `json:"output_tokens"`
	Compressed      bool  `json:"compressed"`
	Sections        int   `json:"sections,omitempty"`
	Truncated       bool  `json:"truncated,omitempty"`
	DurationMs      int64 `json:"duration_ms"`
}

// Ratio is output tokens over input tokens; 1 when nothing was compressed.
func (r Report) Ratio() float64 {
	if r.InputTokens == 0 {
		return 1
	}
	return float64(r.OutputTokens) / float64(r.InputTokens)
}

// Orchestrator decides whether a prompt fits the model and compresses it
// when it does not.
type Orchestrator struct {
	chat       llm.Chatter
	counter    section.TokenCounter
	model      llm.ModelInfo
	maxOutput  int
	disabled   bool
	aggregator *RollingAggregator
	log        *slog.Logger
	metrics    *Metrics
}

// New creates an Orchestrator that compresses through chat.
func New(chat llm.Chatter, counter section.TokenCounter, opts Options, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	if counter == nil {
		counter = tokens.NewCounter(false)
	}
	maxOutput := opts.MaxOutputTokens
	if maxOutput <= 0 {
		maxOutput = opts.Model.MaxOutputTokens
	}
	metrics := NewMetrics()
	log = log.With("model", opts.Model.Name)
	comp := NewSectionCompressor(chat, maxOutput, opts.CallTimeout, log, metrics)
	return &Orchestrator{
		chat:       chat,
		counter:    counter,
		model:      opts.Model,
		maxOutput:  maxOutput,
		disabled:   opts.Disabled,
		aggregator: NewRollingAggregator(comp, counter, opts.Model.Name, log, metrics),
		log:        log,
		metrics:    metrics,
	}
}

// Model returns the model the budget is computed for.
func (o *Orchestrator) Model() llm.ModelInfo {
	return o.model
}

// Available is the input budget: context window minus max output minus
// ContextReserve.
func (o *Orchestrator) Available() int {
	return o.model.ContextWindow - o.maxOutput - ContextReserve
}

// MaybeCompress returns rawPrompt unchanged when it fits next to
// systemPrompt, and a compressed rendition otherwise.
func (o *Orchestrator) MaybeCompress(ctx context.Context, rawPrompt, systemPrompt string) (string, Report) {
	return o.maybeCompress(ctx, rawPrompt, systemPrompt, o.disabled)
}

// MaybeCompressWith is MaybeCompress with a per-call disable switch.
func (o *Orchestrator) MaybeCompressWith(ctx context.Context, rawPrompt, systemPrompt string, disable bool) (string, Report) {
	return o.maybeCompress(ctx, rawPrompt, systemPrompt, o.disabled || disable)
}

func (o *Orchestrator) maybeCompress(ctx context.Context, rawPrompt, systemPrompt string, disabled bool) (string, Report) {
	start := time.Now()
	model := o.model.Name
	systemTokens := o.counter.Count(systemPrompt, model)
	total := systemTokens + o.counter.Count(rawPrompt, model)
	rep := Report{
		InputTokens:     total,
		AvailableTokens: o.Available(),
		OutputTokens:    total,
	}

	if disabled {
		o.metrics.recordRun("disabled")
		return rawPrompt, rep
	}
	if total <= rep.AvailableTokens {
		o.metrics.recordRun("skipped")
		return rawPrompt, rep
	}

	sections := section.Classify(rawPrompt, o.counter, model)
	o.log.Info("compressing prompt",
		"tokens", total,
		"available", rep.AvailableTokens,
		"sections", len(sections),
	)
	out := o.aggregator.Aggregate(ctx, sections, rep.AvailableTokens-systemTokens)

	rep.Compressed = true
	rep.Sections = len(sections)
	rep.OutputTokens = systemTokens + o.counter.Count(out, model)
	rep.DurationMs = time.Since(start).Milliseconds()
	o.metrics.recordRun("compressed")
	o.metrics.recordSaved(rep.InputTokens, rep.OutputTokens)
	o.log.Info("prompt compressed",
		"tokens", rep.InputTokens,
		"compressed_tokens", rep.OutputTokens,
		"ratio", rep.Ratio(),
		"duration_ms", rep.DurationMs,
	)
	return out, rep
}

// ChatWithCompression fits prompt into the context window and sends it
// with systemPrompt as the final answer call. A nil temperature uses the
// backend's default.
func (o *Orchestrator) ChatWithCompression(ctx context.Context, prompt, systemPrompt string, temperature *float64) (*llm.Response, Report, error) {
	effective, rep := o.Fit(ctx, prompt, systemPrompt)
	resp, err := o.chat.Chat(ctx, llm.Request{
		Messages:    messages(systemPrompt, effective),
		Temperature: temperature,
		MaxTokens:   o.maxOutput,
	})
	if err != nil {
		return nil, rep, err
	}
	return resp, rep, nil
}

// Fit is MaybeCompress with a last resort: when compression is disabled and
// the prompt still does not fit, it is truncated to the context limit.
func (o *Orchestrator) Fit(ctx context.Context, prompt, systemPrompt string) (string, Report) {
	effective, rep := o.MaybeCompress(ctx, prompt, systemPrompt)
	if rep.Compressed || rep.InputTokens <= rep.AvailableTokens {
		return effective, rep
	}

	systemTokens := o.counter.Count(systemPrompt, o.model.Name)
	effective = o.TruncateToContextLimit(effective, ContextReserve+systemTokens)
	rep.Truncated = true
	rep.OutputTokens = systemTokens + o.counter.Count(effective, o.model.Name)
	o.log.Warn("prompt exceeds context window with compression disabled, truncating",
		"tokens", rep.InputTokens,
		"available", rep.AvailableTokens,
		"truncated_tokens", rep.OutputTokens,
	)
	return effective, rep
}

// Analyze fits a paper's text into the context window and asks for a
// structured review of it.
func (o *Orchestrator) Analyze(ctx context.Context, paperID, text string) (string, Report, error) {
	prepared, rep := o.PrepareAnalysis(ctx, text)
	review, err := o.AnalyzePrepared(ctx, paperID, prepared)
	return review, rep, err
}

// PrepareAnalysis fits text next to the analysis system prompt.
func (o *Orchestrator) PrepareAnalysis(ctx context.Context, text string) (string, Report) {
	return o.Fit(ctx, text, AnalysisSystemPrompt)
}

// AnalyzePrepared sends the analysis call for text returned by
// PrepareAnalysis. It is the step worth retrying on transient errors.
func (o *Orchestrator) AnalyzePrepared(ctx context.Context, paperID, prepared string) (string, error) {
	resp, err := o.chat.Chat(ctx, llm.Request{
		Messages:    messages(AnalysisSystemPrompt, BuildAnalysisPrompt(paperID, prepared)),
		Temperature: llm.Float(AnalysisTemperature),
		MaxTokens:   o.maxOutput,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Review writes one literature review across papers, in the given order.
// The combined prompt goes through Fit, so large batches are compressed.
func (o *Orchestrator) Review(ctx context.Context, papers []PaperReview, focus string) (string, Report, error) {
	if len(papers) == 0 {
		return "", Report{}, ErrNoReviews
	}
	resp, rep, err := o.ChatWithCompression(ctx, BuildReviewPrompt(papers, focus), ReviewSystemPrompt, llm.Float(ReviewTemperature))
	if err != nil {
		return "", rep, fmt.Errorf("literature review: %w", err)
	}
	o.log.Info("literature review written",
		"papers", len(papers),
		"compressed", rep.Compressed,
		"tokens", rep.InputTokens,
		"output_tokens", rep.OutputTokens,
	)
	return resp.Content, rep, nil
}

// TruncateToContextLimit cuts text deterministically so that it fits the
// context window after the max output and reserved tokens are set aside.
func (o *Orchestrator) TruncateToContextLimit(text string, reserved int) string {
	return TruncateToContextLimit(text, o.counter, o.model, o.maxOutput, reserved)
}

// TruncateToContextLimit cuts text to window - maxOutput - reserved tokens
// without calling an LLM. reserved ≤ 0 uses ContextReserve.
func TruncateToContextLimit(text string, counter section.TokenCounter, model llm.ModelInfo, maxOutput, reserved int) string {
	if reserved <= 0 {
		reserved = ContextReserve
	}
	if counter == nil {
		counter = tokens.NewCounter(false)
	}
	limit := model.ContextWindow - maxOutput - reserved
	if limit < 0 {
		limit = 0
	}
	n := counter.Count(text, model.Name)
	if n <= limit {
		return text
	}
	return Truncate(text, limit, n)
}

func messages(systemPrompt, prompt string) []llm.Message {
	var msgs []llm.Message
	if systemPrompt != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: prompt})
}
