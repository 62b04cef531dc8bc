package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ydzat/literature-review-mcp/internal/compress"
	"github.com/ydzat/literature-review-mcp/internal/parser"
)

// Compressor fits a paper's text into the model's context window and runs
// the analysis call on the result.
type Compressor interface {
	PrepareAnalysis(ctx context.Context, text string) (string, compress.Report)
	AnalyzePrepared(ctx context.Context, paperID, prepared string) (string, error)
}

// Worker processes a single analysis job.
type Worker struct {
	compressor Compressor
	parserOpts parser.Options
	log        *slog.Logger

	backoff func(attempt int) time.Duration
}

func NewWorker(compressor Compressor, parserOpts parser.Options, log *slog.Logger) *Worker {
	return &Worker{
		compressor: compressor,
		parserOpts: parserOpts,
		log:        log,
		backoff:    Backoff,
	}
}

// Process parses, compresses and analyzes the job's paper.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "paper_id", job.PaperID)
	defer job.releaseInput()

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	text := job.Text()
	if text == "" {
		doc, err := parser.Extract(bytes.NewReader(job.FileData()), job.Filename, w.parserOpts)
		if err != nil {
			log.Error("parse failed", "error", err)
			job.AddError(fmt.Sprintf("parse: %s", err))
			job.SetStatus(StatusFailed, "parsing")
			return
		}
		text = doc.Text
		log.Info("paper parsed", "headings", len(doc.Headings), "pages", doc.Pages)
	}
	job.SetContentHash(ContentHashHex([]byte(text)))

	// Phase 2: Compress once. Never fails; an oversized result is truncated
	// or left for the provider to reject.
	job.SetStatus(StatusCompressing, "compressing")
	prepared, rep := w.compressor.PrepareAnalysis(ctx, text)
	job.SetReport(rep)
	if rep.Compressed {
		log.Info("paper compressed",
			"tokens", rep.InputTokens,
			"compressed_tokens", rep.OutputTokens,
			"sections", rep.Sections,
		)
	}

	// Phase 3: Analyze with retries on transient failures.
	job.SetStatus(StatusAnalyzing, "analyzing")
	var review string
	err := Retry(ctx, w.backoff, log, func(int) error {
		job.IncrAttempts()
		var err error
		review, err = w.compressor.AnalyzePrepared(ctx, job.PaperID, prepared)
		return err
	})
	if err != nil {
		log.Error("analysis failed", "error", err)
		job.AddError(fmt.Sprintf("analyze: %s", err))
		job.SetStatus(StatusFailed, "analyzing")
		return
	}

	job.Complete(review)
	log.Info("analysis complete", "review_chars", len(review))
}
