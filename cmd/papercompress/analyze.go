package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ydzat/literature-review-mcp/internal/compress"
	"github.com/ydzat/literature-review-mcp/internal/parser"
	"github.com/ydzat/literature-review-mcp/internal/pipeline"
)

var (
	paperID     string
	concurrency int
	outDir      string
)

func init() {
	analyzeCmd.Flags().StringVar(&paperID, "id", "", "paper ID (default: file name without extension)")
	batchCmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "papers analyzed at once (default: $BATCH_CONCURRENCY or 3)")
	batchCmd.Flags().StringVarP(&outDir, "out", "o", "", "write each review to DIR/<paper-id>.md")
	batchCmd.Flags().BoolVar(&batchReview, "review", false, "combine the successful reviews into one literature review")
	batchCmd.Flags().StringVar(&focus, "focus", "", "focus area for the combined review")
}

// analyzeCmd reviews one paper
var analyzeCmd = &cobra.Command{
	Use:   "analyze FILE",
	Short: "Compress a paper if needed and print an LLM review of it",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

// batchCmd reviews many papers with bounded concurrency
var batchCmd = &cobra.Command{
	Use:   "batch FILE...",
	Short: "Review many papers concurrently",
	Long: `Review many papers with bounded concurrency. One result is reported per
input file, in input order; a failing paper does not stop the others.

With --review the successful reviews are combined into one literature
review, printed last or written to DIR/review.md.

Examples:
  papercompress batch papers/*.pdf
  papercompress batch -c 5 -o reviews/ papers/*.pdf
  papercompress batch --review --focus "efficient attention" papers/*.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

type paperResult struct {
	Path    string
	PaperID string
	Review  string
	Report  compress.Report
	Err     error
}

// paperRunner extracts and analyzes papers, retrying transient LLM errors.
type paperRunner struct {
	analyzer   pipeline.Compressor
	parserOpts parser.Options
	log        *slog.Logger
	backoff    func(attempt int) time.Duration
}

func (r *paperRunner) run(ctx context.Context, path, id string) paperResult {
	if id == "" {
		id = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	res := paperResult{Path: path, PaperID: pipeline.NormalizePaperID(id)}
	log := r.log.With("paper_id", res.PaperID)

	text, err := parser.ExtractFile(path, r.parserOpts)
	if err != nil {
		res.Err = err
		return res
	}

	prepared, rep := r.analyzer.PrepareAnalysis(ctx, text)
	res.Report = rep
	res.Err = pipeline.Retry(ctx, r.backoff, log, func(int) error {
		var err error
		res.Review, err = r.analyzer.AnalyzePrepared(ctx, res.PaperID, prepared)
		return err
	})
	if res.Err == nil {
		log.Info("paper analyzed",
			"compressed", res.Report.Compressed,
			"tokens", res.Report.InputTokens,
			"compressed_tokens", res.Report.OutputTokens,
		)
	}
	return res
}

// runAll analyzes paths with at most limit in flight. results[i] belongs to
// paths[i].
func (r *paperRunner) runAll(ctx context.Context, paths []string, limit int) []paperResult {
	results := make([]paperResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))
	for i, path := range paths {
		g.Go(func() error {
			results[i] = r.run(gctx, path, "")
			return nil
		})
	}
	g.Wait()
	return results
}

func (a *app) runner() *paperRunner {
	return &paperRunner{
		analyzer:   a.compressor,
		parserOpts: a.parserOptions(),
		log:        a.log,
		backoff:    pipeline.Backoff,
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.provider.Close()

	res := a.runner().run(cmd.Context(), args[0], paperID)
	if res.Err != nil {
		return fmt.Errorf("analyze %s: %w", args[0], res.Err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Review)
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.provider.Close()

	limit := concurrency
	if limit <= 0 {
		limit = a.cfg.MaxConcurrency
	}
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	results := a.runner().runAll(cmd.Context(), args, limit)

	out := cmd.OutOrStdout()
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(out, "FAIL  %s  %v\n", res.Path, res.Err)
			continue
		}
		if outDir == "" {
			fmt.Fprintf(out, "# %s\n\n%s\n\n", res.PaperID, res.Review)
			continue
		}
		dest := filepath.Join(outDir, res.PaperID+".md")
		if err := os.WriteFile(dest, []byte(res.Review), 0o644); err != nil {
			failed++
			fmt.Fprintf(out, "FAIL  %s  %v\n", res.Path, err)
			continue
		}
		fmt.Fprintf(out, "OK    %s  -> %s (ratio %.2f)\n", res.Path, dest, res.Report.Ratio())
	}

	if batchReview {
		if err := combineBatch(cmd, a.compressor, results); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d papers failed", failed, len(results))
	}
	return nil
}
