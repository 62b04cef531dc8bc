package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ydzat/literature-review-mcp/internal/compress"
	"github.com/ydzat/literature-review-mcp/internal/pipeline"
)

var (
	focus       string
	reviewOut   string
	batchReview bool
)

func init() {
	reviewCmd.Flags().StringVar(&focus, "focus", "", "focus area for the review")
	reviewCmd.Flags().StringVarP(&reviewOut, "out", "o", "", "write the review to FILE instead of stdout")
}

// reviewCmd combines per-paper reviews into one literature review
var reviewCmd = &cobra.Command{
	Use:   "review FILE...",
	Short: "Combine per-paper reviews into one literature review",
	Long: `Combine per-paper review files (as written by "batch -o") into one
literature review. The paper ID of each file is its name without extension.
The combined prompt is compressed when it does not fit the context window.

Examples:
  papercompress review reviews/*.md
  papercompress review --focus "long-context models" -o review.md reviews/*.md`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReview,
}

// reviewer is satisfied by *compress.Orchestrator.
type reviewer interface {
	Review(ctx context.Context, papers []compress.PaperReview, focus string) (string, compress.Report, error)
}

// loadReviews reads one review per path in order.
func loadReviews(paths []string) ([]compress.PaperReview, error) {
	papers := make([]compress.PaperReview, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(string(data)) == "" {
			return nil, fmt.Errorf("%s: review is empty", path)
		}
		base := filepath.Base(path)
		papers = append(papers, compress.PaperReview{
			PaperID: pipeline.NormalizePaperID(strings.TrimSuffix(base, filepath.Ext(base))),
			Review:  string(data),
		})
	}
	return papers, nil
}

// collectReviews keeps the successful batch results in input order.
func collectReviews(results []paperResult) []compress.PaperReview {
	var papers []compress.PaperReview
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		papers = append(papers, compress.PaperReview{
			PaperID: res.PaperID,
			Title:   filepath.Base(res.Path),
			Review:  res.Review,
		})
	}
	return papers
}

// writeReview runs the combined review and writes it to dest, or to the
// command's output when dest is empty.
func writeReview(cmd *cobra.Command, r reviewer, papers []compress.PaperReview, dest string) error {
	review, rep, err := r.Review(cmd.Context(), papers, focus)
	if err != nil {
		return err
	}
	if rep.Compressed || rep.Truncated {
		fmt.Fprintf(cmd.ErrOrStderr(), "review prompt reduced from %d to %d tokens\n", rep.InputTokens, rep.OutputTokens)
	}
	if dest == "" {
		fmt.Fprintln(cmd.OutOrStdout(), review)
		return nil
	}
	if err := os.WriteFile(dest, []byte(review), 0o644); err != nil {
		return fmt.Errorf("write review: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "REVIEW  %d papers -> %s\n", len(papers), dest)
	return nil
}

// combineBatch writes the literature review for a finished batch.
func combineBatch(cmd *cobra.Command, r reviewer, results []paperResult) error {
	papers := collectReviews(results)
	if len(papers) == 0 {
		return errors.New("no successful reviews to combine")
	}
	dest := ""
	if outDir != "" {
		dest = filepath.Join(outDir, "review.md")
	}
	return writeReview(cmd, r, papers, dest)
}

func runReview(cmd *cobra.Command, args []string) error {
	papers, err := loadReviews(args)
	if err != nil {
		return err
	}
	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.provider.Close()

	return writeReview(cmd, a.compressor, papers, reviewOut)
}
