package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/ydzat/literature-review-mcp/internal/compress"
	"github.com/ydzat/literature-review-mcp/internal/llm"
	"github.com/ydzat/literature-review-mcp/internal/parser"
)

type fakeAnalyzer struct {
	mu       sync.Mutex
	errs     map[string][]error // per paper ID, consumed in order
	calls    map[string]int
	prepared int
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (f *fakeAnalyzer) PrepareAnalysis(_ context.Context, text string) (string, compress.Report) {
	f.mu.Lock()
	f.prepared++
	f.mu.Unlock()
	return text, compress.Report{InputTokens: 10, OutputTokens: 10}
}

func (f *fakeAnalyzer) AnalyzePrepared(_ context.Context, paperID, text string) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(f.delay)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[paperID]++
	if errs := f.errs[paperID]; len(errs) > 0 {
		f.errs[paperID] = errs[1:]
		return "", errs[0]
	}
	return "review of " + paperID + ": " + text, nil
}

func newRunner(a *fakeAnalyzer) *paperRunner {
	return &paperRunner{
		analyzer: a,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		backoff:  func(int) time.Duration { return 0 },
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_DefaultsPaperIDToFileName(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "2403.01234v2.txt", "Abstract\nShort.")

	res := newRunner(&fakeAnalyzer{}).run(context.Background(), path, "")
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.PaperID != "2403.01234" {
		t.Errorf("expected normalized paper id, got %q", res.PaperID)
	}
	if res.Review != "review of 2403.01234: Abstract\nShort." {
		t.Errorf("unexpected review %q", res.Review)
	}
}

func TestRun_RetriesTransientErrors(t *testing.T) {
	path := writeFile(t, t.TempDir(), "p.txt", "text")
	fa := &fakeAnalyzer{errs: map[string][]error{
		"p": {&llm.RetryableError{StatusCode: 429}, &llm.RetryableError{StatusCode: 503}},
	}}

	res := newRunner(fa).run(context.Background(), path, "")
	if res.Err != nil {
		t.Fatalf("expected success after retries, got %v", res.Err)
	}
	if fa.calls["p"] != 3 {
		t.Errorf("expected 3 attempts, got %d", fa.calls["p"])
	}
	if fa.prepared != 1 {
		t.Errorf("expected the paper prepared once, got %d", fa.prepared)
	}
}

func TestRun_PermanentErrorNotRetried(t *testing.T) {
	path := writeFile(t, t.TempDir(), "p.txt", "text")
	fa := &fakeAnalyzer{errs: map[string][]error{"p": {errors.New("bad request")}}}

	res := newRunner(fa).run(context.Background(), path, "custom-id")
	if res.Err == nil {
		t.Fatal("expected error")
	}
	if res.PaperID != "custom-id" {
		t.Errorf("expected explicit paper id, got %q", res.PaperID)
	}
	if fa.calls["custom-id"] != 1 {
		t.Errorf("expected 1 attempt, got %d", fa.calls["custom-id"])
	}
}

func TestRun_UnreadableFile(t *testing.T) {
	fa := &fakeAnalyzer{}
	res := newRunner(fa).run(context.Background(), filepath.Join(t.TempDir(), "missing.txt"), "")
	if res.Err == nil {
		t.Fatal("expected error for missing file")
	}
	if len(fa.calls) != 0 {
		t.Error("expected no analysis call")
	}
}

func TestRunAll_OrderAndFailures(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.txt", "b.txt", "c.bin", "d.txt", "e.txt"} {
		paths = append(paths, writeFile(t, dir, name, "paper "+name))
	}
	fa := &fakeAnalyzer{
		errs:  map[string][]error{"d": {errors.New("model refused")}},
		delay: 10 * time.Millisecond,
	}

	results := newRunner(fa).runAll(context.Background(), paths, 2)
	if len(results) != len(paths) {
		t.Fatalf("expected %d results, got %d", len(paths), len(results))
	}
	for i, res := range results {
		if res.Path != paths[i] {
			t.Errorf("result %d: expected %s, got %s", i, paths[i], res.Path)
		}
	}
	for i, wantErr := range []bool{false, false, true, true, false} {
		if (results[i].Err != nil) != wantErr {
			t.Errorf("result %d: err = %v, want error %t", i, results[i].Err, wantErr)
		}
	}
	if results[4].Review != "review of e: paper e.txt" {
		t.Errorf("unexpected review %q", results[4].Review)
	}
	if peak := fa.peak.Load(); peak > 2 {
		t.Errorf("expected at most 2 concurrent analyses, saw %d", peak)
	}
}

func TestReadDocument(t *testing.T) {
	got, err := readDocument("-", parser.Options{}, strings.NewReader("from stdin"))
	if err != nil || got != "from stdin" {
		t.Errorf("stdin: got %q, %v", got, err)
	}
	if _, err := readDocument("-", parser.Options{}, strings.NewReader("  \n")); err == nil {
		t.Error("expected error for blank stdin")
	}

	path := writeFile(t, t.TempDir(), "n.md", "# Abstract\n\nBody.\n")
	got, err = readDocument(path, parser.Options{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "Abstract") || !strings.Contains(got, "Body.") {
		t.Errorf("unexpected text %q", got)
	}
}

func TestCountCommand(t *testing.T) {
	t.Setenv("TOKENIZER_EXACT", "false")
	t.Setenv("LLM_MODEL", "gpt-4o")
	t.Setenv("LLM_MAX_TOKENS", "")
	t.Setenv("MODEL_CATALOG_PATH", "")
	path := writeFile(t, t.TempDir(), "p.txt", strings.Repeat("x", 400))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"count", path})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("count: %v", err)
	}
	for _, want := range []string{"model:      gpt-4o", "tokens:     100", "available:  110616", "fits:       true"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected %q in output:\n%s", want, out.String())
		}
	}
}

func TestSectionsCommand(t *testing.T) {
	t.Setenv("TOKENIZER_EXACT", "false")
	t.Setenv("MODEL_CATALOG_PATH", "")
	path := writeFile(t, t.TempDir(), "p.txt", "Abstract\nShort.\n1. Introduction\nMore text.\nReferences\n[1] X.")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"sections", path})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("sections: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header, 3 sections and a total, got:\n%s", out.String())
	}
	for i, typ := range []string{"abstract", "introduction", "reference"} {
		if !strings.HasPrefix(lines[i+1], typ) {
			t.Errorf("line %d: expected %s, got %q", i+1, typ, lines[i+1])
		}
	}
}

func TestClip(t *testing.T) {
	if got := clip("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := clip("相关工作与背景介绍", 4); got != "相关工…" {
		t.Errorf("got %q", got)
	}
}

type fakeReviewer struct {
	papers []compress.PaperReview
	focus  string
	err    error
}

func (f *fakeReviewer) Review(_ context.Context, papers []compress.PaperReview, focus string) (string, compress.Report, error) {
	f.papers, f.focus = papers, focus
	if f.err != nil {
		return "", compress.Report{}, f.err
	}
	return "## Literature Review", compress.Report{}, nil
}

func TestCollectReviews(t *testing.T) {
	results := []paperResult{
		{Path: "in/a.pdf", PaperID: "a", Review: "review a"},
		{Path: "in/b.pdf", PaperID: "b", Err: errors.New("parse failed")},
		{Path: "in/c.md", PaperID: "c", Review: "review c"},
	}
	got := collectReviews(results)
	want := []compress.PaperReview{
		{PaperID: "a", Title: "a.pdf", Review: "review a"},
		{PaperID: "c", Title: "c.md", Review: "review c"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d reviews, got %+v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("review %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestLoadReviews(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "2401.00001v2.md", "## Review one")
	second := writeFile(t, dir, "notes.md", "## Review two")

	papers, err := loadReviews([]string{first, second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(papers) != 2 || papers[0].PaperID != "2401.00001" || papers[1].PaperID != "notes" {
		t.Errorf("unexpected papers %+v", papers)
	}
	if papers[1].Review != "## Review two" {
		t.Errorf("unexpected review %q", papers[1].Review)
	}

	blank := writeFile(t, dir, "blank.md", " \n")
	if _, err := loadReviews([]string{first, blank}); err == nil {
		t.Error("expected error for an empty review file")
	}
	if _, err := loadReviews([]string{filepath.Join(dir, "missing.md")}); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestCombineBatch(t *testing.T) {
	results := []paperResult{
		{Path: "a.txt", PaperID: "a", Review: "review a"},
		{Path: "b.txt", PaperID: "b", Err: errors.New("model refused")},
	}

	t.Run("writes to out dir", func(t *testing.T) {
		outDir = t.TempDir()
		focus = "compression"
		t.Cleanup(func() { outDir, focus = "", "" })

		fr := &fakeReviewer{}
		var out bytes.Buffer
		cmd := &cobra.Command{}
		cmd.SetOut(&out)
		cmd.SetErr(io.Discard)
		cmd.SetContext(context.Background())
		if err := combineBatch(cmd, fr, results); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(fr.papers) != 1 || fr.papers[0].PaperID != "a" || fr.focus != "compression" {
			t.Errorf("unexpected review input %+v (focus %q)", fr.papers, fr.focus)
		}
		data, err := os.ReadFile(filepath.Join(outDir, "review.md"))
		if err != nil || string(data) != "## Literature Review" {
			t.Errorf("expected review file, got %q, %v", data, err)
		}
	})

	t.Run("nothing succeeded", func(t *testing.T) {
		fr := &fakeReviewer{}
		cmd := &cobra.Command{}
		cmd.SetContext(context.Background())
		if err := combineBatch(cmd, fr, results[1:]); err == nil {
			t.Error("expected error when no review succeeded")
		}
		if fr.papers != nil {
			t.Error("expected no review call")
		}
	})

	t.Run("review error", func(t *testing.T) {
		fr := &fakeReviewer{err: errors.New("upstream down")}
		cmd := &cobra.Command{}
		cmd.SetOut(io.Discard)
		cmd.SetContext(context.Background())
		if err := combineBatch(cmd, fr, results); err == nil {
			t.Error("expected the review error")
		}
	})
}
