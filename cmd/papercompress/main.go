// Package main implements the papercompress CLI: token counting, section
// classification, context-bounded compression and paper analysis.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ydzat/literature-review-mcp/internal/compress"
	"github.com/ydzat/literature-review-mcp/internal/config"
	"github.com/ydzat/literature-review-mcp/internal/llm"
	"github.com/ydzat/literature-review-mcp/internal/parser"
	"github.com/ydzat/literature-review-mcp/internal/tokens"
)

var (
	// modelName overrides LLM_MODEL.
	modelName string
	verbose   bool
	version   = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "papercompress",
	Short: "Fit long papers into an LLM context window",
	Long: `papercompress splits papers into typed sections and compresses them
section by section so the result fits the configured model's context window.

LLM settings are read from the environment (LLM_PROVIDER, LLM_API_KEY,
LLM_MODEL, ...). count and sections work without an API key.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&modelName, "model", "", "model name (default: $LLM_MODEL or the provider default)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.AddCommand(countCmd, sectionsCmd, compressCmd, analyzeCmd, batchCmd, reviewCmd)
}

// app holds what a command needs, built from the environment.
type app struct {
	cfg        config.Config
	log        *slog.Logger
	counter    *tokens.Counter
	model      llm.ModelInfo
	provider   *llm.Provider
	compressor *compress.Orchestrator
}

// newApp loads configuration. With withLLM the provider and a compressor
// backed by it are built; otherwise only model limits are resolved.
func newApp(cmd *cobra.Command, withLLM bool) (*app, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	cfg := config.Load()
	if modelName != "" {
		cfg.LLMModel = modelName
	}
	catalog, err := config.LoadCatalog(cfg.ModelCatalogPath)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		counter: tokens.NewCounter(cfg.TokenizerExact),
	}
	if !withLLM {
		info, known := catalog.Lookup(cfg.LLMModel)
		if !known {
			log.Debug("unknown model, using default limits", "model", cfg.LLMModel)
		}
		if cfg.LLMMaxTokens > 0 {
			info.MaxOutputTokens = cfg.LLMMaxTokens
		}
		a.model = info
		a.compressor = compress.New(nil, a.counter, compress.Options{Model: info}, log)
		return a, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a.provider, err = llm.NewProvider(cfg.ProviderOptions(catalog), log)
	if err != nil {
		return nil, err
	}
	a.model = a.provider.Model()
	a.compressor = compress.New(a.provider, a.counter, compress.Options{
		Model:           a.model,
		MaxOutputTokens: a.provider.MaxOutputTokens(),
		CallTimeout:     cfg.CompressionTimeout,
		Disabled:        !cfg.CompressionEnabled,
	}, log)
	return a, nil
}

func (a *app) parserOptions() parser.Options {
	return parser.Options{PDFFallbackPdftotext: a.cfg.PDFFallbackPdftotext}
}

// readDocument extracts the text of path, or reads stdin for "-".
func readDocument(path string, opts parser.Options, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return "", fmt.Errorf("no content on stdin")
		}
		return string(data), nil
	}
	return parser.ExtractFile(path, opts)
}
