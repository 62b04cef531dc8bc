package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ydzat/literature-review-mcp/internal/api"
	"github.com/ydzat/literature-review-mcp/internal/compress"
	"github.com/ydzat/literature-review-mcp/internal/config"
	"github.com/ydzat/literature-review-mcp/internal/llm"
	"github.com/ydzat/literature-review-mcp/internal/pipeline"
	"github.com/ydzat/literature-review-mcp/internal/tokens"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.ValidateServer(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	catalog, err := config.LoadCatalog(cfg.ModelCatalogPath)
	if err != nil {
		log.Error("invalid model catalog", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	provider, err := llm.NewProvider(cfg.ProviderOptions(catalog), log)
	if err != nil {
		log.Error("llm provider", "error", err)
		os.Exit(1)
	}
	counter := tokens.NewCounter(cfg.TokenizerExact)
	compressor := compress.New(provider, counter, compress.Options{
		Model:           provider.Model(),
		MaxOutputTokens: provider.MaxOutputTokens(),
		CallTimeout:     cfg.CompressionTimeout,
		Disabled:        !cfg.CompressionEnabled,
	}, log)

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, compressor, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, compressor, provider, counter, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.CompressionTimeout + cfg.LLMTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		// Stop accepting requests before the queue closes.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		provider.Close()
	}()

	model := provider.Model()
	log.Info("starting paper compression service",
		"port", cfg.Port,
		"provider", cfg.LLMProvider,
		"model", model.Name,
		"context_window", model.ContextWindow,
		"available_tokens", compressor.Available(),
		"compression", cfg.CompressionEnabled,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
