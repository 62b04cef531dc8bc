package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ydzat/literature-review-mcp/internal/compress"
	"github.com/ydzat/literature-review-mcp/internal/config"
	"github.com/ydzat/literature-review-mcp/internal/llm"
	"github.com/ydzat/literature-review-mcp/internal/pipeline"
	"github.com/ydzat/literature-review-mcp/internal/section"
)

// Server is the HTTP API server for paper compression and analysis.
type Server struct {
	router     chi.Router
	analyses   *pipeline.Orchestrator
	compressor *compress.Orchestrator
	provider   *llm.Provider
	counter    section.TokenCounter
	log        *slog.Logger
	cfg        config.Config
}

// NewServer creates and configures the HTTP server. provider may be nil,
// in which case /api/stats/llm reports unavailable.
func NewServer(analyses *pipeline.Orchestrator, compressor *compress.Orchestrator, provider *llm.Provider, counter section.TokenCounter, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		analyses:   analyses,
		compressor: compressor,
		provider:   provider,
		counter:    counter,
		log:        log,
		cfg:        cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/tokens", s.handleTokens)
		r.Post("/api/sections", s.handleSections)
		r.Post("/api/compress", s.handleCompress)

		r.Post("/api/analyze", s.handleAnalyze)
		r.Post("/api/analyze/batch", s.handleBatchAnalyze)
		r.Get("/api/analyze/batch/{batchID}", s.handleBatchStatus)
		r.Get("/api/analyze/{jobID}/status", s.handleAnalyzeStatus)
		r.Post("/api/review", s.handleReview)

		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
