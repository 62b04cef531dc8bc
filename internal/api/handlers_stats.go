package api

import (
	"net/http"
)

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.provider == nil || s.provider.Stats == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"model":             s.provider.Model(),
		"max_output_tokens": s.provider.MaxOutputTokens(),
		"stats":             s.provider.Stats.Snapshot(),
		"queue_depth":       s.queueDepth(),
	})
}

func (s *Server) queueDepth() int {
	if s.analyses == nil {
		return 0
	}
	return s.analyses.QueueDepth()
}
