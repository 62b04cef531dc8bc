package api

import (
	"net/http"
	"strings"

	"github.com/ydzat/literature-review-mcp/internal/section"
)

type tokensRequest struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

type sectionsRequest struct {
	Text           string `json:"text"`
	IncludeContent bool   `json:"include_content,omitempty"`
}

type sectionView struct {
	Type       section.Type `json:"type"`
	Title      string       `json:"title"`
	StartLine  int          `json:"start_line"`
	EndLine    int          `json:"end_line"`
	Tokens     int          `json:"tokens"`
	Importance float64      `json:"importance"`
	Content    string       `json:"content,omitempty"`
}

type compressRequest struct {
	Text         string `json:"text"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	Disable      bool   `json:"disable,omitempty"`
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	var req tokensRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	model := req.Model
	if model == "" {
		model = s.modelName()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tokens": s.counter.Count(req.Text, model),
		"model":  model,
	})
}

func (s *Server) handleSections(w http.ResponseWriter, r *http.Request) {
	var req sectionsRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		jsonError(w, "text is required", http.StatusBadRequest)
		return
	}

	sections := section.Classify(req.Text, s.counter, s.modelName())
	views := make([]sectionView, 0, len(sections))
	total := 0
	for _, sec := range sections {
		v := sectionView{
			Type:       sec.Type,
			Title:      sec.Title,
			StartLine:  sec.StartLine,
			EndLine:    sec.EndLine,
			Tokens:     sec.TokenCount,
			Importance: section.Importance(sec.Type),
		}
		if req.IncludeContent {
			v.Content = sec.Content
		}
		total += sec.TokenCount
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sections":     views,
		"total_tokens": total,
	})
}

func (s *Server) handleCompress(w http.ResponseWriter, r *http.Request) {
	if s.compressor == nil {
		jsonError(w, "compression unavailable", http.StatusServiceUnavailable)
		return
	}
	var req compressRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		jsonError(w, "text is required", http.StatusBadRequest)
		return
	}

	text, rep := s.compressor.MaybeCompressWith(r.Context(), req.Text, req.SystemPrompt, req.Disable)
	writeJSON(w, http.StatusOK, map[string]any{
		"text":   text,
		"report": rep,
		"ratio":  rep.Ratio(),
	})
}

func (s *Server) modelName() string {
	if s.compressor == nil {
		return ""
	}
	return s.compressor.Model().Name
}
