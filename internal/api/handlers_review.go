package api

import (
	"net/http"
	"strings"

	"github.com/ydzat/literature-review-mcp/internal/compress"
	"github.com/ydzat/literature-review-mcp/internal/pipeline"
)

type reviewRequest struct {
	BatchID string `json:"batch_id"`
	Focus   string `json:"focus,omitempty"`
}

// skippedPaper is a batch job left out of the combined review.
type skippedPaper struct {
	JobID    string             `json:"job_id"`
	PaperID  string             `json:"paper_id"`
	Filename string             `json:"filename,omitempty"`
	Status   pipeline.JobStatus `json:"status"`
	Errors   []string           `json:"errors,omitempty"`
}

// handleReview combines the completed reviews of a batch into one literature
// review. Jobs that failed or are still running are reported as skipped.
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	if s.compressor == nil {
		jsonError(w, "compression unavailable", http.StatusServiceUnavailable)
		return
	}
	var req reviewRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.BatchID) == "" {
		jsonError(w, "batch_id is required", http.StatusBadRequest)
		return
	}

	jobs := s.analyses.GetBatch(req.BatchID)
	if len(jobs) == 0 {
		jsonError(w, "batch not found", http.StatusNotFound)
		return
	}

	var papers []compress.PaperReview
	skipped := []skippedPaper{}
	for _, job := range jobs {
		snap := job.Snapshot()
		if snap.Status != pipeline.StatusCompleted {
			skipped = append(skipped, skippedPaper{
				JobID:    snap.ID,
				PaperID:  snap.PaperID,
				Filename: snap.Filename,
				Status:   snap.Status,
				Errors:   snap.Progress.Errors,
			})
			continue
		}
		papers = append(papers, compress.PaperReview{
			PaperID: snap.PaperID,
			Title:   snap.Filename,
			Review:  snap.Review,
		})
	}
	if len(papers) == 0 {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":   "no completed papers in batch",
			"skipped": skipped,
		})
		return
	}

	log := s.log.With("batch_id", req.BatchID)
	review, rep, err := s.compressor.Review(r.Context(), papers, req.Focus)
	if err != nil {
		log.Error("literature review failed", "error", err)
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"batch_id": req.BatchID,
		"review":   review,
		"report":   rep,
		"papers":   len(papers),
		"skipped":  skipped,
	})
}
