package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ydzat/literature-review-mcp/internal/parser"
	"github.com/ydzat/literature-review-mcp/internal/pipeline"
)

type analyzeRequest struct {
	PaperID string `json:"paper_id"`
	Text    string `json:"text"`
}

// handleAnalyze accepts either a multipart upload ("file", optional
// "paper_id") or a JSON body with the paper text.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var job *pipeline.Job
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		// Limit total request size; extra 1MB for form overhead.
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()

		job, err = s.uploadJob(file, header.Filename, r.FormValue("paper_id"))
		if err != nil {
			code := http.StatusBadRequest
			if errors.Is(err, errTooLarge) {
				code = http.StatusRequestEntityTooLarge
			}
			jsonError(w, err.Error(), code)
			return
		}
	} else {
		var req analyzeRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			jsonError(w, "text is required", http.StatusBadRequest)
			return
		}
		job = pipeline.NewJob(req.PaperID, "")
		if job.PaperID == "" {
			job.PaperID = job.ID
		}
		job.SetText(req.Text)
	}

	if err := s.analyses.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusAccepted, acceptedView(job))
}

func (s *Server) handleAnalyzeStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.analyses.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleBatchAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	batchID := uuid.NewString()
	results := make([]map[string]any, 0, len(files))
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		f, err := fh.Open()
		if err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    "failed to open file",
			})
			continue
		}
		job, err := s.uploadJob(f, fh.Filename, "")
		f.Close()
		if err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}
		job.BatchID = batchID

		if err := s.analyses.Submit(job); err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"job_id":   job.ID,
				"error":    err.Error(),
			})
			continue
		}
		v := acceptedView(job)
		v["filename"] = filename
		results = append(results, v)
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"batch_id": batchID,
		"poll_url": fmt.Sprintf("/api/analyze/batch/%s", batchID),
		"jobs":     results,
	})
}

func (s *Server) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	jobs := s.analyses.GetBatch(batchID)
	if len(jobs) == 0 {
		jsonError(w, "batch not found", http.StatusNotFound)
		return
	}

	snaps := make([]pipeline.JobSnapshot, 0, len(jobs))
	done := 0
	for _, job := range jobs {
		snap := job.Snapshot()
		if snap.Status.Done() {
			done++
		}
		snaps = append(snaps, snap)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"batch_id": batchID,
		"total":    len(snaps),
		"done":     done,
		"jobs":     snaps,
	})
}

var errTooLarge = errors.New("file exceeds max size")

// uploadJob reads an uploaded paper into a new queued job.
func (s *Server) uploadJob(file multipart.File, rawName, paperID string) (*pipeline.Job, error) {
	filename := sanitizeFilename(rawName)
	if !parser.IsSupportedExtension(filename) {
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%w (%d bytes)", errTooLarge, s.cfg.MaxUploadBytes)
	}
	if len(data) == 0 {
		return nil, errors.New("file is empty")
	}

	job := pipeline.NewJob(paperID, filename)
	job.SetFileData(data)
	return job, nil
}

func acceptedView(job *pipeline.Job) map[string]any {
	return map[string]any{
		"job_id":   job.ID,
		"paper_id": job.PaperID,
		"status":   job.Snapshot().Status,
		"poll_url": fmt.Sprintf("/api/analyze/%s/status", job.ID),
	}
}
