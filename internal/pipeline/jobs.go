package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ydzat/literature-review-mcp/internal/compress"
)

// JobStatus represents the state of an analysis job.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusParsing     JobStatus = "parsing"
	StatusCompressing JobStatus = "compressing"
	StatusAnalyzing   JobStatus = "analyzing"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
)

// Done reports whether the status is terminal.
func (s JobStatus) Done() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job tracks the analysis of a single paper.
type Job struct {
	mu sync.Mutex

	ID      string `json:"job_id"`
	BatchID string `json:"batch_id,omitempty"`
	PaperID string `json:"paper_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	seq      int
	fileData []byte
	text     string
	review   string
	report   *compress.Report
	errors   []string
}

// Progress tracks processing progress.
type Progress struct {
	InputTokens      int      `json:"input_tokens"`
	CompressedTokens int      `json:"compressed_tokens"`
	Attempts         int      `json:"attempts"`
	Errors           []string `json:"errors"`
}

// NewJob creates a queued job. paperID defaults to the filename without its
// extension.
func NewJob(paperID, filename string) *Job {
	if paperID == "" {
		paperID = strings.TrimSuffix(filename, extOf(filename))
	}
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		PaperID:   NormalizePaperID(paperID),
		Status:    StatusQueued,
		Phase:     "queued",
		Filename:  filename,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NormalizePaperID trims whitespace and an arXiv style version suffix such
// as "v2".
func NormalizePaperID(id string) string {
	id = strings.TrimSpace(id)
	i := len(id)
	for i > 0 && id[i-1] >= '0' && id[i-1] <= '9' {
		i--
	}
	if i < len(id) && i > 1 && id[i-1] == 'v' {
		return id[:i-1]
	}
	return id
}

func extOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[i:]
	}
	return ""
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
	seq  int
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	job.mu.Lock()
	job.seq = s.seq
	job.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Batch returns the jobs of a batch in submission order.
func (s *JobStore) Batch(batchID string) []*Job {
	s.mu.Lock()
	var out []*Job
	for _, job := range s.jobs {
		if batchID != "" && job.BatchID == batchID {
			out = append(out, job)
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].order() < out[j].order() })
	return out
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.updatedAt()) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

func (j *Job) order() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.seq
}

func (j *Job) updatedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.UpdatedAt
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// IncrAttempts counts one analysis call attempt.
func (j *Job) IncrAttempts() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Attempts++
	j.UpdatedAt = time.Now()
}

// SetReport records the compression decision for the paper's text.
func (j *Job) SetReport(rep compress.Report) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.report = &rep
	j.Progress.InputTokens = rep.InputTokens
	j.Progress.CompressedTokens = rep.OutputTokens
	j.UpdatedAt = time.Now()
}

// SetContentHash records the hash of the extracted text.
func (j *Job) SetContentHash(hash string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = hash
}

// Complete stores the review and marks the job completed.
func (j *Job) Complete(review string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.review = review
	j.Status = StatusCompleted
	j.Phase = "done"
	j.UpdatedAt = time.Now()
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// SetText provides already extracted text, skipping parsing.
func (j *Job) SetText(text string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.text = text
}

// Text returns the extracted text, if any.
func (j *Job) Text() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.text
}

// releaseInput drops the document body once it is no longer needed.
func (j *Job) releaseInput() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = nil
	j.text = ""
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string           `json:"job_id"`
	BatchID     string           `json:"batch_id,omitempty"`
	PaperID     string           `json:"paper_id"`
	Status      JobStatus        `json:"status"`
	Phase       string           `json:"phase"`
	Filename    string           `json:"filename"`
	ContentHash string           `json:"content_hash,omitempty"`
	Progress    Progress         `json:"progress"`
	Compression *compress.Report `json:"compression,omitempty"`
	Review      string           `json:"review,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	var rep *compress.Report
	if j.report != nil {
		r := *j.report
		rep = &r
	}
	return JobSnapshot{
		ID:          j.ID,
		BatchID:     j.BatchID,
		PaperID:     j.PaperID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		ContentHash: j.ContentHash,
		Progress: Progress{
			InputTokens:      j.Progress.InputTokens,
			CompressedTokens: j.Progress.CompressedTokens,
			Attempts:         j.Progress.Attempts,
			Errors:           errs,
		},
		Compression: rep,
		Review:      j.review,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
