package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ydzat/literature-review-mcp/internal/config"
	"github.com/ydzat/literature-review-mcp/internal/parser"
)

var (
	// ErrQueueFull is returned by Submit when no queue slot is free.
	ErrQueueFull = errors.New("job queue is full")
	// ErrStopped is returned by Submit once Stop has been called.
	ErrStopped = errors.New("pipeline is stopped")
)

// Orchestrator runs analysis jobs on a bounded pool of workers.
type Orchestrator struct {
	jobs       *JobStore
	queue      chan *Job
	compressor Compressor
	log        *slog.Logger
	cfg        config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex // guards stopped and sends on queue
	stopped bool
}

// NewOrchestrator creates the pipeline.
func NewOrchestrator(cfg config.Config, compressor Compressor, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:       NewJobStore(cfg.JobTTL),
		queue:      make(chan *Job, cfg.MaxQueueSize),
		compressor: compressor,
		log:        log,
		cfg:        cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	parserOpts := parser.Options{PDFFallbackPdftotext: o.cfg.PDFFallbackPdftotext}
	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.compressor, parserOpts, o.log)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline. Later calls are no-ops.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.mu.Unlock()
	o.wg.Wait()
}

// Submit queues a new job for processing. It returns ErrStopped after Stop.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return ErrStopped
	}
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.AddError("queue full")
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("%w (%d)", ErrQueueFull, o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// GetBatch returns a batch's jobs in submission order.
func (o *Orchestrator) GetBatch(batchID string) []*Job {
	return o.jobs.Batch(batchID)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
