package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/resumedraft/internal/config"
	"github.com/dgallion1/resumedraft/internal/llm"
)

var (
	ErrQueueFull = errors.New("job queue is full")
	ErrStopped   = errors.New("pipeline stopped")
)

// Generator drafts resume markdown.
type Generator interface {
	Generate(ctx context.Context, profileText, instructions string) (string, error)
}

// Sink receives the outcome of every finished job. Jobs are not fenced:
// whichever finishes last determines the document.
type Sink interface {
	ApplyGeneration(jobID string, res llm.Result) error
}

// Orchestrator manages the generation queue and its workers.
type Orchestrator struct {
	jobs  *JobStore
	queue chan *Job
	gen   Generator
	sink  Sink
	log   *slog.Logger
	cfg   config.Config

	// backoff is replaced in tests.
	backoff func(int) time.Duration

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(cfg config.Config, gen Generator, sink Sink, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:    NewJobStore(cfg.JobTTL),
		queue:   make(chan *Job, max(cfg.MaxQueueSize, 1)),
		gen:     gen,
		sink:    sink,
		log:     log,
		cfg:     cfg,
		backoff: Backoff,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range max(o.cfg.WorkerCount, 1) {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.gen, o.sink, o.log, o.backoff)
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

// Stop cancels running jobs, waits for the workers to exit and fails every
// job still queued.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()

	// Jobs no worker picked up would otherwise sit in "queued" until TTL.
	for job := range o.queue {
		o.log.Warn("generation dropped at shutdown", "job_id", job.ID)
		job.Finish(llm.Result{Error: ErrStopped.Error()}, false)
	}
}

// Submit queues a job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return ErrStopped
	}
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		o.log.Info("generation queued", "job_id", job.ID, "depth", len(o.queue))
		return nil
	default:
		job.Finish(llm.Result{Error: "queue full"}, false)
		return fmt.Errorf("%w (%d)", ErrQueueFull, cap(o.queue))
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
