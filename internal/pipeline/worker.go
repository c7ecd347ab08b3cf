package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgallion1/resumedraft/internal/llm"
)

// Worker runs generation jobs one at a time.
type Worker struct {
	gen     Generator
	sink    Sink
	log     *slog.Logger
	backoff func(int) time.Duration
}

func NewWorker(gen Generator, sink Sink, log *slog.Logger, backoff func(int) time.Duration) *Worker {
	if backoff == nil {
		backoff = Backoff
	}
	return &Worker{gen: gen, sink: sink, log: log, backoff: backoff}
}

// Process generates the resume for job and hands the result to the sink.
// A job cancelled by shutdown leaves the document untouched.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID)
	job.SetStatus(StatusGenerating)
	profileText, instructions := job.Input()

	start := time.Now()
	var text string
	var err error
	for attempt := range MaxRetries {
		job.IncrAttempts()
		text, err = w.gen.Generate(ctx, profileText, instructions)
		if err == nil || !IsRetryable(err) {
			break
		}
		log.Warn("retryable generation error", "attempt", attempt, "error", err)
		if attempt == MaxRetries-1 {
			break
		}
		select {
		case <-time.After(w.backoff(attempt)):
		case <-ctx.Done():
			err = ctx.Err()
		}
		if ctx.Err() != nil {
			break
		}
	}

	res := llm.NewResult(text, err)
	if ctx.Err() != nil {
		log.Warn("generation cancelled", "error", ctx.Err())
		job.Finish(res, false)
		return
	}
	if err != nil {
		log.Error("generation failed", "error", err, "duration", time.Since(start))
	} else {
		log.Info("generation complete", "chars", len(text), "duration", time.Since(start))
	}

	if sinkErr := w.sink.ApplyGeneration(job.ID, res); sinkErr != nil {
		log.Error("apply failed", "error", sinkErr)
		job.Finish(llm.NewResult("", sinkErr), false)
		return
	}
	job.Finish(res, true)
}
