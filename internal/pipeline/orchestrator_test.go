package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/resumedraft/internal/config"
	"github.com/dgallion1/resumedraft/internal/llm"
)

type fakeGen struct {
	mu    sync.Mutex
	calls int
	errs  []error
	text  string
	block chan struct{}
}

func (g *fakeGen) Generate(ctx context.Context, profileText, instructions string) (string, error) {
	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if len(g.errs) > 0 {
		err := g.errs[0]
		g.errs = g.errs[1:]
		if err != nil {
			return "", err
		}
	}
	return g.text + " for " + profileText, nil
}

type recordingSink struct {
	mu      sync.Mutex
	applied map[string]llm.Result
	done    chan string
	err     error
}

func newSink() *recordingSink {
	return &recordingSink{applied: map[string]llm.Result{}, done: make(chan string, 16)}
}

func (s *recordingSink) ApplyGeneration(jobID string, res llm.Result) error {
	s.mu.Lock()
	s.applied[jobID] = res
	s.mu.Unlock()
	s.done <- jobID
	return s.err
}

func (s *recordingSink) result(id string) (llm.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.applied[id]
	return r, ok
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(gen Generator, sink Sink, queue int) *Orchestrator {
	o := NewOrchestrator(config.Config{WorkerCount: 1, MaxQueueSize: queue, JobTTL: time.Hour}, gen, sink, discardLogger())
	o.backoff = func(int) time.Duration { return time.Millisecond }
	return o
}

func waitDone(t *testing.T, sink *recordingSink) string {
	t.Helper()
	select {
	case id := <-sink.done:
		return id
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job")
		return ""
	}
}

func TestOrchestrator_AppliesResult(t *testing.T) {
	gen := &fakeGen{text: "# Resume"}
	sink := newSink()
	o := newTestOrchestrator(gen, sink, 4)
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("jane", "")
	if err := o.Submit(job); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id := waitDone(t, sink); id != job.ID {
		t.Fatalf("applied job %s, want %s", id, job.ID)
	}
	res, _ := sink.result(job.ID)
	if !res.Success || res.Text != "# Resume for jane" {
		t.Errorf("result = %+v", res)
	}
	deadline := time.Now().Add(time.Second)
	for o.GetJob(job.ID).Snapshot().Status != StatusApplied {
		if time.Now().After(deadline) {
			t.Fatalf("status = %q", o.GetJob(job.ID).Snapshot().Status)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestWorker_RetriesRetryableErrors(t *testing.T) {
	retry := &llm.RetryableError{StatusCode: 503, Message: "busy"}
	gen := &fakeGen{text: "ok", errs: []error{retry, retry}}
	sink := newSink()
	w := NewWorker(gen, sink, discardLogger(), func(int) time.Duration { return 0 })

	job := NewJob("p", "")
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusApplied || snap.Attempts != 3 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestWorker_GivesUpAfterMaxRetries(t *testing.T) {
	retry := &llm.RetryableError{StatusCode: 503, Message: "busy"}
	gen := &fakeGen{errs: []error{retry, retry, retry, retry}}
	sink := newSink()
	w := NewWorker(gen, sink, discardLogger(), func(int) time.Duration { return 0 })

	job := NewJob("p", "")
	w.Process(context.Background(), job)

	if gen.calls != MaxRetries {
		t.Errorf("calls = %d, want %d", gen.calls, MaxRetries)
	}
	res, ok := sink.result(job.ID)
	if !ok || res.Success || res.Error == "" {
		t.Fatalf("failure should still reach the sink, got %+v ok=%v", res, ok)
	}
	if job.Snapshot().Status != StatusFailed {
		t.Errorf("status = %q", job.Snapshot().Status)
	}
}

func TestWorker_PermanentErrorNotRetried(t *testing.T) {
	gen := &fakeGen{errs: []error{errors.New("model not found")}}
	sink := newSink()
	w := NewWorker(gen, sink, discardLogger(), func(int) time.Duration { return 0 })

	job := NewJob("p", "")
	w.Process(context.Background(), job)
	if gen.calls != 1 {
		t.Errorf("calls = %d, want 1", gen.calls)
	}
	if res, _ := sink.result(job.ID); res.Error != "model not found" {
		t.Errorf("result = %+v", res)
	}
}

func TestWorker_SinkError(t *testing.T) {
	sink := newSink()
	sink.err = errors.New("editor closed")
	w := NewWorker(&fakeGen{text: "x"}, sink, discardLogger(), nil)

	job := NewJob("p", "")
	w.Process(context.Background(), job)
	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Result.Error != "editor closed" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestWorker_CancelledJobNotApplied(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink := newSink()
	w := NewWorker(&fakeGen{block: make(chan struct{})}, sink, discardLogger(), nil)

	job := NewJob("p", "")
	w.Process(ctx, job)
	if _, ok := sink.result(job.ID); ok {
		t.Error("cancelled job should not reach the sink")
	}
	if job.Snapshot().Status != StatusFailed {
		t.Errorf("status = %q", job.Snapshot().Status)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	gen := &fakeGen{block: make(chan struct{})}
	o := newTestOrchestrator(gen, newSink(), 1)
	// No workers started, so the queue fills immediately.
	if err := o.Submit(NewJob("a", "")); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	job := NewJob("b", "")
	if err := o.Submit(job); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if job.Snapshot().Status != StatusFailed {
		t.Errorf("rejected job status = %q", job.Snapshot().Status)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("queue depth = %d", o.QueueDepth())
	}
}

func TestOrchestrator_SubmitAfterStop(t *testing.T) {
	o := newTestOrchestrator(&fakeGen{}, newSink(), 2)
	o.Start(context.Background())
	o.Stop()
	o.Stop()
	if err := o.Submit(NewJob("p", "")); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestOrchestrator_LastFinishedWins(t *testing.T) {
	gen := &fakeGen{text: "v"}
	sink := newSink()
	o := newTestOrchestrator(gen, sink, 4)
	o.Start(context.Background())
	defer o.Stop()

	first, second := NewJob("one", ""), NewJob("two", "")
	o.Submit(first)
	o.Submit(second)
	got := []string{waitDone(t, sink), waitDone(t, sink)}
	if got[0] != first.ID || got[1] != second.ID {
		t.Errorf("single worker should apply in submit order, got %v", got)
	}
}

func TestOrchestrator_StopFailsQueuedJobs(t *testing.T) {
	gen := &fakeGen{block: make(chan struct{})}
	sink := newSink()
	o := newTestOrchestrator(gen, sink, 4)
	o.Start(context.Background())

	jobs := []*Job{NewJob("one", ""), NewJob("two", ""), NewJob("three", "")}
	for _, j := range jobs {
		if err := o.Submit(j); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	o.Stop()

	for _, j := range jobs {
		snap := o.GetJob(j.ID).Snapshot()
		if snap.Status != StatusFailed {
			t.Errorf("job %s status = %q, want failed", j.ID, snap.Status)
		}
		if snap.Result == nil || snap.Result.Success {
			t.Errorf("job %s result = %+v", j.ID, snap.Result)
		}
		if _, ok := sink.result(j.ID); ok {
			t.Errorf("job %s reached the sink", j.ID)
		}
	}
}
