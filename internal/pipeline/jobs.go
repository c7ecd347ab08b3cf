package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/resumedraft/internal/doctree"
	"github.com/dgallion1/resumedraft/internal/llm"
)

// JobStatus represents the state of a generation job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusGenerating JobStatus = "generating"
	StatusApplied    JobStatus = "applied"
	StatusFailed     JobStatus = "failed"
)

// Job tracks one resume generation request.
type Job struct {
	mu sync.Mutex

	ID          string
	Status      JobStatus
	Attempts    int
	ProfileHash string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	profileText  string
	instructions string
	result       *llm.Result
}

// NewJob creates a queued job.
func NewJob(profileText, instructions string) *Job {
	now := time.Now()
	return &Job{
		ID:           doctree.NewID(),
		Status:       StatusQueued,
		ProfileHash:  ContentHashHex([]byte(profileText)),
		CreatedAt:    now,
		UpdatedAt:    now,
		profileText:  profileText,
		instructions: instructions,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
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
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.UpdatedAt = time.Now()
}

// IncrAttempts counts one call to the model.
func (j *Job) IncrAttempts() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Attempts++
	j.UpdatedAt = time.Now()
}

// Finish stores the outcome and sets the terminal status.
func (j *Job) Finish(res llm.Result, applied bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = &res
	if applied && res.Success {
		j.Status = StatusApplied
	} else {
		j.Status = StatusFailed
	}
	j.UpdatedAt = time.Now()
}

// Input returns the profile text and instructions the job was created with.
func (j *Job) Input() (profileText, instructions string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.profileText, j.instructions
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string      `json:"job_id"`
	Status      JobStatus   `json:"status"`
	Attempts    int         `json:"attempts"`
	ProfileHash string      `json:"profile_hash"`
	Result      *llm.Result `json:"result,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	snap := JobSnapshot{
		ID:          j.ID,
		Status:      j.Status,
		Attempts:    j.Attempts,
		ProfileHash: j.ProfileHash,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
	if j.result != nil {
		r := *j.result
		snap.Result = &r
	}
	return snap
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
