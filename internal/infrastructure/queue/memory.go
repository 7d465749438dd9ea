package queue

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a queued file job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Job tracks one audio file through the pipeline.
type Job struct {
	ID          string
	FilePath    string
	Status      JobStatus
	Error       string
	ResultFiles []string
	EnqueuedAt  time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
	// EstimatedSeconds is a rough processing estimate derived from file
	// size, used for queue position display only.
	EstimatedSeconds float64
}

// MemoryQueue is a simple in-memory job tracker for pipeline runs. It holds
// state only for the lifetime of the process.
type MemoryQueue struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	// order preserves enqueue order for listing.
	order []string
}

// NewMemoryQueue creates an empty queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{jobs: make(map[string]*Job)}
}

// Enqueue registers a file for processing and returns its job ID. The size
// based estimate assumes roughly a minute of work per 10 MB of audio.
func (q *MemoryQueue) Enqueue(filePath string) string {
	estimate := 60.0
	if info, err := os.Stat(filePath); err == nil {
		estimate = float64(info.Size()) / (10 * 1024 * 1024) * 60
		if estimate < 10 {
			estimate = 10
		}
	}

	job := &Job{
		ID:               uuid.New().String(),
		FilePath:         filePath,
		Status:           StatusQueued,
		EnqueuedAt:       time.Now(),
		EstimatedSeconds: estimate,
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs[job.ID] = job
	q.order = append(q.order, job.ID)
	return job.ID
}

// Start marks a job as processing.
func (q *MemoryQueue) Start(id string) error {
	return q.update(id, func(j *Job) {
		j.Status = StatusProcessing
		j.StartedAt = time.Now()
	})
}

// Complete marks a job as finished and records the files it produced.
func (q *MemoryQueue) Complete(id string, resultFiles []string) error {
	return q.update(id, func(j *Job) {
		j.Status = StatusCompleted
		j.ResultFiles = resultFiles
		j.FinishedAt = time.Now()
	})
}

// Fail marks a job as failed with the given reason.
func (q *MemoryQueue) Fail(id string, reason string) error {
	return q.update(id, func(j *Job) {
		j.Status = StatusFailed
		j.Error = reason
		j.FinishedAt = time.Now()
	})
}

// Get returns a copy of the job, or false when the ID is unknown.
func (q *MemoryQueue) Get(id string) (Job, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	job, ok := q.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// List returns copies of all jobs in enqueue order.
func (q *MemoryQueue) List() []Job {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]Job, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, *q.jobs[id])
	}
	return out
}

// Pending counts jobs that have not finished yet.
func (q *MemoryQueue) Pending() int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	n := 0
	for _, j := range q.jobs {
		if j.Status == StatusQueued || j.Status == StatusProcessing {
			n++
		}
	}
	return n
}

func (q *MemoryQueue) update(id string, fn func(*Job)) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return fmt.Errorf("unknown job %s", id)
	}
	fn(job)
	return nil
}
