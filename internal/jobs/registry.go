package jobs

import (
	"sync"
	"time"

	"clipforge/internal/library"
	"clipforge/internal/services"
)

// Registry tracks every submitted merge job by its opaque identifier. It is
// the only place cancellation flags and terminal results live; the worker
// executing a job, the request that submitted it, and any number of status
// polls may all touch it concurrently.
//
// Terminal records do not accumulate forever: when a new job is created,
// the oldest terminal entries beyond the retention bound are evicted.
// In-flight jobs are never evicted.
type Registry struct {
	mu             sync.RWMutex
	jobs           map[string]*Job
	order          []string
	retainTerminal int
}

// NewRegistry constructs a registry retaining up to retainTerminal finished
// job records.
func NewRegistry(retainTerminal int) *Registry {
	if retainTerminal < 1 {
		retainTerminal = 1
	}
	return &Registry{
		jobs:           make(map[string]*Job),
		retainTerminal: retainTerminal,
	}
}

// Create registers a new job in the processing state.
func (r *Registry) Create(jobID string) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[jobID]; exists {
		return nil, services.Wrap(services.ErrValidation, "jobs", "create", "job id already in use: "+jobID, nil)
	}

	now := time.Now().UTC()
	job := &Job{
		JobID:     jobID,
		Status:    StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.jobs[jobID] = job
	r.order = append(r.order, jobID)
	r.evictLocked()
	return job.clone(), nil
}

// Get returns a snapshot of the job record.
func (r *Registry) Get(jobID string) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, false
	}
	return job.clone(), true
}

// RequestCancel sets the write-once cancellation flag. Unknown ids report
// not found; requests against already-terminal jobs are ignored so a
// finished job can never be resurrected.
func (r *Registry) RequestCancel(jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return services.Wrap(services.ErrNotFound, "jobs", "cancel", jobID, nil)
	}
	if job.Status.Terminal() {
		return nil
	}
	job.CancelRequested = true
	job.UpdatedAt = time.Now().UTC()
	return nil
}

// CancelRequested reports whether cancellation has been requested. Unknown
// ids read as cancelled so an orphaned worker stops at its next checkpoint.
func (r *Registry) CancelRequested(jobID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return true
	}
	return job.CancelRequested
}

// SetProgress updates the live progress fields. Updates after a terminal
// status are no-ops, and the reported percent never goes backwards.
func (r *Registry) SetProgress(jobID string, percent int, stage string, current, total int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok || job.Status.Terminal() {
		return
	}
	if percent > job.ProgressPercent {
		job.ProgressPercent = percent
	}
	job.Stage = stage
	job.CurrentIndex = current
	job.TotalCount = total
	job.UpdatedAt = time.Now().UTC()
}

// Complete marks the job finished and attaches the merge result.
func (r *Registry) Complete(jobID string, result *library.Item) {
	r.setTerminal(jobID, StatusCompleted, result, "")
}

// Fail marks the job failed with a caller-facing message.
func (r *Registry) Fail(jobID, message string) {
	r.setTerminal(jobID, StatusFailed, nil, message)
}

// Cancel marks the job cancelled.
func (r *Registry) Cancel(jobID string) {
	r.setTerminal(jobID, StatusCancelled, nil, "")
}

func (r *Registry) setTerminal(jobID string, status Status, result *library.Item, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok || job.Status.Terminal() {
		return
	}
	job.Status = status
	job.Result = result.Clone()
	job.Message = message
	if status == StatusCompleted {
		job.ProgressPercent = 100
	}
	job.UpdatedAt = time.Now().UTC()
}

// Counts returns the number of records per status.
func (r *Registry) Counts() map[Status]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[Status]int, 4)
	for _, job := range r.jobs {
		counts[job.Status]++
	}
	return counts
}

func (r *Registry) evictLocked() {
	terminal := 0
	for _, id := range r.order {
		if job, ok := r.jobs[id]; ok && job.Status.Terminal() {
			terminal++
		}
	}
	if terminal <= r.retainTerminal {
		return
	}

	kept := r.order[:0]
	for _, id := range r.order {
		job, ok := r.jobs[id]
		if !ok {
			continue
		}
		if terminal > r.retainTerminal && job.Status.Terminal() {
			delete(r.jobs, id)
			terminal--
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
}
