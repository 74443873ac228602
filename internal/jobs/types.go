package jobs

import (
	"time"

	"clipforge/internal/library"
)

// Status represents the lifecycle of a merge job.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether the status is final. Terminal state is sticky:
// once reached, progress updates and cancellation requests are ignored.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Job is the registry's record of one merge attempt. Result is set only
// when Status is completed; Message only when failed.
type Job struct {
	JobID           string
	Status          Status
	CancelRequested bool
	ProgressPercent int
	Stage           string
	CurrentIndex    int
	TotalCount      int
	Result          *library.Item
	Message         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (j *Job) clone() *Job {
	cp := *j
	cp.Result = j.Result.Clone()
	return &cp
}
