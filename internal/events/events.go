package events

import "clipforge/internal/library"

// Type identifies the kind of job event pushed to subscribers.
type Type string

const (
	TypeProgress  Type = "progress"
	TypeCompleted Type = "completed"
	TypeFailed    Type = "failed"
	TypeCancelled Type = "cancelled"
	TypeWarning   Type = "warning"
)

// Event is one job lifecycle notification. Progress events carry the
// percent/stage/index fields; completed events carry the result item;
// failed and warning events carry a message. Warnings never change the
// job's status.
type Event struct {
	Type         Type
	JobID        string
	Percent      int
	Stage        string
	CurrentIndex int
	TotalCount   int
	Message      string
	Item         *library.Item
}

// Progress builds a progress event.
func Progress(jobID string, percent int, stage string, current, total int) Event {
	return Event{
		Type:         TypeProgress,
		JobID:        jobID,
		Percent:      percent,
		Stage:        stage,
		CurrentIndex: current,
		TotalCount:   total,
	}
}

// Completed builds a completion event carrying the merge result.
func Completed(jobID string, item *library.Item) Event {
	return Event{Type: TypeCompleted, JobID: jobID, Percent: 100, Item: item}
}

// Failed builds a failure event.
func Failed(jobID, message string) Event {
	return Event{Type: TypeFailed, JobID: jobID, Message: message}
}

// Cancelled builds a cancellation event.
func Cancelled(jobID string) Event {
	return Event{Type: TypeCancelled, JobID: jobID}
}

// Warning builds a non-fatal warning event.
func Warning(jobID, stage, message string) Event {
	return Event{Type: TypeWarning, JobID: jobID, Stage: stage, Message: message}
}
