package domain

import (
	"encoding/json"
	"time"
)

// JobType enumerates supported generation job categories.
type JobType string

const (
	JobTypeGenerateImage   JobType = "generate-image"
	JobTypeAnalyzeMaterial JobType = "analyze-material"
)

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the status is an end state of the lifecycle.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is a legal lifecycle
// step. The only legal path is pending -> processing -> completed | failed |
// cancelled; terminal states are absorbing.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusProcessing
	case JobStatusProcessing:
		return next.Terminal()
	default:
		return false
	}
}

// Job encapsulates one unit of generation work. The job store owns the
// canonical record; a worker holds only a transient copy for the duration of
// a single execution attempt.
type Job struct {
	ID           string
	UserID       string
	Type         JobType
	Status       JobStatus
	Input        json.RawMessage
	Result       json.RawMessage
	CreditsUsed  int
	Attempts     int
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
