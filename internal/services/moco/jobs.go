package moco

import (
	"fmt"
	"strings"
)

// JobStatus is the remote job state reported by the service.
type JobStatus string

const (
	StatusPending    JobStatus = "PENDING"
	StatusConverting JobStatus = "CONVERTING"
	StatusInProgress JobStatus = "IN_PROGRESS"
	StatusCompleted  JobStatus = "COMPLETED"
	StatusFailed     JobStatus = "FAILED"
	StatusCancelled  JobStatus = "CANCELLED"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Label returns the user-facing description of a status.
func (s JobStatus) Label() string {
	switch s {
	case StatusPending:
		return "Preparing"
	case StatusConverting:
		return "Converting"
	case StatusInProgress:
		return "Transcribing"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Error"
	case StatusCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

// Phase tracks a job through its client-side lifecycle. Phases only move
// forward; PENDING, CONVERTING, and IN_PROGRESS share one processing band
// because the service may interleave them.
type Phase int

const (
	PhaseCreated Phase = iota
	PhaseUploaded
	PhaseStarted
	PhaseProcessing
	PhaseCompleted
	PhaseFailed
	PhaseCancelled
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseUploaded:
		return "uploaded"
	case PhaseStarted:
		return "started"
	case PhaseProcessing:
		return "processing"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	case PhaseCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Terminal reports whether the phase is final.
func (p Phase) Terminal() bool {
	return p >= PhaseCompleted
}

// PhaseForStatus maps a remote status into the client-side phase ladder.
func PhaseForStatus(status JobStatus) Phase {
	switch JobStatus(strings.ToUpper(strings.TrimSpace(string(status)))) {
	case StatusCompleted:
		return PhaseCompleted
	case StatusFailed:
		return PhaseFailed
	case StatusCancelled:
		return PhaseCancelled
	default:
		return PhaseProcessing
	}
}

// Job tracks one remote transcription job owned by the orchestrator for the
// lifetime of a single segment.
type Job struct {
	ID        string
	UploadURL string
	phase     Phase
}

// NewJob returns a job in the created phase.
func NewJob(id, uploadURL string) *Job {
	return &Job{ID: id, UploadURL: uploadURL, phase: PhaseCreated}
}

// Phase returns the current lifecycle phase.
func (j *Job) Phase() Phase {
	return j.phase
}

// Advance moves the job forward. Staying inside the processing band is
// allowed; regressing or leaving a terminal phase is not.
func (j *Job) Advance(to Phase) error {
	switch {
	case j.phase.Terminal():
		return fmt.Errorf("job %s: already terminal in %s", j.ID, j.phase)
	case to < j.phase:
		return fmt.Errorf("job %s: cannot regress %s -> %s", j.ID, j.phase, to)
	case to == j.phase && to != PhaseProcessing:
		return fmt.Errorf("job %s: already in %s", j.ID, j.phase)
	}
	j.phase = to
	return nil
}
