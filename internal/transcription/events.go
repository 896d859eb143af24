package transcription

import "time"

// EventType discriminates the messages a worker emits while running.
type EventType string

const (
	EventStatus   EventType = "status"
	EventDebug    EventType = "debug"
	EventProgress EventType = "progress"
	EventFinished EventType = "finished"
	EventError    EventType = "error"
)

// Event is one message on the worker's stream. Progress is set for progress
// events, Text for finished events, Err for error events, and Message for
// status and debug events.
type Event struct {
	Type     EventType
	Message  string
	Progress int
	Text     string
	Err      error
}

// Result classifies how a run ended.
type Result string

const (
	ResultCompleted Result = "completed"
	ResultFailed    Result = "failed"
	ResultCancelled Result = "cancelled"
)

// Outcome summarizes a finished run for callers and the history store.
type Outcome struct {
	RunID           string
	Source          string
	DurationMinutes float64
	SegmentCount    int
	Result          Result
	OutputPath      string
	Err             error
	StartedAt       time.Time
	FinishedAt      time.Time
}
