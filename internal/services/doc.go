// Package services defines the shared error taxonomy for remote
// transcription calls. Sentinel errors classify failures into retryable
// transport/server faults and terminal client faults so the orchestrator
// can decide whether to retry, abort, or surface a specific cause.
package services
