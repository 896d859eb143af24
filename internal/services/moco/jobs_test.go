package moco

import "testing"

func TestJobAdvancesForward(t *testing.T) {
	job := NewJob("job-1", "https://uploads.example/job-1")
	steps := []Phase{PhaseUploaded, PhaseStarted, PhaseProcessing, PhaseProcessing, PhaseCompleted}
	for _, phase := range steps {
		if err := job.Advance(phase); err != nil {
			t.Fatalf("advance to %s: %v", phase, err)
		}
	}
	if job.Phase() != PhaseCompleted {
		t.Fatalf("expected completed, got %s", job.Phase())
	}
}

func TestJobRejectsRegression(t *testing.T) {
	job := NewJob("job-1", "")
	if err := job.Advance(PhaseStarted); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := job.Advance(PhaseUploaded); err == nil {
		t.Fatal("expected regression to fail")
	}
}

func TestJobTerminalIsFinal(t *testing.T) {
	job := NewJob("job-1", "")
	if err := job.Advance(PhaseFailed); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := job.Advance(PhaseCompleted); err == nil {
		t.Fatal("expected terminal phase to reject transitions")
	}
}

func TestPhaseForStatus(t *testing.T) {
	cases := map[JobStatus]Phase{
		StatusPending:    PhaseProcessing,
		StatusConverting: PhaseProcessing,
		StatusInProgress: PhaseProcessing,
		StatusCompleted:  PhaseCompleted,
		StatusFailed:     PhaseFailed,
		StatusCancelled:  PhaseCancelled,
	}
	for status, want := range cases {
		if got := PhaseForStatus(status); got != want {
			t.Fatalf("%s: expected %s, got %s", status, want, got)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, status := range []JobStatus{StatusCompleted, StatusFailed, StatusCancelled} {
		if !status.Terminal() {
			t.Fatalf("%s should be terminal", status)
		}
	}
	for _, status := range []JobStatus{StatusPending, StatusConverting, StatusInProgress} {
		if status.Terminal() {
			t.Fatalf("%s should not be terminal", status)
		}
	}
}

func TestStatusLabels(t *testing.T) {
	if StatusInProgress.Label() != "Transcribing" {
		t.Fatalf("unexpected label %q", StatusInProgress.Label())
	}
	if JobStatus("UNKNOWN").Label() != "UNKNOWN" {
		t.Fatal("unknown status should fall through to raw value")
	}
}
