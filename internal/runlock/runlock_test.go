package runlock

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestAcquireAndRelease(t *testing.T) {
	lock, err := New(filepath.Join(t.TempDir(), "run.lock"))
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	if err := lock.Acquire(); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := lock.Acquire(); err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	_ = lock.Release()
}

func TestSecondHolderRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")
	first, err := New(path)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	if err := first.Acquire(); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer first.Release()

	second, err := New(path)
	if err != nil {
		t.Fatalf("new second lock: %v", err)
	}
	if err := second.Acquire(); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestEmptyPathRejected(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
