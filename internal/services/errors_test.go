package services

import (
	"errors"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	underlying := errors.New("dial tcp: connection refused")
	err := Wrap(ErrTransport, "moco", "upload", "put audio", underlying)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected transport marker, got %v", err)
	}
	if !errors.Is(err, underlying) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := Wrap(nil, "moco", "poll", "", nil)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("nil marker should default to transport, got %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"transport", Wrap(ErrTransport, "moco", "poll", "", nil), true},
		{"server", Wrap(ErrServer, "moco", "create", "", nil), true},
		{"bad request", Wrap(ErrBadRequest, "moco", "create", "", nil), false},
		{"credentials", Wrap(ErrInvalidCredentials, "moco", "create", "", nil), false},
		{"forbidden", Wrap(ErrForbidden, "moco", "create", "", nil), false},
		{"not found", Wrap(ErrNotFound, "moco", "poll", "", nil), false},
		{"terminal job", Wrap(ErrJobTerminal, "worker", "poll", "FAILED", nil), false},
		{"nil", nil, false},
		{"unclassified", errors.New("anything"), false},
	}
	for _, tc := range cases {
		if got := IsRetryable(tc.err); got != tc.want {
			t.Fatalf("%s: IsRetryable=%v, want %v", tc.name, got, tc.want)
		}
	}
}
