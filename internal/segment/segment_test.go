package segment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mocoscribe/internal/logging"
)

type call struct {
	name string
	args []string
}

func probeJSON(seconds float64) []byte {
	return fmt.Appendf(nil, `{"streams":[],"format":{"duration":"%f"}}`, seconds)
}

func TestDurationFromProbe(t *testing.T) {
	splitter := NewSplitter(logging.NewNop(), Options{
		Runner: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			if name != "ffprobe" {
				t.Fatalf("unexpected binary %s", name)
			}
			return probeJSON(3300), nil
		},
	})
	minutes, err := splitter.Duration(context.Background(), "talk.mp3")
	if err != nil {
		t.Fatalf("Duration returned error: %v", err)
	}
	if minutes != 55 {
		t.Fatalf("expected 55 minutes, got %v", minutes)
	}
}

func TestDurationDecodeFallback(t *testing.T) {
	var calls []call
	splitter := NewSplitter(logging.NewNop(), Options{
		Runner: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			calls = append(calls, call{name, args})
			if name == "ffprobe" {
				return []byte(`{"streams":[],"format":{}}`), nil
			}
			stderr := "size=N/A time=00:30:00.00 bitrate=N/A\nsize=N/A time=01:10:30.50 bitrate=N/A\n"
			return []byte(stderr), nil
		},
	})
	minutes, err := splitter.Duration(context.Background(), "talk.opus")
	if err != nil {
		t.Fatalf("Duration returned error: %v", err)
	}
	want := (3600 + 600 + 30.5) / 60
	if minutes != want {
		t.Fatalf("expected %v minutes from last time stamp, got %v", want, minutes)
	}
	if len(calls) != 2 || calls[1].name != "ffmpeg" {
		t.Fatalf("expected probe then decode, got %+v", calls)
	}
}

func TestDurationUnmeasurable(t *testing.T) {
	splitter := NewSplitter(logging.NewNop(), Options{
		Runner: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return []byte("{}"), nil
		},
	})
	if _, err := splitter.Duration(context.Background(), "talk.wav"); err == nil {
		t.Fatal("expected error when no duration can be measured")
	}
}

func TestSplitPassthroughWithinLimit(t *testing.T) {
	splitter := NewSplitter(logging.NewNop(), Options{
		MaxMinutes: 55,
		Runner: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			if name != "ffprobe" {
				t.Fatalf("split within limit must not invoke %s", name)
			}
			return probeJSON(40 * 60), nil
		},
	})
	segments, err := splitter.Split(context.Background(), "/audio/talk.mp3")
	if err != nil {
		t.Fatalf("Split returned error: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("expected single passthrough segment, got %d", len(segments))
	}
	seg := segments[0]
	if seg.Path != "/audio/talk.mp3" || seg.Generated {
		t.Fatalf("passthrough segment must reference the source: %+v", seg)
	}
	if seg.Minutes != 40 {
		t.Fatalf("expected 40 minutes, got %v", seg.Minutes)
	}
	if paths := GeneratedPaths(segments); len(paths) != 0 {
		t.Fatalf("passthrough run must have no generated paths, got %v", paths)
	}
}

func TestSplitLongSource(t *testing.T) {
	var ffmpegCalls []call
	splitter := NewSplitter(logging.NewNop(), Options{
		MaxMinutes: 55,
		Runner: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			if name == "ffprobe" {
				return probeJSON(140 * 60), nil
			}
			ffmpegCalls = append(ffmpegCalls, call{name, args})
			return nil, nil
		},
	})

	segments, err := splitter.Split(context.Background(), "/audio/talk.mp3")
	if err != nil {
		t.Fatalf("Split returned error: %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments for 140min/55max, got %d", len(segments))
	}
	wantMinutes := []float64{55, 55, 30}
	wantPaths := []string{"/audio/talk_part1.mp3", "/audio/talk_part2.mp3", "/audio/talk_part3.mp3"}
	var total float64
	for i, seg := range segments {
		if seg.Index != i {
			t.Fatalf("segment %d has index %d", i, seg.Index)
		}
		if seg.Minutes != wantMinutes[i] {
			t.Fatalf("segment %d: expected %v minutes, got %v", i, wantMinutes[i], seg.Minutes)
		}
		if seg.Path != wantPaths[i] {
			t.Fatalf("segment %d: expected path %s, got %s", i, wantPaths[i], seg.Path)
		}
		if !seg.Generated {
			t.Fatalf("segment %d must be marked generated", i)
		}
		total += seg.Minutes
	}
	if total != 140 {
		t.Fatalf("segment durations must sum to source duration, got %v", total)
	}

	if len(ffmpegCalls) != 3 {
		t.Fatalf("expected 3 ffmpeg invocations, got %d", len(ffmpegCalls))
	}
	second := strings.Join(ffmpegCalls[1].args, " ")
	if !strings.Contains(second, "-ss 3300.000") || !strings.Contains(second, "-t 3300.000") {
		t.Fatalf("second window args wrong: %s", second)
	}
	if !strings.Contains(second, "-c copy") {
		t.Fatalf("split must stream-copy, got: %s", second)
	}
	last := strings.Join(ffmpegCalls[2].args, " ")
	if !strings.Contains(last, "-ss 6600.000") || !strings.Contains(last, "-t 1800.000") {
		t.Fatalf("final window args wrong: %s", last)
	}
}

func TestSplitFailureCleansUpPartials(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "talk.mp3")

	splitter := NewSplitter(logging.NewNop(), Options{
		MaxMinutes: 55,
		Runner: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			if name == "ffprobe" {
				return probeJSON(120 * 60), nil
			}
			out := args[len(args)-1]
			if strings.HasSuffix(out, "_part2.mp3") {
				return []byte("disk full"), fmt.Errorf("exit status 1")
			}
			if err := os.WriteFile(out, []byte("x"), 0o644); err != nil {
				t.Fatalf("write partial: %v", err)
			}
			return nil, nil
		},
	})

	if _, err := splitter.Split(context.Background(), source); err == nil {
		t.Fatal("expected split failure")
	}
	if _, err := os.Stat(filepath.Join(dir, "talk_part1.mp3")); !os.IsNotExist(err) {
		t.Fatal("partial segment from failed split should have been removed")
	}
}

func TestCleanupBestEffort(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "talk_part1.mp3")
	if err := os.WriteFile(existing, []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	splitter := NewSplitter(logging.NewNop(), Options{})
	splitter.Cleanup([]string{filepath.Join(dir, "missing.mp3"), existing, ""})

	if _, err := os.Stat(existing); !os.IsNotExist(err) {
		t.Fatal("existing segment should have been removed despite earlier failure")
	}
}
