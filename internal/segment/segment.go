package segment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"mocoscribe/internal/logging"
	"mocoscribe/internal/media/ffprobe"
)

// DefaultMaxMinutes bounds a single segment so the remote service accepts it.
const DefaultMaxMinutes = 55.0

// Runner executes an external command and returns its combined output.
// Injectable so tests can exercise the splitter without ffmpeg installed.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Segment is one bounded-duration slice of the source audio. Generated is
// false only for the passthrough case where the segment IS the source file.
type Segment struct {
	Index     int
	Path      string
	Minutes   float64
	Generated bool
}

// Options configures a Splitter. Zero values fall back to sensible defaults.
type Options struct {
	FFmpegBinary  string
	FFprobeBinary string
	MaxMinutes    float64
	Runner        Runner
}

// Splitter probes durations and produces segment files via ffmpeg.
type Splitter struct {
	ffmpeg     string
	ffprobe    string
	maxMinutes float64
	run        Runner
	logger     *slog.Logger
}

func NewSplitter(logger *slog.Logger, opts Options) *Splitter {
	if logger == nil {
		logger = logging.NewNop()
	}
	splitter := &Splitter{
		ffmpeg:     strings.TrimSpace(opts.FFmpegBinary),
		ffprobe:    strings.TrimSpace(opts.FFprobeBinary),
		maxMinutes: opts.MaxMinutes,
		run:        opts.Runner,
		logger:     logger,
	}
	if splitter.ffmpeg == "" {
		splitter.ffmpeg = "ffmpeg"
	}
	if splitter.ffprobe == "" {
		splitter.ffprobe = "ffprobe"
	}
	if splitter.maxMinutes <= 0 {
		splitter.maxMinutes = DefaultMaxMinutes
	}
	if splitter.run == nil {
		splitter.run = defaultRunner
	}
	return splitter
}

var decodeTimePattern = regexp.MustCompile(`time=(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

// Duration returns the source duration in minutes. Container metadata via
// ffprobe is preferred; when the container reports nothing usable the source
// is decoded in full and the final progress timestamp is taken instead.
func (s *Splitter) Duration(ctx context.Context, path string) (float64, error) {
	if strings.TrimSpace(path) == "" {
		return 0, errors.New("segment duration: empty path")
	}

	output, probeErr := s.run(ctx, s.ffprobe, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	if probeErr == nil {
		if result, err := ffprobe.Parse(output); err == nil {
			if seconds := result.DurationSeconds(); seconds > 0 {
				return seconds / 60, nil
			}
		}
	}

	s.logger.Debug("container reported no duration, decoding source to measure",
		logging.String("path", path))
	decoded, decodeErr := s.run(ctx, s.ffmpeg, "-hide_banner", "-nostdin", "-i", path, "-f", "null", "-")
	if seconds, ok := lastDecodeTime(decoded); ok {
		return seconds / 60, nil
	}
	if decodeErr != nil {
		return 0, fmt.Errorf("segment duration: decode measurement failed: %w: %s", decodeErr, snippet(decoded))
	}
	return 0, fmt.Errorf("segment duration: no duration reported for %s", path)
}

// lastDecodeTime extracts the final time= progress stamp from ffmpeg output.
func lastDecodeTime(output []byte) (float64, bool) {
	matches := decodeTimePattern.FindAllSubmatch(output, -1)
	if len(matches) == 0 {
		return 0, false
	}
	last := matches[len(matches)-1]
	hours, _ := strconv.ParseFloat(string(last[1]), 64)
	minutes, _ := strconv.ParseFloat(string(last[2]), 64)
	seconds, _ := strconv.ParseFloat(string(last[3]), 64)
	return hours*3600 + minutes*60 + seconds, true
}

// Split cuts the source into consecutive windows no longer than the
// configured maximum. A source already within bounds is returned as a single
// passthrough segment referencing the original file.
func (s *Splitter) Split(ctx context.Context, path string) ([]Segment, error) {
	totalMinutes, err := s.Duration(ctx, path)
	if err != nil {
		return nil, err
	}

	if totalMinutes <= s.maxMinutes {
		return []Segment{{Index: 0, Path: path, Minutes: totalMinutes}}, nil
	}

	count := int(math.Ceil(totalMinutes / s.maxMinutes))
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)

	segments := make([]Segment, 0, count)
	for i := 0; i < count; i++ {
		startMinutes := float64(i) * s.maxMinutes
		windowMinutes := math.Min(s.maxMinutes, totalMinutes-startMinutes)
		outPath := fmt.Sprintf("%s_part%d%s", base, i+1, ext)

		args := []string{
			"-hide_banner", "-nostdin", "-v", "error", "-y",
			"-i", path,
			"-ss", formatSeconds(startMinutes * 60),
			"-t", formatSeconds(windowMinutes * 60),
			"-c", "copy",
			outPath,
		}
		if output, err := s.run(ctx, s.ffmpeg, args...); err != nil {
			s.Cleanup(GeneratedPaths(segments))
			return nil, fmt.Errorf("segment split: window %d failed: %w: %s", i+1, err, snippet(output))
		}
		segments = append(segments, Segment{Index: i, Path: outPath, Minutes: windowMinutes, Generated: true})
		s.logger.Debug("segment exported",
			logging.Int(logging.FieldSegment, i+1),
			logging.String("path", outPath),
			logging.Float64("minutes", windowMinutes))
	}
	return segments, nil
}

// Cleanup removes generated segment files. Deletion failures are logged and
// never abort cleanup of the remaining files.
func (s *Splitter) Cleanup(paths []string) {
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to remove segment file",
				logging.String("path", path),
				logging.Error(err))
		}
	}
}

// GeneratedPaths returns the paths of generated segments only, never the
// original source, making it safe to hand straight to Cleanup.
func GeneratedPaths(segments []Segment) []string {
	paths := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg.Generated {
			paths = append(paths, seg.Path)
		}
	}
	return paths
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 3, 64)
}

func snippet(output []byte) string {
	trimmed := strings.TrimSpace(string(output))
	if len(trimmed) > 512 {
		trimmed = trimmed[:512]
	}
	return trimmed
}
