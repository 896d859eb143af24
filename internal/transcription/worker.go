package transcription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"mocoscribe/internal/logging"
	"mocoscribe/internal/media/ffprobe"
	"mocoscribe/internal/merge"
	"mocoscribe/internal/segment"
	"mocoscribe/internal/services"
	"mocoscribe/internal/services/moco"
)

const (
	defaultPollInterval       = 5 * time.Second
	defaultStartRetryDelay    = 5 * time.Second
	defaultPollTransientLimit = 3

	eventBufferSize = 64
)

// errRunCancelled marks a cooperative cancellation; it becomes a cancelled
// outcome rather than an error event.
var errRunCancelled = errors.New("run cancelled")

// JobClient is the remote transcription surface the worker drives.
type JobClient interface {
	CreateJob(ctx context.Context, filename string, opts moco.JobOptions) (moco.CreateJobResult, error)
	UploadAudio(ctx context.Context, uploadURL, path string) (int, error)
	StartTranscription(ctx context.Context, transcriptionID string) error
	GetStatus(ctx context.Context, transcriptionID string) (moco.StatusResult, error)
	FetchResult(ctx context.Context, resultURL string) (string, error)
}

// Splitter provides duration measurement, segment export, and cleanup.
type Splitter interface {
	Duration(ctx context.Context, path string) (float64, error)
	Split(ctx context.Context, path string) ([]segment.Segment, error)
	Cleanup(paths []string)
}

// Options configures a worker run. Zero values fall back to defaults.
type Options struct {
	Job                moco.JobOptions
	PollInterval       time.Duration
	StartRetryDelay    time.Duration
	PollTransientLimit int
	FFprobeBinary      string

	// Now and Sleep are injectable for tests.
	Now   func() time.Time
	Sleep func(time.Duration)
}

// Worker runs one transcription end to end, reporting through Events.
type Worker struct {
	client   JobClient
	splitter Splitter
	logger   *slog.Logger
	opts     Options

	runID     string
	events    chan Event
	cancelled atomic.Bool
}

func NewWorker(client JobClient, splitter Splitter, logger *slog.Logger, opts Options) *Worker {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.StartRetryDelay <= 0 {
		opts.StartRetryDelay = defaultStartRetryDelay
	}
	if opts.PollTransientLimit <= 0 {
		opts.PollTransientLimit = defaultPollTransientLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	runID := uuid.NewString()
	return &Worker{
		client:   client,
		splitter: splitter,
		logger:   logger.With(logging.String(logging.FieldRunID, runID)),
		opts:     opts,
		runID:    runID,
		events:   make(chan Event, eventBufferSize),
	}
}

// RunID returns the identifier assigned to this run.
func (w *Worker) RunID() string {
	return w.runID
}

// Events returns the stream of run events. The channel is closed when Run
// returns.
func (w *Worker) Events() <-chan Event {
	return w.events
}

// Cancel requests cooperative cancellation. The flag is consulted before job
// creation, after upload, after start, and inside the poll loop; a network
// call already in flight is never interrupted.
func (w *Worker) Cancel() {
	w.cancelled.Store(true)
}

// Run executes the full protocol against the given source file. It is meant
// to run on its own goroutine while the caller consumes Events; the returned
// Outcome summarizes the run for history recording.
func (w *Worker) Run(ctx context.Context, source string) Outcome {
	defer close(w.events)

	outcome := Outcome{
		RunID:     w.runID,
		Source:    source,
		Result:    ResultFailed,
		StartedAt: w.opts.Now(),
	}
	text, err := w.run(ctx, source, &outcome)
	outcome.FinishedAt = w.opts.Now()

	switch {
	case errors.Is(err, errRunCancelled):
		outcome.Result = ResultCancelled
		w.logger.Info("run cancelled")
		w.emit(Event{Type: EventStatus, Message: "Cancelled"})
	case err != nil:
		outcome.Err = err
		w.logger.Error("run failed", logging.Error(err))
		w.emit(Event{Type: EventError, Message: err.Error(), Err: err})
	default:
		outcome.Result = ResultCompleted
		w.logger.Info("run completed", logging.String("output", outcome.OutputPath))
		w.emit(Event{Type: EventProgress, Progress: 100})
		w.emit(Event{Type: EventFinished, Text: text})
	}
	return outcome
}

func (w *Worker) run(ctx context.Context, source string, outcome *Outcome) (string, error) {
	info, err := os.Stat(source)
	if err != nil {
		return "", fmt.Errorf("transcription: source file: %w", err)
	}
	w.inspectSource(ctx, source, info.Size())

	w.emitStatus("Inspecting audio")
	minutes, err := w.splitter.Duration(ctx, source)
	if err != nil {
		return "", err
	}
	outcome.DurationMinutes = minutes
	w.emitProgress(5)

	w.emitStatus("Splitting audio")
	segments, err := w.splitter.Split(ctx, source)
	if err != nil {
		return "", err
	}
	defer w.splitter.Cleanup(segment.GeneratedPaths(segments))

	if len(segments) == 0 {
		return "", errors.New("transcription: split produced no segments")
	}
	outcome.SegmentCount = len(segments)
	w.emitProgress(10)
	w.emitDebug(fmt.Sprintf("processing %d segment(s)", len(segments)))

	// Each segment earns an equal share of the remaining progress range; the
	// final 100 on success absorbs the integer-division remainder.
	weight := 90 / len(segments)
	progress := 10

	payloads := make([]string, 0, len(segments))
	for i, seg := range segments {
		payload, err := w.processSegment(ctx, i, seg, progress, weight)
		if err != nil {
			return "", err
		}
		payloads = append(payloads, payload)
		progress += weight
		// The success path owns the final 100 emission.
		if progress < 100 {
			w.emitProgress(progress)
		}
	}

	text, err := w.mergePayloads(payloads)
	if err != nil {
		return "", err
	}

	w.emitStatus("Saving transcript")
	outputPath := w.outputPath(source)
	if err := os.WriteFile(outputPath, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("transcription: write transcript: %w", err)
	}
	outcome.OutputPath = outputPath
	w.emitDebug("transcript saved to " + outputPath)
	return text, nil
}

// inspectSource emits an informational description of the input file.
func (w *Worker) inspectSource(ctx context.Context, source string, size int64) {
	ext := filepath.Ext(source)
	w.emitDebug(fmt.Sprintf("source: %s (%d bytes, ext %s, mime %s)",
		source, size, ext, moco.MimeType(source)))
	if probed, err := ffprobe.Inspect(ctx, w.opts.FFprobeBinary, source); err == nil {
		w.emitDebug(fmt.Sprintf("container: %s, audio streams: %d",
			probed.Format.FormatName, probed.AudioStreamCount()))
	}
}

func (w *Worker) processSegment(ctx context.Context, index int, seg segment.Segment, base, weight int) (string, error) {
	logger := w.logger.With(logging.Int(logging.FieldSegment, index+1))

	if w.cancelRequested() {
		return "", errRunCancelled
	}
	w.emitStatus(fmt.Sprintf("Submitting segment %d", index+1))
	created, err := w.client.CreateJob(ctx, filepath.Base(seg.Path), w.opts.Job)
	if err != nil {
		return "", err
	}
	job := moco.NewJob(created.TranscriptionID, created.AudioUploadURL)
	logger.Info("job created", logging.String("job_id", job.ID))
	w.emitDebug(fmt.Sprintf("segment %d: job %s created", index+1, job.ID))

	code, err := w.client.UploadAudio(ctx, job.UploadURL, seg.Path)
	if err != nil {
		return "", err
	}
	if err := job.Advance(moco.PhaseUploaded); err != nil {
		return "", err
	}
	w.emitDebug(fmt.Sprintf("segment %d: upload finished with http %d", index+1, code))
	if w.cancelRequested() {
		return "", errRunCancelled
	}

	if err := w.startWithRetry(ctx, job.ID); err != nil {
		return "", err
	}
	if err := job.Advance(moco.PhaseStarted); err != nil {
		return "", err
	}
	if w.cancelRequested() {
		return "", errRunCancelled
	}

	return w.pollUntilComplete(ctx, logger, job, base, weight)
}

// startWithRetry issues the start call, retrying exactly once after a fixed
// delay. The client deliberately does not retry this call itself.
func (w *Worker) startWithRetry(ctx context.Context, jobID string) error {
	err := w.client.StartTranscription(ctx, jobID)
	if err == nil {
		return nil
	}
	w.logger.Warn("start failed, retrying once",
		logging.String("job_id", jobID),
		logging.Error(err))
	w.emitDebug(fmt.Sprintf("start failed for job %s, retrying: %v", jobID, err))
	if sleepErr := w.sleep(ctx, w.opts.StartRetryDelay); sleepErr != nil {
		return sleepErr
	}
	return w.client.StartTranscription(ctx, jobID)
}

func (w *Worker) pollUntilComplete(ctx context.Context, logger *slog.Logger, job *moco.Job, base, weight int) (string, error) {
	transient := 0
	var lastStatus moco.JobStatus
	softEmitted := false

	for {
		if w.cancelRequested() {
			return "", errRunCancelled
		}

		status, err := w.client.GetStatus(ctx, job.ID)
		if err != nil {
			if services.IsRetryable(err) && transient < w.opts.PollTransientLimit {
				transient++
				logger.Warn("poll failed, retrying",
					logging.Int("consecutive_failures", transient),
					logging.Error(err))
				if sleepErr := w.sleep(ctx, w.opts.PollInterval); sleepErr != nil {
					return "", sleepErr
				}
				continue
			}
			return "", err
		}
		transient = 0

		if status.Status != lastStatus {
			lastStatus = status.Status
			logger.Info("job status", logging.String("status", string(status.Status)))
			w.emitStatus(status.Status.Label())
		}
		if err := job.Advance(moco.PhaseForStatus(status.Status)); err != nil {
			return "", err
		}

		switch status.Status {
		case moco.StatusCompleted:
			if strings.TrimSpace(status.TranscriptionPath) == "" {
				return "", services.Wrap(services.ErrBadRequest, "transcription", "poll",
					fmt.Sprintf("job %s completed without a result location", job.ID), nil)
			}
			return w.client.FetchResult(ctx, status.TranscriptionPath)
		case moco.StatusFailed, moco.StatusCancelled:
			return "", services.Wrap(services.ErrJobTerminal, "transcription", "poll",
				fmt.Sprintf("job %s reported %s", job.ID, status.Status), nil)
		case moco.StatusInProgress:
			if !softEmitted {
				softEmitted = true
				w.emitProgress(base + int(0.8*float64(weight)))
			}
		}

		if err := w.sleep(ctx, w.opts.PollInterval); err != nil {
			return "", err
		}
	}
}

func (w *Worker) mergePayloads(payloads []string) (string, error) {
	w.emitStatus("Merging results")
	if w.opts.Job.Timestamp {
		return merge.JSONResults(payloads, func(index int, err error) {
			w.logger.Warn("segment result skipped during merge",
				logging.Int(logging.FieldSegment, index+1),
				logging.Error(err))
			w.emitDebug(fmt.Sprintf("warning: segment %d result skipped during merge: %v", index+1, err))
		})
	}
	return merge.Results(payloads, w.opts.Job.SpeakerDiarization), nil
}

func (w *Worker) outputPath(source string) string {
	ext := filepath.Ext(source)
	base := strings.TrimSuffix(filepath.Base(source), ext)
	stamp := w.opts.Now().Format("20060102_150405")
	return filepath.Join(filepath.Dir(source), fmt.Sprintf("%s_%s.txt", base, stamp))
}

func (w *Worker) cancelRequested() bool {
	return w.cancelled.Load()
}

func (w *Worker) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if w.opts.Sleep != nil {
		w.opts.Sleep(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (w *Worker) emit(event Event) {
	w.events <- event
}

func (w *Worker) emitStatus(message string) {
	w.emit(Event{Type: EventStatus, Message: message})
}

func (w *Worker) emitDebug(message string) {
	w.emit(Event{Type: EventDebug, Message: message})
}

func (w *Worker) emitProgress(progress int) {
	w.emit(Event{Type: EventProgress, Progress: progress})
}
