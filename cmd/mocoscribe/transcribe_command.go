package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"mocoscribe/internal/config"
	"mocoscribe/internal/history"
	"mocoscribe/internal/logging"
	"mocoscribe/internal/runlock"
	"mocoscribe/internal/segment"
	"mocoscribe/internal/services/moco"
	"mocoscribe/internal/transcription"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var (
		languageFlag    string
		timestampsFlag  bool
		speakersFlag    bool
		punctuationFlag bool
		verboseFlag     bool
	)

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe an audio file, splitting long sources into segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.API.Key) == "" {
				return errors.New("no API key configured: set api.key in the config file or export MOCOVOICE_API_KEY")
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			source, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}

			lock, err := runlock.New(cfg.LockPath())
			if err != nil {
				return err
			}
			if err := lock.Acquire(); err != nil {
				return err
			}
			defer func() {
				if err := lock.Release(); err != nil {
					logger.Warn("failed to release run lock", logging.Error(err))
				}
			}()

			var store *history.Store
			if cfg.History.Enabled {
				store, err = history.Open(cfg.History.Path)
				if err != nil {
					return err
				}
				defer store.Close()
			}

			language := strings.TrimSpace(languageFlag)
			if language == "" {
				language = cfg.Audio.Language
			}
			jobOpts := moco.JobOptions{
				Language:           language,
				Timestamp:          timestampsFlag,
				SpeakerDiarization: speakersFlag,
				Punctuation:        punctuationFlag,
			}

			client := moco.NewClient(cfg.API.Key,
				moco.WithBaseURL(cfg.API.BaseURL),
				moco.WithRetryPolicy(cfg.API.MaxRetries, cfg.RetryDelay()),
				moco.WithTimeouts(cfg.RequestTimeout(), cfg.ResultTimeout()),
			)
			splitter := segment.NewSplitter(logging.NewComponentLogger(logger, "segment"), segment.Options{
				FFmpegBinary:  cfg.Audio.FFmpegBinary,
				FFprobeBinary: cfg.Audio.FFprobeBinary,
				MaxMinutes:    cfg.Audio.MaxSegmentMinutes,
			})
			worker := transcription.NewWorker(client, splitter,
				logging.NewComponentLogger(logger, "transcription"),
				transcription.Options{
					Job:                jobOpts,
					PollInterval:       cfg.PollInterval(),
					StartRetryDelay:    cfg.StartRetryDelay(),
					PollTransientLimit: cfg.Transcription.PollMaxTransientFailures,
					FFprobeBinary:      cfg.Audio.FFprobeBinary,
				})

			runCtx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			// First interrupt requests cooperative cancellation; a second
			// one tears the run down immediately.
			signals := make(chan os.Signal, 2)
			signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(signals)
			go func() {
				select {
				case <-signals:
					fmt.Fprintln(cmd.ErrOrStderr(), "cancelling after the current network call finishes (interrupt again to force quit)")
					worker.Cancel()
				case <-runCtx.Done():
					return
				}
				select {
				case <-signals:
					cancel()
				case <-runCtx.Done():
				}
			}()

			done := make(chan transcription.Outcome, 1)
			go func() { done <- worker.Run(runCtx, source) }()

			out := cmd.OutOrStdout()
			for event := range worker.Events() {
				switch event.Type {
				case transcription.EventStatus:
					fmt.Fprintln(out, event.Message)
				case transcription.EventProgress:
					fmt.Fprintf(out, "  %3d%%\n", event.Progress)
				case transcription.EventDebug:
					if verboseFlag {
						fmt.Fprintf(out, "  · %s\n", event.Message)
					}
				}
			}
			outcome := <-done

			if store != nil {
				if err := recordOutcome(cmd.Context(), store, outcome, jobOpts); err != nil {
					logger.Warn("failed to record run history", logging.Error(err))
				}
			}

			switch outcome.Result {
			case transcription.ResultCompleted:
				fmt.Fprintf(out, "Transcript written to %s\n", outcome.OutputPath)
				return nil
			case transcription.ResultCancelled:
				return context.Canceled
			default:
				return outcome.Err
			}
		},
	}

	cmd.Flags().StringVarP(&languageFlag, "language", "l", "", "Transcription language (default from config)")
	cmd.Flags().BoolVarP(&timestampsFlag, "timestamps", "t", false, "Produce timestamped JSON output")
	cmd.Flags().BoolVarP(&speakersFlag, "speakers", "s", false, "Enable speaker diarization")
	cmd.Flags().BoolVarP(&punctuationFlag, "punctuation", "p", false, "Enable automatic punctuation")
	cmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Show debug events")
	return cmd
}

func recordOutcome(ctx context.Context, store *history.Store, outcome transcription.Outcome, jobOpts moco.JobOptions) error {
	errorMessage := ""
	if outcome.Err != nil {
		errorMessage = outcome.Err.Error()
	}
	return store.Record(ctx, history.Run{
		ID:                 outcome.RunID,
		SourcePath:         outcome.Source,
		DurationMinutes:    outcome.DurationMinutes,
		SegmentCount:       outcome.SegmentCount,
		Language:           jobOpts.Language,
		TimestampMode:      jobOpts.Timestamp,
		SpeakerDiarization: jobOpts.SpeakerDiarization,
		Punctuation:        jobOpts.Punctuation,
		Outcome:            string(outcome.Result),
		OutputPath:         outcome.OutputPath,
		ErrorMessage:       errorMessage,
		StartedAt:          outcome.StartedAt,
		FinishedAt:         outcome.FinishedAt,
	})
}
