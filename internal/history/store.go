package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one finished transcription run.
type Run struct {
	ID                 string
	SourcePath         string
	DurationMinutes    float64
	SegmentCount       int
	Language           string
	TimestampMode      bool
	SpeakerDiarization bool
	Punctuation        bool
	Outcome            string
	OutputPath         string
	ErrorMessage       string
	StartedAt          time.Time
	FinishedAt         time.Time
}

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database at the given path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history: database path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Record inserts a finished run.
func (s *Store) Record(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("history: run id required")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (
            id, source_path, duration_minutes, segment_count, language,
            timestamp_mode, speaker_diarization, punctuation,
            outcome, output_path, error_message, started_at, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.SourcePath,
		run.DurationMinutes,
		run.SegmentCount,
		nullableString(run.Language),
		boolToInt(run.TimestampMode),
		boolToInt(run.SpeakerDiarization),
		boolToInt(run.Punctuation),
		run.Outcome,
		nullableString(run.OutputPath),
		nullableString(run.ErrorMessage),
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// List returns runs ordered most recent first. A limit of zero or less
// returns all runs.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC`
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, query+` LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetByID fetches one run, or nil when it does not exist.
func (s *Store) GetByID(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &run, nil
}

// Clear removes all recorded runs.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs`)
	if err != nil {
		return 0, fmt.Errorf("clear runs: %w", err)
	}
	return res.RowsAffected()
}

const runColumns = "id, source_path, duration_minutes, segment_count, language, timestamp_mode, speaker_diarization, punctuation, outcome, output_path, error_message, started_at, finished_at"

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run          Run
		language     sql.NullString
		timestamps   sql.NullInt64
		diarization  sql.NullInt64
		punctuation  sql.NullInt64
		outputPath   sql.NullString
		errorMessage sql.NullString
		startedRaw   string
		finishedRaw  string
	)

	if err := scanner.Scan(
		&run.ID,
		&run.SourcePath,
		&run.DurationMinutes,
		&run.SegmentCount,
		&language,
		&timestamps,
		&diarization,
		&punctuation,
		&run.Outcome,
		&outputPath,
		&errorMessage,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return Run{}, err
	}

	run.Language = language.String
	run.TimestampMode = timestamps.Int64 != 0
	run.SpeakerDiarization = diarization.Int64 != 0
	run.Punctuation = punctuation.Int64 != 0
	run.OutputPath = outputPath.String
	run.ErrorMessage = errorMessage.String

	if started, err := time.Parse(time.RFC3339Nano, startedRaw); err == nil {
		run.StartedAt = started
	}
	if finished, err := time.Parse(time.RFC3339Nano, finishedRaw); err == nil {
		run.FinishedAt = finished
	}
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
