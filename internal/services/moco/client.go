package moco

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"mocoscribe/internal/services"
)

const (
	defaultBaseURL        = "https://api.mocomoco.ai/api/v1"
	defaultRequestTimeout = 30 * time.Second
	defaultResultTimeout  = 2 * time.Minute
	defaultMaxRetries     = 5
	defaultRetryDelay     = 5 * time.Second

	// Feature toggles ride along as sentinel vocabulary entries; the service
	// expects these exact tokens.
	wordSpeakerDiarization = "[SPEAKER_DIARIZATION]"
	wordAutoPunctuation    = "[AUTO_PUNCTUATION]"

	modelTimestamp = "timestamp"
	modelDefault   = "default"
)

// JobOptions carries the per-run transcription options.
type JobOptions struct {
	Language           string
	Timestamp          bool
	SpeakerDiarization bool
	Punctuation        bool
}

// Client wraps the MocoVoice transcription API.
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	resultClient *http.Client

	maxRetries int
	retryDelay time.Duration
	sleeper    func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the default API base (useful for tests/mocks).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithRetryPolicy overrides the attempt count and the fixed delay unit.
// The delay before attempt n+1 is n times the unit.
func WithRetryPolicy(maxRetries int, delay time.Duration) Option {
	return func(c *Client) {
		if maxRetries > 0 {
			c.maxRetries = maxRetries
		}
		if delay >= 0 {
			c.retryDelay = delay
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithTimeouts overrides the request timeout and the result-download timeout.
func WithTimeouts(request, result time.Duration) Option {
	return func(c *Client) {
		if request > 0 {
			c.httpClient = &http.Client{Timeout: request}
		}
		if result > 0 {
			c.resultClient = &http.Client{Timeout: result}
		}
	}
}

// NewClient constructs a MocoVoice API client.
func NewClient(apiKey string, opts ...Option) *Client {
	client := &Client{
		apiKey:       strings.TrimSpace(apiKey),
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{Timeout: defaultRequestTimeout},
		resultClient: &http.Client{Timeout: defaultResultTimeout},
		maxRetries:   defaultMaxRetries,
		retryDelay:   defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type wordEntry struct {
	Word    string `json:"word"`
	Reading string `json:"reading"`
}

type createJobRequest struct {
	Filename           string      `json:"filename"`
	Language           string      `json:"language"`
	TranscriptionModel string      `json:"transcription_model"`
	Words              []wordEntry `json:"words"`
}

// CreateJobResult is the response to a job creation request.
type CreateJobResult struct {
	TranscriptionID string `json:"transcription_id"`
	AudioUploadURL  string `json:"audio_upload_url"`
}

// StatusResult is the response to a job status poll.
type StatusResult struct {
	Status            JobStatus `json:"status"`
	TranscriptionPath string    `json:"transcription_path"`
}

// CreateJob registers a new transcription job and returns the job id plus the
// signed upload target.
func (c *Client) CreateJob(ctx context.Context, filename string, opts JobOptions) (CreateJobResult, error) {
	var result CreateJobResult
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return result, services.Wrap(services.ErrBadRequest, "moco", "create job", "filename required", nil)
	}

	language := strings.TrimSpace(opts.Language)
	if language == "" {
		language = "ja"
	}
	model := modelDefault
	if opts.Timestamp {
		model = modelTimestamp
	}
	payload := createJobRequest{
		Filename:           filename,
		Language:           language,
		TranscriptionModel: model,
		Words:              []wordEntry{},
	}
	if opts.SpeakerDiarization {
		payload.Words = append(payload.Words, wordEntry{Word: wordSpeakerDiarization, Reading: "ON"})
	}
	if opts.Punctuation {
		payload.Words = append(payload.Words, wordEntry{Word: wordAutoPunctuation, Reading: "ON"})
	}

	err := c.doWithRetry(ctx, "create job", func() error {
		body, err := c.postJSON(ctx, c.baseURL+"/transcriptions/upload", payload)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &result); err != nil {
			return services.Wrap(services.ErrBadRequest, "moco", "create job", "decode response", err)
		}
		if strings.TrimSpace(result.TranscriptionID) == "" || strings.TrimSpace(result.AudioUploadURL) == "" {
			return services.Wrap(services.ErrBadRequest, "moco", "create job", "incomplete response", nil)
		}
		return nil
	})
	return result, err
}

// UploadAudio streams the file to the signed upload target and returns the
// response status code. The upload target carries its own authorization, so
// no API headers are attached.
func (c *Client) UploadAudio(ctx context.Context, uploadURL, path string) (int, error) {
	var statusCode int
	err := c.doWithRetry(ctx, "upload audio", func() error {
		file, err := os.Open(path)
		if err != nil {
			return services.Wrap(services.ErrBadRequest, "moco", "upload audio", "open file", err)
		}
		defer file.Close()

		req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, file)
		if err != nil {
			return services.Wrap(services.ErrBadRequest, "moco", "upload audio", "build request", err)
		}
		req.Header.Set("Content-Type", MimeType(path))
		if info, err := file.Stat(); err == nil {
			req.ContentLength = info.Size()
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return transportError("upload audio", err)
		}
		defer resp.Body.Close()
		if err := statusError("upload audio", resp); err != nil {
			return err
		}
		statusCode = resp.StatusCode
		return nil
	})
	return statusCode, err
}

// StartTranscription kicks off processing for an uploaded job. It issues a
// single attempt: the orchestrator owns the bespoke retry-once policy for
// this call.
func (c *Client) StartTranscription(ctx context.Context, transcriptionID string) error {
	transcriptionID = strings.TrimSpace(transcriptionID)
	if transcriptionID == "" {
		return services.Wrap(services.ErrBadRequest, "moco", "start", "transcription id required", nil)
	}
	_, err := c.postJSON(ctx, c.baseURL+"/transcriptions/"+transcriptionID+"/transcribe", nil)
	return err
}

// GetStatus polls the job state.
func (c *Client) GetStatus(ctx context.Context, transcriptionID string) (StatusResult, error) {
	var result StatusResult
	transcriptionID = strings.TrimSpace(transcriptionID)
	if transcriptionID == "" {
		return result, services.Wrap(services.ErrBadRequest, "moco", "status", "transcription id required", nil)
	}
	err := c.doWithRetry(ctx, "status", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transcriptions/"+transcriptionID, nil)
		if err != nil {
			return services.Wrap(services.ErrBadRequest, "moco", "status", "build request", err)
		}
		c.setAPIHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return transportError("status", err)
		}
		defer resp.Body.Close()
		if err := statusError("status", resp); err != nil {
			return err
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return transportError("status", err)
		}
		if err := json.Unmarshal(body, &result); err != nil {
			return services.Wrap(services.ErrBadRequest, "moco", "status", "decode response", err)
		}
		return nil
	})
	return result, err
}

// FetchResult downloads the raw result payload from the location reported by
// a completed job. The location is a signed URL, so no API headers are sent.
func (c *Client) FetchResult(ctx context.Context, resultURL string) (string, error) {
	var text string
	resultURL = strings.TrimSpace(resultURL)
	if resultURL == "" {
		return "", services.Wrap(services.ErrBadRequest, "moco", "fetch result", "result location required", nil)
	}
	err := c.doWithRetry(ctx, "fetch result", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultURL, nil)
		if err != nil {
			return services.Wrap(services.ErrBadRequest, "moco", "fetch result", "build request", err)
		}
		resp, err := c.resultClient.Do(req)
		if err != nil {
			return transportError("fetch result", err)
		}
		defer resp.Body.Close()
		if err := statusError("fetch result", resp); err != nil {
			return err
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return transportError("fetch result", err)
		}
		text = string(body)
		return nil
	})
	return text, err
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, services.Wrap(services.ErrBadRequest, "moco", "request", "encode body", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, reader)
	if err != nil {
		return nil, services.Wrap(services.ErrBadRequest, "moco", "request", "build request", err)
	}
	c.setAPIHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError("request", err)
	}
	defer resp.Body.Close()
	if err := statusError("request", resp); err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError("request", err)
	}
	return body, nil
}

func (c *Client) setAPIHeaders(req *http.Request) {
	req.Header.Set("accept", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)
}

// doWithRetry runs fn up to maxRetries times, sleeping attempt×retryDelay
// between attempts. Non-retryable errors and context cancellation surface
// immediately; exhausted retries surface one unified error wrapping the last
// cause.
func (c *Client) doWithRetry(ctx context.Context, op string, fn func() error) error {
	attempts := c.maxRetries
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !services.IsRetryable(err) {
			return err
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		if err := c.sleep(ctx, time.Duration(attempt)*c.retryDelay); err != nil {
			return err
		}
	}
	return fmt.Errorf("moco: %s failed after %d attempts: %w", op, attempts, lastErr)
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if c.sleeper != nil {
		c.sleeper(delay)
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

// transportError classifies connection failures and request timeouts as
// retryable transport faults. Caller-initiated cancellation passes through
// untouched so the retry loop can honor it; a per-request deadline still
// classifies as transport because the next attempt may succeed.
func transportError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && errors.Is(urlErr.Err, context.Canceled) {
		return context.Canceled
	}
	return services.Wrap(services.ErrTransport, "moco", op, "", err)
}

func statusError(op string, resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code < http.StatusBadRequest:
		return nil
	case code == http.StatusBadRequest:
		return services.Wrap(services.ErrBadRequest, "moco", op, httpDetail(resp), nil)
	case code == http.StatusUnauthorized:
		return services.Wrap(services.ErrInvalidCredentials, "moco", op, httpDetail(resp), nil)
	case code == http.StatusForbidden:
		return services.Wrap(services.ErrForbidden, "moco", op, httpDetail(resp), nil)
	case code == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, "moco", op, httpDetail(resp), nil)
	case code >= http.StatusInternalServerError:
		return services.Wrap(services.ErrServer, "moco", op, httpDetail(resp), nil)
	default:
		return services.Wrap(services.ErrBadRequest, "moco", op, httpDetail(resp), nil)
	}
}

func httpDetail(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	snippet := strings.TrimSpace(string(body))
	if snippet == "" {
		return fmt.Sprintf("http %d", resp.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", resp.StatusCode, snippet)
}
