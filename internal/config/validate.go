package config

import (
	"fmt"
	"strings"
)

var validLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

var validFormats = map[string]struct{}{
	"console": {},
	"json":    {},
}

// Validate checks configuration consistency. The API key is deliberately not
// required here so informational commands work without credentials; commands
// that talk to the service check it themselves.
func (c *Config) Validate() error {
	var problems []string

	if c.API.RequestTimeout <= 0 {
		problems = append(problems, "api.request_timeout must be positive")
	}
	if c.API.ResultTimeout <= 0 {
		problems = append(problems, "api.result_timeout must be positive")
	}
	if c.API.MaxRetries <= 0 {
		problems = append(problems, "api.max_retries must be positive")
	}
	if c.API.RetryDelay < 0 {
		problems = append(problems, "api.retry_delay must not be negative")
	}
	if c.Audio.MaxSegmentMinutes <= 0 {
		problems = append(problems, "audio.max_segment_minutes must be positive")
	}
	if c.Transcription.PollInterval <= 0 {
		problems = append(problems, "transcription.poll_interval must be positive")
	}
	if c.Transcription.StartRetryDelay < 0 {
		problems = append(problems, "transcription.start_retry_delay must not be negative")
	}
	if c.Transcription.PollMaxTransientFailures <= 0 {
		problems = append(problems, "transcription.poll_max_transient_failures must be positive")
	}
	if _, ok := validLevels[c.Logging.Level]; !ok {
		problems = append(problems, fmt.Sprintf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	if _, ok := validFormats[c.Logging.Format]; !ok {
		problems = append(problems, fmt.Sprintf("logging.format %q is not one of console, json", c.Logging.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
