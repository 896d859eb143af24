package config

// Default returns the built-in configuration values.
func Default() Config {
	return Config{
		API: API{
			BaseURL:        "https://api.mocomoco.ai/api/v1",
			RequestTimeout: 30,
			ResultTimeout:  120,
			MaxRetries:     5,
			RetryDelay:     5,
		},
		Audio: Audio{
			MaxSegmentMinutes: 55,
			FFmpegBinary:      "ffmpeg",
			FFprobeBinary:     "ffprobe",
			Language:          "ja",
		},
		Transcription: Transcription{
			PollInterval:             5,
			StartRetryDelay:          5,
			PollMaxTransientFailures: 3,
		},
		History: History{
			Enabled: true,
			Path:    "~/.local/share/mocoscribe/history.db",
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}
