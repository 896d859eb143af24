package config

import (
	"os"
	"strings"
)

// normalize trims values, applies environment overrides, and expands paths.
func (c *Config) normalize() error {
	c.API.Key = strings.TrimSpace(c.API.Key)
	if env := strings.TrimSpace(os.Getenv("MOCOVOICE_API_KEY")); env != "" {
		c.API.Key = env
	}
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL == "" {
		c.API.BaseURL = Default().API.BaseURL
	}

	c.Audio.FFmpegBinary = strings.TrimSpace(c.Audio.FFmpegBinary)
	if c.Audio.FFmpegBinary == "" {
		c.Audio.FFmpegBinary = "ffmpeg"
	}
	c.Audio.FFprobeBinary = strings.TrimSpace(c.Audio.FFprobeBinary)
	if c.Audio.FFprobeBinary == "" {
		c.Audio.FFprobeBinary = "ffprobe"
	}
	c.Audio.Language = strings.TrimSpace(c.Audio.Language)
	if c.Audio.Language == "" {
		c.Audio.Language = Default().Audio.Language
	}

	c.History.Path = strings.TrimSpace(c.History.Path)
	if c.History.Path == "" {
		c.History.Path = Default().History.Path
	}
	expanded, err := expandPath(c.History.Path)
	if err != nil {
		return err
	}
	c.History.Path = expanded

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = Default().Logging.Level
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = Default().Logging.Format
	}

	return nil
}
