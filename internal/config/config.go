// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrInvalidMaxHistory is returned when MAX_HISTORY is not positive.
	ErrInvalidMaxHistory = errors.New("config: MAX_HISTORY must be positive")
	// ErrInvalidMaxConcurrentRenders is returned when MAX_CONCURRENT_RENDERS is not positive.
	ErrInvalidMaxConcurrentRenders = errors.New("config: MAX_CONCURRENT_RENDERS must be positive")
	// ErrInvalidPreviewMaxDim is returned when PREVIEW_MAX_DIM is not positive.
	ErrInvalidPreviewMaxDim = errors.New("config: PREVIEW_MAX_DIM must be positive")
	// ErrInvalidMaxImportFrames is returned when MAX_IMPORT_FRAMES is not positive.
	ErrInvalidMaxImportFrames = errors.New("config: MAX_IMPORT_FRAMES must be positive")
	// ErrInvalidPort is returned when PORT is outside 1..65535.
	ErrInvalidPort = errors.New("config: PORT must be between 1 and 65535")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int      `env:"PORT, default=8080" json:"port"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS, default=*" json:"allowed_origins"`
	MaxBodyBytes   int64    `env:"MAX_BODY_BYTES, default=268435456" json:"max_body_bytes"`

	// Storage settings
	DataDir string `env:"DATA_DIR, default=/tmp/gifstudio" json:"data_dir"`

	// Editing settings
	MaxHistory      int `env:"MAX_HISTORY, default=20" json:"max_history"`
	PreviewMaxDim   int `env:"PREVIEW_MAX_DIM, default=320" json:"preview_max_dim"`
	MaxImportFrames int `env:"MAX_IMPORT_FRAMES, default=300" json:"max_import_frames"`

	// Rendering settings
	MaxConcurrentRenders int    `env:"MAX_CONCURRENT_RENDERS, default=2" json:"max_concurrent_renders"`
	FFmpegPath           string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath          string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig
// and validates it.
func Load() (*Config, error) {
	return load(envconfig.OsLookuper())
}

func load(lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}

	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that numeric limits are usable.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if c.MaxHistory <= 0 {
		return ErrInvalidMaxHistory
	}
	if c.MaxConcurrentRenders <= 0 {
		return ErrInvalidMaxConcurrentRenders
	}
	if c.PreviewMaxDim <= 0 {
		return ErrInvalidPreviewMaxDim
	}
	if c.MaxImportFrames <= 0 {
		return ErrInvalidMaxImportFrames
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	return c.newLogger(os.Stdout)
}

func (c *Config) newLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(c.LogLevel)}

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, DataDir: %s, MaxHistory: %d, MaxConcurrentRenders: %d, PreviewMaxDim: %d, MaxImportFrames: %d, FFmpegPath: %s, FFprobePath: %s, S3Bucket: %s, S3Region: %s, S3Endpoint: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.DataDir,
		c.MaxHistory,
		c.MaxConcurrentRenders,
		c.PreviewMaxDim,
		c.MaxImportFrames,
		c.FFmpegPath,
		c.FFprobePath,
		c.S3Bucket,
		c.S3Region,
		c.S3Endpoint,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
