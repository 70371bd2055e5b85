// Package config holds the settings of the sansbatch command. Values come
// from defaults, then SANS_ environment variables, then command flags.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var ErrInvalidConfig = errors.New("invalid configuration")

const envPrefix = "SANS_"

type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// Config holds all command configuration.
type Config struct {
	Log       LogConfig
	Batch     BatchConfig
	UserFile  string
	BatchFile string
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  slog.Level
	Format LogFormat
	// NoTime drops the time attribute, for reproducible output.
	NoTime bool
}

// BatchConfig holds batch processing configuration.
type BatchConfig struct {
	Concurrency int
	// DrawPath, when set, receives a DOT drawing of the batch pipeline.
	DrawPath string
	// RetainAuxiliary keeps dark current and sensitivity workspaces loaded
	// across rows.
	RetainAuxiliary bool
}

func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  slog.LevelInfo,
			Format: LogFormatText,
		},
		Batch: BatchConfig{
			Concurrency: 4,
		},
	}
}

// LoadFromEnv overrides cfg with SANS_ environment variables.
func LoadFromEnv(cfg *Config) error {
	return load(cfg, os.LookupEnv)
}

func load(cfg *Config, lookup func(key string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(envPrefix + key)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}

		return strings.TrimSpace(v), true
	}

	if v, ok := get("LOG_LEVEL"); ok {
		if err := cfg.Log.Level.UnmarshalText([]byte(v)); err != nil {
			return errors.Wrapf(ErrInvalidConfig, "%sLOG_LEVEL %q", envPrefix, v)
		}
	}
	if v, ok := get("LOG_FORMAT"); ok {
		cfg.Log.Format = LogFormat(strings.ToLower(v))
	}
	if v, ok := get("LOG_NO_TIME"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(ErrInvalidConfig, "%sLOG_NO_TIME %q", envPrefix, v)
		}
		cfg.Log.NoTime = b
	}
	if v, ok := get("CONCURRENCY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(ErrInvalidConfig, "%sCONCURRENCY %q", envPrefix, v)
		}
		cfg.Batch.Concurrency = n
	}
	if v, ok := get("RETAIN_AUXILIARY"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(ErrInvalidConfig, "%sRETAIN_AUXILIARY %q", envPrefix, v)
		}
		cfg.Batch.RetainAuxiliary = b
	}
	if v, ok := get("DRAW"); ok {
		cfg.Batch.DrawPath = v
	}
	if v, ok := get("USER_FILE"); ok {
		cfg.UserFile = v
	}
	if v, ok := get("BATCH_FILE"); ok {
		cfg.BatchFile = v
	}

	return nil
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	switch c.Log.Format {
	case LogFormatText, LogFormatJSON:
	default:
		return errors.Wrapf(ErrInvalidConfig, "log format %q", c.Log.Format)
	}
	if c.Batch.Concurrency < 1 {
		return errors.Wrapf(ErrInvalidConfig, "concurrency %d", c.Batch.Concurrency)
	}
	if c.UserFile == "" {
		return errors.Wrap(ErrInvalidConfig, "user file is required")
	}
	if c.BatchFile == "" {
		return errors.Wrap(ErrInvalidConfig, "batch file is required")
	}

	return nil
}
