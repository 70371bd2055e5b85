package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	err := load(cfg, env(map[string]string{
		"SANS_LOG_LEVEL":        "debug",
		"SANS_LOG_FORMAT":       "JSON",
		"SANS_LOG_NO_TIME":      "true",
		"SANS_CONCURRENCY":      "8",
		"SANS_RETAIN_AUXILIARY": "1",
		"SANS_DRAW":             "batch.dot",
		"SANS_USER_FILE":        "user.yaml",
		"SANS_BATCH_FILE":       " batch.csv ",
		"LOG_LEVEL":             "error",
	}))
	require.NoError(t, err)

	assert.Equal(t, &Config{
		Log: LogConfig{Level: slog.LevelDebug, Format: LogFormatJSON, NoTime: true},
		Batch: BatchConfig{
			Concurrency:     8,
			DrawPath:        "batch.dot",
			RetainAuxiliary: true,
		},
		UserFile:  "user.yaml",
		BatchFile: "batch.csv",
	}, cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoadKeepsDefaults(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.NoError(t, load(cfg, env(map[string]string{"SANS_CONCURRENCY": "  "})))
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		key, value string
	}{
		"level":       {key: "SANS_LOG_LEVEL", value: "loud"},
		"no time":     {key: "SANS_LOG_NO_TIME", value: "maybe"},
		"concurrency": {key: "SANS_CONCURRENCY", value: "many"},
		"retain":      {key: "SANS_RETAIN_AUXILIARY", value: "always"},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := load(DefaultConfig(), env(map[string]string{tc.key: tc.value}))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.UserFile = "user.yaml"
		cfg.BatchFile = "batch.csv"

		return cfg
	}

	tcs := map[string]struct {
		mutate func(c *Config)
	}{
		"format":      {mutate: func(c *Config) { c.Log.Format = "xml" }},
		"concurrency": {mutate: func(c *Config) { c.Batch.Concurrency = 0 }},
		"user file":   {mutate: func(c *Config) { c.UserFile = "" }},
		"batch file":  {mutate: func(c *Config) { c.BatchFile = "" }},
	}

	require.NoError(t, valid().Validate())
	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tc.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}
