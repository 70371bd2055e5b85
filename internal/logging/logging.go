// Package logging builds the slog logger used by the commands.
package logging

import (
	"io"
	"log/slog"

	"github.com/askiada/go-reduction/internal/config"
)

// New returns a logger writing to w in the configured format and level.
func New(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level}
	if cfg.NoTime {
		opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}

			return a
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case config.LogFormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
