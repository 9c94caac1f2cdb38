package internal

import (
	"io"
	"log/slog"
	"strings"
	"time"
)

// NewLogger builds the process logger. prod writes JSON for log shipping,
// everything else writes key=value text. Unknown levels fall back to info.
func NewLogger(w io.Writer, env string, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	if env != "prod" {
		return slog.New(slog.NewTextHandler(w, opts))
	}

	opts.AddSource = opts.Level.Level() == slog.LevelDebug
	opts.ReplaceAttr = func(_ []string, a slog.Attr) slog.Attr {
		if a.Key == slog.TimeKey {
			a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339Nano))
		}
		return a
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		slog.Default().Warn("invalid LOG_LEVEL, using info", "value", s)
		return slog.LevelInfo
	}
	return l
}
