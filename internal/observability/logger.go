package observability

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger builds the process logger: JSON lines, debug level in dev, with trace and
// span ids attached whenever the record's context carries a span.
func NewLogger(env string) *slog.Logger {
	return newLogger(os.Stdout, env)
}

func newLogger(w io.Writer, env string) *slog.Logger {
	level := slog.LevelInfo

	if env == "dev" {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(NewTraceHandler(handler))
}
