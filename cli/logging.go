package cli

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// configureLogging installs the default slog logger. Flags win over
// LOG_LEVEL and LOG_FORMAT. Logs go to stderr so stdout stays clean for
// charts and CSV.
func (a *app) configureLogging() {
	level := a.logLevel
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	format := a.logFormat
	if format == "" {
		format = os.Getenv("LOG_FORMAT")
	}
	handler, known := newLogHandler(a.errOut, level, format)
	slog.SetDefault(slog.New(handler))
	if !known {
		slog.Warn("unknown LOG_LEVEL, using info", slog.String("value", level))
	}
}

// newLogHandler builds a text or JSON handler. known is false when level
// was set to something unrecognised, in which case info is used.
func newLogHandler(w io.Writer, level, format string) (h slog.Handler, known bool) {
	lvl := slog.LevelInfo
	known = true
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		known = false
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "json" {
		return slog.NewJSONHandler(w, opts), known
	}
	return slog.NewTextHandler(w, opts), known
}
