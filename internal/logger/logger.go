// Package logger builds the slog loggers used by the tools.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// New returns a colored console logger on stdout. Lambda output goes to
// CloudWatch, so the lambda entrypoints call NewPlain instead.
func New(verbose bool) *slog.Logger {
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:       level(verbose),
		ReplaceAttr: replaceAttr,
	}))
}

// NewPlain writes uncolored JSON lines to w.
func NewPlain(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level(verbose),
		ReplaceAttr: replaceAttr,
	}))
}

// NewTestLogger is the logger for tests. DEBUG=2 shows debug output, DEBUG=1 info,
// anything else only errors.
func NewTestLogger() *slog.Logger {
	lvl := slog.LevelError
	switch os.Getenv("DEBUG") {
	case "2":
		lvl = slog.LevelDebug
	case "1":
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		a.Value = slog.StringValue(formatRFC3339Millis(a.Value.Time()))
	}
	if s, ok := a.Value.Any().(string); ok && s == "" {
		return slog.Attr{}
	}
	return a
}

func formatRFC3339Millis(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s.%03dZ", t.Format("2006-01-02T15:04:05"), t.Nanosecond()/1_000_000)
}
