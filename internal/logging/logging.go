package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Level represents logging severity.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

// slogTrace sits below slog.LevelDebug so trace output is filtered separately.
const slogTrace = slog.LevelDebug - 4

var (
	mu               sync.Mutex
	currentLevel     = LevelWarn
	currentVerbosity = 0
	levelVar         = new(slog.LevelVar)
	logger           = newLogger(os.Stderr)
)

func init() {
	levelVar.Set(toSlog(currentLevel))
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: levelVar,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == slogTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}))
}

// SetOutput redirects log output, e.g. into a test buffer.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w)
}

// SetVerbosity configures logger output from count of -v flags (0-4).
func SetVerbosity(count int) {
	count = max(0, min(count, 4))
	mu.Lock()
	defer mu.Unlock()
	currentVerbosity = count
	switch count {
	case 0:
		currentLevel = LevelWarn
	case 1:
		currentLevel = LevelInfo
	case 2:
		currentLevel = LevelDebug
	default:
		currentLevel = LevelTrace
	}
	levelVar.Set(toSlog(currentLevel))
}

// Verbosity returns the stored -v count.
func Verbosity() int {
	mu.Lock()
	defer mu.Unlock()
	return currentVerbosity
}

// LevelName returns current level label.
func LevelName() string {
	mu.Lock()
	defer mu.Unlock()
	return LevelToString(currentLevel)
}

// LevelToString converts a Level to human readable text.
func LevelToString(l Level) string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	case LevelTrace:
		return "trace"
	default:
		return "unknown"
	}
}

// ParseLevel returns Level + verbosity count from string.
func ParseLevel(s string) (Level, int, error) {
	switch strings.ToLower(s) {
	case "error":
		return LevelError, 0, nil
	case "warn", "warning":
		return LevelWarn, 0, nil
	case "info":
		return LevelInfo, 1, nil
	case "debug":
		return LevelDebug, 2, nil
	case "trace":
		return LevelTrace, 4, nil
	default:
		return LevelWarn, Verbosity(), fmt.Errorf("unknown level %s", s)
	}
}

func toSlog(l Level) slog.Level {
	switch l {
	case LevelError:
		return slog.LevelError
	case LevelWarn:
		return slog.LevelWarn
	case LevelInfo:
		return slog.LevelInfo
	case LevelDebug:
		return slog.LevelDebug
	default:
		return slogTrace
	}
}

func logf(l Level, format string, args ...any) {
	mu.Lock()
	lg := logger
	mu.Unlock()

	lvl := toSlog(l)
	ctx := context.Background()
	if !lg.Enabled(ctx, lvl) {
		return
	}
	lg.Log(ctx, lvl, fmt.Sprintf(format, args...))
}

// Errorf always prints.
func Errorf(format string, args ...any) {
	logf(LevelError, format, args...)
}

func Warnf(format string, args ...any) {
	logf(LevelWarn, format, args...)
}

func Infof(format string, args ...any) {
	logf(LevelInfo, format, args...)
}

func Debugf(format string, args ...any) {
	logf(LevelDebug, format, args...)
}

func Tracef(format string, args ...any) {
	logf(LevelTrace, format, args...)
}
