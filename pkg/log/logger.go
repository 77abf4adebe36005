package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/sentiml/pkg/errors"
)

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger = NewZerologLogger(os.Stderr, LevelInfo, false)
)

// SetupLogger configures the process-wide logger returned by GetLogger and
// routes errors.Warn through it. When pretty is true the output is the
// human-readable zerolog console format instead of JSON lines.
func SetupLogger(loglevel string, w io.Writer, pretty bool) error {
	level, err := ParseLevel(loglevel)
	if err != nil {
		return err
	}
	logger := NewZerologLogger(w, level, pretty)

	defaultMu.Lock()
	defaultLogger = logger
	defaultMu.Unlock()

	errors.SetZerologWarnFunc(func(warning error) {
		logger.Warn("warning", "warning", warning)
	})
	return nil
}

// ParseLevel converts a level name ("debug", "info", "warn", "error") to a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.NewValidationError("log_level", "must be one of debug, info, warn, error", level)
	}
}

// GetLogger returns the process-wide logger.
func GetLogger() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// GetLoggerWithName returns the process-wide logger tagged with a component name.
func GetLoggerWithName(name string) Logger {
	return GetLogger().With(ComponentKey, name)
}

// zerologLogger adapts zerolog to the Logger interface.
type zerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger creates a Logger writing to w at the given minimum level.
func NewZerologLogger(w io.Writer, level Level, pretty bool) Logger {
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	zl := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &zerologLogger{zl: zl}
}

func (l *zerologLogger) Debug(msg string, fields ...any) {
	emit(l.zl.Debug(), msg, fields)
}

func (l *zerologLogger) Info(msg string, fields ...any) {
	emit(l.zl.Info(), msg, fields)
}

func (l *zerologLogger) Warn(msg string, fields ...any) {
	emit(l.zl.Warn(), msg, fields)
}

// Error attaches the cockroachdb stack trace when the first field is an error.
func (l *zerologLogger) Error(msg string, fields ...any) {
	ev := l.zl.Error()
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			ev = ev.Err(err)
			if st := errors.StackTrace(err); st != "" {
				ev = ev.Str(StacktraceKey, st)
			}
			fields = fields[1:]
		}
	}
	emit(ev, msg, fields)
}

func (l *zerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case zerolog.LogObjectMarshaler:
			ctx = ctx.Object(key, v)
		case error:
			ctx = ctx.AnErr(key, v)
		default:
			ctx = ctx.Interface(key, v)
		}
	}
	return &zerologLogger{zl: ctx.Logger()}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return l.zl.GetLevel() <= toZerologLevel(level)
}

func emit(ev *zerolog.Event, msg string, fields []any) {
	if ev == nil {
		return
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case zerolog.LogObjectMarshaler:
			ev = ev.Object(key, v)
		case error:
			ev = ev.AnErr(key, v)
		case time.Duration:
			ev = ev.Dur(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	ev.Msg(msg)
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
