package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is a lightweight structured logger that uses the standard library under the hood.
// Lines look like "[LEVEL] message | {json fields}".
type Logger struct {
	mu       sync.Mutex
	fields   map[string]any
	std      *log.Logger
	disabled bool
}

// Options configures the global logger.
type Options struct {
	// Disabled drops every log line.
	Disabled bool
	// FilePath enables a rotating log file in addition to stdout. Empty means stdout only.
	FilePath string
	// MaxSizeMB, MaxBackups and MaxAgeDays configure rotation. Zero values use defaults.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// Stdout overrides the console writer (tests).
	Stdout io.Writer
}

var (
	// GlobalLogger is the package-level logger used by convenience functions and by other packages.
	GlobalLogger *Logger

	// setupOnce ensures the global logger is initialized only once in a thread-safe manner.
	setupOnce sync.Once

	rotator *lumberjack.Logger
)

// SetupLogger initializes the global logger with console output only. It is idempotent and thread-safe.
func SetupLogger() error {
	return SetupLoggerWithOptions(Options{})
}

// SetupLoggerWithOptions initializes the global logger. Only the first call has an effect.
func SetupLoggerWithOptions(opts Options) error {
	var setupErr error
	setupOnce.Do(func() {
		GlobalLogger, setupErr = newLogger(opts)
	})
	return setupErr
}

func newLogger(opts Options) (*Logger, error) {
	var out io.Writer = os.Stdout
	if opts.Stdout != nil {
		out = opts.Stdout
	}

	if opts.FilePath != "" && !opts.Disabled {
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0o755); err != nil {
			return &Logger{fields: map[string]any{}, std: log.New(out, "", log.LstdFlags|log.Lmicroseconds)},
				fmt.Errorf("create log directory: %w", err)
		}
		rotator = &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    valueOr(opts.MaxSizeMB, 10),
			MaxBackups: valueOr(opts.MaxBackups, 5),
			MaxAge:     valueOr(opts.MaxAgeDays, 28),
			Compress:   true,
		}
		out = io.MultiWriter(out, rotator)
	}

	return &Logger{
		fields:   make(map[string]any),
		std:      log.New(out, "", log.LstdFlags|log.Lmicroseconds),
		disabled: opts.Disabled,
	}, nil
}

func valueOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// CloseGlobalLogger closes the rotating log file, if any.
func CloseGlobalLogger() error {
	if rotator == nil {
		return nil
	}
	return rotator.Close()
}

// NewLogger creates a new logger instance sharing the global output.
func NewLogger() *Logger {
	if GlobalLogger == nil {
		_ = SetupLogger()
	}
	return &Logger{fields: make(map[string]any), std: GlobalLogger.std, disabled: GlobalLogger.disabled}
}

// NewWithWriter creates a logger that writes to w. Useful in tests.
func NewWithWriter(w io.Writer) *Logger {
	return &Logger{fields: make(map[string]any), std: log.New(w, "", 0)}
}

// normalizeValue converts certain common types into forms that marshal well to JSON.
// - errors -> their Error() string
// - time.Time (and *time.Time) -> RFC3339Nano string
// - fmt.Stringer -> String()
// - nested maps and slices are normalized recursively
func normalizeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case error:
		if x == nil {
			return nil
		}
		return x.Error()
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case *time.Time:
		if x == nil {
			return nil
		}
		return x.Format(time.RFC3339Nano)
	case fmt.Stringer:
		if x == nil {
			return nil
		}
		return x.String()
	case map[string]any:
		n := make(map[string]any, len(x))
		for k, vv := range x {
			n[k] = normalizeValue(vv)
		}
		return n
	case []any:
		s := make([]any, len(x))
		for i, vv := range x {
			s[i] = normalizeValue(vv)
		}
		return s
	default:
		return v
	}
}

func normalizeFields(fields map[string]any) map[string]any {
	n := make(map[string]any, len(fields))
	for k, v := range fields {
		n[k] = normalizeValue(v)
	}
	return n
}

// buildMessage composes the final log line including level and JSON-encoded fields when present.
func (l *Logger) buildMessage(level, msg string) string {
	// Copy fields under lock to avoid races when callers share the same Logger.
	l.mu.Lock()
	fieldsCopy := make(map[string]any, len(l.fields))
	for k, v := range l.fields {
		fieldsCopy[k] = v
	}
	l.mu.Unlock()

	if len(fieldsCopy) == 0 {
		return fmt.Sprintf("[%s] %s", level, msg)
	}

	normalized := normalizeFields(fieldsCopy)
	b, err := json.Marshal(normalized)
	if err != nil {
		// Fallback to Go-sprint of fields if JSON encoding fails
		return fmt.Sprintf("[%s] %s | fields=%v", level, msg, normalized)
	}
	return fmt.Sprintf("[%s] %s | %s", level, msg, string(b))
}

// WithField returns a new Logger with an additional field. It does not mutate the receiver.
func (l *Logger) WithField(key string, value any) *Logger {
	// Copy current fields under lock
	l.mu.Lock()
	newFields := make(map[string]any, len(l.fields)+1)
	for k, v := range l.fields {
		newFields[k] = v
	}
	l.mu.Unlock()

	newFields[key] = value
	return &Logger{fields: newFields, std: l.std, disabled: l.disabled}
}

// WithFields returns a new Logger with additional fields merged. It does not mutate the receiver.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	l.mu.Lock()
	newFields := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	l.mu.Unlock()
	for k, v := range fields {
		newFields[k] = v
	}
	return &Logger{fields: newFields, std: l.std, disabled: l.disabled}
}

// WithError is a convenience that attaches an error as a string (nil-safe).
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

// ErrorWithErr logs a message along with an error on the Logger instance.
// It ensures nil-safety and records the error as a string for reliable JSON encoding.
func (l *Logger) ErrorWithErr(msg string, err error) {
	if err == nil {
		l.Error(msg)
		return
	}
	l.WithField("error", err.Error()).Error(msg)
}

// output writes the message to the underlying std logger.
func (l *Logger) output(level, msg string) {
	if l.disabled {
		return
	}
	if l.std == nil {
		_ = SetupLogger()
		l.std = GlobalLogger.std
	}
	l.std.Println(l.buildMessage(level, msg))
}

// Debug prints a debug-level message
func (l *Logger) Debug(msg string) { l.output("DEBUG", msg) }
func (l *Logger) Info(msg string)  { l.output("INFO", msg) }
func (l *Logger) Warn(msg string)  { l.output("WARN", msg) }
func (l *Logger) Error(msg string) { l.output("ERROR", msg) }

// Formatted variants
func (l *Logger) Debugf(format string, v ...any) { l.output("DEBUG", fmt.Sprintf(format, v...)) }
func (l *Logger) Infof(format string, v ...any)  { l.output("INFO", fmt.Sprintf(format, v...)) }
func (l *Logger) Warnf(format string, v ...any)  { l.output("WARN", fmt.Sprintf(format, v...)) }
func (l *Logger) Errorf(format string, v ...any) { l.output("ERROR", fmt.Sprintf(format, v...)) }

// Convenience top-level helpers that operate on the global logger.
// These match the previous external `logutil` API used across the codebase.
func Info(msg string) {
	if GlobalLogger == nil {
		_ = SetupLogger()
	}
	GlobalLogger.Info(msg)
}
func Infof(f string, v ...any) {
	if GlobalLogger == nil {
		_ = SetupLogger()
	}
	GlobalLogger.Infof(f, v...)
}
func Debug(msg string) {
	if GlobalLogger == nil {
		_ = SetupLogger()
	}
	GlobalLogger.Debug(msg)
}
func Debugf(f string, v ...any) {
	if GlobalLogger == nil {
		_ = SetupLogger()
	}
	GlobalLogger.Debugf(f, v...)
}
func Warn(msg string) {
	if GlobalLogger == nil {
		_ = SetupLogger()
	}
	GlobalLogger.Warn(msg)
}
func Warnf(f string, v ...any) {
	if GlobalLogger == nil {
		_ = SetupLogger()
	}
	GlobalLogger.Warnf(f, v...)
}
func Error(msg string) {
	if GlobalLogger == nil {
		_ = SetupLogger()
	}
	GlobalLogger.Error(msg)
}
func Errorf(f string, v ...any) {
	if GlobalLogger == nil {
		_ = SetupLogger()
	}
	GlobalLogger.Errorf(f, v...)
}
// ErrorWithErr logs a message along with an error (keeps compatibility with previous code)
// It ensures the error is represented as a string for stable JSON serialization.
func ErrorWithErr(msg string, err error) {
	if GlobalLogger == nil {
		_ = SetupLogger()
	}
	if err == nil {
		GlobalLogger.Error(msg)
		return
	}
	GlobalLogger.WithField("error", err.Error()).Error(msg)
}

// WithFieldsGlobal returns a logger built from the global logger with provided fields.
func WithFieldsGlobal(fields map[string]any) *Logger {
	if GlobalLogger == nil {
		_ = SetupLogger()
	}
	return GlobalLogger.WithFields(fields)
}

// For backward compatibility this package also exposes WithFields as a top-level identifier.
var WithFields = WithFieldsGlobal

// WithField is a top-level helper to create a logger with a single field using the global logger.
func WithField(key string, value any) *Logger {
	if GlobalLogger == nil {
		_ = SetupLogger()
	}
	return GlobalLogger.WithField(key, value)
}

// WithError is a top-level helper to attach an error (nil-safe) to the global logger.
// It ensures the error is represented as a string for reliable JSON encoding.
func WithError(err error) *Logger {
	if GlobalLogger == nil {
		_ = SetupLogger()
	}
	return GlobalLogger.WithError(err)
}
