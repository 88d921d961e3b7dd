// Package logging provides the structured logger of the scheduling service and
// CLI, and bridges zap loggers used by the search engine into it.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity level of a log entry.
type LogLevel string

const (
	// DebugLevel carries per-run details such as probability reweighting.
	DebugLevel LogLevel = "DEBUG"
	// InfoLevel is the default logging priority.
	InfoLevel LogLevel = "INFO"
	// WarnLevel reports runs that stopped early or rejected requests.
	WarnLevel LogLevel = "WARN"
	// ErrorLevel reports failed jobs and requests.
	ErrorLevel LogLevel = "ERROR"
	// FatalLevel logs a message, then calls os.Exit(1).
	FatalLevel LogLevel = "FATAL"
)

var severity = map[LogLevel]int{
	DebugLevel: 0,
	InfoLevel:  1,
	WarnLevel:  2,
	ErrorLevel: 3,
	FatalLevel: 4,
}

// Format selects how entries are encoded.
type Format string

const (
	// JSONFormat writes one JSON object per line.
	JSONFormat Format = "json"
	// TextFormat writes "time LEVEL message key=value ..." lines with sorted keys.
	TextFormat Format = "text"
)

// sink serialises writes of every logger derived from the same root, so that
// concurrent searches never interleave their lines.
type sink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *sink) write(p []byte) {
	s.mu.Lock()
	_, _ = s.w.Write(p)
	s.mu.Unlock()
}

func (s *sink) sync() error {
	if f, ok := s.w.(interface{ Sync() error }); ok {
		s.mu.Lock()
		defer s.mu.Unlock()
		return f.Sync()
	}
	return nil
}

// exit is replaced in tests.
var exit = os.Exit

// Logger is a leveled logger with fixed fields. Derived loggers share the
// output of their parent.
type Logger struct {
	level  LogLevel
	format Format
	out    *sink
	fields map[string]interface{}
}

// New creates a new JSON Logger with the specified log level and output.
func New(level LogLevel, output io.Writer) *Logger {
	return &Logger{
		level:  level,
		format: JSONFormat,
		out:    &sink{w: output},
		fields: map[string]interface{}{},
	}
}

func (l *Logger) derive(format Format, fields map[string]interface{}) *Logger {
	return &Logger{level: l.level, format: format, out: l.out, fields: fields}
}

// WithFormat returns a copy of the logger writing in format.
// Unknown formats fall back to JSON.
func (l *Logger) WithFormat(format Format) *Logger {
	if format != TextFormat {
		format = JSONFormat
	}
	return l.derive(format, l.fields)
}

// WithFields returns a new Logger with the specified fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return l.derive(l.format, merge(l.fields, fields))
}

// WithField returns a new Logger with the specified key-value pair.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithError returns a new Logger with the error field set.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

// Enabled reports whether entries at level are written.
func (l *Logger) Enabled(level LogLevel) bool {
	want, ok := severity[level]
	if !ok {
		return false
	}
	floor, ok := severity[l.level]
	return ok && want >= floor
}

// Sync flushes the output when it is a file.
func (l *Logger) Sync() error { return l.out.sync() }

func merge(base, extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// callerAt returns "dir/file.go:line" of the frame skip levels above its caller.
func callerAt(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "???:0"
	}
	if parts := strings.Split(file, "/"); len(parts) > 2 {
		file = strings.Join(parts[len(parts)-2:], "/")
	}
	return fmt.Sprintf("%s:%d", file, line)
}

// log writes an entry. Entries without a caller field get the caller of the
// exported method.
func (l *Logger) log(level LogLevel, msg string, fields map[string]interface{}) {
	if !l.Enabled(level) {
		return
	}

	all := merge(l.fields, fields)
	if _, ok := all["caller"]; !ok {
		all["caller"] = callerAt(2)
	}

	now := time.Now().UTC()
	if l.format == TextFormat {
		l.out.write(encodeText(now, level, msg, all))
	} else {
		l.out.write(encodeJSON(now, level, msg, all))
	}

	if level == FatalLevel {
		_ = l.Sync()
		exit(1)
	}
}

func encodeJSON(now time.Time, level LogLevel, msg string, fields map[string]interface{}) []byte {
	entry := merge(fields, map[string]interface{}{
		"timestamp": now.Format(time.RFC3339Nano),
		"level":     level,
		"message":   msg,
	})
	data, err := json.Marshal(entry)
	if err != nil {
		return []byte(fmt.Sprintf("%s [%s] %s: %+v\n", now.Format(time.RFC3339), level, msg, fields))
	}
	return append(data, '\n')
}

func encodeText(now time.Time, level LogLevel, msg string, fields map[string]interface{}) []byte {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s %s", now.Format(time.RFC3339), level, msg)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

func first(fields []map[string]interface{}) map[string]interface{} {
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}

// Debug logs a message at DebugLevel.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(DebugLevel, msg, first(fields))
}

// Info logs a message at InfoLevel.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(InfoLevel, msg, first(fields))
}

// Warn logs a message at WarnLevel.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(WarnLevel, msg, first(fields))
}

// Error logs a message at ErrorLevel.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(ErrorLevel, msg, first(fields))
}

// Fatal logs a message at FatalLevel then calls os.Exit(1).
func (l *Logger) Fatal(msg string, fields ...map[string]interface{}) {
	l.log(FatalLevel, msg, first(fields))
}

// CtxLogger is a logger that can be used with context.
type CtxLogger struct {
	*Logger
}

// FromContext returns the request logger stored by Middleware, or a stderr
// logger at InfoLevel when there is none.
func FromContext(ctx context.Context) *CtxLogger {
	if logger, ok := ctx.Value(ctxLoggerKey{}).(*CtxLogger); ok {
		return logger
	}
	return &CtxLogger{New(InfoLevel, os.Stderr)}
}

// WithContext returns a new context with the logger.
func (l *CtxLogger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxLoggerKey{}, l)
}

type ctxLoggerKey struct{}
