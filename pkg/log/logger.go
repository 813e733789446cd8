package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents the severity level of a log message.
type Level int

// Log levels
const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name ("debug", "info", ...) to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("log: unknown level %q", s)
	}
}

// Entry represents a single log entry handed to a Formatter.
type Entry struct {
	Level     Level
	Message   string
	Fields    []Field
	Timestamp time.Time
}

// Formatter renders an Entry to bytes, including the trailing newline.
type Formatter interface {
	Format(entry *Entry) []byte
}

// Logger is the logging interface podium components depend on.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	// With returns a derived logger carrying additional fields.
	With(fields ...Field) Logger

	SetLevel(level Level)
	GetLevel() Level
}

// BaseLogger implements Logger by formatting entries and writing them to a
// single io.Writer guarded by a mutex.
type BaseLogger struct {
	mu        *sync.Mutex
	level     Level
	fields    []Field
	formatter Formatter
	out       io.Writer
	exit      func(int)
	now       func() time.Time
}

// LoggerOption configures a logger at construction time.
type LoggerOption func(*BaseLogger)

// NewLogger creates a logger. Defaults: InfoLevel, text format, stderr.
func NewLogger(options ...LoggerOption) Logger {
	l := &BaseLogger{
		mu:        &sync.Mutex{},
		level:     InfoLevel,
		formatter: &TextFormatter{},
		out:       os.Stderr,
		exit:      os.Exit,
		now:       time.Now,
	}
	for _, option := range options {
		option(l)
	}
	return l
}

// WithLevel sets the minimum log level.
func WithLevel(level Level) LoggerOption {
	return func(l *BaseLogger) { l.level = level }
}

// WithFormatter sets the output formatter.
func WithFormatter(f Formatter) LoggerOption {
	return func(l *BaseLogger) { l.formatter = f }
}

// WithWriter sets the output destination.
func WithWriter(w io.Writer) LoggerOption {
	return func(l *BaseLogger) { l.out = w }
}

func (l *BaseLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *BaseLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields) }
func (l *BaseLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields) }
func (l *BaseLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

func (l *BaseLogger) Fatal(msg string, fields ...Field) {
	l.log(FatalLevel, msg, fields)
	l.exit(1)
}

// With returns a derived logger carrying additional fields. The writer,
// formatter, and level are shared with the parent.
func (l *BaseLogger) With(fields ...Field) Logger {
	child := *l
	child.fields = append(append([]Field{}, l.fields...), fields...)
	return &child
}

func (l *BaseLogger) SetLevel(level Level) { l.level = level }
func (l *BaseLogger) GetLevel() Level      { return l.level }

func (l *BaseLogger) log(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}
	entry := &Entry{
		Level:     level,
		Message:   msg,
		Timestamp: l.now(),
	}
	if len(l.fields) > 0 || len(fields) > 0 {
		entry.Fields = append(append([]Field{}, l.fields...), fields...)
	}
	b := l.formatter.Format(entry)
	l.mu.Lock()
	_, _ = l.out.Write(b)
	l.mu.Unlock()
}
