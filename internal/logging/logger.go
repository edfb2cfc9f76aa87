// Package logging is the reporting sink used by the comparison engine and
// the command line tools.
package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level string

const (
	LevelVerbose Level = "VERBOSE"
	LevelInfo    Level = "INFO"
	LevelWarn    Level = "WARN"
	LevelError   Level = "ERROR"
)

var levelRank = map[Level]int{
	LevelVerbose: 0,
	LevelInfo:    1,
	LevelWarn:    2,
	LevelError:   3,
}

// ParseLevel maps a configuration value onto a Level.
func ParseLevel(value string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "", "INFO":
		return LevelInfo, nil
	case "VERBOSE", "DEBUG":
		return LevelVerbose, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	}
	return "", fmt.Errorf("unknown log level %q", value)
}

// Enabled reports whether level passes the minimum level min.
func (l Level) Enabled(min Level) bool {
	return levelRank[l] >= levelRank[min]
}

// Field represents a key-value pair in structured logging.
type Field struct {
	Key   string
	Value any
}

// F creates a Field from a key-value pair.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Logger provides structured logging with context support.
type Logger interface {
	Verbose(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, err error, fields ...Field)
	WithFields(fields ...Field) Logger
}

// OrNoOp returns l, or a NoOpLogger when l is nil.
func OrNoOp(l Logger) Logger {
	if l == nil {
		return &NoOpLogger{}
	}
	return l
}

// NoOpLogger is a logger that discards all log entries.
type NoOpLogger struct{}

func (n *NoOpLogger) Verbose(_ context.Context, _ string, _ ...Field)        {}
func (n *NoOpLogger) Info(_ context.Context, _ string, _ ...Field)           {}
func (n *NoOpLogger) Warn(_ context.Context, _ string, _ ...Field)           {}
func (n *NoOpLogger) Error(_ context.Context, _ string, _ error, _ ...Field) {}
func (n *NoOpLogger) WithFields(_ ...Field) Logger                           { return n }

// StdLogger writes one line per entry to a writer.
type StdLogger struct {
	fields     []Field
	minLevel   Level
	logger     *log.Logger
	timestamps bool
}

// NewStdLogger creates a logger with the given minimum level. A nil writer
// discards everything.
func NewStdLogger(minLevel Level, writer io.Writer) *StdLogger {
	if writer == nil {
		writer = io.Discard
	}
	return &StdLogger{
		minLevel:   minLevel,
		logger:     log.New(writer, "", 0),
		timestamps: true,
	}
}

// Plain drops the timestamp and level decoration so entries print as bare
// text. The diff report uses it for its output.
func (s *StdLogger) Plain() *StdLogger {
	clone := *s
	clone.timestamps = false
	return &clone
}

func (s *StdLogger) log(ctx context.Context, level Level, msg string, err error, fields ...Field) {
	if !level.Enabled(s.minLevel) {
		return
	}
	if !s.timestamps {
		if err != nil {
			msg = fmt.Sprintf("%s: %v", msg, err)
		}
		s.logger.Print(msg)
		return
	}

	allFields := append(append([]Field(nil), s.fields...), fields...)
	if runID := RunID(ctx); runID != "" {
		allFields = append(allFields, F("run_id", runID))
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", time.Now().Format(time.RFC3339)))
	parts = append(parts, fmt.Sprintf("[%s]", level))
	if err != nil {
		parts = append(parts, fmt.Sprintf("[error=%q]", err.Error()))
	}
	parts = append(parts, msg)

	if len(allFields) > 0 {
		var fieldParts []string
		for _, f := range allFields {
			fieldParts = append(fieldParts, fmt.Sprintf("%s=%v", f.Key, f.Value))
		}
		parts = append(parts, fmt.Sprintf("fields=[%s]", strings.Join(fieldParts, " ")))
	}

	s.logger.Println(strings.Join(parts, " "))
}

func (s *StdLogger) Verbose(ctx context.Context, msg string, fields ...Field) {
	s.log(ctx, LevelVerbose, msg, nil, fields...)
}

func (s *StdLogger) Info(ctx context.Context, msg string, fields ...Field) {
	s.log(ctx, LevelInfo, msg, nil, fields...)
}

func (s *StdLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	s.log(ctx, LevelWarn, msg, nil, fields...)
}

func (s *StdLogger) Error(ctx context.Context, msg string, err error, fields ...Field) {
	s.log(ctx, LevelError, msg, err, fields...)
}

func (s *StdLogger) WithFields(fields ...Field) Logger {
	clone := *s
	clone.fields = append(append([]Field(nil), s.fields...), fields...)
	return &clone
}

// Entry is one message captured by MemoryLogger.
type Entry struct {
	Level   Level
	Message string
	Err     error
	Fields  []Field
}

// MemoryLogger records entries in memory. It is safe for concurrent use.
type MemoryLogger struct {
	mu      *sync.Mutex
	entries *[]Entry
	fields  []Field
}

// NewMemoryLogger creates an empty MemoryLogger.
func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{mu: &sync.Mutex{}, entries: &[]Entry{}}
}

func (m *MemoryLogger) record(level Level, msg string, err error, fields []Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*m.entries = append(*m.entries, Entry{
		Level:   level,
		Message: msg,
		Err:     err,
		Fields:  append(append([]Field(nil), m.fields...), fields...),
	})
}

func (m *MemoryLogger) Verbose(_ context.Context, msg string, fields ...Field) {
	m.record(LevelVerbose, msg, nil, fields)
}

func (m *MemoryLogger) Info(_ context.Context, msg string, fields ...Field) {
	m.record(LevelInfo, msg, nil, fields)
}

func (m *MemoryLogger) Warn(_ context.Context, msg string, fields ...Field) {
	m.record(LevelWarn, msg, nil, fields)
}

func (m *MemoryLogger) Error(_ context.Context, msg string, err error, fields ...Field) {
	m.record(LevelError, msg, err, fields)
}

func (m *MemoryLogger) WithFields(fields ...Field) Logger {
	return &MemoryLogger{mu: m.mu, entries: m.entries, fields: append(append([]Field(nil), m.fields...), fields...)}
}

// Entries returns a copy of the recorded entries.
func (m *MemoryLogger) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), (*m.entries)...)
}

// Messages returns the messages recorded at level.
func (m *MemoryLogger) Messages(level Level) []string {
	var out []string
	for _, e := range m.Entries() {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

// runIDKey is the context key for run identifiers.
type runIDKey struct{}

// WithRunID attaches a run identifier that every entry logged with the
// context carries.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunID extracts the run identifier from ctx, if present.
func RunID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(runIDKey{}).(string); ok {
		return id
	}
	return ""
}

// NewRunID creates a run identifier from the current time.
func NewRunID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
