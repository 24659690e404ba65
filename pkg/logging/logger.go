package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"time"
)

// JSONLogger writes one JSON object per line:
//
//	{"time":"...","level":"WARN","msg":"...","fields":{"path":"a.icf","bytes":9}}
//
// Children made with With share the parent's output, so their lines never
// interleave, but each has its own level.
type JSONLogger struct {
	out    *output
	mu     sync.Mutex // guards level
	level  Level
	fields []Field
	now    func() time.Time
}

type output struct {
	mu sync.Mutex
	w  io.Writer
}

type entry struct {
	Time    string         `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"msg"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// NewJSONLogger returns a logger writing entries at or above level to w.
func NewJSONLogger(w io.Writer, level Level) *JSONLogger {
	return &JSONLogger{
		out:   &output{w: w},
		level: level,
		now:   time.Now,
	}
}

func (l *JSONLogger) log(level Level, msg string, fields []Field) {
	if level < l.GetLevel() {
		return
	}

	e := entry{
		Time:    l.now().UTC().Format(time.RFC3339Nano),
		Level:   level.String(),
		Message: msg,
	}
	if n := len(l.fields) + len(fields); n > 0 {
		e.Fields = make(map[string]any, n)
		for _, f := range slices.Concat(l.fields, fields) {
			e.Fields[f.Key] = f.Value
		}
	}

	line, err := json.Marshal(e)
	if err != nil {
		line = fmt.Appendf(nil, `{"time":%q,"level":"ERROR","msg":%q}`,
			e.Time, "failed to marshal log entry: "+err.Error())
	}
	line = append(line, '\n')

	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.w.Write(line)
}

func (l *JSONLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *JSONLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields) }
func (l *JSONLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields) }
func (l *JSONLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

// With returns a child logger with fields pre-set. The child starts at the
// parent's current level.
func (l *JSONLogger) With(fields ...Field) Logger {
	return &JSONLogger{
		out:    l.out,
		level:  l.GetLevel(),
		fields: slices.Concat(l.fields, fields),
		now:    l.now,
	}
}

func (l *JSONLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *JSONLogger) GetLevel() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

var (
	defaultLogger Logger
	defaultOnce   sync.Once
)

// DefaultLogger is used by containers and archivers opened without
// WithLogger. It writes to stderr, since stdout carries record payloads for
// dump and cat, at the level from LevelFromEnv.
func DefaultLogger() Logger {
	defaultOnce.Do(func() {
		defaultLogger = NewJSONLogger(os.Stderr, ParseLevel(LevelFromEnv()))
	})
	return defaultLogger
}

// LevelFromEnv returns ICF_LOG_LEVEL, falling back to LOG_LEVEL.
func LevelFromEnv() string {
	if v := os.Getenv("ICF_LOG_LEVEL"); v != "" {
		return v
	}
	return os.Getenv("LOG_LEVEL")
}

// TimedOperation logs a message once an operation finishes, with its latency.
type TimedOperation struct {
	logger Logger
	msg    string
	start  time.Time
	fields []Field
}

func StartTimer(logger Logger, msg string, fields ...Field) *TimedOperation {
	return &TimedOperation{
		logger: logger,
		msg:    msg,
		start:  time.Now(),
		fields: fields,
	}
}

// End logs at INFO. fields are appended to those given to StartTimer; the
// timer's own slice is never modified.
func (t *TimedOperation) End(fields ...Field) {
	t.logger.Info(t.msg, slices.Concat(t.fields, fields, []Field{Latency(time.Since(t.start))})...)
}

func (t *TimedOperation) EndError(err error) {
	t.logger.Error(t.msg, slices.Concat(t.fields, []Field{Latency(time.Since(t.start)), Error(err)})...)
}
