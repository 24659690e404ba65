package logging

import "strings"

// Level orders log severities. Entries below a logger's level are dropped.
type Level int8

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = [...]string{
	DebugLevel: "DEBUG",
	InfoLevel:  "INFO",
	WarnLevel:  "WARN",
	ErrorLevel: "ERROR",
}

func (l Level) String() string {
	if l < DebugLevel || l > ErrorLevel {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel maps a config or ICF_LOG_LEVEL value to a Level. Case and
// surrounding space are ignored, "warning" means WARN and anything it does
// not recognise is INFO.
func ParseLevel(s string) Level {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "WARNING" {
		return WarnLevel
	}
	for l, name := range levelNames {
		if name == s {
			return Level(l)
		}
	}
	return InfoLevel
}

// Field is one key of an entry's "fields" object.
type Field struct {
	Key   string
	Value any
}

// Logger is what the container, the archiver and the commands log through.
// With returns a child that adds its fields to every entry.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	SetLevel(level Level)
	GetLevel() Level
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...Field) {}
func (nopLogger) Info(string, ...Field)  {}
func (nopLogger) Warn(string, ...Field)  {}
func (nopLogger) Error(string, ...Field) {}
func (n nopLogger) With(...Field) Logger { return n }
func (nopLogger) SetLevel(Level)         {}
func (nopLogger) GetLevel() Level        { return InfoLevel }

// NewNopLogger returns a Logger that discards everything. Tests use it to
// keep container output quiet.
func NewNopLogger() Logger {
	return nopLogger{}
}
