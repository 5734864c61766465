package helpers

import (
	"log"
	"strings"
)

type LogLevel uint8

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

var LogLevelLabels = map[LogLevel]string{
	LogLevelDebug: "DEBUG",
	LogLevelInfo:  "INFO",
	LogLevelWarn:  "WARN",
	LogLevelError: "ERROR",
}

// ParseLogLevel maps a label such as "debug" or "WARN" to a LogLevel.
// Unknown labels resolve to LogLevelInfo.
func ParseLogLevel(label string) LogLevel {
	label = strings.ToUpper(strings.TrimSpace(label))
	for level, name := range LogLevelLabels {
		if name == label {
			return level
		}
	}
	return LogLevelInfo
}

// Logger writes leveled lines through the standard logger. A nil *Logger
// discards everything.
type Logger struct {
	Level  LogLevel
	Prefix string
}

func NewLogger(level LogLevel, prefix string) *Logger {
	return &Logger{Level: level, Prefix: prefix}
}

func (l *Logger) Debugf(format string, args ...any) {
	l.log(LogLevelDebug, format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.log(LogLevelInfo, format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.log(LogLevelWarn, format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.log(LogLevelError, format, args...)
}

func (l *Logger) Enabled(level LogLevel) bool {
	return l != nil && l.Level <= level
}

func (l *Logger) log(level LogLevel, format string, args ...any) {
	if !l.Enabled(level) {
		return
	}

	label, exists := LogLevelLabels[level]
	if !exists {
		label = "UNKNOWN"
	}

	if l.Prefix != "" {
		format = l.Prefix + ": " + format
	}

	args = append([]any{label}, args...)

	log.Printf("[%s] "+format, args...)
}
