// Package utils holds small leaf helpers shared by the connection core:
// logging and the one-shot timer wrapper. Grounded on quic-go's
// internal/utils package (log.go, timer.go).
package utils

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"
)

// LogLevel controls verbosity, mirroring internal/utils.LogLevel.
type LogLevel uint8

const (
	LogLevelNothing LogLevel = iota
	LogLevelError
	LogLevelInfo
	LogLevelDebug
)

// Logger is the leveled logging interface the connection core writes
// through. The core currently logs idle timeouts and dropped knob frames
// through it.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
	Debug() bool
	SetLogLevel(LogLevel)
	WithPrefix(prefix string) Logger
}

type defaultLogger struct {
	prefix string
	level  atomic.Uint32
	*log.Logger
}

// DefaultLogger writes to stderr and starts at LogLevelNothing, an
// opt-in-verbosity default.
var DefaultLogger Logger = newDefaultLogger()

func newDefaultLogger() *defaultLogger {
	return &defaultLogger{Logger: log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lmicroseconds)}
}

func (l *defaultLogger) SetLogLevel(level LogLevel) { l.level.Store(uint32(level)) }

func (l *defaultLogger) Debug() bool { return LogLevel(l.level.Load()) >= LogLevelDebug }

func (l *defaultLogger) logMessage(level LogLevel, format string, args ...any) {
	if LogLevel(l.level.Load()) < level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.prefix != "" {
		msg = l.prefix + msg
	}
	l.Logger.Println(msg)
}

func (l *defaultLogger) Debugf(format string, args ...any) { l.logMessage(LogLevelDebug, format, args...) }
func (l *defaultLogger) Infof(format string, args ...any)  { l.logMessage(LogLevelInfo, format, args...) }
func (l *defaultLogger) Errorf(format string, args ...any) { l.logMessage(LogLevelError, format, args...) }

func (l *defaultLogger) WithPrefix(prefix string) Logger {
	n := newDefaultLogger()
	n.level.Store(l.level.Load())
	n.prefix = l.prefix + prefix + ": "
	return n
}
