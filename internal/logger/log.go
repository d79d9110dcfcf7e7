package logger

import (
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// ParseLevel maps a level name to a Level. Unknown names fall back to INFO.
func ParseLevel(level string) Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

type Logger struct {
	level    Level
	mu       *sync.Mutex
	debugLog *log.Logger
	infoLog  *log.Logger
	warnLog  *log.Logger
	errorLog *log.Logger
}

// New creates a logger writing to stderr.
func New(level string) *Logger {
	return NewWithWriter(level, os.Stderr)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(level string, w io.Writer) *Logger {
	return newLogger(ParseLevel(level), w, "", log.LstdFlags|log.Lmicroseconds|log.Lmsgprefix, &sync.Mutex{})
}

func newLogger(lvl Level, w io.Writer, component string, flags int, mu *sync.Mutex) *Logger {
	prefix := func(tag string) string {
		if component == "" {
			return "[" + tag + "] "
		}
		return "[" + tag + "] [" + component + "] "
	}

	return &Logger{
		level:    lvl,
		mu:       mu,
		debugLog: log.New(w, prefix("DEBUG"), flags),
		infoLog:  log.New(w, prefix("INFO"), flags),
		warnLog:  log.New(w, prefix("WARN"), flags),
		errorLog: log.New(w, prefix("ERROR"), flags),
	}
}

// With returns a logger that tags every line with component. It shares the
// parent's output and lock.
func (l *Logger) With(component string) *Logger {
	return newLogger(l.level, l.infoLog.Writer(), component, l.infoLog.Flags(), l.mu)
}

// Level returns the minimum level that is written.
func (l *Logger) Level() Level {
	return l.level
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level <= DEBUG {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.debugLog.Printf(format, args...)
	}
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.level <= INFO {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.infoLog.Printf(format, args...)
	}
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level <= WARN {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.warnLog.Printf(format, args...)
	}
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l.level <= ERROR {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.errorLog.Printf(format, args...)
	}
}
