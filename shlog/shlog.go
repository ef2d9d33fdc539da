// Package shlog provides the structured logger used across the engine:
// a thread-safe logrus wrapper with a Ctx/AddContext call shape
// (logger.AddContext(logger.Ctx{"pid": ...}).Debug(...)). Fields attach
// to a logger instance once and are carried on every subsequent call,
// rather than being repeated at each log site.
package shlog

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Ctx is a set of structured fields attached to a log line.
type Ctx map[string]any

// Logger is a thread-safe, field-carrying wrapper around *logrus.Entry.
type Logger struct {
	mu    *sync.Mutex
	entry *logrus.Entry
}

// New returns the default Logger, writing text-formatted lines to the
// process's stderr via logrus's default output.
func New() Logger {
	base := logrus.New()
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return Logger{mu: &sync.Mutex{}, entry: logrus.NewEntry(base)}
}

// AddContext returns a new Logger with fields merged into the carried
// context. The receiver is left unchanged.
func (l Logger) AddContext(fields Ctx) Logger {
	return Logger{mu: l.mu, entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l Logger) log(level logrus.Level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entry.Log(level, msg)
}

// Debug logs msg at debug level with the logger's carried context.
func (l Logger) Debug(msg string) { l.log(logrus.DebugLevel, msg) }

// Info logs msg at info level with the logger's carried context.
func (l Logger) Info(msg string) { l.log(logrus.InfoLevel, msg) }

// Warn logs msg at warn level with the logger's carried context.
func (l Logger) Warn(msg string) { l.log(logrus.WarnLevel, msg) }

// Error logs msg at error level with the logger's carried context.
func (l Logger) Error(msg string) { l.log(logrus.ErrorLevel, msg) }
