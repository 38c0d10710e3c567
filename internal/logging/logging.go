// Package logging builds the key/value loggers shared by the core packages.
//
// Core code logs through go.temporal.io/sdk/log.Logger so the same components
// can run under a workflow logger, an activity logger, or a plain process
// logger without change.
package logging

import (
	"io"
	"log/slog"
	"os"

	tlog "go.temporal.io/sdk/log"
)

// Logger is the logger interface used throughout toolchat.
type Logger = tlog.Logger

// New returns a structured text logger writing to w at the given level.
func New(w io.Writer, level slog.Level) Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return tlog.NewStructuredLogger(slog.New(handler))
}

// Default returns an Info-level logger on stderr.
func Default() Logger {
	return New(os.Stderr, slog.LevelInfo)
}

// With returns a logger that always includes the given key/value pairs.
func With(logger Logger, keyvals ...interface{}) Logger {
	return tlog.With(logger, keyvals...)
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// Entry is one record captured by a Recorder.
type Entry struct {
	Level   string
	Message string
	KeyVals []interface{}
}

// Recorder is a Logger that keeps every entry in memory. Used by tests.
type Recorder struct {
	Entries []Entry
}

func (r *Recorder) add(level, msg string, keyvals []interface{}) {
	r.Entries = append(r.Entries, Entry{Level: level, Message: msg, KeyVals: keyvals})
}

func (r *Recorder) Debug(msg string, keyvals ...interface{}) { r.add("DEBUG", msg, keyvals) }
func (r *Recorder) Info(msg string, keyvals ...interface{})  { r.add("INFO", msg, keyvals) }
func (r *Recorder) Warn(msg string, keyvals ...interface{})  { r.add("WARN", msg, keyvals) }
func (r *Recorder) Error(msg string, keyvals ...interface{}) { r.add("ERROR", msg, keyvals) }

// Has reports whether an entry with the given level and message was recorded.
func (r *Recorder) Has(level, msg string) bool {
	for _, e := range r.Entries {
		if e.Level == level && e.Message == msg {
			return true
		}
	}
	return false
}
