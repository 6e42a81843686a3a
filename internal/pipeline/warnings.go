package pipeline

import (
	"fmt"
	"sync"

	"github.com/nanolab/scanpipe/internal/model"
)

// WarnTracker suppresses repeated warnings. It is explicit state owned
// by the caller and threaded through the per-scan pipeline, rather than
// a process-wide flag, so concurrent batches with separate trackers do
// not interfere and tests see exactly the warnings of their own run.
//
// The zero value is not usable; construct with [NewWarnTracker]. A
// WarnTracker is safe for concurrent use.
type WarnTracker struct {
	mu   sync.Mutex
	seen map[string]bool
}

// NewWarnTracker creates an empty [WarnTracker].
func NewWarnTracker() *WarnTracker {
	return &WarnTracker{seen: make(map[string]bool)}
}

// first reports whether the given message is seen for the first time.
func (wt *WarnTracker) first(message string) bool {
	wt.mu.Lock()
	defer wt.mu.Unlock()
	if wt.seen[message] {
		return false
	}
	wt.seen[message] = true
	return true
}

// Logger wraps a [model.Logger] so each distinct warning message is
// emitted once per tracker. Debug and info messages pass through.
func (wt *WarnTracker) Logger(inner model.Logger) model.Logger {
	return &onceLogger{inner: inner, tracker: wt}
}

type onceLogger struct {
	inner   model.Logger
	tracker *WarnTracker
}

var _ model.Logger = &onceLogger{}

// Debug implements model.Logger.
func (ol *onceLogger) Debug(msg string) {
	ol.inner.Debug(msg)
}

// Debugf implements model.Logger.
func (ol *onceLogger) Debugf(format string, v ...interface{}) {
	ol.inner.Debugf(format, v...)
}

// Info implements model.Logger.
func (ol *onceLogger) Info(msg string) {
	ol.inner.Info(msg)
}

// Infof implements model.Logger.
func (ol *onceLogger) Infof(format string, v ...interface{}) {
	ol.inner.Infof(format, v...)
}

// Warn implements model.Logger.
func (ol *onceLogger) Warn(msg string) {
	if ol.tracker.first(msg) {
		ol.inner.Warn(msg)
	}
}

// Warnf implements model.Logger.
func (ol *onceLogger) Warnf(format string, v ...interface{}) {
	ol.Warn(fmt.Sprintf(format, v...))
}
