package model

//
// Logger
//

// Logger is the logging interface used across the engine. It is
// compatible out of the box with `log.Log` in `github.com/apex/log`.
//
// The engine only emits warnings (policy-recovered conditions) and debug
// diagnostics; everything fatal is returned as an error instead.
type Logger interface {
	// Debug emits a debug message.
	Debug(msg string)

	// Debugf formats and emits a debug message.
	Debugf(format string, v ...interface{})

	// Info emits an informational message.
	Info(msg string)

	// Infof formats and emits an informational message.
	Infof(format string, v ...interface{})

	// Warn emits a warning message.
	Warn(msg string)

	// Warnf formats and emits a warning message.
	Warnf(format string, v ...interface{})
}

// DiscardLogger is a [Logger] that discards its input.
var DiscardLogger Logger = logDiscarder{}

type logDiscarder struct{}

// Debug implements Logger.
func (logDiscarder) Debug(msg string) {}

// Debugf implements Logger.
func (logDiscarder) Debugf(format string, v ...interface{}) {}

// Info implements Logger.
func (logDiscarder) Info(msg string) {}

// Infof implements Logger.
func (logDiscarder) Infof(format string, v ...interface{}) {}

// Warn implements Logger.
func (logDiscarder) Warn(msg string) {}

// Warnf implements Logger.
func (logDiscarder) Warnf(format string, v ...interface{}) {}
