// Package monitoring is the logging surface shared by the classifier
// packages and the command line tools.
package monitoring

import "log"

// Logf receives progress lines: partition sizes, merges, per-run summaries.
// It defaults to log.Printf; SetLogger replaces or mutes it.
var Logf func(format string, v ...interface{}) = log.Printf

// Debugf receives per-pass detail. It is silent until SetDebugLogger
// installs a sink.
var Debugf func(format string, v ...interface{}) = discard

func discard(string, ...interface{}) {}

// SetLogger replaces Logf. Passing nil mutes it.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		f = discard
	}
	Logf = f
}

// SetDebugLogger replaces Debugf. Passing nil mutes it.
func SetDebugLogger(f func(format string, v ...interface{})) {
	if f == nil {
		f = discard
	}
	Debugf = f
}

// Install routes both hooks into l and returns a func restoring the
// previous pair.
func Install(l *Logger) (restore func()) {
	prevLogf, prevDebugf := Logf, Debugf
	SetLogger(l.Logf)
	SetDebugLogger(l.Debugf)
	return func() {
		Logf, Debugf = prevLogf, prevDebugf
	}
}
