// Copyright 2024 cronwheel authors. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file in the root of the source
// tree.

package cronwheel

import (
	"os"

	"github.com/intuitivelabs/slog"
)

// Log is the package-wide logger. Host processes that want to change the
// verbosity or destination should call slog.SetLevel(&Log, ...) before
// Start()-ing a Scheduler.
var Log slog.Log

func init() {
	Log.SetOutput(os.Stderr)
	Log.SetPrefix(NAME + ": ")
	slog.SetLevel(&Log, slog.LWARN|slog.LERR|slog.LNOTICE)
}

// DBG logs a debug-level message, if debug logging is enabled.
func DBG(f string, a ...interface{}) {
	Log.DBG(f, a...)
}

// ERR logs an error-level message.
func ERR(f string, a ...interface{}) {
	Log.ERR(f, a...)
}

// WARN logs a warning-level message.
func WARN(f string, a ...interface{}) {
	Log.WARN(f, a...)
}

// BUG logs an internal-invariant-violation message. It never panics; the
// scheduler loop treats a BUG as a signal to drain and stop (see §7 of the
// design: "internal invariant violations ... are fatal").
func BUG(f string, a ...interface{}) {
	Log.BUG(f, a...)
}

// DBGon returns true if debug-level logging is enabled (avoids formatting
// cost on the hot path when it's not).
func DBGon() bool {
	return Log.DBGon()
}

// ERRon returns true if error-level logging is enabled.
func ERRon() bool {
	return Log.ERRon()
}

// WARNon returns true if warning-level logging is enabled.
func WARNon() bool {
	return Log.WARNon()
}
