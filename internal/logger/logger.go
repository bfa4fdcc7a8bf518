// Package logger holds the process-wide loggers. Both discard output until
// the CLI enables them with -v / -vv or the daemon points them at its log file.
package logger

import (
	"io"
	"log"
)

// StdLogger is the subset of *log.Logger the rest of the code relies on.
type StdLogger interface {
	Print(v ...interface{})
	Printf(format string, v ...interface{})
	Println(v ...interface{})
}

var (
	// Logger receives operational messages (builds, reloads, daemon lifecycle).
	Logger StdLogger = log.New(io.Discard, "[multimatch] ", log.LstdFlags)

	// DebugLogger receives per-request and per-state detail. It forwards to
	// Logger until replaced.
	DebugLogger StdLogger = &debugLogger{}
)

type debugLogger struct{}

func (d *debugLogger) Print(v ...interface{}) {
	Logger.Print(v...)
}
func (d *debugLogger) Printf(format string, v ...interface{}) {
	Logger.Printf(format, v...)
}
func (d *debugLogger) Println(v ...interface{}) {
	Logger.Println(v...)
}

// SetLogger replaces the operational logger.
func SetLogger(l StdLogger) {
	Logger = l
}

// SetDebugLogger replaces the debug logger.
func SetDebugLogger(l StdLogger) {
	DebugLogger = l
}

// Enable routes operational logs to w. With debug set, debug logs go to w as
// well; otherwise they are discarded.
func Enable(w io.Writer, debug bool) {
	SetLogger(log.New(w, "[multimatch] ", log.LstdFlags))
	if debug {
		SetDebugLogger(log.New(w, "[multimatch debug] ", log.LstdFlags|log.Lmicroseconds))
	} else {
		SetDebugLogger(log.New(io.Discard, "", 0))
	}
}
