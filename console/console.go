// Package console prints progress and diagnostics for the command line tools.
// Warnings and errors always go out; Debug output needs dev mode.
package console

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
)

var (
	logger = log.New(os.Stderr, "", 0)
	dev    atomic.Bool
)

// SetOutput redirects all output to w.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// SetDev enables or disables development mode.
func SetDev(enabled bool) {
	dev.Store(enabled)
}

// Dev reports whether development mode is enabled.
func Dev() bool {
	return dev.Load()
}

// Log prints an informational line.
func Log(args ...any) {
	logger.Print(fmt.Sprintln(args...))
}

// Logf prints a formatted informational line.
func Logf(format string, args ...any) {
	logger.Printf(format, args...)
}

// Warn prints a warning.
func Warn(args ...any) {
	logger.Print("Warning: " + fmt.Sprintln(args...))
}

// Error prints an error.
func Error(args ...any) {
	logger.Print("Error: " + fmt.Sprintln(args...))
}

// Debug prints a formatted line in development mode only.
func Debug(format string, args ...any) {
	if dev.Load() {
		logger.Printf("debug: "+format, args...)
	}
}
