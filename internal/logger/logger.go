// Package logger writes diagnostic output for the openpdpa CLI.
//
// Nothing is printed unless verbose mode is on (the --verbose flag). The
// index service uses it to explain rebuild and reuse decisions and the query
// pipeline to trace moderate, retrieve and generate stages.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose turns verbose output on or off.
func SetVerbose(v bool) {
	mu.Lock()
	verbose = v
	mu.Unlock()
}

// IsVerbose reports whether verbose output is on.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput redirects verbose output. Tests pass a buffer.
func SetOutput(w io.Writer) {
	mu.Lock()
	output = w
	mu.Unlock()
}

// printf holds the write lock so concurrent callers do not interleave.
func printf(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if !verbose {
		return
	}
	fmt.Fprintf(output, format, args...)
}

// Section prints a stage banner, e.g. "=== Index ===".
func Section(name string) { printf("\n=== %s ===\n", name) }

// Debug traces internal decisions.
func Debug(format string, args ...any) { printf("[DEBUG] "+format+"\n", args...) }

// Info reports progress.
func Info(format string, args ...any) { printf("[INFO] "+format+"\n", args...) }

// Warn reports a recoverable failure.
func Warn(format string, args ...any) { printf("[WARN] "+format+"\n", args...) }
