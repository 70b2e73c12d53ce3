// Package logger provides leveled logging for sqlite-diff.
// Debug and info messages, section headers and progress spans print only in
// verbose mode; warnings always print. Output goes to stderr.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/arthurljones/sqlite-diff/pkg/types"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "[DEBUG] "+format+"\n", args...)
	}
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "[INFO] "+format+"\n", args...)
	}
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	fmt.Fprintf(output, "[WARN] "+format+"\n", args...)
}

// Progress prints nested steps of a run, indenting two spaces per level.
// It prints only in verbose mode.
type Progress struct {
	mu    sync.Mutex
	depth int
}

var _ types.Progress = (*Progress)(nil)

// NewProgress returns a progress printer at the top level.
func NewProgress() *Progress {
	return &Progress{}
}

// Enter prints label and nests subsequent output.
func (p *Progress) Enter(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.print(label)
	p.depth++
}

// Exit returns to the enclosing level. Extra calls are ignored.
func (p *Progress) Exit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.depth > 0 {
		p.depth--
	}
}

// Note prints msg at the current level.
func (p *Progress) Note(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.print(msg)
}

func (p *Progress) print(msg string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "%s%s\n", strings.Repeat("  ", p.depth), msg)
	}
}
