// Package output prints styled status lines for the flock CLI.
//
// Status lines go to stderr so that report output on stdout stays clean
// enough to pipe into other tools.
package output

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("green")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("red")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("cyan"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	mu          sync.Mutex
	out         io.Writer = os.Stderr
	verboseMode bool
)

// SetVerbose enables or disables verbose output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verboseMode = v
}

// SetWriter redirects all status output. Tests use it to capture lines.
func SetWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	out = w
}

// Writer returns the current status writer.
func Writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return out
}

func writeLine(s string) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintln(out, s)
}

// Success prints a completed step.
//
//	output.Success("Wrote data.json")
func Success(msg string) {
	writeLine(successStyle.Render("✅ " + msg))
}

// Error prints a failure that stops the run.
func Error(msg string) {
	writeLine(errorStyle.Render("❌ " + msg))
}

// Info prints a status update.
func Info(msg string) {
	writeLine(infoStyle.Render("ℹ️  " + msg))
}

// Step prints an indented sub-item.
func Step(msg string) {
	writeLine(stepStyle.Render("   " + msg))
}

// Verbose prints only when verbose mode is on.
func Verbose(msg string) {
	mu.Lock()
	enabled := verboseMode
	mu.Unlock()
	if enabled {
		writeLine(stepStyle.Render("🔍 " + msg))
	}
}
