// Package logger provides debug logging for pdf2xml.
// When --debug is set, messages are printed to stderr to show what the
// engine and the normalizer are doing. Level prefixes are coloured when
// the output is a terminal.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	styles            = newStyles(os.Stderr)
)

type levelStyles struct {
	debug, info, warn, section lipgloss.Style
}

func newStyles(w io.Writer) levelStyles {
	r := lipgloss.NewRenderer(w)
	return levelStyles{
		debug:   r.NewStyle().Foreground(lipgloss.Color("8")),
		info:    r.NewStyle().Foreground(lipgloss.Color("12")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		section: r.NewStyle().Bold(true),
	}
}

// SetVerbose enables or disables debug logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if debug logging is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer. Defaults to os.Stderr.
// Prefixes are plain unless w is a terminal.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	styles = newStyles(w)
}

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
)

func (s levelStyles) prefix(l level) string {
	switch l {
	case levelInfo:
		return s.info.Render("[INFO]")
	case levelWarn:
		return s.warn.Render("[WARN]")
	}
	return s.debug.Render("[DEBUG]")
}

func logf(l level, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, styles.prefix(l)+" "+format+"\n", args...)
	}
}

// Debug prints a message if debug logging is enabled.
func Debug(format string, args ...any) {
	logf(levelDebug, format, args...)
}

// Info prints an informational message if debug logging is enabled.
func Info(format string, args ...any) {
	logf(levelInfo, format, args...)
}

// Warn prints a warning if debug logging is enabled.
func Warn(format string, args ...any) {
	logf(levelWarn, format, args...)
}

// Section prints a section header if debug logging is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n%s\n", styles.section.Render("=== "+name+" ==="))
	}
}
