// Package logger provides the leveled console logger used for catp's
// diagnostic output. All messages go to a single writer (normally stderr);
// the output artifact itself is never written through the logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Log level constants for filtering
const (
	levelDebug int = 0
	levelInfo  int = 1
	levelWarn  int = 2
	levelError int = 3
)

// Console logs filtering and progress decisions to a writer with level
// filtering and thread safety. Color output is enabled automatically when
// the writer is a terminal.
type Console struct {
	writer      io.Writer
	level       int
	mutex       sync.Mutex
	colorOutput bool
}

// New creates a Console that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: debug, info, warn, error (case-insensitive); anything
// else defaults to "info".
func New(writer io.Writer, level string) *Console {
	return &Console{
		writer:      writer,
		level:       levelFromString(level),
		colorOutput: IsTerminal(writer),
	}
}

// NewFromVerbosity maps the CLI verbosity toggles onto a level: quiet
// raises the threshold to warn, verbose lowers it to debug.
func NewFromVerbosity(writer io.Writer, quiet, verbose bool) *Console {
	switch {
	case quiet:
		return New(writer, "warn")
	case verbose:
		return New(writer, "debug")
	default:
		return New(writer, "info")
	}
}

// IsTerminal checks if the writer is a terminal that supports colors.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func levelFromString(level string) int {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return levelDebug
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// Debugf logs a debug-level message. Used for per-path filtering decisions.
func (c *Console) Debugf(format string, args ...any) {
	c.logf(levelDebug, format, args...)
}

// Infof logs an info-level message.
func (c *Console) Infof(format string, args ...any) {
	c.logf(levelInfo, format, args...)
}

// Warnf logs a warning-level message.
func (c *Console) Warnf(format string, args ...any) {
	c.logf(levelWarn, format, args...)
}

// Errorf logs an error-level message.
func (c *Console) Errorf(format string, args ...any) {
	c.logf(levelError, format, args...)
}

func (c *Console) logf(level int, format string, args ...any) {
	if c == nil || c.writer == nil || level < c.level {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	message := fmt.Sprintf(format, args...)
	if c.colorOutput {
		message = colorForLevel(level).Sprint(message)
	}
	fmt.Fprintln(c.writer, message)
}

func colorForLevel(level int) *color.Color {
	switch level {
	case levelDebug:
		return color.New(color.FgCyan)
	case levelWarn:
		return color.New(color.FgYellow)
	case levelError:
		return color.New(color.FgRed)
	default:
		return color.New(color.Reset)
	}
}
