// Package logging provides the leveled console logger used by every stage of
// a build run, with an optional append-mode log file sink.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/backmassage/kramtex/internal/config"
	"github.com/backmassage/kramtex/internal/term"
)

// Logger provides leveled, optionally colored logging with optional file sink.
// It is safe for concurrent use by dispatcher workers.
type Logger struct {
	mu      sync.Mutex
	palette term.Palette
	verbose bool
	out     io.Writer
	errOut  io.Writer
	file    *os.File
}

// NewLogger resolves colors from cfg and optionally opens cfg.LogFile.
// Call Close when done.
func NewLogger(cfg *config.Config) (*Logger, error) {
	l := &Logger{
		palette: term.NewPalette(cfg.ColorMode, os.Stdout),
		verbose: cfg.Verbose,
		out:     os.Stdout,
		errOut:  os.Stderr,
	}

	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.file = f
	}
	return l, nil
}

// NewWriterLogger returns an uncolored logger that writes every level to w.
// Used by tests and by callers that capture output.
func NewWriterLogger(w io.Writer, verbose bool) *Logger {
	return &Logger{verbose: verbose, out: w, errOut: w}
}

// Palette returns the color palette resolved at construction.
func (l *Logger) Palette() term.Palette { return l.palette }

// Verbose reports whether DEBUG lines are emitted.
func (l *Logger) Verbose() bool { return l.verbose }

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func (l *Logger) line(level, color, text string) {
	ts := time.Now().Format("2006-01-02 15:04:05")
	plain := ts + " [" + level + "] " + text + "\n"

	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.out
	if level == "ERROR" {
		out = l.errOut
	}
	if l.palette.Enabled() {
		_, _ = io.WriteString(out, ts+" "+l.palette.Paint(color, "["+level+"]")+" "+text+"\n")
	} else {
		_, _ = io.WriteString(out, plain)
	}
	if l.file != nil {
		_, _ = io.WriteString(l.file, plain)
	}
}

// Info logs at INFO level (blue).
func (l *Logger) Info(format string, args ...interface{}) {
	l.line("INFO", l.palette.Blue, fmt.Sprintf(format, args...))
}

// Success logs at SUCCESS level (green).
func (l *Logger) Success(format string, args ...interface{}) {
	l.line("SUCCESS", l.palette.Green, fmt.Sprintf(format, args...))
}

// Warn logs at WARN level (yellow).
func (l *Logger) Warn(format string, args ...interface{}) {
	l.line("WARN", l.palette.Yellow, fmt.Sprintf(format, args...))
}

// Error logs at ERROR level (red), to stderr.
func (l *Logger) Error(format string, args ...interface{}) {
	l.line("ERROR", l.palette.Red, fmt.Sprintf(format, args...))
}

// Outlier logs at OUTLIER level (orange). Used for slow-job diagnostics.
func (l *Logger) Outlier(format string, args ...interface{}) {
	l.line("OUTLIER", l.palette.Orange, fmt.Sprintf(format, args...))
}

// Debug logs at DEBUG level (cyan) only when the logger is verbose.
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	l.line("DEBUG", l.palette.Cyan, fmt.Sprintf(format, args...))
}
