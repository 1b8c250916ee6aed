// Package logging builds the audit logger shared by every ucwallet component.
//
// Entries always go to a size-rotated file; a console writer can be added for
// verbose runs. User-facing output is not logged here, it is printed through
// the ui package.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for the log file.
const (
	maxSizeMB  = 10
	maxBackups = 3
	maxAgeDays = 28
)

// Options configures New.
type Options struct {
	File    string    // rotated log file; empty disables file output
	Level   string    // debug | info | warn | error
	Console io.Writer // optional second sink, usually os.Stderr
	Prefix  string
}

// Logger is a charmbracelet logger plus the file it owns.
type Logger struct {
	*log.Logger
	file *lumberjack.Logger
}

// New creates a logger according to opts.
func New(opts Options) (*Logger, error) {
	level := log.InfoLevel
	if opts.Level != "" {
		lvl, err := log.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("log level %q: %w", opts.Level, err)
		}
		level = lvl
	}

	var (
		sinks []io.Writer
		file  *lumberjack.Logger
	)
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o700); err != nil {
			return nil, fmt.Errorf("creating log dir: %w", err)
		}
		file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
		}
		sinks = append(sinks, file)
	}
	if opts.Console != nil {
		sinks = append(sinks, opts.Console)
	}

	var w io.Writer = io.Discard
	switch len(sinks) {
	case 0:
	case 1:
		w = sinks[0]
	default:
		w = io.MultiWriter(sinks...)
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "ucwallet"
	}

	l := log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
	return &Logger{Logger: l, file: file}, nil
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Discard returns a logger that drops everything. Used by tests and by
// commands that run before configuration is loaded.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
