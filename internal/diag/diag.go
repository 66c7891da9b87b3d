// Package diag builds the diagnostic context shared by every component of a
// server process: one slog sink (stderr, optionally duplicated into a file
// under ./log) and one profiler. It is constructed once at process entry and
// handed to components explicitly.
package diag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ggoodman/lsp-server-go/internal/logctx"
	"github.com/ggoodman/lsp-server-go/internal/profile"
	"github.com/ggoodman/lsp-server-go/internal/startup"
)

// LogDir is the directory, relative to the working directory, that receives
// log files when file logging is enabled.
const LogDir = "log"

// Diagnostics is the process-wide diagnostic context.
type Diagnostics struct {
	Logger   *slog.Logger
	Profiler *profile.Profiler

	// LogPath is the log file in use, empty when logging only to stderr.
	LogPath string

	level   *slog.LevelVar
	logFile *os.File
}

type options struct {
	stderr      io.Writer
	baseDir     string
	now         func() time.Time
	programName string
}

// Option customizes Init.
type Option func(*options)

// WithStderr overrides the interactive error stream. Defaults to os.Stderr.
func WithStderr(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.stderr = w
		}
	}
}

// WithBaseDir resolves LogDir against dir instead of the working directory.
func WithBaseDir(dir string) Option {
	return func(o *options) { o.baseDir = dir }
}

// WithProgramName sets the log file name prefix and the profiling service name.
func WithProgramName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.programName = name
		}
	}
}

// WithClock overrides the time source used to name log files.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Init configures the diagnostic sink and profiler from cfg. Any error is a
// startup failure: the caller must not start a session.
func Init(ctx context.Context, cfg startup.Config, opts ...Option) (*Diagnostics, error) {
	o := options{stderr: os.Stderr, now: time.Now, programName: "lsp-server"}
	for _, opt := range opts {
		opt(&o)
	}

	lvl, err := ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	d := &Diagnostics{level: new(slog.LevelVar)}
	d.level.Set(lvl)

	hopts := &slog.HandlerOptions{Level: d.level}
	handlers := []slog.Handler{slog.NewTextHandler(o.stderr, hopts)}

	if cfg.FileLogging() {
		dir := filepath.Join(o.baseDir, LogDir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		name := fmt.Sprintf("%s_%s.log", o.programName, o.now().Format("2006-01-02_15-04-05"))
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		d.logFile = f
		d.LogPath = path
		handlers = append(handlers, slog.NewTextHandler(f, hopts))
	}

	var h slog.Handler = handlers[0]
	if len(handlers) > 1 {
		h = fanout(handlers)
	}
	d.Logger = slog.New(logctx.Handler{Handler: h})

	filter, err := profile.ParseFilter(cfg.Profile)
	if err != nil {
		d.closeFile()
		return nil, err
	}
	d.Profiler, err = profile.New(ctx, filter,
		profile.WithOutput(o.stderr),
		profile.WithOTLPEndpoint(cfg.OTLPEndpoint),
		profile.WithServiceName(o.programName),
	)
	if err != nil {
		d.closeFile()
		return nil, err
	}

	return d, nil
}


// Close flushes the profiler and closes the log file.
func (d *Diagnostics) Close(ctx context.Context) error {
	if d == nil {
		return nil
	}
	return errors.Join(d.Profiler.Shutdown(ctx), d.closeFile())
}

func (d *Diagnostics) closeFile() error {
	if d.logFile == nil {
		return nil
	}
	err := d.logFile.Close()
	d.logFile = nil
	return err
}
