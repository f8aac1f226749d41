// Package ui renders the progress events emitted by an index, reindex, or
// watch run. A Renderer interface is backed by a plain and a TUI
// implementation; Drive selects across an *events.Sink's channels and
// forwards each payload to whichever Renderer is active.
package ui

import (
	"context"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/localdocs/localdocs/internal/events"
)

// Renderer displays the progress of one index/reindex/watch run.
type Renderer interface {
	Start(ctx context.Context) error
	IndexProgress(events.IndexProgress)
	IndexDone(events.IndexDone)
	Reindex(events.ReindexProgress)
	Watcher(events.WatcherStatus)
	Setup(events.SetupProgress)
	ModelPull(events.ModelPullProgress)
	Stop() error
}

// Config configures a Renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
}

// ConfigOption modifies a Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output, bypassing TTY detection.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) { c.ForcePlain = force }
}

// WithNoColor disables color output in TUI mode.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) { c.NoColor = noColor }
}

// NewConfig builds a Config from an output writer and options.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{Output: output}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewRenderer picks a TUI renderer for interactive terminals and a plain
// line-oriented renderer for pipes, CI, or when ForcePlain is set.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}

	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// Drive forwards every event arriving on sink to r until sink is closed,
// ctx is canceled, or an IndexDone event has been forwarded.
func Drive(ctx context.Context, sink *events.Sink, r Renderer) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sink.IndexProgress:
			if !ok {
				return
			}
			r.IndexProgress(e)
		case e, ok := <-sink.IndexDone:
			if !ok {
				return
			}
			r.IndexDone(e)
			return
		case e, ok := <-sink.Reindex:
			if !ok {
				return
			}
			r.Reindex(e)
		case e, ok := <-sink.Watcher:
			if !ok {
				return
			}
			r.Watcher(e)
		case e, ok := <-sink.Setup:
			if !ok {
				return
			}
			r.Setup(e)
		case e, ok := <-sink.ModelPull:
			if !ok {
				return
			}
			r.ModelPull(e)
		}
	}
}

// IsTTY reports whether w is a terminal file descriptor.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectNoColor reports whether NO_COLOR is set in the environment.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI reports whether a known CI environment variable is set.
func DetectCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"} {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
