package ui

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/localdocs/localdocs/internal/events"
)

// PlainRenderer prints one line per event, for CI and piped output.
type PlainRenderer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{out: cfg.Output}
}

func (r *PlainRenderer) Start(ctx context.Context) error { return nil }
func (r *PlainRenderer) Stop() error                     { return nil }

func (r *PlainRenderer) IndexProgress(e events.IndexProgress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch e.Status {
	case events.IndexStatusError:
		fmt.Fprintf(r.out, "[%d/%d] error: %s: %v\n", e.Current, e.Total, e.File, e.Err)
	case events.IndexStatusSkip:
		fmt.Fprintf(r.out, "[%d/%d] skip: %s\n", e.Current, e.Total, e.File)
	case events.IndexStatusMissing:
		fmt.Fprintf(r.out, "[%d/%d] missing: %s\n", e.Current, e.Total, e.File)
	default:
		fmt.Fprintf(r.out, "[%d/%d] %s: %s\n", e.Current, e.Total, e.Status, e.File)
	}
}

func (r *PlainRenderer) IndexDone(e events.IndexDone) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.out, "done: %d files, %d chunks in %s", e.Files, e.Chunks, e.Duration.Round(1e8))
	if e.Errors > 0 || e.Warnings > 0 {
		fmt.Fprintf(r.out, " (%d errors, %d warnings)", e.Errors, e.Warnings)
	}
	fmt.Fprintln(r.out)
}

func (r *PlainRenderer) Reindex(e events.ReindexProgress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch e.Status {
	case events.ReindexStatusQueued:
		fmt.Fprintf(r.out, "reindex queued: %d files\n", len(e.Files))
	case events.ReindexStatusError:
		fmt.Fprintf(r.out, "reindex error: %v\n", e.Err)
	default:
		fmt.Fprintf(r.out, "reindex done: %d files\n", len(e.Files))
	}
}

func (r *PlainRenderer) Watcher(e events.WatcherStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.Status == events.WatcherStateError {
		fmt.Fprintf(r.out, "watcher error: %v\n", e.Err)
		return
	}
	fmt.Fprintf(r.out, "watching %d paths\n", len(e.Watched))
}

func (r *PlainRenderer) Setup(e events.SetupProgress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "setup [%s] %s\n", e.Stage, e.Message)
}

func (r *PlainRenderer) ModelPull(e events.ModelPullProgress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.Total > 0 {
		pct := float64(e.Completed) / float64(e.Total) * 100
		fmt.Fprintf(r.out, "\rpulling %s: %s %.0f%%", e.Model, e.Status, pct)
		return
	}
	fmt.Fprintf(r.out, "pulling %s: %s\n", e.Model, e.Status)
}
