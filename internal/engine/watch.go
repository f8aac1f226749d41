package engine

import (
	"context"

	"github.com/localdocs/localdocs/internal/events"
	"github.com/localdocs/localdocs/internal/store"
	"github.com/localdocs/localdocs/internal/watcher"
)

// StartWatch begins watching the currently configured targets, dispatching
// debounced batches through ReindexFiles using the embedding model and
// chunk settings recorded by the most recent StartIndex. A batch
// observed before any index has run is dropped, since there is no
// last-known model to embed it with.
func (e *Engine) StartWatch(ctx context.Context, sink *events.Sink) error {
	e.mu.Lock()
	if e.watch != nil {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	targets, err := e.listTargetsLocked(ctx)
	if err != nil {
		return err
	}

	onBatch := func(paths []string) {
		e.mu.Lock()
		ready := e.haveLastIndex
		e.mu.Unlock()
		if !ready {
			return
		}

		sink.Reindex <- events.ReindexProgress{Status: events.ReindexStatusQueued, Files: paths}
		reindexSink := events.NewSink(len(paths) + 1)
		go func() {
			err := e.ReindexFiles(ctx, paths, reindexSink)
			reindexSink.Close()
			if err != nil {
				sink.Reindex <- events.ReindexProgress{Status: events.ReindexStatusError, Files: paths, Err: err}
				return
			}
			sink.Reindex <- events.ReindexProgress{Status: events.ReindexStatusDone, Files: paths}
		}()
		for range reindexSink.IndexProgress {
		}
	}

	w, err := watcher.New(e.cfg.Watcher.DebounceWindow, onBatch)
	if err != nil {
		return err
	}
	if err := w.SetTargets(toWatcherTargets(targets)); err != nil {
		_ = w.Close()
		return err
	}

	e.mu.Lock()
	e.watch = w
	e.mu.Unlock()

	sink.Watcher <- events.WatcherStatus{Status: events.WatcherStateWatching, Watched: w.Watched()}
	return nil
}

// StopWatch stops the running watcher, if any.
func (e *Engine) StopWatch() error {
	e.mu.Lock()
	w := e.watch
	e.watch = nil
	e.mu.Unlock()

	if w == nil {
		return nil
	}
	return w.Close()
}

// Watching reports whether a watcher is currently running and, if so, the
// paths it watches.
func (e *Engine) Watching() (bool, []string) {
	e.mu.Lock()
	w := e.watch
	e.mu.Unlock()

	if w == nil {
		return false, nil
	}
	return true, w.Watched()
}

func toWatcherTargets(targets []store.Target) []watcher.Target {
	out := make([]watcher.Target, len(targets))
	for i, t := range targets {
		out[i] = watcher.Target{
			Path:              t.Path,
			IsFolder:          t.Kind == store.TargetKindFolder,
			IncludeSubfolders: t.IncludeSubfolders,
		}
	}
	return out
}
