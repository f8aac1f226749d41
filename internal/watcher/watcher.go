package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/localdocs/localdocs/internal/extract"
)

// Target is the watcher's view of one configured target, mirroring
// store.Target without importing the store package (the watcher only needs
// membership-testing fields).
type Target struct {
	Path              string
	IsFolder          bool
	IncludeSubfolders bool
}

// ReindexFunc is invoked with a deduplicated batch of changed paths once
// debounce admits them. It should dispatch the batch using the last-known
// embedding model and index settings; if none have been recorded yet, the
// caller is expected to drop the batch silently.
type ReindexFunc func(paths []string)

// Watcher watches the current target set and calls onBatch for each
// admitted batch of changed-file paths.
type Watcher struct {
	fsw     *fsnotify.Watcher
	window  time.Duration
	onBatch ReindexFunc

	mu            sync.Mutex
	watchedPaths  map[string]struct{}
	fileTargets   map[string]struct{}
	folderTargets []folderTarget
	lastSeen      map[string]time.Time
	pending       map[string]struct{}
	flushTimer    *time.Timer
	stopCh        chan struct{}
	stopped       bool
}

type folderTarget struct {
	root      string
	recursive bool
}

// New creates a Watcher with the given debounce window and batch callback.
func New(window time.Duration, onBatch ReindexFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w := &Watcher{
		fsw:          fsw,
		window:       window,
		onBatch:      onBatch,
		watchedPaths: make(map[string]struct{}),
		fileTargets:  make(map[string]struct{}),
		lastSeen:     make(map[string]time.Time),
		pending:      make(map[string]struct{}),
		stopCh:       make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Watched returns the currently-watched paths, for the watcher_status
// event payload.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.watchedPaths))
	for p := range w.watchedPaths {
		out = append(out, p)
	}
	return out
}

// SetTargets (re)creates the recommended platform watch over targets:
// a File target watches the file itself if present, otherwise its
// parent directory, non-recursively; a Folder target watches recursively
// iff IncludeSubfolders.
func (w *Watcher) SetTargets(targets []Target) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for p := range w.watchedPaths {
		_ = w.fsw.Remove(p)
	}
	w.watchedPaths = make(map[string]struct{})
	w.fileTargets = make(map[string]struct{})
	w.folderTargets = nil

	for _, t := range targets {
		if !t.IsFolder {
			w.fileTargets[t.Path] = struct{}{}
			watchPath := t.Path
			if _, err := os.Stat(t.Path); err != nil {
				watchPath = filepath.Dir(t.Path)
			}
			if err := w.addWatch(watchPath); err != nil {
				return err
			}
			continue
		}

		w.folderTargets = append(w.folderTargets, folderTarget{root: t.Path, recursive: t.IncludeSubfolders})
		if t.IncludeSubfolders {
			if err := w.addWatchRecursive(t.Path); err != nil {
				return err
			}
		} else {
			if err := w.addWatch(t.Path); err != nil {
				return err
			}
		}
	}

	return nil
}

func (w *Watcher) addWatch(path string) error {
	if _, ok := w.watchedPaths[path]; ok {
		return nil
	}
	if err := w.fsw.Add(path); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	w.watchedPaths[path] = struct{}{}
	return nil
}

func (w *Watcher) addWatchRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // best-effort: an unreadable subdirectory doesn't abort the whole watch
		}
		if d.IsDir() {
			_ = w.addWatch(path)
		}
		return nil
	})
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	w.mu.Unlock()

	close(w.stopCh)
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// Non-fatal watch errors are surfaced via the watcher_status
			// event by the caller's engine layer, not here.
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}
	if _, ok := extract.KindFromExt(filepath.Ext(path)); !ok {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.inTargetsLocked(path) {
		return
	}
	if !w.admitLocked(path) {
		return
	}

	w.pending[path] = struct{}{}
	w.scheduleFlushLocked()
}

// inTargetsLocked reports whether path is covered by a literal file
// target, a direct child of a non-recursive folder root, or a descendant
// of a recursive folder root.
func (w *Watcher) inTargetsLocked(path string) bool {
	if _, ok := w.fileTargets[path]; ok {
		return true
	}
	for _, ft := range w.folderTargets {
		if ft.recursive {
			if strings.HasPrefix(path, strings.TrimSuffix(ft.root, "/")+"/") {
				return true
			}
		} else if filepath.Dir(path) == filepath.Clean(ft.root) {
			return true
		}
	}
	return false
}

// admitLocked applies the debounce rule: reject if the same path
// emitted an event within the last window; otherwise record the new
// timestamp and admit it.
func (w *Watcher) admitLocked(path string) bool {
	now := time.Now()
	if last, ok := w.lastSeen[path]; ok && now.Sub(last) < w.window {
		return false
	}
	w.lastSeen[path] = now
	return true
}

func (w *Watcher) scheduleFlushLocked() {
	if w.flushTimer != nil {
		w.flushTimer.Stop()
	}
	w.flushTimer = time.AfterFunc(w.window, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	batch := make([]string, 0, len(w.pending))
	for p := range w.pending {
		batch = append(batch, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	if w.onBatch != nil {
		w.onBatch(batch)
	}
}
