package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestWatcher(t *testing.T, window time.Duration) (*Watcher, *batchCollector) {
	t.Helper()
	bc := &batchCollector{}
	w, err := New(window, bc.onBatch)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w, bc
}

type batchCollector struct {
	mu      sync.Mutex
	batches [][]string
}

func (b *batchCollector) onBatch(paths []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.batches = append(b.batches, paths)
}

func (b *batchCollector) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.batches)
}

func (b *batchCollector) last() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.batches) == 0 {
		return nil
	}
	return b.batches[len(b.batches)-1]
}

func TestAdmitLocked_RejectsWithinWindowAdmitsAfter(t *testing.T) {
	w, _ := newTestWatcher(t, 50*time.Millisecond)

	if !w.admitLocked("/a.txt") {
		t.Fatal("first event for a path should be admitted")
	}
	if w.admitLocked("/a.txt") {
		t.Fatal("second event within the debounce window should be rejected")
	}
	time.Sleep(60 * time.Millisecond)
	if !w.admitLocked("/a.txt") {
		t.Fatal("event after the debounce window elapses should be admitted")
	}
}

func TestInTargetsLocked_FileTarget(t *testing.T) {
	w, _ := newTestWatcher(t, time.Second)
	w.fileTargets["/docs/a.txt"] = struct{}{}

	if !w.inTargetsLocked("/docs/a.txt") {
		t.Fatal("expected exact file target match")
	}
	if w.inTargetsLocked("/docs/b.txt") {
		t.Fatal("unrelated path should not match")
	}
}

func TestInTargetsLocked_FolderNonRecursiveOnlyDirectChildren(t *testing.T) {
	w, _ := newTestWatcher(t, time.Second)
	w.folderTargets = []folderTarget{{root: "/docs", recursive: false}}

	if !w.inTargetsLocked("/docs/a.txt") {
		t.Fatal("direct child should match")
	}
	if w.inTargetsLocked("/docs/sub/a.txt") {
		t.Fatal("nested descendant should not match non-recursive folder target")
	}
}

func TestInTargetsLocked_FolderRecursiveMatchesDescendants(t *testing.T) {
	w, _ := newTestWatcher(t, time.Second)
	w.folderTargets = []folderTarget{{root: "/docs", recursive: true}}

	if !w.inTargetsLocked("/docs/sub/deep/a.txt") {
		t.Fatal("deep descendant should match recursive folder target")
	}
	if w.inTargetsLocked("/other/a.txt") {
		t.Fatal("unrelated path should not match")
	}
}

func TestWatcher_FileTargetTriggersBatchOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(path, []byte("initial"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, bc := newTestWatcher(t, 80*time.Millisecond)
	if err := w.SetTargets([]Target{{Path: path, IsFolder: false}}); err != nil {
		t.Fatalf("SetTargets: %v", err)
	}

	if err := os.WriteFile(path, []byte("updated content"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for bc.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}

	if bc.count() == 0 {
		t.Fatal("expected at least one batch after writing a watched file")
	}
	batch := bc.last()
	if len(batch) != 1 || batch[0] != path {
		t.Fatalf("got batch %v, want [%s]", batch, path)
	}
}

func TestWatcher_UnsupportedExtensionIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "binary.exe")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, bc := newTestWatcher(t, 80*time.Millisecond)
	if err := w.SetTargets([]Target{{Path: path, IsFolder: false}}); err != nil {
		t.Fatalf("SetTargets: %v", err)
	}

	if err := os.WriteFile(path, []byte("more"), 0o644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)
	if bc.count() != 0 {
		t.Fatalf("expected unsupported extension to produce no batches, got %d", bc.count())
	}
}

func TestWatcher_FolderNonRecursiveIgnoresNestedSubdirectory(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	w, bc := newTestWatcher(t, 80*time.Millisecond)
	if err := w.SetTargets([]Target{{Path: dir, IsFolder: true, IncludeSubfolders: false}}); err != nil {
		t.Fatalf("SetTargets: %v", err)
	}

	nested := filepath.Join(sub, "doc.txt")
	if err := os.WriteFile(nested, []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)
	if bc.count() != 0 {
		t.Fatalf("expected nested file under non-recursive folder target to be ignored, got %d batches", bc.count())
	}
}

func TestWatcher_Watched_ReflectsSetTargets(t *testing.T) {
	dir := t.TempDir()
	w, _ := newTestWatcher(t, time.Second)
	if err := w.SetTargets([]Target{{Path: dir, IsFolder: true, IncludeSubfolders: false}}); err != nil {
		t.Fatalf("SetTargets: %v", err)
	}

	watched := w.Watched()
	if len(watched) != 1 || watched[0] != dir {
		t.Fatalf("got %v, want [%s]", watched, dir)
	}
}

func TestWatcher_CloseIsIdempotent(t *testing.T) {
	w, err := New(time.Second, func([]string) {})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got %v", err)
	}
}
