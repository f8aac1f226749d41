package engine

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/localdocs/localdocs/internal/store"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("content"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func candidatePaths(t *testing.T, targets []store.Target) []string {
	t.Helper()
	cands, err := discoverCandidates(targets)
	if err != nil {
		t.Fatal(err)
	}
	paths := make([]string, len(cands))
	for i, c := range cands {
		paths[i] = c.Path
	}
	sort.Strings(paths)
	return paths
}

func TestDiscoverCandidates_FileTarget(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.txt")
	path := filepath.Join(dir, "a.txt")

	got := candidatePaths(t, []store.Target{{Path: path, Kind: store.TargetKindFile}})
	if len(got) != 1 || got[0] != path {
		t.Fatalf("got %v, want [%s]", got, path)
	}
}

func TestDiscoverCandidates_FolderNonRecursiveSkipsNested(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "top.txt", "sub/nested.txt")

	got := candidatePaths(t, []store.Target{{Path: dir, Kind: store.TargetKindFolder, IncludeSubfolders: false}})
	if len(got) != 1 || got[0] != filepath.Join(dir, "top.txt") {
		t.Fatalf("got %v, want only top-level file", got)
	}
}

func TestDiscoverCandidates_FolderRecursiveIncludesNested(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "top.txt", "sub/nested.txt", "sub/deep/deeper.md")

	got := candidatePaths(t, []store.Target{{Path: dir, Kind: store.TargetKindFolder, IncludeSubfolders: true}})
	want := []string{
		filepath.Join(dir, "sub", "deep", "deeper.md"),
		filepath.Join(dir, "sub", "nested.txt"),
		filepath.Join(dir, "top.txt"),
	}
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDiscoverCandidates_SkipsUnsupportedExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "doc.txt", "binary.exe")

	got := candidatePaths(t, []store.Target{{Path: dir, Kind: store.TargetKindFolder}})
	if len(got) != 1 || got[0] != filepath.Join(dir, "doc.txt") {
		t.Fatalf("got %v, want only doc.txt", got)
	}
}

func TestDiscoverCandidates_DedupesOverlappingTargets(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.txt")
	path := filepath.Join(dir, "a.txt")

	got := candidatePaths(t, []store.Target{
		{Path: path, Kind: store.TargetKindFile},
		{Path: dir, Kind: store.TargetKindFolder},
	})
	if len(got) != 1 || got[0] != path {
		t.Fatalf("got %v, want a single deduplicated entry", got)
	}
}

func TestDiscoverCandidates_MissingFolderIsSkippedNotErrored(t *testing.T) {
	cands, err := discoverCandidates([]store.Target{
		{Path: "/does/not/exist", Kind: store.TargetKindFolder},
	})
	if err != nil {
		t.Fatalf("expected no error for a missing folder target, got %v", err)
	}
	if len(cands) != 0 {
		t.Fatalf("got %v, want none", cands)
	}
}
