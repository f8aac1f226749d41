package extract

import (
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"
)

func TestExtractPlainText_SinglePage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(path, []byte("alpha beta gamma"), 0o644); err != nil {
		t.Fatal(err)
	}

	pages, err := extractPlainText(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 || pages[0] != "alpha beta gamma" {
		t.Fatalf("got %v, want single page", pages)
	}
}

func TestExtractPlainText_InvalidUTF8IsReplacedNotDropped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	data := append([]byte("hello "), 0xff, 0xfe)
	data = append(data, []byte(" world")...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	pages, err := extractPlainText(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(pages))
	}
	if !utf8.ValidString(pages[0]) {
		t.Fatalf("page is not valid utf8: %q", pages[0])
	}
}

func TestExtractPlainText_EmptyFileYieldsNoPages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(path, []byte("   \n\t"), 0o644); err != nil {
		t.Fatal(err)
	}

	pages, err := extractPlainText(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 0 {
		t.Fatalf("got %v, want no pages for whitespace-only file", pages)
	}
}

func TestExtractPlainText_MissingFile(t *testing.T) {
	if _, err := extractPlainText(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
