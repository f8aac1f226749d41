package chunker

import (
	"strings"
	"testing"
)

func texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

func TestSplit_HardCutWithOverlap(t *testing.T) {
	got := texts(Split("abcdefgh", 3, 1))
	want := []string{"abc", "cde", "efg", "gh"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSplit_BoundarySnapNoOverlap(t *testing.T) {
	got := texts(Split("alpha beta gamma", 10, 0))
	want := []string{"alpha", "beta", "gamma"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSplit_UTF8Safe(t *testing.T) {
	input := strings.Repeat("héllo wörld ", 50)
	for _, c := range Split(input, 17, 3) {
		if !ValidUTF8(c.Text) {
			t.Fatalf("chunk contains invalid utf8: %q", c.Text)
		}
	}
}

func TestSplit_Empty(t *testing.T) {
	if got := Split("", 10, 2); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestSplit_OverlapClampedBelowMax(t *testing.T) {
	// overlap >= maxChars must not infinite-loop; it's clamped internally.
	got := Split("abcdefghij", 4, 10)
	if len(got) == 0 {
		t.Fatal("expected at least one chunk")
	}
}

func TestSplit_NoTrailingReplacementChar(t *testing.T) {
	for _, c := range Split("日本語のテキストです。これはテストです。", 5, 1) {
		if strings.ContainsRune(c.Text, '�') {
			t.Fatalf("chunk contains replacement char: %q", c.Text)
		}
	}
}
