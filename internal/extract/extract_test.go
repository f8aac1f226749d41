package extract

import "testing"

func TestKindFromExt(t *testing.T) {
	cases := map[string]Kind{
		".txt":      KindTXT,
		".TXT":      KindTXT,
		".md":       KindMD,
		".markdown": KindMD,
		".docx":     KindDOCX,
		".pdf":      KindPDF,
	}
	for ext, want := range cases {
		got, ok := KindFromExt(ext)
		if !ok || got != want {
			t.Errorf("KindFromExt(%q) = (%q, %v), want (%q, true)", ext, got, ok, want)
		}
	}
	if _, ok := KindFromExt(".exe"); ok {
		t.Error("KindFromExt(.exe) should not be supported")
	}
}

func TestClean_ReplacesNULAndTrims(t *testing.T) {
	got := clean("  hello\x00world  \n")
	want := "hello world"
	if got != want {
		t.Errorf("clean() = %q, want %q", got, want)
	}
}

func TestSplitFormFeed(t *testing.T) {
	got := splitFormFeed("page one\x0Cpage two\x0Cpage three")
	want := []string{"page one", "page two", "page three"}
	if len(got) != len(want) {
		t.Fatalf("got %d pages, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("page %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitFormFeed_NoFormFeedIsSinglePage(t *testing.T) {
	got := splitFormFeed("just one page")
	if len(got) != 1 || got[0] != "just one page" {
		t.Fatalf("got %v, want single page", got)
	}
}

func TestNonEmptyPages_DropsBlankPages(t *testing.T) {
	got := nonEmptyPages([]string{"hello", "   ", "", "world"})
	if len(got) != 2 || got[0] != "hello" || got[1] != "world" {
		t.Fatalf("got %v, want [hello world]", got)
	}
}

func TestTotalChars(t *testing.T) {
	if n := totalChars([]string{"abc", "de"}); n != 5 {
		t.Errorf("totalChars = %d, want 5", n)
	}
}
