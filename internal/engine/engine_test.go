package engine

import (
	"strings"
	"testing"

	"github.com/localdocs/localdocs/internal/retriever"
)

func TestBuildChatMessages_SystemMessageCitesNumberedSources(t *testing.T) {
	sources := []retriever.Source{
		{FilePath: "/docs/a.txt", Page: 1, Snippet: "alpha content"},
		{FilePath: "/docs/b.txt", Page: 2, Snippet: "beta content"},
	}

	msgs := buildChatMessages("what is alpha?", sources)
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2 (system + user)", len(msgs))
	}
	if msgs[0].Role != "system" {
		t.Fatalf("got role %q, want system", msgs[0].Role)
	}
	if msgs[1].Role != "user" || msgs[1].Content != "what is alpha?" {
		t.Fatalf("got %+v, want user message echoing the question", msgs[1])
	}

	system := msgs[0].Content
	for _, want := range []string{"[1] /docs/a.txt", "[2] /docs/b.txt", "alpha content", "beta content"} {
		if !strings.Contains(system, want) {
			t.Errorf("system message missing %q:\n%s", want, system)
		}
	}
}

func TestBuildChatMessages_NoSourcesStillProducesTwoMessages(t *testing.T) {
	msgs := buildChatMessages("hello", nil)
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[1].Content != "hello" {
		t.Fatalf("got %q, want hello", msgs[1].Content)
	}
}
