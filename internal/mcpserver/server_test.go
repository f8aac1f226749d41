package mcpserver

import (
	"context"
	"testing"

	"github.com/localdocs/localdocs/internal/retriever"
)

func TestToSourceOutputs_MapsAllFields(t *testing.T) {
	sources := []retriever.Source{
		{FilePath: "/docs/a.txt", Page: 3, Snippet: "alpha", Distance: 0.12},
	}
	out := toSourceOutputs(sources)
	if len(out) != 1 {
		t.Fatalf("got %d outputs, want 1", len(out))
	}
	got := out[0]
	if got.FilePath != "/docs/a.txt" || got.Page != 3 || got.Snippet != "alpha" || got.Distance != 0.12 {
		t.Fatalf("got %+v", got)
	}
}

func TestToSourceOutputs_Empty(t *testing.T) {
	out := toSourceOutputs(nil)
	if len(out) != 0 {
		t.Fatalf("got %v, want empty", out)
	}
}

func TestHandleSetBaseURL_EmptyHostRejectedBeforeTouchingEngine(t *testing.T) {
	s := &Server{} // eng is nil: a nil dereference here would mean the
	// empty-host guard didn't short-circuit before reaching the engine.
	_, _, err := s.handleSetBaseURL(context.Background(), nil, SetBaseURLInput{Host: ""})
	if err == nil {
		t.Fatal("expected an error for an empty host")
	}
}

func TestHandleChat_EmptyQuestionRejectedBeforeTouchingEngine(t *testing.T) {
	s := &Server{}
	_, _, err := s.handleChat(context.Background(), nil, ChatInput{Question: ""})
	if err == nil {
		t.Fatal("expected an error for an empty question")
	}
}
