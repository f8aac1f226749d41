package modelclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	t.Cleanup(c.Close)
	return c
}

func TestNormalizeBaseURL(t *testing.T) {
	cases := map[string]string{
		"localhost:11434":          "http://localhost:11434/api",
		"http://localhost:11434/":  "http://localhost:11434/api",
		"http://localhost:11434":   "http://localhost:11434/api",
		"https://host:1/api/":      "https://host:1/api",
		"https://host:1/api":       "https://host:1/api",
		" ":                       DefaultBaseURL,
		"":                        DefaultBaseURL,
		"  localhost:1234  ":      "http://localhost:1234/api",
	}
	for in, want := range cases {
		if got := NormalizeBaseURL(in); got != want {
			t.Errorf("NormalizeBaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEmbed_SingleInputUsesStringBody(t *testing.T) {
	var gotInput any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body embedRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotInput = body.Input
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{1, 2, 3}}})
	})

	vecs, err := c.Embed(context.Background(), "m", []string{"hello"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 1 || len(vecs[0]) != 3 {
		t.Fatalf("got %v", vecs)
	}
	if _, ok := gotInput.(string); !ok {
		t.Fatalf("expected single-input body to be a string, got %T", gotInput)
	}
}

func TestEmbed_MultiInputUsesArrayBody(t *testing.T) {
	var gotInput any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body embedRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotInput = body.Input
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{1}, {2}}})
	})

	_, err := c.Embed(context.Background(), "m", []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := gotInput.([]any); !ok {
		t.Fatalf("expected multi-input body to be an array, got %T", gotInput)
	}
}

func TestChat_ReturnsMessageContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse{Message: Message{Role: "assistant", Content: "hi there"}, Done: true})
	})

	got, err := c.Chat(context.Background(), "m", []Message{{Role: "user", Content: "hello"}})
	if err != nil {
		t.Fatal(err)
	}
	if got != "hi there" {
		t.Fatalf("got %q, want %q", got, "hi there")
	}
}

func TestChat_ServerErrorFieldPropagates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse{Error: "model not found"})
	})

	_, err := c.Chat(context.Background(), "m", nil)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestChat_NonOKStatusReturnsHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	})

	_, err := c.Chat(context.Background(), "m", nil)
	var httpErr *HTTPError
	if err == nil {
		t.Fatal("expected error")
	}
	if !asHTTPError(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %T: %v", err, err)
	}
	if httpErr.StatusCode != 500 {
		t.Fatalf("got status %d, want 500", httpErr.StatusCode)
	}
}

func asHTTPError(err error, target **HTTPError) bool {
	if he, ok := err.(*HTTPError); ok {
		*target = he
		return true
	}
	return false
}

func TestChatStream_AccumulatesDeltasAndStopsAtDone(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		lines := []string{
			`{"message":{"role":"assistant","content":"Hel"}}`,
			`{"message":{"role":"assistant","content":"lo"}}`,
			`{"message":{"content":""},"done":true}`,
		}
		for _, l := range lines {
			fmt.Fprintln(w, l)
		}
	})

	var deltas []string
	got, err := c.ChatStream(context.Background(), "m", nil, func(d string) { deltas = append(deltas, d) })
	if err != nil {
		t.Fatal(err)
	}
	if got != "Hello" {
		t.Fatalf("got %q, want Hello", got)
	}
	if len(deltas) != 2 {
		t.Fatalf("got %d deltas, want 2", len(deltas))
	}
}

func TestChatStream_DataPrefixAndDoneSentinel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `data: {"message":{"content":"ok"}}`)
		fmt.Fprintln(w, `[DONE]`)
	})

	got, err := c.ChatStream(context.Background(), "m", nil, func(string) {})
	if err != nil {
		t.Fatal(err)
	}
	if got != "ok" {
		t.Fatalf("got %q, want ok", got)
	}
}

func TestChatStream_ErrorRecordTerminatesStream(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"error":"context deadline"}`)
	})

	_, err := c.ChatStream(context.Background(), "m", nil, func(string) {})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestListModels(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(modelListResponse{Models: []ModelInfo{{Name: "llama3.1"}}})
	})

	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(models) != 1 || models[0].Name != "llama3.1" {
		t.Fatalf("got %v", models)
	}
}

func TestIsTimeout_ContextDeadlineExceeded(t *testing.T) {
	if !IsTimeout(context.DeadlineExceeded) {
		t.Fatal("expected context.DeadlineExceeded to be a timeout")
	}
	if IsTimeout(nil) {
		t.Fatal("nil should not be a timeout")
	}
	if IsTimeout(fmt.Errorf("some other error")) {
		t.Fatal("unrelated error should not be a timeout")
	}
}
