package embedpipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/localdocs/localdocs/internal/modelclient"
)

type embedRequestBody struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

// inputTexts normalizes the decoded "input" field (string or []any) back
// into a []string, mirroring how the model server would see either shape.
func inputTexts(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, len(t))
		for i, x := range t {
			out[i], _ = x.(string)
		}
		return out
	default:
		return nil
	}
}

func fakeVector(seed int, dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = float32(seed + i)
	}
	return v
}

func newPipelineClient(t *testing.T, timeout time.Duration, handler http.HandlerFunc) *modelclient.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := modelclient.New(modelclient.Config{BaseURL: srv.URL, Timeout: timeout})
	t.Cleanup(c.Close)
	return c
}

func TestProbeDimension_ReturnsVectorLength(t *testing.T) {
	client := newPipelineClient(t, 2*time.Second, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{fakeVector(1, 5)}})
	})
	p := New(client, DefaultConfig("nomic-embed-text"))

	dim, err := p.ProbeDimension(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if dim != 5 {
		t.Fatalf("got dim %d, want 5", dim)
	}
}

func TestProbeDimension_ZeroLengthVectorErrors(t *testing.T) {
	client := newPipelineClient(t, 2*time.Second, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{{}}})
	})
	p := New(client, DefaultConfig("m"))

	if _, err := p.ProbeDimension(context.Background()); err == nil {
		t.Fatal("expected error for zero-length embedding")
	}
}

func TestEmbedAll_CachesRepeatedText(t *testing.T) {
	var calls int32
	client := newPipelineClient(t, 2*time.Second, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var body embedRequestBody
		json.NewDecoder(r.Body).Decode(&body)
		texts := inputTexts(body.Input)
		vecs := make([][]float32, len(texts))
		for i := range texts {
			vecs[i] = fakeVector(1, 3)
		}
		json.NewEncoder(w).Encode(map[string]any{"embeddings": vecs})
	})
	cfg := DefaultConfig("m")
	cfg.BatchSize = 10
	cfg.Parallelism = 1
	p := New(client, cfg)

	_, err := p.EmbedAll(context.Background(), []string{"same text", "same text"})
	if err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("got %d server calls, want 1 (second occurrence should hit cache)", calls)
	}
}

func TestEmbedAll_ReturnsVectorsInOrder(t *testing.T) {
	client := newPipelineClient(t, 2*time.Second, func(w http.ResponseWriter, r *http.Request) {
		var body embedRequestBody
		json.NewDecoder(r.Body).Decode(&body)
		texts := inputTexts(body.Input)
		vecs := make([][]float32, len(texts))
		for i, t := range texts {
			n := len(t)
			vecs[i] = fakeVector(n, 2)
		}
		json.NewEncoder(w).Encode(map[string]any{"embeddings": vecs})
	})
	cfg := DefaultConfig("m")
	cfg.BatchSize = 2
	cfg.CacheSize = 0
	p := New(client, cfg)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := p.EmbedAll(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("got %d results, want %d", len(vecs), len(texts))
	}
	for i, text := range texts {
		want := float32(len(text))
		if vecs[i][0] != want {
			t.Errorf("index %d: got %v, want first elem %v", i, vecs[i], want)
		}
	}
}

func TestEmbedBatch_OversizeInputFallsBackToPerChunk(t *testing.T) {
	client := newPipelineClient(t, 2*time.Second, func(w http.ResponseWriter, r *http.Request) {
		var body embedRequestBody
		json.NewDecoder(r.Body).Decode(&body)
		texts := inputTexts(body.Input)
		if len(texts) > 1 {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			w.Write([]byte(`{"error":"input exceeds context length limit"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{fakeVector(1, 3)}})
	})
	cfg := DefaultConfig("m")
	cfg.BatchSize = 10
	cfg.CacheSize = 0
	p := New(client, cfg)

	vecs, err := p.EmbedAll(context.Background(), []string{"one", "two", "three"})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range vecs {
		if v == nil {
			t.Errorf("index %d: expected a vector from per-chunk fallback, got nil", i)
		}
	}
}

func TestEmbedWithRetry_TimeoutSplitsBatch(t *testing.T) {
	client := newPipelineClient(t, 80*time.Millisecond, func(w http.ResponseWriter, r *http.Request) {
		var body embedRequestBody
		json.NewDecoder(r.Body).Decode(&body)
		texts := inputTexts(body.Input)
		if len(texts) > 1 {
			time.Sleep(300 * time.Millisecond)
		}
		vecs := make([][]float32, len(texts))
		for i := range texts {
			vecs[i] = fakeVector(1, 3)
		}
		json.NewEncoder(w).Encode(map[string]any{"embeddings": vecs})
	})
	cfg := DefaultConfig("m")
	cfg.BatchSize = 10
	cfg.CacheSize = 0
	p := New(client, cfg)

	vecs, err := p.EmbedAll(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 2 || vecs[0] == nil || vecs[1] == nil {
		t.Fatalf("expected both chunks embedded after batch split, got %v", vecs)
	}
}

func TestEmbedAll_PropagatesNonRetryableError(t *testing.T) {
	client := newPipelineClient(t, 2*time.Second, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal error"))
	})
	cfg := DefaultConfig("m")
	cfg.BatchSize = 10
	p := New(client, cfg)

	_, err := p.EmbedAll(context.Background(), []string{"one"})
	if err == nil {
		t.Fatal("expected a 500 response to propagate as an error")
	}
}

func TestOversizeFallback_ShortTextIsSkipped(t *testing.T) {
	client := newPipelineClient(t, 2*time.Second, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("oversizeFallback should not call the server for text under FallbackChars")
	})
	cfg := DefaultConfig("m")
	cfg.FallbackChars = 800
	p := New(client, cfg)

	v, err := p.oversizeFallback(context.Background(), "short text")
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Fatalf("expected nil (skip) for short text, got %v", v)
	}
}

func TestOversizeFallback_CombinesSurvivingSubVectorsByAverage(t *testing.T) {
	client := newPipelineClient(t, 2*time.Second, func(w http.ResponseWriter, r *http.Request) {
		var body embedRequestBody
		json.NewDecoder(r.Body).Decode(&body)
		texts := inputTexts(body.Input)
		json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{{float32(len(texts[0])), 1}}})
	})
	cfg := DefaultConfig("m")
	cfg.FallbackChars = 10
	cfg.FallbackStrategy = StrategyAverage
	p := New(client, cfg)

	longText := strings.Repeat("a", 40)
	v, err := p.oversizeFallback(context.Background(), longText)
	if err != nil {
		t.Fatal(err)
	}
	if v == nil {
		t.Fatal("expected a combined vector, got nil")
	}
	if v[1] != 1 {
		t.Fatalf("got %v, want second element averaged to 1", v)
	}
}

func TestAverageVectors(t *testing.T) {
	got := averageVectors([][]float32{{2, 4}, {4, 8}})
	if got[0] != 3 || got[1] != 6 {
		t.Fatalf("got %v, want [3 6]", got)
	}
}

func TestAverageVectors_Empty(t *testing.T) {
	if got := averageVectors(nil); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}

func TestCacheKey_DistinguishesModelAndText(t *testing.T) {
	a := cacheKey("model-a", "hello")
	b := cacheKey("model-b", "hello")
	if a == b {
		t.Fatal("expected different models to produce different cache keys for the same text")
	}
}

func TestNew_AppliesDefaultsForZeroValues(t *testing.T) {
	p := New(nil, Config{Model: "m"})
	if p.cfg.BatchSize != 4 || p.cfg.FallbackChars != 800 || p.cfg.FallbackStrategy != StrategyAverage || p.cfg.Parallelism != 4 {
		t.Fatalf("got %+v, want zero-value fields filled with defaults", p.cfg)
	}
}
