// Package embedpipeline batches chunk texts for embedding, retrying and
// splitting oversized batches, and falling back to sub-chunk embedding when
// a single chunk itself is too large for the model server. Repeated texts
// hit a hashicorp/golang-lru cache instead of the network.
package embedpipeline

import (
	"context"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/localdocs/localdocs/internal/chunker"
	localerrors "github.com/localdocs/localdocs/internal/errors"
	"github.com/localdocs/localdocs/internal/modelclient"
)

// Strategy names the sub-vector combination strategy for oversize fallback.
type Strategy string

const (
	StrategyAverage Strategy = "average"
	StrategyFirst   Strategy = "first"
)

// Config configures a Pipeline; each field mirrors an OLLAMA_* env var.
type Config struct {
	Model            string
	BatchSize        int // OLLAMA_EMBED_BATCH, default 4
	FallbackChars    int // OLLAMA_EMBED_FALLBACK_CHARS, default 800
	FallbackStrategy Strategy
	Parallelism      int // concurrent in-flight batches
	CacheSize        int // 0 disables the LRU cache
}

// DefaultConfig returns the built-in defaults for model.
func DefaultConfig(model string) Config {
	return Config{
		Model:            model,
		BatchSize:        4,
		FallbackChars:    800,
		FallbackStrategy: StrategyAverage,
		Parallelism:      4,
		CacheSize:        4096,
	}
}

// Pipeline embeds chunk texts through a modelclient.Client.
type Pipeline struct {
	client *modelclient.Client
	cfg    Config
	cache  *lru.Cache[string, []float32]
}

// New creates a Pipeline. client must already be configured with the
// model server's base URL/timeout.
func New(client *modelclient.Client, cfg Config) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 4
	}
	if cfg.FallbackChars <= 0 {
		cfg.FallbackChars = 800
	}
	if cfg.FallbackStrategy == "" {
		cfg.FallbackStrategy = StrategyAverage
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 4
	}

	p := &Pipeline{client: client, cfg: cfg}
	if cfg.CacheSize > 0 {
		if c, err := lru.New[string, []float32](cfg.CacheSize); err == nil {
			p.cache = c
		}
	}
	return p
}

// ProbeDimension embeds a short known input to determine the model's
// embedding dimension. Requires the returned dimension to
// be > 0.
func (p *Pipeline) ProbeDimension(ctx context.Context) (int, error) {
	vecs, err := p.client.Embed(ctx, p.cfg.Model, []string{"dimension probe"})
	if err != nil {
		return 0, err
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return 0, localerrors.IntegrityError(localerrors.ErrCodeZeroDimension, "embedding model returned zero-length vector")
	}
	return len(vecs[0]), nil
}

// EmbedAll embeds texts, returning a same-length, same-order slice of
// vectors where a nil entry means the chunk was skipped (could not be
// embedded even via fallback).
func (p *Pipeline) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))

	type batch struct {
		start int
		texts []string
	}
	var batches []batch
	for start := 0; start < len(texts); start += p.cfg.BatchSize {
		end := start + p.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batches = append(batches, batch{start: start, texts: texts[start:end]})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Parallelism)

	for _, b := range batches {
		b := b
		g.Go(func() error {
			vecs, err := p.embedBatch(gctx, b.texts)
			if err != nil {
				return err
			}
			for i, v := range vecs {
				results[b.start+i] = v
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// embedBatch embeds one batch, applying the cache, timeout-retry/split, and
// oversize-input fallback rules. Returns one vector (possibly nil)
// per input text, in order.
func (p *Pipeline) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	toFetch := make([]int, 0, len(texts))
	fetchTexts := make([]string, 0, len(texts))
	for i, t := range texts {
		if p.cache != nil {
			if v, ok := p.cache.Get(cacheKey(p.cfg.Model, t)); ok {
				out[i] = v
				continue
			}
		}
		toFetch = append(toFetch, i)
		fetchTexts = append(fetchTexts, t)
	}
	if len(fetchTexts) == 0 {
		return out, nil
	}

	vecs, err := p.embedWithRetry(ctx, fetchTexts)
	if err != nil {
		return nil, err
	}

	for i, v := range vecs {
		out[toFetch[i]] = v
		if v != nil && p.cache != nil {
			p.cache.Add(cacheKey(p.cfg.Model, fetchTexts[i]), v)
		}
	}
	return out, nil
}

// embedWithRetry applies the batching/retry/oversize policy for one
// batch of (already cache-missed) texts.
func (p *Pipeline) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := p.client.Embed(ctx, p.cfg.Model, texts)
	if err == nil {
		if len(vecs) < len(texts) {
			// Mismatched count falls back to per-chunk embedding.
			return p.embedPerChunk(ctx, texts)
		}
		return vecs, nil
	}

	if modelclient.IsOversizeInputError(err) {
		return p.embedPerChunk(ctx, texts)
	}

	if modelclient.IsTimeout(err) {
		if len(texts) > 1 {
			mid := len(texts) / 2
			left, lerr := p.embedWithRetry(ctx, texts[:mid])
			if lerr != nil {
				return nil, lerr
			}
			right, rerr := p.embedWithRetry(ctx, texts[mid:])
			if rerr != nil {
				return nil, rerr
			}
			return append(left, right...), nil
		}
		// Single-chunk batch: retry once after 400ms, then propagate.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(400 * time.Millisecond):
		}
		vecs, err = p.client.Embed(ctx, p.cfg.Model, texts)
		if err != nil {
			if modelclient.IsOversizeInputError(err) {
				return p.embedPerChunk(ctx, texts)
			}
			return nil, err
		}
		if len(vecs) < len(texts) {
			return p.embedPerChunk(ctx, texts)
		}
		return vecs, nil
	}

	return nil, err
}

// embedPerChunk falls back to embedding each text in texts individually,
// applying the oversize sub-chunk split/combine strategy to any
// chunk that still fails.
func (p *Pipeline) embedPerChunk(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vecs, err := p.client.Embed(ctx, p.cfg.Model, []string{t})
		if err == nil && len(vecs) > 0 {
			out[i] = vecs[0]
			continue
		}

		if err != nil && !modelclient.IsOversizeInputError(err) && !modelclient.IsTimeout(err) {
			return nil, err
		}

		v, fbErr := p.oversizeFallback(ctx, t)
		if fbErr != nil {
			return nil, fbErr
		}
		out[i] = v // may be nil (skipped)
	}
	return out, nil
}

// oversizeFallback handles a single chunk the server rejects as too large:
//  1. If len(chunk) <= FallbackChars, skip (nil).
//  2. Otherwise split with the chunker at (FallbackChars, overlap=0). If
//     only one sub-chunk results, skip.
//  3. Embed sub-chunks individually, skipping any that still fail.
//  4. Combine surviving sub-vectors per Strategy. If none survive, skip.
func (p *Pipeline) oversizeFallback(ctx context.Context, text string) ([]float32, error) {
	if len([]rune(text)) <= p.cfg.FallbackChars {
		return nil, nil
	}

	sub := chunker.SplitPage(text, p.cfg.FallbackChars, 0)
	if len(sub) <= 1 {
		return nil, nil
	}

	var survivors [][]float32
	for _, s := range sub {
		vecs, err := p.client.Embed(ctx, p.cfg.Model, []string{s})
		if err != nil {
			continue
		}
		if len(vecs) > 0 {
			survivors = append(survivors, vecs[0])
		}
	}
	if len(survivors) == 0 {
		return nil, nil
	}

	switch p.cfg.FallbackStrategy {
	case StrategyFirst:
		return survivors[0], nil
	default:
		return averageVectors(survivors), nil
	}
}

func averageVectors(vs [][]float32) []float32 {
	if len(vs) == 0 {
		return nil
	}
	out := make([]float32, len(vs[0]))
	for _, v := range vs {
		for i, x := range v {
			out[i] += x
		}
	}
	for i := range out {
		out[i] /= float32(len(vs))
	}
	return out
}

func cacheKey(model, text string) string {
	var b strings.Builder
	b.WriteString(model)
	b.WriteByte('\x00')
	b.WriteString(text)
	return b.String()
}
