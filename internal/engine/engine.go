// Package engine is the composition root binding config, store, embedding
// pipeline, model client, indexer, retriever, and watcher into the single
// command surface. One struct owns every long-lived dependency, behind a
// mutex for fields mutated by background work, with
// internal/lifecycle.Manager for the setup-status/run-setup
// model-provisioning flow.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/localdocs/localdocs/internal/config"
	"github.com/localdocs/localdocs/internal/embedpipeline"
	"github.com/localdocs/localdocs/internal/events"
	"github.com/localdocs/localdocs/internal/extract"
	"github.com/localdocs/localdocs/internal/indexer"
	"github.com/localdocs/localdocs/internal/modelclient"
	"github.com/localdocs/localdocs/internal/retriever"
	"github.com/localdocs/localdocs/internal/store"
	"github.com/localdocs/localdocs/internal/watcher"
)

// Engine owns every long-lived dependency needed to serve the command
// surface.
type Engine struct {
	cfg    *config.Config
	client *modelclient.Client

	mu            sync.Mutex
	watch         *watcher.Watcher
	lastModel     string
	lastSettings  indexer.Settings
	haveLastIndex bool
}

// New wires a Engine from cfg. It does not open the store or contact the
// model server until a command needs them.
func New(cfg *config.Config) *Engine {
	client := modelclient.New(modelclient.Config{
		BaseURL:              cfg.Server.BaseURL,
		Timeout:              cfg.Server.Timeout,
		BreakerTripThreshold: cfg.Server.BreakerTrip,
		BreakerCooldown:      cfg.Server.BreakerReset,
	})
	return &Engine{cfg: cfg, client: client}
}

// Close releases the model client's idle connections and stops any running
// watcher.
func (e *Engine) Close() {
	e.mu.Lock()
	w := e.watch
	e.watch = nil
	e.mu.Unlock()

	if w != nil {
		_ = w.Close()
	}
	e.client.Close()
}

// SetBaseURL updates the model-server base URL at runtime, rebuilding the
// underlying client.
func (e *Engine) SetBaseURL(raw string) {
	e.client.Close()
	e.cfg.Server.BaseURL = modelclient.NormalizeBaseURL(raw)
	e.client = modelclient.New(modelclient.Config{
		BaseURL:              e.cfg.Server.BaseURL,
		Timeout:              e.cfg.Server.Timeout,
		BreakerTripThreshold: e.cfg.Server.BreakerTrip,
		BreakerCooldown:      e.cfg.Server.BreakerReset,
	})
}

func (e *Engine) pipeline() *embedpipeline.Pipeline {
	cfg := embedpipeline.Config{
		Model:            e.cfg.Embedding.Model,
		BatchSize:        e.cfg.Embedding.Batch,
		FallbackChars:    e.cfg.Embedding.FallbackChars,
		FallbackStrategy: embedpipeline.Strategy(e.cfg.Embedding.FallbackStrategy),
		Parallelism:      e.cfg.Embedding.Parallelism,
		CacheSize:        e.cfg.Embedding.CacheSize,
	}
	return embedpipeline.New(e.client, cfg)
}

func (e *Engine) extractSettings() extract.Settings {
	return extract.Settings{
		OCREnabled:  e.cfg.Embedding.OCREnabled,
		OCRMinChars: e.cfg.Embedding.OCRMinChars,
	}
}

func (e *Engine) indexSettings() indexer.Settings {
	return indexer.Settings{
		ChunkSize:    e.cfg.Store.ChunkSize,
		ChunkOverlap: e.cfg.Store.ChunkOverlap,
		Extract:      e.extractSettings(),
	}
}

// openStore opens the library at the embedding dimension implied by the
// current pipeline, pinning chunk params into the store's meta table.
func (e *Engine) openStore(ctx context.Context, pipeline *embedpipeline.Pipeline) (*store.Store, error) {
	dim, err := pipeline.ProbeDimension(ctx)
	if err != nil {
		return nil, fmt.Errorf("probe embedding dimension: %w", err)
	}
	return store.Open(e.cfg.LibraryPath(), store.Params{
		EmbeddingDim: dim,
		ChunkSize:    e.cfg.Store.ChunkSize,
		ChunkOverlap: e.cfg.Store.ChunkOverlap,
	}, nil)
}

// StartIndex runs a full index over the currently configured targets,
// guarded by the cross-process run lock, emitting progress to sink.
func (e *Engine) StartIndex(ctx context.Context, sink *events.Sink) error {
	lock := indexer.NewRunLock(e.cfg.IndexLockPath())
	if err := lock.Lock(); err != nil {
		return err
	}
	defer lock.Unlock()

	if err := os.MkdirAll(e.cfg.Store.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	targets, err := e.listTargetsLocked(ctx)
	if err != nil {
		return err
	}
	candidates, err := discoverCandidates(targets)
	if err != nil {
		return err
	}

	settings := e.indexSettings()
	ix := indexer.New(e.cfg.LibraryPath(), nil, e.pipeline())
	if err := ix.Run(ctx, candidates, settings, sink); err != nil {
		return err
	}

	e.mu.Lock()
	e.lastModel = e.cfg.Embedding.Model
	e.lastSettings = settings
	e.haveLastIndex = true
	e.mu.Unlock()

	return nil
}

// ReindexFiles re-indexes exactly the given paths (a watcher-triggered
// batch or an explicit reindex-files command).
func (e *Engine) ReindexFiles(ctx context.Context, paths []string, sink *events.Sink) error {
	lock := indexer.NewRunLock(e.cfg.IndexLockPath())
	if err := lock.Lock(); err != nil {
		return err
	}
	defer lock.Unlock()

	candidates := make([]indexer.Candidate, 0, len(paths))
	for _, p := range paths {
		kind, ok := extract.KindFromExt(filepath.Ext(p))
		if !ok {
			continue
		}
		candidates = append(candidates, indexer.Candidate{Path: p, Kind: kind})
	}

	ix := indexer.New(e.cfg.LibraryPath(), nil, e.pipeline())
	return ix.Run(ctx, candidates, e.indexSettings(), sink)
}

// PreviewIndex classifies the current target set's candidates against the
// store's existing state without writing anything.
func (e *Engine) PreviewIndex(ctx context.Context) ([]indexer.PreviewEntry, error) {
	p := e.pipeline()
	st, err := e.openStore(ctx, p)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	targets, err := st.ListTargets()
	if err != nil {
		return nil, err
	}
	candidates, err := discoverCandidates(targets)
	if err != nil {
		return nil, err
	}

	return indexer.Preview(st, candidates)
}

// Chat answers question with the currently indexed library, returning the
// assistant's response text and the sources it was grounded on.
func (e *Engine) Chat(ctx context.Context, question string) (string, []retriever.Source, error) {
	p := e.pipeline()
	st, err := e.openStore(ctx, p)
	if err != nil {
		return "", nil, err
	}
	defer st.Close()

	sources, err := retriever.New(st, p).Retrieve(ctx, question, e.retrievalSettings())
	if err != nil {
		return "", nil, err
	}

	messages := buildChatMessages(question, sources)
	answer, err := e.client.Chat(ctx, e.cfg.Server.ChatModel, messages)
	if err != nil {
		return "", nil, err
	}
	return answer, sources, nil
}

// ChatStream is Chat's streaming counterpart, emitting ChatDelta events to
// sink as tokens arrive and a final delta carrying citations.
func (e *Engine) ChatStream(ctx context.Context, question string, sink *events.Sink) error {
	p := e.pipeline()
	st, err := e.openStore(ctx, p)
	if err != nil {
		return err
	}
	defer st.Close()

	sources, err := retriever.New(st, p).Retrieve(ctx, question, e.retrievalSettings())
	if err != nil {
		return err
	}

	messages := buildChatMessages(question, sources)
	_, err = e.client.ChatStream(ctx, e.cfg.Server.ChatModel, messages, func(delta string) {
		sink.Chat <- events.ChatDelta{Content: delta}
	})
	if err != nil {
		return err
	}

	citations := make([]events.Citation, len(sources))
	for i, s := range sources {
		citations[i] = events.Citation{Index: i + 1, File: s.FilePath, Page: s.Page}
	}
	sink.Chat <- events.ChatDelta{Done: true, Citations: citations}
	return nil
}

func (e *Engine) retrievalSettings() retriever.Settings {
	return retriever.Settings{
		TopK:          e.cfg.Retrieval.TopK,
		MaxDistance:   e.cfg.Retrieval.MaxDistance,
		UseMMR:        e.cfg.Retrieval.UseMMR,
		MMRLambda:     e.cfg.Retrieval.MMRLambda,
		MMRCandidates: e.cfg.Retrieval.MMRCandidates,
		RRFConstant:   e.cfg.Retrieval.RRFConstant,
	}
}

func buildChatMessages(question string, sources []retriever.Source) []modelclient.Message {
	var context string
	for i, s := range sources {
		context += fmt.Sprintf("[%d] %s (page %d)\n%s\n\n", i+1, s.FilePath, s.Page, s.Snippet)
	}
	system := modelclient.Message{
		Role: "system",
		Content: "Answer the user's question using only the numbered sources below. " +
			"Cite sources as [n]. If the sources don't answer the question, say so.\n\n" + context,
	}
	return []modelclient.Message{system, {Role: "user", Content: question}}
}

// ListModels returns the models installed on the model server.
func (e *Engine) ListModels(ctx context.Context) ([]modelclient.ModelInfo, error) {
	return e.client.ListModels(ctx)
}

// ListTargets returns the currently configured index targets.
func (e *Engine) ListTargets(ctx context.Context) ([]store.Target, error) {
	return e.listTargetsLocked(ctx)
}

func (e *Engine) listTargetsLocked(ctx context.Context) ([]store.Target, error) {
	p := e.pipeline()
	st, err := e.openStore(ctx, p)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.ListTargets()
}

// SaveTargets replaces the target set and, if a watcher is currently
// running, (re)creates its platform watch over the new set.
func (e *Engine) SaveTargets(ctx context.Context, targets []store.Target) error {
	p := e.pipeline()
	st, err := e.openStore(ctx, p)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.SaveTargets(targets, time.Now().Unix()); err != nil {
		return err
	}

	e.mu.Lock()
	w := e.watch
	e.mu.Unlock()
	if w != nil {
		if err := w.SetTargets(toWatcherTargets(targets)); err != nil {
			return fmt.Errorf("update watcher targets: %w", err)
		}
	}
	return nil
}

// PruneIndex deletes files no longer covered by the target set.
func (e *Engine) PruneIndex(ctx context.Context) (int, error) {
	p := e.pipeline()
	st, err := e.openStore(ctx, p)
	if err != nil {
		return 0, err
	}
	defer st.Close()

	targets, err := st.ListTargets()
	if err != nil {
		return 0, err
	}
	return st.Prune(targets)
}
