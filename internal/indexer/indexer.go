// Package indexer orchestrates one indexing run over a list of document
// candidates: extract -> chunk -> embed -> persist. The run probes the
// embedding dimension up front, skips unchanged files by fingerprint,
// replaces each changed file's rows in one transaction, and reports progress
// through an events.Sink.
package indexer

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/localdocs/localdocs/internal/chunker"
	"github.com/localdocs/localdocs/internal/embedpipeline"
	localerrors "github.com/localdocs/localdocs/internal/errors"
	"github.com/localdocs/localdocs/internal/events"
	"github.com/localdocs/localdocs/internal/extract"
	"github.com/localdocs/localdocs/internal/lang"
	"github.com/localdocs/localdocs/internal/store"
)

// Candidate is one document to (re)index.
type Candidate struct {
	Path string
	Kind extract.Kind
}

// Settings controls the chunker parameters and OCR fallback used for this
// run; ChunkSize/ChunkOverlap are also the values pinned into the store's
// meta table.
type Settings struct {
	ChunkSize    int
	ChunkOverlap int
	Extract      extract.Settings
}

// Indexer runs index/reindex operations against a Store via a Pipeline.
type Indexer struct {
	storePath      string
	extensionPaths []string
	pipeline       *embedpipeline.Pipeline
}

// New creates an Indexer. storePath is the library.sqlite3 path;
// extensionPaths overrides the vector-extension search path when non-empty.
func New(storePath string, extensionPaths []string, pipeline *embedpipeline.Pipeline) *Indexer {
	return &Indexer{storePath: storePath, extensionPaths: extensionPaths, pipeline: pipeline}
}

// Run indexes candidates in order, emitting progress events to sink.
// Run is crash-isolated per document: an abnormal termination of
// any per-document stage is converted to an error event and does not abort
// the run.
func (ix *Indexer) Run(ctx context.Context, candidates []Candidate, settings Settings, sink *events.Sink) error {
	start := time.Now()

	dim, err := ix.pipeline.ProbeDimension(ctx)
	if err != nil {
		return fmt.Errorf("probe embedding dimension: %w", err)
	}
	if dim <= 0 {
		return localerrors.IntegrityError(localerrors.ErrCodeZeroDimension, "embedding model returned zero dimension")
	}

	st, err := store.Open(ix.storePath, store.Params{
		EmbeddingDim: dim,
		ChunkSize:    settings.ChunkSize,
		ChunkOverlap: settings.ChunkOverlap,
	}, ix.extensionPaths)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	sink.IndexProgress <- events.IndexProgress{Total: len(candidates), Status: events.IndexStatusStart}

	var filesDone, chunksDone, errorsCount, warnings int

	for i, cand := range candidates {
		status, nChunks := ix.processDocument(ctx, st, cand, settings, i+1, len(candidates), sink)
		switch status {
		case events.IndexStatusDone:
			filesDone++
			chunksDone += nChunks
		case events.IndexStatusError:
			errorsCount++
		case events.IndexStatusMissing:
			warnings++
		}
	}

	sink.IndexDone <- events.IndexDone{
		Files:    filesDone,
		Chunks:   chunksDone,
		Errors:   errorsCount,
		Warnings: warnings,
		Duration: time.Since(start),
	}
	return nil
}

// processDocument runs one document through extract/chunk/embed/persist,
// converting panics into an error result so no per-document stage can
// terminate the run.
func (ix *Indexer) processDocument(ctx context.Context, st *store.Store, cand Candidate, settings Settings, current, total int, sink *events.Sink) (status events.IndexStatus, chunksWritten int) {
	defer func() {
		if r := recover(); r != nil {
			status = events.IndexStatusError
			sink.IndexProgress <- events.IndexProgress{
				Current: current, Total: total, File: cand.Path,
				Status: events.IndexStatusError,
				Err:    localerrors.PanicError(r).WithDetail("path", cand.Path),
			}
		}
	}()

	info, err := os.Stat(cand.Path)
	if err != nil || !info.Mode().IsRegular() {
		sink.IndexProgress <- events.IndexProgress{Current: current, Total: total, File: cand.Path, Status: events.IndexStatusMissing}
		return events.IndexStatusMissing, 0
	}

	mtime := info.ModTime().Unix()
	size := info.Size()
	fingerprint := store.Fingerprint(cand.Path, size, mtime)

	existing, err := st.GetFile(cand.Path)
	if err != nil {
		sink.IndexProgress <- events.IndexProgress{Current: current, Total: total, File: cand.Path, Status: events.IndexStatusError, Err: err}
		return events.IndexStatusError, 0
	}
	if existing != nil && existing.Fingerprint == fingerprint {
		sink.IndexProgress <- events.IndexProgress{Current: current, Total: total, File: cand.Path, Status: events.IndexStatusSkip}
		return events.IndexStatusSkip, 0
	}

	sink.IndexProgress <- events.IndexProgress{Current: current, Total: total, File: cand.Path, Status: events.IndexStatusExtract}
	pages, err := extract.Extract(cand.Path, cand.Kind, settings.Extract)
	if err != nil {
		sink.IndexProgress <- events.IndexProgress{Current: current, Total: total, File: cand.Path, Status: events.IndexStatusError, Err: err}
		return events.IndexStatusError, 0
	}

	type pending struct {
		page, idx int
		langCode  string
		text      string
	}
	var plan []pending
	for pageNum, pageText := range pages {
		pieces := chunker.SplitPage(pageText, settings.ChunkSize, settings.ChunkOverlap)
		for idx, piece := range pieces {
			plan = append(plan, pending{page: pageNum, idx: idx, langCode: lang.Detect(piece), text: piece})
		}
	}

	if len(plan) == 0 {
		// No extractable text at all; still record the file so future runs
		// skip it via fingerprint.
		err := st.ReplaceFile(store.File{
			Path: cand.Path, Kind: string(cand.Kind), Fingerprint: fingerprint,
			Size: size, MTime: mtime, LastIndexed: time.Now().Unix(),
		}, nil)
		if err != nil {
			sink.IndexProgress <- events.IndexProgress{Current: current, Total: total, File: cand.Path, Status: events.IndexStatusError, Err: err}
			return events.IndexStatusError, 0
		}
		sink.IndexProgress <- events.IndexProgress{Current: current, Total: total, File: cand.Path, Status: events.IndexStatusDone}
		return events.IndexStatusDone, 0
	}

	texts := make([]string, len(plan))
	for i, p := range plan {
		texts[i] = p.text
	}
	vectors, err := ix.pipeline.EmbedAll(ctx, texts)
	if err != nil {
		sink.IndexProgress <- events.IndexProgress{Current: current, Total: total, File: cand.Path, Status: events.IndexStatusError, Err: err}
		return events.IndexStatusError, 0
	}

	writes := make([]store.ChunkWrite, len(plan))
	produced := 0
	for i, p := range plan {
		writes[i] = store.ChunkWrite{Page: p.page, ChunkIndex: p.idx, Lang: p.langCode, Text: p.text, Vector: vectors[i]}
		if vectors[i] != nil {
			produced++
		}
	}

	if produced == 0 {
		// All chunks were skipped by the embedding pipeline: emit an error
		// and leave the file row untouched.
		sink.IndexProgress <- events.IndexProgress{
			Current: current, Total: total, File: cand.Path, Status: events.IndexStatusError,
			Err: fmt.Errorf("all %d chunks were skipped by the embedding pipeline", len(plan)),
		}
		return events.IndexStatusError, 0
	}

	err = st.ReplaceFile(store.File{
		Path: cand.Path, Kind: string(cand.Kind), Fingerprint: fingerprint,
		Size: size, MTime: mtime, LastIndexed: time.Now().Unix(),
	}, writes)
	if err != nil {
		sink.IndexProgress <- events.IndexProgress{Current: current, Total: total, File: cand.Path, Status: events.IndexStatusError, Err: err}
		return events.IndexStatusError, 0
	}

	sink.IndexProgress <- events.IndexProgress{Current: current, Total: total, File: cand.Path, Status: events.IndexStatusDone}
	return events.IndexStatusDone, produced
}
