// Package events defines the typed progress payloads emitted by long-running
// commands (index, reindex, watch, chat, setup) and a small channel-based
// sink used to carry them from a detached goroutine back to whichever
// surface is driving it (CLI renderer or MCP streaming response).
package events

import "time"

// IndexStatus is the per-file status reported during an index/reindex run.
type IndexStatus string

const (
	IndexStatusStart   IndexStatus = "start"
	IndexStatusSkip    IndexStatus = "skip"
	IndexStatusExtract IndexStatus = "extract"
	IndexStatusMissing IndexStatus = "missing"
	IndexStatusError   IndexStatus = "error"
	IndexStatusDone    IndexStatus = "done"
)

// IndexProgress reports the outcome of processing a single file within an
// index or reindex run.
type IndexProgress struct {
	Current int
	Total   int
	File    string
	Status  IndexStatus
	Err     error
}

// IndexDone is the terminal event of an index or reindex run.
type IndexDone struct {
	Files    int
	Chunks   int
	Errors   int
	Warnings int
	Duration time.Duration
}

// ReindexStatus is the watcher-triggered reindex batch status.
type ReindexStatus string

const (
	ReindexStatusQueued ReindexStatus = "queued"
	ReindexStatusDone   ReindexStatus = "done"
	ReindexStatusError  ReindexStatus = "error"
)

// ReindexProgress reports a watcher-triggered re-index batch.
type ReindexProgress struct {
	Status ReindexStatus
	Files  []string
	Err    error
}

// WatcherState is the watcher's own running status.
type WatcherState string

const (
	WatcherStateWatching WatcherState = "watching"
	WatcherStateError    WatcherState = "error"
)

// WatcherStatus reports the filesystem watcher's lifecycle.
type WatcherStatus struct {
	Status  WatcherState
	Watched []string
	Err     error
}

// ChatDelta is one streamed token (or the terminal citation list) of a chat
// response.
type ChatDelta struct {
	Content   string
	Citations []Citation
	Done      bool
}

// Citation identifies one retrieved chunk cited in a chat answer.
type Citation struct {
	Index int
	File  string
	Page  int
}

// SetupStage names a step of first-run model provisioning.
type SetupStage string

const (
	SetupStagePulling   SetupStage = "pulling"
	SetupStageVerifying SetupStage = "verifying"
	SetupStageComplete  SetupStage = "complete"
)

// SetupProgress reports provisioning of the embedding/chat models.
type SetupProgress struct {
	Stage   SetupStage
	Message string
}

// ModelPullProgress reports a single model download's progress, mirroring
// the model server's own pull-progress payload shape.
type ModelPullProgress struct {
	Model     string
	Status    string
	Completed int64
	Total     int64
}

// Sink fans progress events out of a detached command goroutine. Each event
// kind has its own channel so a consumer can select on only the kinds it
// cares about; Close must be called exactly once by the producer when the
// run finishes, after which all channels are closed.
type Sink struct {
	IndexProgress chan IndexProgress
	IndexDone     chan IndexDone
	Reindex       chan ReindexProgress
	Watcher       chan WatcherStatus
	Chat          chan ChatDelta
	Setup         chan SetupProgress
	ModelPull     chan ModelPullProgress
}

// NewSink creates a Sink with the given per-channel buffer size.
func NewSink(buffer int) *Sink {
	return &Sink{
		IndexProgress: make(chan IndexProgress, buffer),
		IndexDone:     make(chan IndexDone, 1),
		Reindex:       make(chan ReindexProgress, buffer),
		Watcher:       make(chan WatcherStatus, buffer),
		Chat:          make(chan ChatDelta, buffer),
		Setup:         make(chan SetupProgress, buffer),
		ModelPull:     make(chan ModelPullProgress, buffer),
	}
}

// Close closes every channel in the sink. Safe to call once the producing
// goroutine is certain no further sends will occur.
func (s *Sink) Close() {
	close(s.IndexProgress)
	close(s.IndexDone)
	close(s.Reindex)
	close(s.Watcher)
	close(s.Chat)
	close(s.Setup)
	close(s.ModelPull)
}
