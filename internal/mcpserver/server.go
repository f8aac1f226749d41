// Package mcpserver exposes the engine's command surface as MCP tools,
// one tool per command, registered via mcp.NewServer/mcp.AddTool with
// typed-input/typed-output handler signatures and served over stdio.
package mcpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/localdocs/localdocs/internal/engine"
	"github.com/localdocs/localdocs/internal/events"
	"github.com/localdocs/localdocs/internal/retriever"
	"github.com/localdocs/localdocs/internal/store"
	"github.com/localdocs/localdocs/pkg/version"
)

// Server is the MCP server bridging MCP-speaking clients to an Engine.
type Server struct {
	mcp *mcp.Server
	eng *engine.Engine
}

// New creates a Server wrapping eng and registers every command as a tool.
func New(eng *engine.Engine) *Server {
	s := &Server{eng: eng}
	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "localdocs",
		Version: version.Version,
	}, nil)
	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Serve runs the server over stdio until ctx is canceled.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "set_base_url",
		Description: "Point localdocs at a different Ollama-compatible model server host.",
	}, s.handleSetBaseURL)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "setup_status",
		Description: "Check whether the model server is running and which models it has installed.",
	}, s.handleSetupStatus)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "run_setup",
		Description: "Start the model server if needed and pull any missing embedding/chat models.",
	}, s.handleRunSetup)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "start_index",
		Description: "Index the given file and folder targets, replacing the stored target set first.",
	}, s.handleStartIndex)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "reindex_files",
		Description: "Re-index exactly the given file paths without touching the target set.",
	}, s.handleReindexFiles)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "preview_index",
		Description: "Classify the currently configured targets as new, indexed, changed, or missing, without writing anything.",
	}, s.handlePreviewIndex)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "chat",
		Description: "Ask a question answered from the indexed document library, citing the retrieved sources.",
	}, s.handleChat)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_models",
		Description: "List the models installed on the configured model server.",
	}, s.handleListModels)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_targets",
		Description: "List the currently configured index targets.",
	}, s.handleListTargets)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "save_targets",
		Description: "Replace the configured index target set.",
	}, s.handleSaveTargets)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "prune_index",
		Description: "Delete indexed files that are no longer covered by any configured target.",
	}, s.handlePruneIndex)
}

// SetBaseURLInput is set_base_url's input.
type SetBaseURLInput struct {
	Host string `json:"host" jsonschema:"the model server base URL or host:port"`
}

// SetBaseURLOutput is set_base_url's output.
type SetBaseURLOutput struct {
	BaseURL string `json:"base_url"`
}

func (s *Server) handleSetBaseURL(_ context.Context, _ *mcp.CallToolRequest, in SetBaseURLInput) (*mcp.CallToolResult, SetBaseURLOutput, error) {
	if in.Host == "" {
		return nil, SetBaseURLOutput{}, fmt.Errorf("host is required")
	}
	s.eng.SetBaseURL(in.Host)
	return nil, SetBaseURLOutput{BaseURL: in.Host}, nil
}

// SetupStatusInput is setup_status's (empty) input.
type SetupStatusInput struct{}

// SetupStatusOutput is setup_status's output.
type SetupStatusOutput struct {
	Running      bool     `json:"running"`
	Models       []string `json:"models"`
	DefaultChat  string   `json:"default_chat"`
	DefaultFast  string   `json:"default_fast"`
	DefaultEmbed string   `json:"default_embed"`
}

func (s *Server) handleSetupStatus(ctx context.Context, _ *mcp.CallToolRequest, _ SetupStatusInput) (*mcp.CallToolResult, SetupStatusOutput, error) {
	status, err := s.eng.SetupStatus(ctx)
	if err != nil {
		return nil, SetupStatusOutput{}, err
	}
	return nil, SetupStatusOutput{
		Running: status.Running, Models: status.Models,
		DefaultChat: status.DefaultChat, DefaultFast: status.DefaultFast, DefaultEmbed: status.DefaultEmbed,
	}, nil
}

// RunSetupInput is run_setup's (empty) input.
type RunSetupInput struct{}

// RunSetupOutput is run_setup's output.
type RunSetupOutput struct {
	Done bool `json:"done"`
}

func (s *Server) handleRunSetup(ctx context.Context, _ *mcp.CallToolRequest, _ RunSetupInput) (*mcp.CallToolResult, RunSetupOutput, error) {
	sink := events.NewSink(16)
	go drainSink(sink)
	err := s.eng.RunSetup(ctx, sink)
	sink.Close()
	if err != nil {
		return nil, RunSetupOutput{}, err
	}
	return nil, RunSetupOutput{Done: true}, nil
}

// TargetInput is one target in start_index/save_targets's input.
type TargetInput struct {
	Path              string `json:"path" jsonschema:"absolute file or folder path"`
	IsFolder          bool   `json:"is_folder"`
	IncludeSubfolders bool   `json:"include_subfolders,omitempty"`
}

// StartIndexInput is start_index's input.
type StartIndexInput struct {
	Targets []TargetInput `json:"targets" jsonschema:"the files and folders to index"`
}

// IndexResultOutput is start_index/reindex_files's output.
type IndexResultOutput struct {
	Files           int     `json:"files"`
	Chunks          int     `json:"chunks"`
	Errors          int     `json:"errors"`
	Warnings        int     `json:"warnings"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func (s *Server) handleStartIndex(ctx context.Context, _ *mcp.CallToolRequest, in StartIndexInput) (*mcp.CallToolResult, IndexResultOutput, error) {
	targets := make([]store.Target, len(in.Targets))
	for i, t := range in.Targets {
		kind := store.TargetKindFile
		if t.IsFolder {
			kind = store.TargetKindFolder
		}
		targets[i] = store.Target{Path: t.Path, Kind: kind, IncludeSubfolders: t.IncludeSubfolders}
	}
	if err := s.eng.SaveTargets(ctx, targets); err != nil {
		return nil, IndexResultOutput{}, err
	}

	sink := events.NewSink(64)
	var result IndexResultOutput
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range sink.IndexProgress {
		}
	}()
	go func() {
		for d := range sink.IndexDone {
			result = IndexResultOutput{Files: d.Files, Chunks: d.Chunks, Errors: d.Errors, Warnings: d.Warnings, DurationSeconds: d.Duration.Seconds()}
		}
	}()

	err := s.eng.StartIndex(ctx, sink)
	sink.Close()
	<-done
	if err != nil {
		return nil, IndexResultOutput{}, err
	}
	return nil, result, nil
}

// ReindexFilesInput is reindex_files's input.
type ReindexFilesInput struct {
	Paths []string `json:"paths" jsonschema:"the file paths to re-index"`
}

func (s *Server) handleReindexFiles(ctx context.Context, _ *mcp.CallToolRequest, in ReindexFilesInput) (*mcp.CallToolResult, IndexResultOutput, error) {
	sink := events.NewSink(64)
	var result IndexResultOutput
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range sink.IndexProgress {
		}
	}()
	go func() {
		for d := range sink.IndexDone {
			result = IndexResultOutput{Files: d.Files, Chunks: d.Chunks, Errors: d.Errors, Warnings: d.Warnings, DurationSeconds: d.Duration.Seconds()}
		}
	}()

	err := s.eng.ReindexFiles(ctx, in.Paths, sink)
	sink.Close()
	<-done
	if err != nil {
		return nil, IndexResultOutput{}, err
	}
	return nil, result, nil
}

// PreviewIndexInput is preview_index's (empty) input.
type PreviewIndexInput struct{}

// PreviewEntryOutput is one row of preview_index's output.
type PreviewEntryOutput struct {
	Path   string `json:"path"`
	Kind   string `json:"kind"`
	Status string `json:"status"`
	Size   int64  `json:"size"`
	MTime  int64  `json:"mtime"`
}

// PreviewIndexOutput is preview_index's output.
type PreviewIndexOutput struct {
	Entries []PreviewEntryOutput `json:"entries"`
}

func (s *Server) handlePreviewIndex(ctx context.Context, _ *mcp.CallToolRequest, _ PreviewIndexInput) (*mcp.CallToolResult, PreviewIndexOutput, error) {
	entries, err := s.eng.PreviewIndex(ctx)
	if err != nil {
		return nil, PreviewIndexOutput{}, err
	}
	out := make([]PreviewEntryOutput, len(entries))
	for i, e := range entries {
		out[i] = PreviewEntryOutput{Path: e.Path, Kind: e.Kind, Status: string(e.Status), Size: e.Size, MTime: e.MTime}
	}
	return nil, PreviewIndexOutput{Entries: out}, nil
}

// ChatInput is chat's input.
type ChatInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the indexed library"`
}

// SourceOutput is one retrieved passage cited in a chat answer.
type SourceOutput struct {
	FilePath string  `json:"file_path"`
	Page     int     `json:"page"`
	Snippet  string  `json:"snippet"`
	Distance float64 `json:"distance"`
}

// ChatOutput is chat's output.
type ChatOutput struct {
	Answer  string         `json:"answer"`
	Sources []SourceOutput `json:"sources"`
}

func (s *Server) handleChat(ctx context.Context, _ *mcp.CallToolRequest, in ChatInput) (*mcp.CallToolResult, ChatOutput, error) {
	if in.Question == "" {
		return nil, ChatOutput{}, fmt.Errorf("question is required")
	}
	answer, sources, err := s.eng.Chat(ctx, in.Question)
	if err != nil {
		return nil, ChatOutput{}, err
	}
	return nil, ChatOutput{Answer: answer, Sources: toSourceOutputs(sources)}, nil
}

func toSourceOutputs(sources []retriever.Source) []SourceOutput {
	out := make([]SourceOutput, len(sources))
	for i, s := range sources {
		out[i] = SourceOutput{FilePath: s.FilePath, Page: s.Page, Snippet: s.Snippet, Distance: s.Distance}
	}
	return out
}

// ListModelsInput is list_models's (empty) input.
type ListModelsInput struct{}

// ListModelsOutput is list_models's output.
type ListModelsOutput struct {
	Models []string `json:"models"`
}

func (s *Server) handleListModels(ctx context.Context, _ *mcp.CallToolRequest, _ ListModelsInput) (*mcp.CallToolResult, ListModelsOutput, error) {
	models, err := s.eng.ListModels(ctx)
	if err != nil {
		return nil, ListModelsOutput{}, err
	}
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.Name
	}
	return nil, ListModelsOutput{Models: names}, nil
}

// ListTargetsInput is list_targets's (empty) input.
type ListTargetsInput struct{}

// TargetOutput is one target in list_targets's output.
type TargetOutput struct {
	Path              string `json:"path"`
	IsFolder          bool   `json:"is_folder"`
	IncludeSubfolders bool   `json:"include_subfolders"`
	AddedAt           int64  `json:"added_at"`
}

// ListTargetsOutput is list_targets's output.
type ListTargetsOutput struct {
	Targets []TargetOutput `json:"targets"`
}

func (s *Server) handleListTargets(ctx context.Context, _ *mcp.CallToolRequest, _ ListTargetsInput) (*mcp.CallToolResult, ListTargetsOutput, error) {
	targets, err := s.eng.ListTargets(ctx)
	if err != nil {
		return nil, ListTargetsOutput{}, err
	}
	out := make([]TargetOutput, len(targets))
	for i, t := range targets {
		out[i] = TargetOutput{
			Path: t.Path, IsFolder: t.Kind == store.TargetKindFolder,
			IncludeSubfolders: t.IncludeSubfolders, AddedAt: t.AddedAt,
		}
	}
	return nil, ListTargetsOutput{Targets: out}, nil
}

// SaveTargetsInput is save_targets's input.
type SaveTargetsInput struct {
	Targets []TargetInput `json:"targets"`
}

// SaveTargetsOutput is save_targets's output.
type SaveTargetsOutput struct {
	Saved int `json:"saved"`
}

func (s *Server) handleSaveTargets(ctx context.Context, _ *mcp.CallToolRequest, in SaveTargetsInput) (*mcp.CallToolResult, SaveTargetsOutput, error) {
	targets := make([]store.Target, len(in.Targets))
	for i, t := range in.Targets {
		kind := store.TargetKindFile
		if t.IsFolder {
			kind = store.TargetKindFolder
		}
		targets[i] = store.Target{Path: t.Path, Kind: kind, IncludeSubfolders: t.IncludeSubfolders}
	}
	if err := s.eng.SaveTargets(ctx, targets); err != nil {
		return nil, SaveTargetsOutput{}, err
	}
	return nil, SaveTargetsOutput{Saved: len(targets)}, nil
}

// PruneIndexInput is prune_index's (empty) input.
type PruneIndexInput struct{}

// PruneIndexOutput is prune_index's output.
type PruneIndexOutput struct {
	Removed int `json:"removed"`
}

func (s *Server) handlePruneIndex(ctx context.Context, _ *mcp.CallToolRequest, _ PruneIndexInput) (*mcp.CallToolResult, PruneIndexOutput, error) {
	removed, err := s.eng.PruneIndex(ctx)
	if err != nil {
		return nil, PruneIndexOutput{}, err
	}
	return nil, PruneIndexOutput{Removed: removed}, nil
}

func drainSink(sink *events.Sink) {
	for {
		select {
		case _, ok := <-sink.Setup:
			if !ok {
				return
			}
		case _, ok := <-sink.ModelPull:
			if !ok {
				return
			}
		case <-time.After(time.Hour):
			return
		}
	}
}
