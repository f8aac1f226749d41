package ui

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/localdocs/localdocs/internal/events"
)

// TUIRenderer provides a spinner + progress bar rendering of an index run,
// driven directly off events.Sink payloads.
type TUIRenderer struct {
	mu      sync.Mutex
	m       *indexModel
	program *tea.Program
	done    chan struct{}
	cancel  context.CancelFunc
}

// NewTUIRenderer creates a TUI renderer. It errors if the output is not a
// terminal.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	styles := DefaultStyles()
	if cfg.NoColor || DetectNoColor() {
		styles = NoColorStyles()
	}

	return &TUIRenderer{m: newIndexModel(styles), done: make(chan struct{})}, nil
}

type indexModel struct {
	styles   Styles
	spinner  spinner.Model
	progress progress.Model
	current  int
	total    int
	file     string
	status   events.IndexStatus
	errs     int
	warns    int
	finished bool
	summary  string
}

func newIndexModel(styles Styles) *indexModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Active

	p := progress.New(progress.WithDefaultGradient())

	return &indexModel{styles: styles, spinner: s, progress: p}
}

func (m *indexModel) Init() tea.Cmd {
	return m.spinner.Tick
}

type indexProgressMsg events.IndexProgress
type indexDoneMsg events.IndexDone

func (m *indexModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case indexProgressMsg:
		m.current = msg.Current
		m.total = msg.Total
		m.file = msg.File
		m.status = msg.Status
		if msg.Status == events.IndexStatusError {
			m.errs++
		}
		return m, nil
	case indexDoneMsg:
		m.finished = true
		m.errs = msg.Errors
		m.warns = msg.Warnings
		m.summary = fmt.Sprintf("%d files, %d chunks in %s", msg.Files, msg.Chunks, msg.Duration.Round(100*time.Millisecond))
		return m, tea.Quit
	}
	return m, nil
}

func (m *indexModel) View() string {
	if m.finished {
		return m.styles.Success.Render("done: "+m.summary) + "\n"
	}

	pct := 0.0
	if m.total > 0 {
		pct = float64(m.current) / float64(m.total)
	}

	header := m.styles.Header.Render("Indexing")
	bar := m.progress.ViewAs(pct)
	line := fmt.Sprintf("%s %s %s %d/%d  %s", m.spinner.View(), header, bar, m.current, m.total, m.styles.Dim.Render(m.file))
	if m.errs > 0 {
		line += "  " + m.styles.Error.Render(fmt.Sprintf("%d errors", m.errs))
	}
	return line + "\n"
}

// Start launches the bubbletea program in the background.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	var opts []tea.ProgramOption
	if f, ok := interface{}(os.Stdout).(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}

	r.program = tea.NewProgram(r.m, opts...)
	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

func (r *TUIRenderer) IndexProgress(e events.IndexProgress) {
	if r.program != nil {
		r.program.Send(indexProgressMsg(e))
	}
}

func (r *TUIRenderer) IndexDone(e events.IndexDone) {
	if r.program != nil {
		r.program.Send(indexDoneMsg(e))
	}
}

func (r *TUIRenderer) Reindex(e events.ReindexProgress)     {}
func (r *TUIRenderer) Watcher(e events.WatcherStatus)       {}
func (r *TUIRenderer) Setup(e events.SetupProgress)         {}
func (r *TUIRenderer) ModelPull(e events.ModelPullProgress) {}

func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}
	if r.program != nil {
		r.program.Quit()
		select {
		case <-r.done:
		case <-time.After(2 * time.Second):
		}
	}
	return nil
}
