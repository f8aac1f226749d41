// Package lifecycle manages the Ollama-compatible model server for
// localdocs's zero-config first run: detecting whether it's installed,
// starting it per platform, waiting for its health endpoint, and pulling
// missing models with streaming progress.
package lifecycle

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const (
	// DefaultHost is the model server's root endpoint (no /api suffix).
	DefaultHost = "http://localhost:11434"

	// StartupTimeout bounds how long WaitForReady polls after Start.
	StartupTimeout = 30 * time.Second

	readyPollInterval    = 100 * time.Millisecond
	maxReadyPollInterval = 2 * time.Second
)

// Manager probes and controls a local model server instance.
type Manager struct {
	host   string
	client *http.Client

	// Swapped out in tests.
	execCommand func(name string, args ...string) *exec.Cmd
	lookPath    func(file string) (string, error)
	fileExists  func(path string) bool
}

// Status is a point-in-time snapshot of the server.
type Status struct {
	Installed     bool
	InstalledPath string
	Running       bool
	Models        []string
}

// PullProgress is one record of a streaming model pull.
type PullProgress struct {
	Status    string
	Digest    string
	Total     int64
	Completed int64
	Percent   float64
}

// NewManager creates a Manager for host, falling back to OLLAMA_HOST and
// then DefaultHost when host is empty.
func NewManager(host string) *Manager {
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = DefaultHost
	}
	return &Manager{
		host:        host,
		client:      &http.Client{Timeout: 5 * time.Second},
		execCommand: exec.Command,
		lookPath:    exec.LookPath,
		fileExists: func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		},
	}
}

// Host returns the configured server root URL.
func (m *Manager) Host() string { return m.host }

// IsInstalled reports whether the server binary or app bundle is present,
// and where.
func (m *Manager) IsInstalled() (bool, string, error) {
	if path, err := m.lookPath("ollama"); err == nil {
		return true, path, nil
	}

	var extra []string
	switch runtime.GOOS {
	case "darwin":
		extra = []string{
			"/Applications/Ollama.app",
			filepath.Join(os.Getenv("HOME"), "Applications", "Ollama.app"),
		}
	case "linux":
		extra = []string{
			"/usr/local/bin/ollama",
			"/usr/bin/ollama",
			filepath.Join(os.Getenv("HOME"), ".local", "bin", "ollama"),
		}
	}
	for _, p := range extra {
		if m.fileExists(p) {
			return true, p, nil
		}
	}
	return false, "", nil
}

// IsRunning reports whether the server's API answers. A connection error
// means "not running", not a failure.
func (m *Manager) IsRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.host+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ListModels returns the names of every installed model.
func (m *Manager) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.host+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect to model server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("list models: status %d: %s", resp.StatusCode, string(body))
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}

	names := make([]string, len(tags.Models))
	for i, mdl := range tags.Models {
		names[i] = mdl.Name
	}
	return names, nil
}

// HasModel reports whether model is installed, matching either the full
// name (with tag) or the base name, case-insensitively.
func (m *Manager) HasModel(ctx context.Context, model string) (bool, error) {
	installed, err := m.ListModels(ctx)
	if err != nil {
		return false, err
	}
	want := strings.ToLower(model)
	wantBase, _, _ := strings.Cut(want, ":")
	for _, name := range installed {
		have := strings.ToLower(name)
		haveBase, _, _ := strings.Cut(have, ":")
		if have == want || haveBase == wantBase {
			return true, nil
		}
	}
	return false, nil
}

// Probe gathers installation, liveness, and model inventory in one call.
func (m *Manager) Probe(ctx context.Context) (*Status, error) {
	st := &Status{}

	var err error
	st.Installed, st.InstalledPath, err = m.IsInstalled()
	if err != nil {
		return nil, err
	}

	st.Running = m.IsRunning()
	if st.Running {
		st.Models, err = m.ListModels(ctx)
		if err != nil {
			return nil, err
		}
	}
	return st, nil
}

// Start launches the server in the background if it isn't already running.
func (m *Manager) Start() error {
	installed, path, err := m.IsInstalled()
	if err != nil {
		return err
	}
	if !installed {
		return fmt.Errorf("model server is not installed")
	}
	if m.IsRunning() {
		return nil
	}

	switch runtime.GOOS {
	case "darwin":
		return m.startDarwin(path)
	case "linux":
		return m.startLinux(path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

func (m *Manager) startDarwin(path string) error {
	// The app bundle, when present, also installs the menu-bar agent.
	if strings.HasSuffix(path, ".app") || m.fileExists("/Applications/Ollama.app") {
		if err := m.execCommand("open", "-a", "Ollama").Start(); err != nil {
			return fmt.Errorf("open Ollama.app: %w", err)
		}
		return nil
	}
	return m.serveDetached(path)
}

func (m *Manager) startLinux(path string) error {
	if err := m.execCommand("systemctl", "is-active", "--quiet", "ollama").Run(); err == nil {
		if err := m.execCommand("systemctl", "start", "ollama").Run(); err == nil {
			return nil
		}
		if err := m.execCommand("systemctl", "--user", "start", "ollama").Run(); err == nil {
			return nil
		}
	}
	return m.serveDetached(path)
}

func (m *Manager) serveDetached(path string) error {
	cmd := m.execCommand(path, "serve")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start model server: %w", err)
	}
	// Reap in the background so the child never becomes a zombie.
	go func() { _ = cmd.Wait() }()
	return nil
}

// WaitForReady polls the API with exponential backoff until it answers or
// timeout elapses.
func (m *Manager) WaitForReady(ctx context.Context, timeout time.Duration) error {
	if timeout == 0 {
		timeout = StartupTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	interval := readyPollInterval
	for {
		if m.IsRunning() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("model server did not become ready: %w", ctx.Err())
		case <-time.After(interval):
		}
		if interval *= 2; interval > maxReadyPollInterval {
			interval = maxReadyPollInterval
		}
	}
}

// PullModel downloads model, streaming progress records to onProgress. A
// model that is already installed is a no-op.
func (m *Manager) PullModel(ctx context.Context, model string, onProgress func(PullProgress)) error {
	has, err := m.HasModel(ctx, model)
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	body, err := json.Marshal(struct {
		Name   string `json:"name"`
		Stream bool   `json:"stream"`
	}{Name: model, Stream: true})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.host+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	// No client timeout: large models stream for many minutes.
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return fmt.Errorf("start model pull: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pull %s: status %d: %s", model, resp.StatusCode, string(respBody))
	}

	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec struct {
			Status    string `json:"status"`
			Digest    string `json:"digest"`
			Total     int64  `json:"total"`
			Completed int64  `json:"completed"`
		}
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if onProgress != nil {
			pct := 0.0
			if rec.Total > 0 {
				pct = float64(rec.Completed) / float64(rec.Total) * 100
			}
			onProgress(PullProgress{
				Status:    rec.Status,
				Digest:    rec.Digest,
				Total:     rec.Total,
				Completed: rec.Completed,
				Percent:   pct,
			})
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read pull stream: %w", err)
	}
	return nil
}

// InstallInstructions returns platform-specific installation guidance.
func InstallInstructions() string {
	var install string
	switch runtime.GOOS {
	case "darwin":
		install = "  1. Download from: https://ollama.com/download\n  2. Or via Homebrew: brew install ollama"
	case "linux":
		install = "  curl -fsSL https://ollama.com/install.sh | sh"
	default:
		install = "  Download from: https://ollama.com/download"
	}
	return "localdocs needs a local model server for embeddings and chat.\n\nInstall:\n" +
		install + "\n\nThen run: localdocs setup run"
}
