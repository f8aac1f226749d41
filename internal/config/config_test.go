package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	localerrors "github.com/localdocs/localdocs/internal/errors"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1000, cfg.Store.ChunkSize)
	assert.Equal(t, 200, cfg.Store.ChunkOverlap)
	assert.Equal(t, 6, cfg.Retrieval.TopK)
	assert.True(t, cfg.Retrieval.UseMMR)
	assert.Equal(t, 60, cfg.Retrieval.RRFConstant)
	assert.Equal(t, 4, cfg.Embedding.Batch)
	assert.Equal(t, "average", cfg.Embedding.FallbackStrategy)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Embedding.Batch, cfg.Embedding.Batch)
}

func TestLoadMergesYAMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retrieval:\n  top_k: 12\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Retrieval.TopK)
	assert.Equal(t, Default().Store.ChunkSize, cfg.Store.ChunkSize)
}

func TestEnvOverridesTakePrecedenceOverYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedding:\n  batch: 4\n"), 0o644))

	t.Setenv("OLLAMA_EMBED_BATCH", "16")
	t.Setenv("LOCALDOCS_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Embedding.Batch)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
}

func TestOllamaBaseURLTakesPrecedenceOverHost(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "http://example.com:11434")
	t.Setenv("OLLAMA_BASE_URL", "http://override:11434/api")

	cfg := Default()
	require.NoError(t, cfg.applyEnvOverrides())
	assert.Equal(t, "http://override:11434/api", cfg.Server.BaseURL)
}

func TestMalformedEnvOverrideFailsLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OLLAMA_EMBED_BATCH", "lots")

	_, err := Load(filepath.Join(dir, "does-not-exist.yaml"))
	require.Error(t, err)

	var e *localerrors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, localerrors.ErrCodeInvalidEnvOverride, e.Code)
}

func TestOutOfRangeEnvOverrideFailsLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OLLAMA_TIMEOUT_SECS", "-5")

	_, err := Load(filepath.Join(dir, "does-not-exist.yaml"))
	require.Error(t, err)
}

func TestValidateRejectsOverlapGESize(t *testing.T) {
	cfg := Default()
	cfg.Store.ChunkOverlap = cfg.Store.ChunkSize
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadFallbackStrategy(t *testing.T) {
	cfg := Default()
	cfg.Embedding.FallbackStrategy = "median"
	assert.Error(t, cfg.Validate())
}

func TestSaveAndReloadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := Default()
	cfg.Retrieval.TopK = 9
	require.NoError(t, cfg.Save(path))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, reloaded.Retrieval.TopK)
}

func TestLibraryAndLockPaths(t *testing.T) {
	cfg := Default()
	cfg.Store.DataDir = "/tmp/localdocs-test"
	assert.Equal(t, "/tmp/localdocs-test/library.sqlite3", cfg.LibraryPath())
	assert.Equal(t, "/tmp/localdocs-test/.index.lock", cfg.IndexLockPath())
}
