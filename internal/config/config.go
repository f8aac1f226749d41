// Package config loads localdocs configuration from a YAML file with
// environment variable overrides applied afterward.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	localerrors "github.com/localdocs/localdocs/internal/errors"
)

// Config is the complete localdocs configuration.
type Config struct {
	Version    int              `yaml:"version"`
	Store      StoreConfig      `yaml:"store"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Server     ServerConfig     `yaml:"server"`
	Watcher    WatcherConfig    `yaml:"watcher"`
}

// StoreConfig configures the embedded SQL store's chunking parameters.
// ChunkSize/ChunkOverlap, together with the embedder's dimension, are the
// three meta values that pin the current content cache.
type StoreConfig struct {
	DataDir      string `yaml:"data_dir"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
}

// RetrievalConfig configures hybrid retrieval defaults.
type RetrievalConfig struct {
	TopK          int     `yaml:"top_k"`
	MaxDistance   float64 `yaml:"max_distance"` // 0 means unset (no cap)
	UseMMR        bool    `yaml:"use_mmr"`
	MMRLambda     float64 `yaml:"mmr_lambda"`
	MMRCandidates int     `yaml:"mmr_candidates"`
	RRFConstant   int     `yaml:"rrf_constant"`
}

// EmbeddingConfig configures the embedding pipeline.
type EmbeddingConfig struct {
	Model            string `yaml:"model"`
	Batch            int    `yaml:"batch"`
	Parallelism      int    `yaml:"parallelism"`
	CacheSize        int    `yaml:"cache_size"`
	FallbackChars    int    `yaml:"fallback_chars"`
	FallbackStrategy string `yaml:"fallback_strategy"` // "average" or "first"
	OCRMinChars      int    `yaml:"ocr_min_chars"`
	OCREnabled       bool   `yaml:"ocr_enabled"`
}

// ServerConfig configures the model-server client and the command
// surface transports.
type ServerConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	ChatModel     string        `yaml:"chat_model"`
	FastModel     string        `yaml:"fast_model"`
	BreakerTrip   int           `yaml:"breaker_trip_threshold"`
	BreakerReset  time.Duration `yaml:"breaker_cooldown"`
	LogLevel      string        `yaml:"log_level"`
	LogFormat     string        `yaml:"log_format"`
}

// WatcherConfig configures the filesystem watcher.
type WatcherConfig struct {
	DebounceWindow time.Duration `yaml:"debounce_window"`
	EventBuffer    int           `yaml:"event_buffer"`
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		Version: 1,
		Store: StoreConfig{
			DataDir:      DefaultDataDir(),
			ChunkSize:    1000,
			ChunkOverlap: 200,
		},
		Retrieval: RetrievalConfig{
			TopK:          6,
			MaxDistance:   0,
			UseMMR:        true,
			MMRLambda:     0.5,
			MMRCandidates: 16,
			RRFConstant:   60,
		},
		Embedding: EmbeddingConfig{
			Model:            "nomic-embed-text",
			Batch:            4,
			Parallelism:      4,
			CacheSize:        4096,
			FallbackChars:    800,
			FallbackStrategy: "average",
			OCRMinChars:      32,
			OCREnabled:       false,
		},
		Server: ServerConfig{
			BaseURL:      "",
			Timeout:      300 * time.Second,
			ChatModel:    "llama3.1",
			FastModel:    "qwen2.5:0.5b",
			BreakerTrip:  5,
			BreakerReset: 30 * time.Second,
			LogLevel:     "info",
			LogFormat:    "text",
		},
		Watcher: WatcherConfig{
			DebounceWindow: 2 * time.Second,
			EventBuffer:    256,
		},
	}
}

// DefaultDataDir returns ~/.localdocs (falling back to a temp dir), the
// directory holding library.sqlite3, config.yaml, and the index lock file.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".localdocs")
	}
	return filepath.Join(home, ".localdocs")
}

// DefaultConfigPath returns the path to the persisted config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDataDir(), "config.yaml")
}

// Load reads configuration from path (falling back to defaults if the file
// does not exist), then applies environment variable overrides. Precedence,
// lowest to highest: hardcoded defaults, the YAML file, env vars.
func Load(path string) (*Config, error) {
	cfg := Default()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes cfg as YAML to path, creating parent directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// applyEnvOverrides applies the OLLAMA_*/LOCALDOCS_* environment variables
// at the highest precedence. A set-but-malformed value is a configuration
// error, not something to silently ignore.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		c.Server.BaseURL = v
	} else if v := os.Getenv("OLLAMA_HOST"); v != "" {
		c.Server.BaseURL = v
	}

	if v := os.Getenv("OLLAMA_TIMEOUT_SECS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return invalidEnv("OLLAMA_TIMEOUT_SECS", v, "a positive integer")
		}
		c.Server.Timeout = time.Duration(secs) * time.Second
	}
	if v := os.Getenv("OLLAMA_EMBED_BATCH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return invalidEnv("OLLAMA_EMBED_BATCH", v, "a positive integer")
		}
		c.Embedding.Batch = n
	}
	if v := os.Getenv("OLLAMA_EMBED_FALLBACK_CHARS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return invalidEnv("OLLAMA_EMBED_FALLBACK_CHARS", v, "a positive integer")
		}
		c.Embedding.FallbackChars = n
	}
	if v := os.Getenv("OLLAMA_EMBED_FALLBACK_STRATEGY"); v != "" {
		if v != "average" && v != "first" {
			return invalidEnv("OLLAMA_EMBED_FALLBACK_STRATEGY", v, `"average" or "first"`)
		}
		c.Embedding.FallbackStrategy = v
	}
	if v := os.Getenv("OLLAMA_EMBED_PARALLELISM"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return invalidEnv("OLLAMA_EMBED_PARALLELISM", v, "a positive integer")
		}
		c.Embedding.Parallelism = n
	}
	if v := os.Getenv("OLLAMA_EMBED_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return invalidEnv("OLLAMA_EMBED_CACHE_SIZE", v, "a non-negative integer")
		}
		c.Embedding.CacheSize = n
	}
	if v := os.Getenv("LOCALDOCS_DATA_DIR"); v != "" {
		c.Store.DataDir = v
	}
	if v := os.Getenv("LOCALDOCS_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("LOCALDOCS_LOG_FORMAT"); v != "" {
		if v != "text" && v != "json" {
			return invalidEnv("LOCALDOCS_LOG_FORMAT", v, `"text" or "json"`)
		}
		c.Server.LogFormat = v
	}
	return nil
}

func invalidEnv(name, value, want string) error {
	return localerrors.ConfigurationError(localerrors.ErrCodeInvalidEnvOverride,
		fmt.Sprintf("%s=%q: want %s", name, value, want), nil)
}

// Validate checks internal consistency of the configuration, failing fast
// on values that would otherwise surface as confusing downstream errors.
func (c *Config) Validate() error {
	if c.Store.ChunkOverlap >= c.Store.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be less than chunk_size (%d)", c.Store.ChunkOverlap, c.Store.ChunkSize)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Embedding.FallbackStrategy != "average" && c.Embedding.FallbackStrategy != "first" {
		return fmt.Errorf("fallback_strategy must be 'average' or 'first', got %q", c.Embedding.FallbackStrategy)
	}
	if c.Embedding.Batch <= 0 {
		return fmt.Errorf("embedding batch must be positive, got %d", c.Embedding.Batch)
	}
	return nil
}

// LibraryPath returns the path to the SQLite database file within DataDir.
func (c *Config) LibraryPath() string {
	return filepath.Join(c.Store.DataDir, "library.sqlite3")
}

// IndexLockPath returns the path to the cross-process index lock file.
func (c *Config) IndexLockPath() string {
	return filepath.Join(c.Store.DataDir, ".index.lock")
}
