package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"docsearch/internal/chunker"
)

// EnvServerAddr overrides server.addr when set.
const EnvServerAddr = "DOCSEARCH_SERVER_ADDR"

// LogConfig sets the default log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// ChunkerConfig configures how documents are split into chunks.
// Sizes are in characters.
type ChunkerConfig struct {
	ChunkSize  int      `yaml:"chunk_size"`
	Overlap    int      `yaml:"overlap"`
	Separators []string `yaml:"separators,omitempty"`
}

// Splitter converts the section into a chunker configuration.
func (c ChunkerConfig) Splitter() chunker.Config {
	return chunker.Config{ChunkSize: c.ChunkSize, Overlap: c.Overlap, Separators: c.Separators}
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
	Concurrency int    `yaml:"concurrency"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// RetrievalConfig controls how many chunks a search returns and how they
// are joined.
type RetrievalConfig struct {
	TopK      int    `yaml:"top_k"`
	Separator string `yaml:"separator"`
}

// MarshalYAML writes the separator double-quoted. A plain or literal block
// scalar would not round-trip leading and trailing newlines.
func (r RetrievalConfig) MarshalYAML() (any, error) {
	return &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Value: "top_k"},
			{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(r.TopK)},
			{Kind: yaml.ScalarNode, Value: "separator"},
			{Kind: yaml.ScalarNode, Tag: "!!str", Style: yaml.DoubleQuotedStyle, Value: r.Separator},
		},
	}, nil
}

// ServerConfig configures the tool server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Log       LogConfig       `yaml:"log"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Server    ServerConfig    `yaml:"server"`
}

// Validate rejects configurations that would fail later at build or query time.
func (c *AppConfig) Validate() error {
	if err := c.Chunker.Splitter().Validate(); err != nil {
		return fmt.Errorf("chunker: %w", err)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval: top_k must be positive, got %d", c.Retrieval.TopK)
	}
	switch c.Embedder.Type {
	case "tfidf", "openai":
	default:
		return fmt.Errorf("embedder: unknown type %q", c.Embedder.Type)
	}
	return nil
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docsearch/config.yaml.
// If neither exists, it writes defaults to ~/.config/docsearch/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnv(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docsearch", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Log:       LogConfig{Level: "info"},
		Chunker:   ChunkerConfig{ChunkSize: 532, Overlap: 50},
		Embedder:  EmbedderConfig{Type: "tfidf"},
		Retrieval: RetrievalConfig{TopK: 10, Separator: "\n___\n"},
		Server:    ServerConfig{Addr: "127.0.0.1:8765"},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = def.Chunker.ChunkSize
		if cfg.Chunker.Overlap == 0 {
			cfg.Chunker.Overlap = def.Chunker.Overlap
		}
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = def.Embedder.Type
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = def.Retrieval.TopK
	}
	if cfg.Retrieval.Separator == "" {
		cfg.Retrieval.Separator = def.Retrieval.Separator
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		oc := cfg.Embedder.OpenAI
		if oc.BaseURL == "" {
			oc.BaseURL = "https://api.openai.com/v1"
		}
		if oc.APIKeyEnv == "" {
			oc.APIKeyEnv = "OPENAI_API_KEY"
		}
		if oc.Model == "" {
			oc.Model = "text-embedding-3-small"
		}
		if oc.TimeoutSecs == 0 {
			oc.TimeoutSecs = 30
		}
		if oc.BatchSize == 0 {
			oc.BatchSize = 32
		}
		if oc.Concurrency == 0 {
			oc.Concurrency = 4
		}
	}
}

func applyEnv(cfg *AppConfig) {
	if addr := os.Getenv(EnvServerAddr); addr != "" {
		cfg.Server.Addr = addr
	}
}
