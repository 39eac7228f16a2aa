package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsearch/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv(EnvServerAddr, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	require.NoError(t, err)
	assert.Equal(t, 532, cfg.Chunker.ChunkSize)
	assert.Equal(t, 50, cfg.Chunker.Overlap)
	assert.Equal(t, "tfidf", cfg.Embedder.Type)
	assert.Equal(t, 10, cfg.Retrieval.TopK)
	assert.Equal(t, "\n___\n", cfg.Retrieval.Separator)
	assert.NoError(t, cfg.Validate())
}

func TestLoadAppliesDefaultsToPartialFile(t *testing.T) {
	t.Setenv(EnvServerAddr, "")
	path := writeConfig(t, `
embedder:
  type: openai
  openai:
    model: nomic-embed-text
    base_url: http://localhost:11434/v1
chunker:
  chunk_size: 200
  overlap: 0
  separators: ["\n\n", ". ", ""]
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Chunker.ChunkSize)
	assert.Equal(t, 0, cfg.Chunker.Overlap)
	assert.Equal(t, []string{"\n\n", ". ", ""}, cfg.Chunker.Splitter().Separators)
	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "nomic-embed-text", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, 32, cfg.Embedder.OpenAI.BatchSize)
	assert.Equal(t, 4, cfg.Embedder.OpenAI.Concurrency)
	assert.Equal(t, 10, cfg.Retrieval.TopK)
}

func TestLoadOpenAIWithoutSection(t *testing.T) {
	path := writeConfig(t, "embedder:\n  type: openai\n")

	cfg, err := Load(path)

	require.NoError(t, err)
	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.OpenAI.Model)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"overlap not below size", "chunker:\n  chunk_size: 10\n  overlap: 10\n"},
		{"negative top_k", "retrieval:\n  top_k: -2\n"},
		{"unknown embedder", "embedder:\n  type: word2vec\n"},
		{"bad yaml", "chunker: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestValidateChunkerUsesSplitConfigError(t *testing.T) {
	cfg := defaultConfig()
	cfg.Chunker.Overlap = 600

	err := cfg.Validate()

	assert.ErrorIs(t, err, domain.ErrSplitConfig)
}

func TestServerAddrEnvOverride(t *testing.T) {
	t.Setenv(EnvServerAddr, "0.0.0.0:9000")
	path := writeConfig(t, "server:\n  addr: 127.0.0.1:1234\n")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
}

func TestLoadDefaultWritesUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	cfg, path, err := LoadDefault()

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "docsearch", "config.yaml"), path)
	assert.FileExists(t, path)
	assert.Equal(t, 532, cfg.Chunker.ChunkSize)

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Chunker, again.Chunker)
	assert.Equal(t, cfg.Retrieval, again.Retrieval)
}

func TestLoadDefaultPrefersWorkingDirectory(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("retrieval:\n  top_k: 3\n"), 0o644))

	cfg, path, err := LoadDefault()

	require.NoError(t, err)
	assert.Equal(t, "config.yaml", path)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
}

func TestSaveKeepsSeparatorNewlines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := defaultConfig()
	cfg.Retrieval.Separator = "\n\n---  \n"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "\n\n---  \n", loaded.Retrieval.Separator)
	assert.Equal(t, cfg.Retrieval.TopK, loaded.Retrieval.TopK)
}

func TestSavedDefaultSeparatorRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Save(path, defaultConfig()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `separator: "\n___\n"`)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "\n___\n", loaded.Retrieval.Separator)
}
