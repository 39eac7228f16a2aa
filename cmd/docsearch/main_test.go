package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsearch/internal/config"
)

func TestNewEmbedder(t *testing.T) {
	emb, err := newEmbedder(config.EmbedderConfig{Type: "tfidf"})
	require.NoError(t, err)
	assert.Equal(t, "tfidf", emb.Name())

	_, err = newEmbedder(config.EmbedderConfig{Type: "openai"})
	assert.ErrorContains(t, err, "config missing")

	_, err = newEmbedder(config.EmbedderConfig{Type: "bert"})
	assert.ErrorContains(t, err, "unknown embedder")
}

func TestNewEmbedderOpenAI(t *testing.T) {
	t.Setenv("DOCSEARCH_TEST_KEY", "k")

	emb, err := newEmbedder(config.EmbedderConfig{Type: "openai", OpenAI: &config.OpenAIEmbedderConfig{
		APIKeyEnv: "DOCSEARCH_TEST_KEY",
		Model:     "nomic-embed-text",
	}})

	require.NoError(t, err)
	assert.Equal(t, "openai:nomic-embed-text", emb.Name())
}
