package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ProviderOllama, cfg.Provider)
	assert.Equal(t, "document_chunks", cfg.Store.Collection)
	assert.Equal(t, 700, cfg.Chunking.Size)
	assert.Equal(t, 100, cfg.Chunking.Overlap)
	assert.Equal(t, 500, cfg.Indexing.BatchSize)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.True(t, cfg.Retrieval.Plan)
	assert.Equal(t, 384, cfg.EmbeddingDimensions)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.edwin.yml")

	original := DefaultConfig()
	original.Provider = ProviderOpenAI
	original.Model = "gpt-4o-mini"
	original.Store.Type = StoreChromem
	original.Store.Chromem.Dir = "store"
	original.Retrieval.MinScore = 0.35
	original.Retrieval.Plan = false
	original.Chunking.InferVersion = true

	require.NoError(t, original.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, original.Provider, loaded.Provider)
	assert.Equal(t, original.Model, loaded.Model)
	assert.Equal(t, original.Store, loaded.Store)
	assert.Equal(t, original.Retrieval, loaded.Retrieval)
	assert.Equal(t, original.Chunking, loaded.Chunking)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  type: chromem\nretrieval:\n  top_k: 9\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StoreChromem, cfg.Store.Type)
	assert.Equal(t, 9, cfg.Retrieval.TopK)
	assert.Equal(t, "document_chunks", cfg.Store.Collection, "defaults kept")
	assert.Equal(t, "data/vectordb", cfg.Store.Chromem.Dir, "defaults kept")
	assert.True(t, cfg.Retrieval.Plan, "retrieval.plan default kept")
}

func TestLoadMissingFile(t *testing.T) {
	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yml"))
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, cfg.Provider)
}

func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yml")
	require.NoError(t, DefaultConfig().Save(path))

	t.Setenv("EDWIN_PROVIDER", "openai")
	t.Setenv("EDWIN_STORE__TYPE", "chromem")
	t.Setenv("EDWIN_RETRIEVAL__TOP_K", "12")
	t.Setenv("EDWIN_STORE__QDRANT__PORT", "7000")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, loaded.Provider)
	assert.Equal(t, StoreChromem, loaded.Store.Type, "nested override")
	assert.Equal(t, 12, loaded.Retrieval.TopK, "int override")
	assert.Equal(t, 7000, loaded.Store.Qdrant.Port, "deep override")
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"EDWIN_PROVIDER":            "provider",
		"EDWIN_LLM_BASE_URL":        "llm_base_url",
		"EDWIN_STORE__QDRANT__HOST": "store.qdrant.host",
	}
	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}

func TestValidateValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestValidateInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.Provider = "anthropic" }},
		{"empty model", func(c *Config) { c.Model = "" }},
		{"negative rpm", func(c *Config) { c.LLMRequestsPerMinute = -1 }},
		{"unknown embedding provider", func(c *Config) { c.EmbeddingProvider = "google" }},
		{"ollama without dims", func(c *Config) {
			c.EmbeddingProvider = EmbeddingOllama
			c.EmbeddingDimensions = 0
		}},
		{"unknown store", func(c *Config) { c.Store.Type = "pinecone" }},
		{"empty collection", func(c *Config) { c.Store.Collection = "" }},
		{"chromem without dir", func(c *Config) {
			c.Store.Type = StoreChromem
			c.Store.Chromem.Dir = ""
		}},
		{"zero chunk size", func(c *Config) { c.Chunking.Size = 0 }},
		{"overlap not below size", func(c *Config) { c.Chunking.Overlap = 700 }},
		{"negative overlap", func(c *Config) { c.Chunking.Overlap = -1 }},
		{"zero batch size", func(c *Config) { c.Indexing.BatchSize = 0 }},
		{"negative top_k", func(c *Config) { c.Retrieval.TopK = -1 }},
		{"negative min_score", func(c *Config) { c.Retrieval.MinScore = -0.1 }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestGetEmbeddingPreset(t *testing.T) {
	p := GetEmbeddingPreset(EmbeddingOllama)
	assert.Equal(t, "nomic-embed-text", p.Model)
	assert.Equal(t, 768, p.Dimensions)

	assert.Equal(t, 384, GetEmbeddingPreset("unknown").Dimensions, "falls back to the local preset")
}

func TestAPIKeyEnvVar(t *testing.T) {
	assert.Equal(t, "OPENAI_API_KEY", APIKeyEnvVar(ProviderOpenAI))
	assert.Empty(t, APIKeyEnvVar(ProviderOllama))
}

func TestValidatePositiveInt(t *testing.T) {
	for _, ok := range []string{"1", " 384 "} {
		assert.NoError(t, validatePositiveInt(ok), ok)
	}
	for _, bad := range []string{"", "0", "-3", "abc"} {
		assert.Error(t, validatePositiveInt(bad), bad)
	}
}
