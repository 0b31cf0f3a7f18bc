package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/ziadkadry99/edwin/internal/chunker"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

const envPrefix = "EDWIN_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides. EDWIN_STORE__TYPE sets store.type.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// envKey maps EDWIN_RETRIEVAL__TOP_K to retrieval.top_k.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validProviders = map[ProviderType]bool{
	ProviderOllama: true,
	ProviderOpenAI: true,
}

var validEmbeddingProviders = map[EmbeddingProviderType]bool{
	EmbeddingLocal:  true,
	EmbeddingOpenAI: true,
	EmbeddingOllama: true,
}

var validStores = map[StoreType]bool{
	StoreQdrant:  true,
	StoreChromem: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

func (c *Config) validate() error {
	if !validProviders[c.Provider] {
		return fmt.Errorf("provider %q: must be one of ollama, openai", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.LLMRequestsPerMinute < 0 {
		return fmt.Errorf("llm_requests_per_minute must be non-negative")
	}

	if !validEmbeddingProviders[c.EmbeddingProvider] {
		return fmt.Errorf("embedding_provider %q: must be one of local, openai, ollama", c.EmbeddingProvider)
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("embedding_model is required")
	}
	if c.EmbeddingDimensions < 0 {
		return fmt.Errorf("embedding_dimensions must be non-negative")
	}
	if c.EmbeddingProvider == EmbeddingOllama && c.EmbeddingDimensions == 0 {
		return fmt.Errorf("embedding_dimensions is required for ollama embeddings")
	}

	if !validStores[c.Store.Type] {
		return fmt.Errorf("store.type %q: must be one of qdrant, chromem", c.Store.Type)
	}
	if c.Store.Collection == "" {
		return fmt.Errorf("store.collection is required")
	}
	if c.Store.Type == StoreQdrant && c.Store.Qdrant.Host == "" {
		return fmt.Errorf("store.qdrant.host is required")
	}
	if c.Store.Type == StoreChromem && c.Store.Chromem.Dir == "" {
		return fmt.Errorf("store.chromem.dir is required")
	}

	if err := chunker.Validate(c.Chunking.Size, c.Chunking.Overlap); err != nil {
		return fmt.Errorf("chunking: %w", err)
	}
	if c.Indexing.BatchSize <= 0 {
		return fmt.Errorf("indexing.batch_size must be positive")
	}

	if c.Retrieval.TopK < 0 {
		return fmt.Errorf("retrieval.top_k must be non-negative")
	}
	if c.Retrieval.MinScore < 0 {
		return fmt.Errorf("retrieval.min_score must be non-negative")
	}
	if c.Retrieval.MaxContextChars < 0 {
		return fmt.Errorf("retrieval.max_context_chars must be non-negative")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	if provider == ProviderOpenAI {
		return "OPENAI_API_KEY"
	}
	return ""
}
