package config

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = ".edwin.yml"

// DefaultConfig returns a Config with the pipeline's stock settings.
func DefaultConfig() *Config {
	return &Config{
		Provider:             ProviderOllama,
		Model:                "mistral",
		LLMRequestsPerMinute: 60,

		EmbeddingProvider:   EmbeddingLocal,
		EmbeddingModel:      "sentence-transformers/all-MiniLM-L6-v2",
		EmbeddingDimensions: 384,
		EmbeddingCacheSize:  256,
		ModelDir:            "models",

		Store: StoreConfig{
			Type:       StoreQdrant,
			Collection: "document_chunks",
			Qdrant:     QdrantConfig{Host: "localhost", Port: 6334},
			Chromem:    ChromemConfig{Dir: "data/vectordb"},
		},
		Chunking: ChunkingConfig{Size: 700, Overlap: 100},
		Indexing: IndexingConfig{BatchSize: 500},
		Retrieval: RetrievalConfig{
			TopK: 5,
			Plan: true,
		},
		Server: ServerConfig{Port: 8080},
		Paths: PathsConfig{
			Pages:  "data/chunks/raw_chunks.jsonl",
			Chunks: "data/chunks/chunked.jsonl",
		},
		LogLevel: "info",
	}
}

// EmbeddingPreset is a known embedding model and its output dimension.
type EmbeddingPreset struct {
	Model      string
	Dimensions int
}

// embeddingPresets are offered by the wizard per embedding provider.
var embeddingPresets = map[EmbeddingProviderType]EmbeddingPreset{
	EmbeddingLocal:  {Model: "sentence-transformers/all-MiniLM-L6-v2", Dimensions: 384},
	EmbeddingOpenAI: {Model: "text-embedding-3-small", Dimensions: 384},
	EmbeddingOllama: {Model: "nomic-embed-text", Dimensions: 768},
}

// GetEmbeddingPreset returns the preset for provider, falling back to local.
func GetEmbeddingPreset(provider EmbeddingProviderType) EmbeddingPreset {
	if p, ok := embeddingPresets[provider]; ok {
		return p
	}
	return embeddingPresets[EmbeddingLocal]
}

// defaultModels are offered by the wizard per LLM provider.
var defaultModels = map[ProviderType]string{
	ProviderOllama: "mistral",
	ProviderOpenAI: "gpt-4o-mini",
}
