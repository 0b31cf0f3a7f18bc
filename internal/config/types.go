package config

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderOllama ProviderType = "ollama"
	ProviderOpenAI ProviderType = "openai"
)

// EmbeddingProviderType identifies an embedding backend.
type EmbeddingProviderType string

const (
	EmbeddingLocal  EmbeddingProviderType = "local"
	EmbeddingOpenAI EmbeddingProviderType = "openai"
	EmbeddingOllama EmbeddingProviderType = "ollama"
)

// StoreType identifies a vector store backend.
type StoreType string

const (
	StoreQdrant  StoreType = "qdrant"
	StoreChromem StoreType = "chromem"
)

// Config is the top-level edwin configuration, corresponding to .edwin.yml.
type Config struct {
	Provider             ProviderType `yaml:"provider" koanf:"provider"`
	Model                string       `yaml:"model" koanf:"model"`
	LLMBaseURL           string       `yaml:"llm_base_url,omitempty" koanf:"llm_base_url"`
	LLMRequestsPerMinute int          `yaml:"llm_requests_per_minute" koanf:"llm_requests_per_minute"`

	EmbeddingProvider   EmbeddingProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel      string                `yaml:"embedding_model" koanf:"embedding_model"`
	EmbeddingDimensions int                   `yaml:"embedding_dimensions" koanf:"embedding_dimensions"`
	EmbeddingBaseURL    string                `yaml:"embedding_base_url,omitempty" koanf:"embedding_base_url"`
	EmbeddingCacheSize  int                   `yaml:"embedding_cache_size" koanf:"embedding_cache_size"`
	ModelDir            string                `yaml:"model_dir" koanf:"model_dir"`

	Store     StoreConfig     `yaml:"store" koanf:"store"`
	Chunking  ChunkingConfig  `yaml:"chunking" koanf:"chunking"`
	Indexing  IndexingConfig  `yaml:"indexing" koanf:"indexing"`
	Retrieval RetrievalConfig `yaml:"retrieval" koanf:"retrieval"`
	Server    ServerConfig    `yaml:"server" koanf:"server"`
	Paths     PathsConfig     `yaml:"paths" koanf:"paths"`

	LogLevel string `yaml:"log_level" koanf:"log_level"`
}

// StoreConfig selects and addresses the vector store.
type StoreConfig struct {
	Type       StoreType     `yaml:"type" koanf:"type"`
	Collection string        `yaml:"collection" koanf:"collection"`
	Qdrant     QdrantConfig  `yaml:"qdrant" koanf:"qdrant"`
	Chromem    ChromemConfig `yaml:"chromem" koanf:"chromem"`
}

// QdrantConfig addresses a Qdrant gRPC endpoint.
type QdrantConfig struct {
	Host   string `yaml:"host" koanf:"host"`
	Port   int    `yaml:"port" koanf:"port"`
	APIKey string `yaml:"api_key,omitempty" koanf:"api_key"`
	UseTLS bool   `yaml:"use_tls" koanf:"use_tls"`
}

// ChromemConfig locates the embedded store on disk.
type ChromemConfig struct {
	Dir string `yaml:"dir" koanf:"dir"`
}

// ChunkingConfig holds splitter settings.
type ChunkingConfig struct {
	Size         int  `yaml:"size" koanf:"size"`
	Overlap      int  `yaml:"overlap" koanf:"overlap"`
	InferVersion bool `yaml:"infer_version" koanf:"infer_version"`
}

// IndexingConfig holds upload settings.
type IndexingConfig struct {
	BatchSize int `yaml:"batch_size" koanf:"batch_size"`
}

// RetrievalConfig holds query defaults.
type RetrievalConfig struct {
	TopK            int     `yaml:"top_k" koanf:"top_k"`
	MinScore        float32 `yaml:"min_score" koanf:"min_score"`
	MaxContextChars int     `yaml:"max_context_chars" koanf:"max_context_chars"`
	Plan            bool    `yaml:"plan" koanf:"plan"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// PathsConfig names the stage files.
type PathsConfig struct {
	Pages  string `yaml:"pages" koanf:"pages"`
	Chunks string `yaml:"chunks" koanf:"chunks"`
}
