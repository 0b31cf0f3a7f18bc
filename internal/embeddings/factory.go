package embeddings

import (
	"fmt"
	"os"
)

// Options selects and configures an embedding backend.
type Options struct {
	Provider   string // local, openai or ollama
	Model      string
	Dimensions int
	ModelDir   string
	BaseURL    string
}

// NewEmbedder builds the embedder named by opts.Provider. API keys and hosts
// not set in opts are read from the environment.
func NewEmbedder(opts Options) (Embedder, error) {
	switch opts.Provider {
	case "", "local":
		return NewLocalEmbedder(opts.Model, opts.ModelDir)

	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		return NewOpenAIEmbedder(apiKey, opts.Model, opts.Dimensions, opts.BaseURL), nil

	case "ollama":
		if opts.Dimensions <= 0 {
			return nil, fmt.Errorf("embedding_dimensions must be set for ollama embeddings")
		}
		host := opts.BaseURL
		if host == "" {
			host = os.Getenv("OLLAMA_HOST")
		}
		return NewOllamaEmbedder(opts.Model, opts.Dimensions, host), nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", opts.Provider)
	}
}
