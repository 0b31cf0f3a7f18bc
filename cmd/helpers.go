package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ziadkadry99/edwin/internal/config"
	"github.com/ziadkadry99/edwin/internal/corpus"
	"github.com/ziadkadry99/edwin/internal/embeddings"
	"github.com/ziadkadry99/edwin/internal/llm"
	"github.com/ziadkadry99/edwin/internal/planner"
	"github.com/ziadkadry99/edwin/internal/rag"
	"github.com/ziadkadry99/edwin/internal/retriever"
	"github.com/ziadkadry99/edwin/internal/vectordb"
)

// loadConfig loads and validates the config, then applies its log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `edwin init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := setupLogging(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

// createEmbedderFromConfig creates the embedder for indexing and queries.
// A positive cacheSize wraps it in an LRU for repeated query texts.
func createEmbedderFromConfig(cfg *config.Config, cacheSize int) (embeddings.Embedder, error) {
	e, err := embeddings.NewEmbedder(embeddings.Options{
		Provider:   string(cfg.EmbeddingProvider),
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.EmbeddingDimensions,
		ModelDir:   cfg.ModelDir,
		BaseURL:    cfg.EmbeddingBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	if cfg.EmbeddingDimensions > 0 && e.Dimensions() != cfg.EmbeddingDimensions {
		_ = embeddings.Close(e)
		return nil, fmt.Errorf("embedder %s produces %d dimensions but embedding_dimensions is %d",
			e.Name(), e.Dimensions(), cfg.EmbeddingDimensions)
	}
	if cacheSize > 0 {
		return embeddings.NewCachedEmbedder(e, cacheSize), nil
	}
	return e, nil
}

// createLLMProviderFromConfig creates an LLM provider based on config settings.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	p, err := llm.NewProvider(string(cfg.Provider), cfg.Model, cfg.LLMBaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	return llm.NewRateLimitedProvider(p, cfg.LLMRequestsPerMinute), nil
}

// createStoreFromConfig opens the configured vector store.
func createStoreFromConfig(cfg *config.Config) (vectordb.Store, error) {
	switch cfg.Store.Type {
	case config.StoreChromem:
		s, err := vectordb.NewChromemStore(cfg.Store.Chromem.Dir)
		if err != nil {
			return nil, fmt.Errorf("opening chromem store at %s: %w", cfg.Store.Chromem.Dir, err)
		}
		return s, nil
	default:
		s, err := vectordb.NewQdrantStore(vectordb.QdrantConfig{
			Host:   cfg.Store.Qdrant.Host,
			Port:   cfg.Store.Qdrant.Port,
			APIKey: cfg.Store.Qdrant.APIKey,
			UseTLS: cfg.Store.Qdrant.UseTLS,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to qdrant at %s:%d: %w", cfg.Store.Qdrant.Host, cfg.Store.Qdrant.Port, err)
		}
		return s, nil
	}
}

// queryStack is everything a query surface needs, with one Close.
type queryStack struct {
	service  *rag.Service
	store    vectordb.Store
	embedder embeddings.Embedder
}

func (q *queryStack) Close() error {
	return errors.Join(q.store.Close(), embeddings.Close(q.embedder))
}

// buildQueryStack wires embedder, store, planner and answer provider. An
// LLM that cannot be created disables planning and answers with a warning
// unless requireLLM is set.
func buildQueryStack(ctx context.Context, cfg *config.Config, requireLLM bool) (*queryStack, error) {
	embedder, err := createEmbedderFromConfig(cfg, cfg.EmbeddingCacheSize)
	if err != nil {
		return nil, err
	}
	store, err := createStoreFromConfig(cfg)
	if err != nil {
		_ = embeddings.Close(embedder)
		return nil, err
	}
	stack := &queryStack{store: store, embedder: embedder}

	if err := checkCollection(ctx, store, cfg.Store.Collection, embedder.Dimensions()); err != nil {
		_ = stack.Close()
		return nil, err
	}

	logger := slog.Default()
	var (
		p        *planner.Planner
		provider llm.Provider
	)
	provider, err = createLLMProviderFromConfig(cfg)
	switch {
	case err != nil && requireLLM:
		_ = stack.Close()
		return nil, err
	case err != nil:
		logger.Warn("LLM unavailable, query planning disabled", "error", err)
		provider = nil
	default:
		p = planner.New(planner.NewToolExtractor(provider, cfg.Model), logger)
	}

	stack.service = rag.New(p,
		retriever.New(embedder, store, cfg.Store.Collection, logger),
		provider,
		rag.Defaults{
			TopK:            cfg.Retrieval.TopK,
			MinScore:        cfg.Retrieval.MinScore,
			MaxContextChars: cfg.Retrieval.MaxContextChars,
			Plan:            cfg.Retrieval.Plan,
		},
		logger,
	)
	return stack, nil
}

// checkCollection fails fast when the collection was built with another
// embedding size. A missing collection only warns: searches return nothing.
func checkCollection(ctx context.Context, store vectordb.Store, name string, dim int) error {
	exists, err := store.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("checking collection %q: %w", name, err)
	}
	if !exists {
		slog.Warn("collection does not exist yet, run `edwin ingest` first", "collection", name)
		return nil
	}
	have, err := store.CollectionDimension(ctx, name)
	if err != nil {
		return fmt.Errorf("inspecting collection %q: %w", name, err)
	}
	if have != dim {
		return fmt.Errorf("collection %q has %d dimensions but the embedder produces %d: %w",
			name, have, dim, vectordb.ErrDimensionMismatch)
	}
	return nil
}

// inputsOr expands args as globs, falling back to def when args is empty.
func inputsOr(args []string, def string) ([]string, error) {
	if len(args) == 0 {
		args = []string{def}
	}
	return corpus.ExpandInputs(args)
}

// logSkipped reports a malformed input line.
func logSkipped(path string, line int, err error) {
	slog.Warn("skipping malformed record", "file", path, "line", line, "error", err)
}

// splitList splits comma-separated flag values, trimming blanks.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
