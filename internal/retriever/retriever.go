// Package retriever runs filtered top-K similarity searches over the indexed
// corpus.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ziadkadry99/edwin/internal/corpus"
	"github.com/ziadkadry99/edwin/internal/embeddings"
	"github.com/ziadkadry99/edwin/internal/vectordb"
)

// ErrRetrieval wraps every embedder or store failure during a query.
var ErrRetrieval = errors.New("retrieval failed")

// Filters narrows a search. Empty lists and a nil Version mean no constraint
// on that attribute. Present attributes are ANDed; list attributes match when
// the stored list intersects the given one.
type Filters struct {
	Topics   []string `json:"topics,omitempty"`
	Entities []string `json:"entities,omitempty"`
	Version  *int     `json:"version,omitempty"`
}

// IsEmpty reports whether f constrains nothing.
func (f Filters) IsEmpty() bool {
	return len(f.Topics) == 0 && len(f.Entities) == 0 && f.Version == nil
}

// Merge returns f with each attribute replaced by override's when override
// sets it.
func (f Filters) Merge(override Filters) Filters {
	if len(override.Topics) > 0 {
		f.Topics = override.Topics
	}
	if len(override.Entities) > 0 {
		f.Entities = override.Entities
	}
	if override.Version != nil {
		f.Version = override.Version
	}
	return f
}

// ComposeFilter builds one conjunctive store filter, or nil when f is empty.
func ComposeFilter(f Filters) *vectordb.Filter {
	if f.IsEmpty() {
		return nil
	}
	var must []vectordb.Condition
	if len(f.Topics) > 0 {
		must = append(must, vectordb.Condition{Key: vectordb.FieldTopics, Keywords: f.Topics})
	}
	if len(f.Entities) > 0 {
		must = append(must, vectordb.Condition{Key: vectordb.FieldEntities, Keywords: f.Entities})
	}
	if f.Version != nil {
		must = append(must, vectordb.Condition{Key: vectordb.FieldVersion, Integers: []int64{int64(*f.Version)}})
	}
	return &vectordb.Filter{Must: must}
}

// Result is one ranked hit.
type Result struct {
	Chunk corpus.Chunk `json:"chunk"`
	Score float32      `json:"score"`
}

// Retriever embeds queries and searches one collection. The embedder must be
// the model the collection was indexed with.
type Retriever struct {
	embedder   embeddings.Embedder
	store      vectordb.Store
	collection string
	logger     *slog.Logger
}

// New creates a Retriever. A nil logger uses slog.Default().
func New(embedder embeddings.Embedder, store vectordb.Store, collection string, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		embedder:   embedder,
		store:      store,
		collection: collection,
		logger:     logger,
	}
}

// Retrieve returns up to topK results by descending score, in store order.
// minScore, when set, drops results scoring below it before the limit is
// applied. A missing collection yields no results. topK <= 0 returns no results and touches neither embedder nor store.
func (r *Retriever) Retrieve(ctx context.Context, query string, filters Filters, topK int, minScore *float32) ([]Result, error) {
	if topK <= 0 {
		return []Result{}, nil
	}

	vec, err := embeddings.EmbedOne(ctx, r.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", ErrRetrieval, err)
	}

	hits, err := r.store.Query(ctx, r.collection, vectordb.Query{
		Vector:         vec,
		Filter:         ComposeFilter(filters),
		Limit:          topK,
		ScoreThreshold: minScore,
	})
	if errors.Is(err, vectordb.ErrCollectionNotFound) {
		r.logger.Warn("collection does not exist, nothing to search", "collection", r.collection)
		return []Result{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{Chunk: h.Chunk, Score: h.Score}
	}
	r.logger.Debug("retrieved", "query", query, "filters", !filters.IsEmpty(), "results", len(results))
	return results, nil
}
