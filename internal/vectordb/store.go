package vectordb

import (
	"context"
	"errors"

	"github.com/ziadkadry99/edwin/internal/corpus"
)

var (
	// ErrDimensionMismatch is returned when a collection exists with a vector
	// size other than the one requested, or a record does not fit it.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrCollectionNotFound is returned when an operation targets a missing collection.
	ErrCollectionNotFound = errors.New("collection not found")
)

// Metric is the similarity function of a collection.
type Metric string

const MetricCosine Metric = "cosine"

// Payload keys. Both stores write every chunk field under these names.
const (
	FieldChunkID    = "chunk_id"
	FieldText       = "text"
	FieldSource     = "source"
	FieldDocID      = "doc_id"
	FieldVersion    = "version"
	FieldPage       = "page"
	FieldTopics     = "topics"
	FieldEntities   = "entities"
	FieldChunkIndex = "chunk_index"
)

// Record is one storage point: a stable id, its vector and the full chunk payload.
type Record struct {
	ID     uint64
	Vector []float32
	Chunk  corpus.Chunk
}

// Condition matches when the stored value of Key intersects the given values.
// Exactly one of Keywords or Integers is set.
type Condition struct {
	Key      string
	Keywords []string
	Integers []int64
}

// Filter is a conjunction of conditions.
type Filter struct {
	Must []Condition
}

// Query describes a top-K similarity search.
type Query struct {
	Vector []float32
	Filter *Filter
	Limit  int
	// ScoreThreshold drops results scoring below it. Nil means no threshold.
	ScoreThreshold *float32
}

// ScoredRecord is a query hit.
type ScoredRecord struct {
	ID    uint64
	Chunk corpus.Chunk
	Score float32
}

// Store is the vector database boundary. Implementations apply the filter,
// then the score threshold, then the limit, and return hits by descending score.
type Store interface {
	// CollectionExists reports whether the named collection exists.
	CollectionExists(ctx context.Context, name string) (bool, error)

	// CreateCollection creates a collection with the given vector size and metric.
	CreateCollection(ctx context.Context, name string, dim int, metric Metric) error

	// CollectionDimension returns the vector size of an existing collection.
	CollectionDimension(ctx context.Context, name string) (int, error)

	// Upsert inserts or replaces records keyed by Record.ID.
	Upsert(ctx context.Context, name string, records []Record) error

	// Query runs a similarity search.
	Query(ctx context.Context, name string, q Query) ([]ScoredRecord, error)

	// Count returns the number of records in the collection.
	Count(ctx context.Context, name string) (int, error)

	// Close releases the store, persisting any local state.
	Close() error
}

// Matches reports whether chunk satisfies every condition in f. A nil filter
// matches everything.
func (f *Filter) Matches(chunk corpus.Chunk) bool {
	if f == nil {
		return true
	}
	for _, cond := range f.Must {
		if !cond.matches(chunk) {
			return false
		}
	}
	return true
}

func (c Condition) matches(chunk corpus.Chunk) bool {
	switch c.Key {
	case FieldTopics:
		return intersects(chunk.Topics, c.Keywords)
	case FieldEntities:
		return intersects(chunk.Entities, c.Keywords)
	case FieldSource:
		return intersects([]string{chunk.Source}, c.Keywords)
	case FieldDocID:
		return intersects([]string{chunk.DocID}, c.Keywords)
	case FieldVersion:
		if chunk.Version == nil {
			return false
		}
		return containsInt(c.Integers, int64(*chunk.Version))
	case FieldPage:
		return containsInt(c.Integers, int64(chunk.Page))
	}
	return false
}

func intersects(stored, wanted []string) bool {
	for _, s := range stored {
		for _, w := range wanted {
			if s == w {
				return true
			}
		}
	}
	return false
}

func containsInt(values []int64, v int64) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
