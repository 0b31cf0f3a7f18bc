// Package indexer embeds chunks and upserts them into the vector store in
// bounded, sequential batches.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/edwin/internal/corpus"
	"github.com/ziadkadry99/edwin/internal/embeddings"
	"github.com/ziadkadry99/edwin/internal/identity"
	"github.com/ziadkadry99/edwin/internal/vectordb"
)

const (
	DefaultCollection = "document_chunks"
	DefaultBatchSize  = 500
)

// ProgressFunc is called after each successful batch with the number of
// records uploaded so far and the total.
type ProgressFunc func(uploaded, total int)

// Indexer writes chunks to one collection.
type Indexer struct {
	embedder   embeddings.Embedder
	store      vectordb.Store
	collection string
	batchSize  int
	onProgress ProgressFunc
	logger     *slog.Logger
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithCollection sets the target collection.
func WithCollection(name string) Option {
	return func(ix *Indexer) {
		if name != "" {
			ix.collection = name
		}
	}
}

// WithBatchSize sets the number of records per upsert. Values below 1 are ignored.
func WithBatchSize(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.batchSize = n
		}
	}
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(ix *Indexer) { ix.onProgress = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(ix *Indexer) {
		if l != nil {
			ix.logger = l
		}
	}
}

// New creates an Indexer.
func New(embedder embeddings.Embedder, store vectordb.Store, opts ...Option) *Indexer {
	ix := &Indexer{
		embedder:   embedder,
		store:      store,
		collection: DefaultCollection,
		batchSize:  DefaultBatchSize,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Collection returns the target collection name.
func (ix *Indexer) Collection() string { return ix.collection }

// EnsureCollection creates the collection with the embedder's dimensions and
// cosine similarity. An existing collection of another size is an
// ErrDimensionMismatch, never silently reused.
func (ix *Indexer) EnsureCollection(ctx context.Context) error {
	dim := ix.embedder.Dimensions()
	if dim <= 0 {
		return fmt.Errorf("embedder %s reports %d dimensions", ix.embedder.Name(), dim)
	}

	exists, err := ix.store.CollectionExists(ctx, ix.collection)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if !exists {
		if err := ix.store.CreateCollection(ctx, ix.collection, dim, vectordb.MetricCosine); err != nil {
			return fmt.Errorf("create collection %q: %w", ix.collection, err)
		}
		ix.logger.Info("created collection", "collection", ix.collection, "dimensions", dim)
		return nil
	}

	have, err := ix.store.CollectionDimension(ctx, ix.collection)
	if err != nil {
		return fmt.Errorf("inspect collection: %w", err)
	}
	if have != dim {
		return fmt.Errorf("collection %q has %d dimensions but %s produces %d: %w",
			ix.collection, have, ix.embedder.Name(), dim, vectordb.ErrDimensionMismatch)
	}
	return nil
}

// Index uploads chunks and returns how many were stored. Batches run one at a
// time and only one batch of vectors is held at once. A failed batch is
// logged and skipped; the returned error joins every batch failure.
// Collection setup errors abort before anything is uploaded.
func (ix *Indexer) Index(ctx context.Context, chunks []corpus.Chunk) (int, error) {
	if err := ix.EnsureCollection(ctx); err != nil {
		return 0, err
	}

	total := len(chunks)
	runID := uuid.NewString()
	log := ix.logger.With("run_id", runID, "collection", ix.collection)
	log.Info("indexing started", "chunks", total, "batch_size", ix.batchSize, "embedder", ix.embedder.Name())
	start := time.Now()

	seen := make(map[uint64]string, total)
	var (
		uploaded int
		errs     []error
	)
	for batchNo, lo := 0, 0; lo < total; batchNo, lo = batchNo+1, lo+ix.batchSize {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("indexing interrupted after %d of %d: %w", uploaded, total, err))
			break
		}
		hi := min(lo+ix.batchSize, total)

		records, err := ix.buildBatch(ctx, chunks[lo:hi], seen, log)
		if err == nil {
			err = ix.store.Upsert(ctx, ix.collection, records)
		}
		if err != nil {
			log.Error("batch failed", "batch", batchNo, "from", lo, "to", hi, "error", err)
			errs = append(errs, fmt.Errorf("batch %d (chunks %d-%d): %w", batchNo, lo, hi-1, err))
			continue
		}

		uploaded += len(records)
		if ix.onProgress != nil {
			ix.onProgress(uploaded, total)
		}
		log.Debug("batch uploaded", "batch", batchNo, "uploaded", uploaded, "total", total)
	}

	log.Info("indexing finished",
		"uploaded", uploaded,
		"failed_batches", len(errs),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return uploaded, errors.Join(errs...)
}

func (ix *Indexer) buildBatch(ctx context.Context, batch []corpus.Chunk, seen map[uint64]string, log *slog.Logger) ([]vectordb.Record, error) {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	vecs, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if err := embeddings.Check(vecs, len(batch), ix.embedder.Dimensions()); err != nil {
		return nil, err
	}

	records := make([]vectordb.Record, len(batch))
	for i, c := range batch {
		id := identity.StableID(c.ChunkID)
		if prev, ok := seen[id]; ok && prev != c.ChunkID {
			log.Warn("stable id collision, later chunk overwrites earlier", "id", id, "chunk_id", c.ChunkID, "previous", prev)
		}
		seen[id] = c.ChunkID
		records[i] = vectordb.Record{ID: id, Vector: vecs[i], Chunk: c}
	}
	return records, nil
}
