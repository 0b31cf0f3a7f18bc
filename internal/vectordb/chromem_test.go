package vectordb

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/edwin/internal/corpus"
)

const testCollection = "document_chunks"

// unit returns a normalized 4-dimensional vector at the given angle in the
// first two axes, so cosine similarity to axis(0) is cos(angle).
func unit(angle float64) []float32 {
	return []float32{float32(math.Cos(angle)), float32(math.Sin(angle)), 0, 0}
}

func testRecords() []Record {
	return []Record{
		{ID: 1, Vector: unit(0.1), Chunk: corpus.Chunk{
			ChunkID: "qap_2024_p1_c0", Text: "Scoring criteria for tax credits.", Source: "QAP 2024.pdf",
			DocID: "qap_2024", Version: corpus.IntPtr(2024), Page: 1,
			Topics: []string{"scoring", "tax credits"}, Entities: []string{"PHFA"},
		}},
		{ID: 2, Vector: unit(0.3), Chunk: corpus.Chunk{
			ChunkID: "qap_2023_p4_c1", Text: "Income limits apply.", Source: "QAP 2023.pdf",
			DocID: "qap_2023", Version: corpus.IntPtr(2023), Page: 4, ChunkIndex: 1,
			Topics: []string{"income limits"}, Entities: []string{"HUD"},
		}},
		{ID: 3, Vector: unit(0.6), Chunk: corpus.Chunk{
			ChunkID: "manual_p2_c0", Text: "Undated manual text.", Source: "manual.pdf",
			DocID: "manual", Page: 2,
			Topics: []string{}, Entities: []string{"PHFA", "HUD"},
		}},
	}
}

func newTestChromem(t *testing.T, dir string) *ChromemStore {
	t.Helper()
	s, err := NewChromemStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.CreateCollection(context.Background(), testCollection, 4, MetricCosine))
	return s
}

func TestChromemStore_CreateCollection(t *testing.T) {
	ctx := context.Background()
	s, err := NewChromemStore("")
	require.NoError(t, err)

	ok, err := s.CollectionExists(ctx, testCollection)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.CollectionDimension(ctx, testCollection)
	assert.ErrorIs(t, err, ErrCollectionNotFound)

	require.NoError(t, s.CreateCollection(ctx, testCollection, 4, MetricCosine))
	require.NoError(t, s.CreateCollection(ctx, testCollection, 4, MetricCosine), "same dimension is a no-op")

	err = s.CreateCollection(ctx, testCollection, 8, MetricCosine)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	dim, err := s.CollectionDimension(ctx, testCollection)
	require.NoError(t, err)
	assert.Equal(t, 4, dim)

	assert.Error(t, s.CreateCollection(ctx, "other", 4, Metric("dot")))
}

func TestChromemStore_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestChromem(t, "")

	require.NoError(t, s.Upsert(ctx, testCollection, testRecords()))
	require.NoError(t, s.Upsert(ctx, testCollection, testRecords()))

	n, err := s.Count(ctx, testCollection)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestChromemStore_UpsertRejectsWrongDimension(t *testing.T) {
	s := newTestChromem(t, "")
	err := s.Upsert(context.Background(), testCollection, []Record{{ID: 9, Vector: []float32{1, 0}}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	err = s.Upsert(context.Background(), "missing", testRecords())
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestChromemStore_QueryOrderAndPayload(t *testing.T) {
	ctx := context.Background()
	s := newTestChromem(t, "")
	require.NoError(t, s.Upsert(ctx, testCollection, testRecords()))

	hits, err := s.Query(ctx, testCollection, Query{Vector: unit(0), Limit: 10})
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, []uint64{1, 2, 3}, []uint64{hits[0].ID, hits[1].ID, hits[2].ID})
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
	assert.InDelta(t, math.Cos(0.1), hits[0].Score, 1e-4)

	assert.Equal(t, testRecords()[0].Chunk, hits[0].Chunk)
	assert.Nil(t, hits[2].Chunk.Version)
	assert.Equal(t, []string{}, hits[2].Chunk.Topics)
}

func TestChromemStore_QueryFilter(t *testing.T) {
	ctx := context.Background()
	s := newTestChromem(t, "")
	require.NoError(t, s.Upsert(ctx, testCollection, testRecords()))

	tests := []struct {
		name   string
		filter *Filter
		want   []uint64
	}{
		{"nil filter", nil, []uint64{1, 2, 3}},
		{"topic any-of", &Filter{Must: []Condition{{Key: FieldTopics, Keywords: []string{"scoring", "income limits"}}}}, []uint64{1, 2}},
		{"entity", &Filter{Must: []Condition{{Key: FieldEntities, Keywords: []string{"HUD"}}}}, []uint64{2, 3}},
		{"version", &Filter{Must: []Condition{{Key: FieldVersion, Integers: []int64{2023}}}}, []uint64{2}},
		{"conjunction", &Filter{Must: []Condition{
			{Key: FieldEntities, Keywords: []string{"PHFA"}},
			{Key: FieldVersion, Integers: []int64{2024}},
		}}, []uint64{1}},
		{"no match", &Filter{Must: []Condition{{Key: FieldTopics, Keywords: []string{"zoning"}}}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := s.Query(ctx, testCollection, Query{Vector: unit(0), Filter: tt.filter, Limit: 10})
			require.NoError(t, err)
			var ids []uint64
			for _, h := range hits {
				ids = append(ids, h.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestChromemStore_QueryThresholdBeforeLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestChromem(t, "")
	require.NoError(t, s.Upsert(ctx, testCollection, testRecords()))

	// cos(0.1)=0.995, cos(0.3)=0.955, cos(0.6)=0.825
	threshold := float32(0.9)
	hits, err := s.Query(ctx, testCollection, Query{Vector: unit(0), Limit: 10, ScoreThreshold: &threshold})
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = s.Query(ctx, testCollection, Query{Vector: unit(0), Limit: 1, ScoreThreshold: &threshold})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, uint64(1), hits[0].ID)

	high := float32(0.999)
	hits, err = s.Query(ctx, testCollection, Query{Vector: unit(0), Limit: 10, ScoreThreshold: &high})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestChromemStore_QueryEmptyAndZeroLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestChromem(t, "")

	hits, err := s.Query(ctx, testCollection, Query{Vector: unit(0), Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, s.Upsert(ctx, testCollection, testRecords()))
	hits, err = s.Query(ctx, testCollection, Query{Vector: unit(0), Limit: 0})
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = s.Query(ctx, testCollection, Query{Vector: []float32{1}, Limit: 5})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestChromemStore_PersistAndLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s := newTestChromem(t, dir)
	require.NoError(t, s.Upsert(ctx, testCollection, testRecords()))
	require.NoError(t, s.Close())

	reopened, err := NewChromemStore(dir)
	require.NoError(t, err)

	dim, err := reopened.CollectionDimension(ctx, testCollection)
	require.NoError(t, err)
	assert.Equal(t, 4, dim)

	n, err := reopened.Count(ctx, testCollection)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	hits, err := reopened.Query(ctx, testCollection, Query{Vector: unit(0), Limit: 1})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "qap_2024_p1_c0", hits[0].Chunk.ChunkID)
}

func TestNewChromemStore_EmptyDir(t *testing.T) {
	s, err := NewChromemStore(t.TempDir())
	require.NoError(t, err)
	ok, err := s.CollectionExists(context.Background(), testCollection)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewChromemStore_ExportWithoutManifest(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s := newTestChromem(t, dir)
	require.NoError(t, s.Upsert(ctx, testCollection, testRecords()))
	require.NoError(t, s.Close())
	require.NoError(t, os.Remove(filepath.Join(dir, manifestFile)))

	_, err := NewChromemStore(dir)
	assert.ErrorIs(t, err, ErrMissingManifest, "indexed data must not open as an empty store")
}
