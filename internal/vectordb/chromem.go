package vectordb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"gopkg.in/yaml.v3"

	"github.com/ziadkadry99/edwin/internal/corpus"
)

const (
	chromemFile  = "chromem.gob.gz"
	manifestFile = "collections.yaml"
)

// errNoEmbedding is returned by the collection embedding func. Records always
// carry precomputed vectors, so chromem never needs to embed on its own.
var errNoEmbedding = errors.New("chromem store requires precomputed vectors")

func noEmbedding(context.Context, string) ([]float32, error) { return nil, errNoEmbedding }

// ErrMissingManifest is returned when a store directory holds exported data
// but no manifest. Opening it as empty would hide the indexed chunks.
var ErrMissingManifest = errors.New("chromem manifest missing")

// manifest records per-collection vector sizes, which chromem does not track.
type manifest struct {
	Collections map[string]int `yaml:"collections"`
}

// ChromemStore implements Store on an embedded chromem-go database. When dir is
// set the database is loaded from and exported to dir.
type ChromemStore struct {
	mu   sync.RWMutex
	db   *chromem.DB
	dir  string
	dims map[string]int
}

// NewChromemStore opens a store. An empty dir keeps everything in memory.
func NewChromemStore(dir string) (*ChromemStore, error) {
	s := &ChromemStore{
		db:   chromem.NewDB(),
		dir:  dir,
		dims: make(map[string]int),
	}
	if dir == "" {
		return s, nil
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ChromemStore) load() error {
	dbPath := filepath.Join(s.dir, chromemFile)
	_, statErr := os.Stat(dbPath)
	hasExport := statErr == nil

	data, err := os.ReadFile(filepath.Join(s.dir, manifestFile))
	if errors.Is(err, os.ErrNotExist) {
		if hasExport {
			return fmt.Errorf("%s exists without %s, collection dimensions unknown: %w", dbPath, manifestFile, ErrMissingManifest)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}

	if hasExport {
		if err := s.db.ImportFromFile(dbPath, ""); err != nil {
			return fmt.Errorf("import from file: %w", err)
		}
	}

	for name, dim := range m.Collections {
		if _, err := s.db.GetOrCreateCollection(name, nil, noEmbedding); err != nil {
			return fmt.Errorf("open collection %q: %w", name, err)
		}
		s.dims[name] = dim
	}
	return nil
}

// Persist exports the database and manifest to the store directory.
func (s *ChromemStore) Persist() error {
	if s.dir == "" {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	if err := s.db.ExportToFile(filepath.Join(s.dir, chromemFile), true, ""); err != nil {
		return fmt.Errorf("export to file: %w", err)
	}
	data, err := yaml.Marshal(manifest{Collections: s.dims})
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, manifestFile), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func (s *ChromemStore) CollectionExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.dims[name]
	return ok, nil
}

func (s *ChromemStore) CreateCollection(_ context.Context, name string, dim int, metric Metric) error {
	if metric != MetricCosine {
		return fmt.Errorf("chromem supports only the %s metric, got %q", MetricCosine, metric)
	}
	if dim <= 0 {
		return fmt.Errorf("collection %q: dimension must be positive, got %d", name, dim)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.dims[name]; ok {
		if existing != dim {
			return fmt.Errorf("collection %q has dimension %d, want %d: %w", name, existing, dim, ErrDimensionMismatch)
		}
		return nil
	}
	if _, err := s.db.GetOrCreateCollection(name, nil, noEmbedding); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	s.dims[name] = dim
	return nil
}

func (s *ChromemStore) CollectionDimension(_ context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dim, ok := s.dims[name]
	if !ok {
		return 0, fmt.Errorf("%q: %w", name, ErrCollectionNotFound)
	}
	return dim, nil
}

func (s *ChromemStore) collection(name string) (*chromem.Collection, int, error) {
	dim, ok := s.dims[name]
	if !ok {
		return nil, 0, fmt.Errorf("%q: %w", name, ErrCollectionNotFound)
	}
	col := s.db.GetCollection(name, noEmbedding)
	if col == nil {
		return nil, 0, fmt.Errorf("%q: %w", name, ErrCollectionNotFound)
	}
	return col, dim, nil
}

func (s *ChromemStore) Upsert(ctx context.Context, name string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	col, dim, err := s.collection(name)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		if len(r.Vector) != dim {
			return fmt.Errorf("record %d has %d dimensions, collection %q wants %d: %w", r.ID, len(r.Vector), name, dim, ErrDimensionMismatch)
		}
		md, err := chunkToMetadata(r.Chunk)
		if err != nil {
			return fmt.Errorf("encode record %d: %w", r.ID, err)
		}
		docs[i] = chromem.Document{
			ID:        strconv.FormatUint(r.ID, 10),
			Content:   r.Chunk.Text,
			Metadata:  md,
			Embedding: r.Vector,
		}
	}

	// AddDocuments replaces documents that share an id.
	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("chromem upsert: %w", err)
	}
	return nil
}

func (s *ChromemStore) Query(ctx context.Context, name string, q Query) ([]ScoredRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, dim, err := s.collection(name)
	if err != nil {
		return nil, err
	}
	if len(q.Vector) != dim {
		return nil, fmt.Errorf("query has %d dimensions, collection %q wants %d: %w", len(q.Vector), name, dim, ErrDimensionMismatch)
	}
	if q.Limit <= 0 {
		return nil, nil
	}

	// chromem-go requires nResults <= collection size.
	count := col.Count()
	if count == 0 {
		return nil, nil
	}

	// chromem's where clause is equality only, so list intersection is
	// evaluated here over the full ranking.
	results, err := col.QueryEmbedding(ctx, q.Vector, count, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	var out []ScoredRecord
	for _, r := range results {
		chunk, err := metadataToChunk(r.Metadata, r.Content)
		if err != nil {
			return nil, fmt.Errorf("decode record %s: %w", r.ID, err)
		}
		if !q.Filter.Matches(chunk) {
			continue
		}
		if q.ScoreThreshold != nil && r.Similarity < *q.ScoreThreshold {
			continue
		}
		id, _ := strconv.ParseUint(r.ID, 10, 64)
		out = append(out, ScoredRecord{ID: id, Chunk: chunk, Score: r.Similarity})
		if len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (s *ChromemStore) Count(_ context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, _, err := s.collection(name)
	if err != nil {
		return 0, err
	}
	return col.Count(), nil
}

// Close persists the store when it has a directory.
func (s *ChromemStore) Close() error {
	return s.Persist()
}

// chunkToMetadata flattens a chunk into chromem's string metadata. Lists are
// JSON encoded and a missing version is stored as an empty string.
func chunkToMetadata(c corpus.Chunk) (map[string]string, error) {
	topics, err := json.Marshal(nonNil(c.Topics))
	if err != nil {
		return nil, err
	}
	entities, err := json.Marshal(nonNil(c.Entities))
	if err != nil {
		return nil, err
	}
	version := ""
	if c.Version != nil {
		version = strconv.Itoa(*c.Version)
	}
	return map[string]string{
		FieldChunkID:    c.ChunkID,
		FieldSource:     c.Source,
		FieldDocID:      c.DocID,
		FieldVersion:    version,
		FieldPage:       strconv.Itoa(c.Page),
		FieldTopics:     string(topics),
		FieldEntities:   string(entities),
		FieldChunkIndex: strconv.Itoa(c.ChunkIndex),
	}, nil
}

func metadataToChunk(md map[string]string, text string) (corpus.Chunk, error) {
	c := corpus.Chunk{
		ChunkID: md[FieldChunkID],
		Text:    text,
		Source:  md[FieldSource],
		DocID:   md[FieldDocID],
	}
	var err error
	if v := md[FieldVersion]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c, fmt.Errorf("version: %w", err)
		}
		c.Version = &n
	}
	if c.Page, err = strconv.Atoi(md[FieldPage]); err != nil {
		return c, fmt.Errorf("page: %w", err)
	}
	if c.ChunkIndex, err = strconv.Atoi(md[FieldChunkIndex]); err != nil {
		return c, fmt.Errorf("chunk_index: %w", err)
	}
	if err := json.Unmarshal([]byte(md[FieldTopics]), &c.Topics); err != nil {
		return c, fmt.Errorf("topics: %w", err)
	}
	if err := json.Unmarshal([]byte(md[FieldEntities]), &c.Entities); err != nil {
		return c, fmt.Errorf("entities: %w", err)
	}
	return c, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
