package vectordb

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ziadkadry99/edwin/internal/corpus"
)

// DefaultQdrantPort is Qdrant's gRPC port.
const DefaultQdrantPort = 6334

// QdrantConfig holds connection settings for a Qdrant server.
type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// qdrantAPI is the subset of *qdrant.Client the store calls.
type qdrantAPI interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error
	GetCollectionInfo(ctx context.Context, name string) (*qdrant.CollectionInfo, error)
	Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Count(ctx context.Context, req *qdrant.CountPoints) (uint64, error)
	Close() error
}

// QdrantStore implements Store against a Qdrant server over gRPC.
type QdrantStore struct {
	client qdrantAPI
}

// NewQdrantStore connects to Qdrant.
func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultQdrantPort
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant at %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &QdrantStore{client: client}, nil
}

func (s *QdrantStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	ok, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("qdrant collection exists: %w", err)
	}
	return ok, nil
}

func (s *QdrantStore) CreateCollection(ctx context.Context, name string, dim int, metric Metric) error {
	if metric != MetricCosine {
		return fmt.Errorf("unsupported metric %q", metric)
	}
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant create collection: %w", err)
	}
	return nil
}

func (s *QdrantStore) CollectionDimension(ctx context.Context, name string) (int, error) {
	ok, err := s.CollectionExists(ctx, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%q: %w", name, ErrCollectionNotFound)
	}
	info, err := s.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("qdrant collection info: %w", err)
	}
	size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	if size == 0 {
		return 0, fmt.Errorf("collection %q has no single unnamed vector config", name)
	}
	return int(size), nil
}

func (s *QdrantStore) Upsert(ctx context.Context, name string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(r.ID),
			Vectors: qdrant.NewVectors(r.Vector...),
			Payload: chunkToPayload(r.Chunk),
		}
	}
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

func (s *QdrantStore) Query(ctx context.Context, name string, q Query) ([]ScoredRecord, error) {
	if q.Limit <= 0 {
		return nil, nil
	}
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(q.Vector...),
		Filter:         toQdrantFilter(q.Filter),
		Limit:          qdrant.PtrOf(uint64(q.Limit)),
		ScoreThreshold: q.ScoreThreshold,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("%q: %w", name, ErrCollectionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("qdrant query: %w", err)
	}

	out := make([]ScoredRecord, len(points))
	for i, p := range points {
		out[i] = ScoredRecord{
			ID:    p.GetId().GetNum(),
			Chunk: payloadToChunk(p.GetPayload()),
			Score: p.GetScore(),
		}
	}
	return out, nil
}

func (s *QdrantStore) Count(ctx context.Context, name string) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: name,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	return int(n), nil
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func toQdrantFilter(f *Filter) *qdrant.Filter {
	if f == nil || len(f.Must) == 0 {
		return nil
	}
	conds := make([]*qdrant.Condition, 0, len(f.Must))
	for _, c := range f.Must {
		if len(c.Integers) > 0 {
			conds = append(conds, qdrant.NewMatchInts(c.Key, c.Integers...))
			continue
		}
		conds = append(conds, qdrant.NewMatchKeywords(c.Key, c.Keywords...))
	}
	return &qdrant.Filter{Must: conds}
}

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func intValue(n int64) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: n}}
}

func nullValue() *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_NullValue{NullValue: qdrant.NullValue_NULL_VALUE}}
}

func listValue(items []string) *qdrant.Value {
	values := make([]*qdrant.Value, len(items))
	for i, s := range items {
		values[i] = stringValue(s)
	}
	return &qdrant.Value{Kind: &qdrant.Value_ListValue{ListValue: &qdrant.ListValue{Values: values}}}
}

// chunkToPayload stores every chunk field so results render without a lookup.
func chunkToPayload(c corpus.Chunk) map[string]*qdrant.Value {
	version := nullValue()
	if c.Version != nil {
		version = intValue(int64(*c.Version))
	}
	return map[string]*qdrant.Value{
		FieldChunkID:    stringValue(c.ChunkID),
		FieldText:       stringValue(c.Text),
		FieldSource:     stringValue(c.Source),
		FieldDocID:      stringValue(c.DocID),
		FieldVersion:    version,
		FieldPage:       intValue(int64(c.Page)),
		FieldTopics:     listValue(c.Topics),
		FieldEntities:   listValue(c.Entities),
		FieldChunkIndex: intValue(int64(c.ChunkIndex)),
	}
}

func payloadToChunk(p map[string]*qdrant.Value) corpus.Chunk {
	c := corpus.Chunk{
		ChunkID:    p[FieldChunkID].GetStringValue(),
		Text:       p[FieldText].GetStringValue(),
		Source:     p[FieldSource].GetStringValue(),
		DocID:      p[FieldDocID].GetStringValue(),
		Page:       int(p[FieldPage].GetIntegerValue()),
		Topics:     stringList(p[FieldTopics]),
		Entities:   stringList(p[FieldEntities]),
		ChunkIndex: int(p[FieldChunkIndex].GetIntegerValue()),
	}
	if v, ok := p[FieldVersion]; ok {
		if _, isInt := v.GetKind().(*qdrant.Value_IntegerValue); isInt {
			n := int(v.GetIntegerValue())
			c.Version = &n
		}
	}
	return c
}

func stringList(v *qdrant.Value) []string {
	values := v.GetListValue().GetValues()
	out := make([]string, 0, len(values))
	for _, item := range values {
		out = append(out, item.GetStringValue())
	}
	return out
}
