package rag

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/edwin/internal/corpus"
	"github.com/ziadkadry99/edwin/internal/llm"
	"github.com/ziadkadry99/edwin/internal/planner"
	"github.com/ziadkadry99/edwin/internal/retriever"
	"github.com/ziadkadry99/edwin/internal/vectordb"
)

const collection = "document_chunks"

// keywordEmbedder puts text on axis 0 when it mentions "scoring", else axis 1.
type keywordEmbedder struct{ texts []string }

func (k *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	k.texts = append(k.texts, texts...)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if strings.Contains(strings.ToLower(t), "scoring") {
			out[i] = []float32{1, 0.1}
		} else {
			out[i] = []float32{0.1, 1}
		}
	}
	return out, nil
}

func (k *keywordEmbedder) Dimensions() int { return 2 }
func (k *keywordEmbedder) Name() string    { return "keyword" }

// queueProvider returns responses in order and records prompts.
type queueProvider struct {
	responses []*llm.CompletionResponse
	err       error
	requests  []llm.CompletionRequest
}

func (q *queueProvider) Name() string { return "queue" }

func (q *queueProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	q.requests = append(q.requests, req)
	if q.err != nil {
		return nil, q.err
	}
	if len(q.responses) == 0 {
		return &llm.CompletionResponse{}, nil
	}
	r := q.responses[0]
	q.responses = q.responses[1:]
	return r, nil
}

func tool(name, args string) *llm.CompletionResponse {
	return &llm.CompletionResponse{ToolCalls: []llm.ToolCall{{Name: name, Arguments: json.RawMessage(args)}}}
}

func newService(t *testing.T, provider llm.Provider, defaults Defaults) (*Service, *keywordEmbedder) {
	t.Helper()
	ctx := context.Background()
	store, err := vectordb.NewChromemStore("")
	require.NoError(t, err)
	require.NoError(t, store.CreateCollection(ctx, collection, 2, vectordb.MetricCosine))
	require.NoError(t, store.Upsert(ctx, collection, []vectordb.Record{
		{ID: 1, Vector: []float32{1, 0}, Chunk: corpus.Chunk{ChunkID: "qap_2024_p3_c0", Text: "Scoring rubric.", Source: "QAP 2024.pdf", Page: 3, Version: corpus.IntPtr(2024), Topics: []string{"scoring"}, Entities: []string{"PHFA"}}},
		{ID: 2, Vector: []float32{0.9, 0.2}, Chunk: corpus.Chunk{ChunkID: "qap_2023_p5_c0", Text: "Old scoring rubric.", Source: "QAP 2023.pdf", Page: 5, Version: corpus.IntPtr(2023), Topics: []string{"scoring"}, Entities: []string{"PHFA"}}},
		{ID: 3, Vector: []float32{0, 1}, Chunk: corpus.Chunk{ChunkID: "manual_p1_c0", Text: "Income limits.", Source: "Manual.pdf", Page: 1, Topics: []string{"income"}, Entities: []string{"HUD"}}},
	}))

	emb := &keywordEmbedder{}
	var p *planner.Planner
	if provider != nil {
		p = planner.New(planner.NewToolExtractor(provider, ""), nil)
	}
	return New(p, retriever.New(emb, store, collection, nil), provider, defaults, nil), emb
}

func intp(n int) *int { return &n }

func TestSearchWithPlan(t *testing.T) {
	provider := &queueProvider{responses: []*llm.CompletionResponse{
		tool(planner.SearchToolName, `{"topics":["scoring"],"entities":[],"year":2024}`),
		tool(planner.RefineToolName, `{"updated_query":"2024 scoring rubric"}`),
	}}
	svc, emb := newService(t, provider, Defaults{TopK: 5, Plan: true})

	resp, err := svc.Search(context.Background(), Request{Query: "  how are projects scored this year? "})
	require.NoError(t, err)

	assert.Equal(t, "how are projects scored this year?", resp.Query)
	assert.Equal(t, "2024 scoring rubric", resp.RefinedQuery)
	assert.Equal(t, []string{"2024 scoring rubric"}, emb.texts, "the refined query is embedded")
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "qap_2024_p3_c0", resp.Results[0].Chunk.ChunkID)
}

func TestSearchExplicitFiltersOverridePlan(t *testing.T) {
	provider := &queueProvider{responses: []*llm.CompletionResponse{
		tool(planner.SearchToolName, `{"topics":["scoring"],"year":2024}`),
		tool(planner.RefineToolName, `{"updated_query":"scoring"}`),
	}}
	svc, _ := newService(t, provider, Defaults{TopK: 5, Plan: true})

	resp, err := svc.Search(context.Background(), Request{Query: "scoring", Filters: retriever.Filters{Version: intp(2023)}})
	require.NoError(t, err)
	assert.Equal(t, []string{"scoring"}, resp.Filters.Topics)
	assert.Equal(t, 2023, *resp.Filters.Version)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "QAP 2023.pdf", resp.Results[0].Chunk.Source)
}

func TestSearchDegradesWhenPlannerFails(t *testing.T) {
	svc, _ := newService(t, &queueProvider{err: errors.New("ollama down")}, Defaults{TopK: 2, Plan: true})

	resp, err := svc.Search(context.Background(), Request{Query: "scoring"})
	require.NoError(t, err)
	assert.Equal(t, "scoring", resp.RefinedQuery)
	assert.True(t, resp.Filters.IsEmpty())
	assert.Len(t, resp.Results, 2)
}

func TestSearchPlanDisabledPerRequest(t *testing.T) {
	provider := &queueProvider{}
	svc, _ := newService(t, provider, Defaults{TopK: 5, Plan: true})

	noPlan := false
	_, err := svc.Search(context.Background(), Request{Query: "scoring", Plan: &noPlan})
	require.NoError(t, err)
	assert.Empty(t, provider.requests)
}

func TestSearchTopKAndThreshold(t *testing.T) {
	svc, _ := newService(t, nil, Defaults{TopK: 5, MinScore: 0.9})

	resp, err := svc.Search(context.Background(), Request{Query: "scoring"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2, "default threshold drops the income chunk")

	resp, err = svc.Search(context.Background(), Request{Query: "scoring", TopK: intp(1)})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 1)

	resp, err = svc.Search(context.Background(), Request{Query: "scoring", TopK: intp(0)})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)

	_, err = svc.Search(context.Background(), Request{Query: "   "})
	assert.Error(t, err)
}

func TestContext(t *testing.T) {
	svc, _ := newService(t, nil, Defaults{TopK: 2})

	block, resp, err := svc.Context(context.Background(), Request{Query: "scoring"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "[QAP 2024.pdf - page 3]: Scoring rubric.\n\n[QAP 2023.pdf - page 5]: Old scoring rubric.", block)
}

func TestAnswer(t *testing.T) {
	provider := &queueProvider{responses: []*llm.CompletionResponse{{Content: " Projects are scored by rubric (QAP 2024.pdf, page 3). "}}}
	svc, _ := newService(t, provider, Defaults{TopK: 1})

	ans, err := svc.Answer(context.Background(), Request{Query: "scoring"})
	require.NoError(t, err)
	assert.Equal(t, "Projects are scored by rubric (QAP 2024.pdf, page 3).", ans.Text)
	assert.Equal(t, "[QAP 2024.pdf - page 3]: Scoring rubric.", ans.Context)

	require.Len(t, provider.requests, 1)
	prompt := provider.requests[0].Messages[0].Content
	assert.Contains(t, prompt, "### User question:\nscoring")
	assert.Contains(t, prompt, "[QAP 2024.pdf - page 3]: Scoring rubric.")
}

func TestAnswerWithoutProvider(t *testing.T) {
	svc, _ := newService(t, nil, Defaults{TopK: 1})
	_, err := svc.Answer(context.Background(), Request{Query: "scoring"})
	assert.ErrorIs(t, err, ErrNoProvider)
}
