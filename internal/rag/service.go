// Package rag wires planning, retrieval and context assembly into the query
// service every surface (CLI, HTTP, MCP) calls.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ziadkadry99/edwin/internal/grounding"
	"github.com/ziadkadry99/edwin/internal/llm"
	"github.com/ziadkadry99/edwin/internal/planner"
	"github.com/ziadkadry99/edwin/internal/retriever"
)

// ErrNoProvider is returned by Answer when no LLM is configured.
var ErrNoProvider = errors.New("no llm provider configured")

// Defaults apply when a Request leaves a field unset.
type Defaults struct {
	TopK int
	// MinScore <= 0 means no threshold.
	MinScore        float32
	MaxContextChars int
	Plan            bool
}

// Request is one query. Nil TopK, MinScore and Plan take the service defaults.
// Filters set here override the planner's, attribute by attribute.
type Request struct {
	Query    string
	TopK     *int
	MinScore *float32
	Filters  retriever.Filters
	Plan     *bool
}

// Response is the outcome of a search.
type Response struct {
	Query        string             `json:"query"`
	RefinedQuery string             `json:"refined_query"`
	Filters      retriever.Filters  `json:"filters"`
	Results      []retriever.Result `json:"results"`
}

// Answer is a generated answer with the retrieval that grounded it.
type Answer struct {
	Text     string    `json:"answer"`
	Context  string    `json:"context"`
	Response *Response `json:"retrieval"`
}

// Service runs queries.
type Service struct {
	planner   *planner.Planner
	retriever *retriever.Retriever
	provider  llm.Provider
	defaults  Defaults
	logger    *slog.Logger
}

// New creates a Service. planner and provider may be nil.
func New(p *planner.Planner, r *retriever.Retriever, provider llm.Provider, defaults Defaults, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		planner:   p,
		retriever: r,
		provider:  provider,
		defaults:  defaults,
		logger:    logger,
	}
}

// Search plans (when enabled) and retrieves.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, errors.New("query is empty")
	}

	resp := &Response{Query: query, RefinedQuery: query, Filters: req.Filters}
	if s.shouldPlan(req) {
		plan := s.planner.Plan(ctx, query)
		resp.RefinedQuery = plan.RefinedQuery
		resp.Filters = plan.Filters.Merge(req.Filters)
	}

	topK := s.defaults.TopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	minScore := req.MinScore
	if minScore == nil && s.defaults.MinScore > 0 {
		m := s.defaults.MinScore
		minScore = &m
	}

	results, err := s.retriever.Retrieve(ctx, resp.RefinedQuery, resp.Filters, topK, minScore)
	if err != nil {
		return nil, err
	}
	resp.Results = results
	return resp, nil
}

func (s *Service) shouldPlan(req Request) bool {
	if s.planner == nil {
		return false
	}
	if req.Plan != nil {
		return *req.Plan
	}
	return s.defaults.Plan
}

// Context searches and renders the grounding context block.
func (s *Service) Context(ctx context.Context, req Request) (string, *Response, error) {
	resp, err := s.Search(ctx, req)
	if err != nil {
		return "", nil, err
	}
	return grounding.AssembleLimit(resp.Results, s.defaults.MaxContextChars), resp, nil
}

// Answer searches, assembles context and asks the LLM to answer from it.
func (s *Service) Answer(ctx context.Context, req Request) (*Answer, error) {
	if s.provider == nil {
		return nil, ErrNoProvider
	}
	block, resp, err := s.Context(ctx, req)
	if err != nil {
		return nil, err
	}

	out, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: grounding.BuildPrompt(resp.Query, block)}},
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	s.logger.Debug("answer generated", "input_tokens", out.InputTokens, "output_tokens", out.OutputTokens)
	return &Answer{Text: strings.TrimSpace(out.Content), Context: block, Response: resp}, nil
}
