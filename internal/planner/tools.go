package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ziadkadry99/edwin/internal/llm"
)

const (
	SearchToolName = "search_user_query"
	RefineToolName = "refine_user_query"

	systemPrompt = "Extract metadata using tools and refine the user query for vector search with keyword filtering."
)

// SearchTool declares topic, entity and year extraction.
var SearchTool = llm.ToolDefinition{
	Name:        SearchToolName,
	Description: "Scans user queries for topics, entities, and year",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"topics":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"entities": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"year":     map[string]any{"type": []string{"integer", "null"}},
		},
	},
}

// RefineTool declares the query rewrite.
var RefineTool = llm.ToolDefinition{
	Name:        RefineToolName,
	Description: "Refines the user query for improved hybrid search.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"updated_query": map[string]any{
				"type":        "string",
				"description": "Rewritten query integrating keywords",
			},
		},
		"required": []string{"updated_query"},
	},
}

// ToolExtractor implements Extractor with an LLM tool call per capability.
type ToolExtractor struct {
	provider llm.Provider
	model    string
}

// NewToolExtractor returns an extractor that calls provider. An empty model
// uses the provider's default.
func NewToolExtractor(provider llm.Provider, model string) *ToolExtractor {
	return &ToolExtractor{provider: provider, model: model}
}

func (e *ToolExtractor) request(tool llm.ToolDefinition, user string) llm.CompletionRequest {
	return llm.CompletionRequest{
		Model: e.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: user},
		},
		Temperature: llm.Temperature(0),
		MaxTokens:   512,
		Tools:       []llm.ToolDefinition{tool},
		ToolChoice:  tool.Name,
	}
}

// Extract asks the model for filters. An answer without a usable tool call
// yields an empty Extraction, not an error.
func (e *ToolExtractor) Extract(ctx context.Context, query string) (Extraction, error) {
	resp, err := e.provider.Complete(ctx, e.request(SearchTool, query))
	if err != nil {
		return Extraction{}, fmt.Errorf("extract call: %w", err)
	}
	args, ok := resp.ToolArguments(SearchToolName)
	if !ok {
		return Extraction{}, nil
	}
	return ParseExtraction(args), nil
}

// Refine asks the model for a rewritten query. It returns "" when the model
// gives no usable rewrite.
func (e *ToolExtractor) Refine(ctx context.Context, query string, hints Extraction) (string, error) {
	var sb strings.Builder
	sb.WriteString(query)
	if kw := keywords(hints); kw != "" {
		sb.WriteString("\n\nKeywords: ")
		sb.WriteString(kw)
	}

	resp, err := e.provider.Complete(ctx, e.request(RefineTool, sb.String()))
	if err != nil {
		return "", fmt.Errorf("refine call: %w", err)
	}
	args, ok := resp.ToolArguments(RefineToolName)
	if !ok {
		return "", nil
	}
	var out struct {
		UpdatedQuery string `json:"updated_query"`
	}
	if err := json.Unmarshal(args, &out); err != nil {
		return "", nil
	}
	return strings.TrimSpace(out.UpdatedQuery), nil
}

func keywords(x Extraction) string {
	parts := append(append([]string{}, x.Topics...), x.Entities...)
	if x.Year != nil {
		parts = append(parts, strconv.Itoa(*x.Year))
	}
	return strings.Join(parts, ", ")
}

var errNotInteger = errors.New("not an integer")

// ParseExtraction reads search_user_query arguments leniently: unknown or
// malformed fields are dropped rather than failing the whole extraction.
func ParseExtraction(args json.RawMessage) Extraction {
	var fields map[string]any
	if err := json.Unmarshal(args, &fields); err != nil {
		return Extraction{}
	}
	x := Extraction{
		Topics:   stringSet(fields["topics"]),
		Entities: stringSet(fields["entities"]),
	}
	if year, err := integer(fields["year"]); err == nil && year > 0 {
		x.Year = &year
	}
	return x
}

// stringSet accepts a list of strings or a single string, trimming and
// deduplicating in order. Non-string items are skipped.
func stringSet(v any) []string {
	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case string:
		items = []any{t}
	default:
		return nil
	}

	seen := make(map[string]bool, len(items))
	var out []string
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func integer(v any) (int, error) {
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) {
			return 0, errNotInteger
		}
		return int(t), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, errNotInteger
		}
		return n, nil
	}
	return 0, errNotInteger
}
