// Package planner turns a free-text question into a retrieval plan: metadata
// filters plus an optionally rewritten query. Planning never fails a query;
// every error degrades to an unfiltered search on the raw text.
package planner

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ziadkadry99/edwin/internal/retriever"
)

// Extraction is the structured metadata found in a query.
type Extraction struct {
	Topics   []string
	Entities []string
	Year     *int
}

// Extractor is the model-facing capability the planner depends on.
type Extractor interface {
	// Extract finds topics, entities and a year in query.
	Extract(ctx context.Context, query string) (Extraction, error)
	// Refine rewrites query for retrieval, integrating the extracted keywords.
	Refine(ctx context.Context, query string, hints Extraction) (string, error)
}

// Plan is what the retriever runs.
type Plan struct {
	RefinedQuery string            `json:"refined_query"`
	Filters      retriever.Filters `json:"filters"`
}

// Planner applies an Extractor with graceful degradation.
type Planner struct {
	extractor Extractor
	logger    *slog.Logger
}

// New returns a Planner. A nil extractor plans every query as raw and
// unfiltered; a nil logger uses slog.Default().
func New(extractor Extractor, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{extractor: extractor, logger: logger}
}

// Plan derives filters and a refined query from raw. If extraction fails the
// raw query is returned with no filters and refinement is skipped. If only
// refinement fails, or yields nothing, the extracted filters are kept with the
// raw query.
func (p *Planner) Plan(ctx context.Context, raw string) Plan {
	plan := Plan{RefinedQuery: raw}
	if p == nil || p.extractor == nil || strings.TrimSpace(raw) == "" {
		return plan
	}

	ext, err := p.extractor.Extract(ctx, raw)
	if err != nil {
		p.logger.Warn("query extraction failed, using unfiltered search", "error", err)
		return plan
	}
	plan.Filters = retriever.Filters{
		Topics:   ext.Topics,
		Entities: ext.Entities,
		Version:  ext.Year,
	}

	refined, err := p.extractor.Refine(ctx, raw, ext)
	switch {
	case err != nil:
		p.logger.Warn("query refinement failed, using raw query", "error", err)
	case strings.TrimSpace(refined) == "":
		p.logger.Debug("query refinement returned nothing, using raw query")
	default:
		plan.RefinedQuery = strings.TrimSpace(refined)
	}

	p.logger.Debug("planned query",
		"raw", raw,
		"refined", plan.RefinedQuery,
		"topics", plan.Filters.Topics,
		"entities", plan.Filters.Entities,
		"version", retriever.VersionString(plan.Filters.Version),
	)
	return plan
}
