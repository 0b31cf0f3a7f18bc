// Package enrich tags pages with topics and entities extracted by an LLM.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/ziadkadry99/edwin/internal/corpus"
	"github.com/ziadkadry99/edwin/internal/llm"
)

const (
	ToolName = "extract_metadata"

	// DefaultMaxChars bounds the document text sent in one request.
	DefaultMaxChars = 24000
	// DefaultConcurrency is the number of documents in flight.
	DefaultConcurrency = 4

	systemPrompt = "You're an assistant that extracts topics and entities from a text chunk extracted from a pdf. Always respond by calling the function."
)

// Tool declares the metadata extraction call.
var Tool = llm.ToolDefinition{
	Name:        ToolName,
	Description: "Extract topics and entities from a text chunk.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"topics": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Key themes or topics in the text",
			},
			"entities": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Specific named entities (organizations, dates, etc.)",
			},
		},
		"required": []string{"topics", "entities"},
	},
}

// ProgressFunc is called after each document completes.
type ProgressFunc func(done, total int)

// Metadata is what the model returned for one document.
type Metadata struct {
	Topics   []string `json:"topics"`
	Entities []string `json:"entities"`
}

// Result summarizes an enrichment run.
type Result struct {
	Documents int
	Enriched  int
	Errors    []error

	InputTokens  int
	OutputTokens int
}

// Enricher runs extraction per document.
type Enricher struct {
	provider    llm.Provider
	model       string
	concurrency int
	maxChars    int
	onProgress  ProgressFunc
	logger      *slog.Logger
}

// Option configures an Enricher.
type Option func(*Enricher)

func WithModel(model string) Option { return func(e *Enricher) { e.model = model } }

func WithConcurrency(n int) Option { return func(e *Enricher) { e.concurrency = n } }

// WithMaxChars caps the runes of document text per request. n <= 0 disables the cap.
func WithMaxChars(n int) Option { return func(e *Enricher) { e.maxChars = n } }

func WithProgress(fn ProgressFunc) Option { return func(e *Enricher) { e.onProgress = fn } }

func WithLogger(l *slog.Logger) Option { return func(e *Enricher) { e.logger = l } }

// New creates an Enricher backed by provider.
func New(provider llm.Provider, opts ...Option) *Enricher {
	e := &Enricher{
		provider:    provider,
		concurrency: DefaultConcurrency,
		maxChars:    DefaultMaxChars,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.concurrency < 1 {
		e.concurrency = 1
	}
	return e
}

type document struct {
	id    string
	pages []int
}

// groupByDocument returns documents in first-seen order with the indexes
// of their pages.
func groupByDocument(pages []corpus.Page) []document {
	index := make(map[string]int)
	var docs []document
	for i, p := range pages {
		j, ok := index[p.DocID]
		if !ok {
			j = len(docs)
			index[p.DocID] = j
			docs = append(docs, document{id: p.DocID})
		}
		docs[j].pages = append(docs[j].pages, i)
	}
	return docs
}

// Enrich returns a copy of pages where every page lacking topics and
// entities carries the metadata extracted for its document. Documents whose
// pages are all tagged already are not sent. A document whose extraction
// fails keeps its pages unchanged and its error lands in Result.Errors.
func (e *Enricher) Enrich(ctx context.Context, pages []corpus.Page) ([]corpus.Page, *Result) {
	out := make([]corpus.Page, len(pages))
	copy(out, pages)

	var pending []document
	for _, d := range groupByDocument(out) {
		if needsMetadata(out, d) {
			pending = append(pending, d)
		}
	}
	result := &Result{Documents: len(pending)}
	total := len(pending)
	if total == 0 {
		return out, result
	}

	sem := make(chan struct{}, e.concurrency)
	var mu sync.Mutex
	// progressMu keeps callbacks in order so done never goes backwards.
	var (
		progressMu sync.Mutex
		processed  int
	)
	progress := func() {
		progressMu.Lock()
		defer progressMu.Unlock()
		processed++
		if e.onProgress != nil {
			e.onProgress(processed, total)
		}
	}

	var wg sync.WaitGroup
	for _, d := range pending {
		cancelled := func() {
			mu.Lock()
			result.Errors = append(result.Errors, fmt.Errorf("enrich %s: %w", d.id, ctx.Err()))
			mu.Unlock()
			progress()
		}
		if ctx.Err() != nil {
			cancelled()
			continue
		}
		select {
		case <-ctx.Done():
			cancelled()
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(d document) {
			defer wg.Done()
			defer func() { <-sem }()

			meta, usage, err := e.extract(ctx, d.id, documentText(out, d, e.maxChars))

			mu.Lock()
			result.InputTokens += usage.InputTokens
			result.OutputTokens += usage.OutputTokens
			if err != nil {
				e.logger.Warn("metadata extraction failed, keeping document unchanged", "doc_id", d.id, "error", err)
				result.Errors = append(result.Errors, fmt.Errorf("enrich %s: %w", d.id, err))
			} else {
				for _, i := range d.pages {
					if len(out[i].Topics) == 0 && len(out[i].Entities) == 0 {
						out[i].Topics = meta.Topics
						out[i].Entities = meta.Entities
					}
				}
				result.Enriched++
			}
			mu.Unlock()
			progress()
		}(d)
	}
	wg.Wait()

	e.logger.Info("enrichment finished",
		"documents", result.Documents,
		"enriched", result.Enriched,
		"failed", len(result.Errors),
	)
	return out, result
}

func needsMetadata(pages []corpus.Page, d document) bool {
	for _, i := range d.pages {
		if len(pages[i].Topics) == 0 && len(pages[i].Entities) == 0 {
			return true
		}
	}
	return false
}

// documentText joins the page texts of d, truncated to maxChars runes.
func documentText(pages []corpus.Page, d document, maxChars int) string {
	parts := make([]string, 0, len(d.pages))
	for _, i := range d.pages {
		parts = append(parts, pages[i].Text)
	}
	text := strings.Join(parts, "\n")
	if maxChars > 0 && utf8.RuneCountInString(text) > maxChars {
		text = string([]rune(text)[:maxChars])
	}
	return text
}

type usage struct{ InputTokens, OutputTokens int }

func (e *Enricher) extract(ctx context.Context, docID, text string) (Metadata, usage, error) {
	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Model: e.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: fmt.Sprintf("Document id: %s\nText:\n%s", docID, text)},
		},
		Tools:      []llm.ToolDefinition{Tool},
		ToolChoice: ToolName,
	})
	if err != nil {
		return Metadata{}, usage{}, err
	}
	u := usage{InputTokens: resp.InputTokens, OutputTokens: resp.OutputTokens}

	args, ok := resp.ToolArguments(ToolName)
	if !ok {
		return Metadata{}, u, fmt.Errorf("model did not call %s", ToolName)
	}
	var meta Metadata
	if err := json.Unmarshal(args, &meta); err != nil {
		return Metadata{}, u, fmt.Errorf("decode %s arguments: %w", ToolName, err)
	}
	meta.Topics = clean(meta.Topics)
	meta.Entities = clean(meta.Entities)
	return meta, u, nil
}

// clean trims and deduplicates values in order.
func clean(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := []string{}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
