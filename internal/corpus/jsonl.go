package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// maxLineSize bounds a single JSONL record. Whole pages can be large.
const maxLineSize = 16 * 1024 * 1024

// SkipFunc is called for every input line that could not be decoded into a
// valid record. line is 1-based.
type SkipFunc func(line int, err error)

// rawPage mirrors Page with pointer fields so absent keys can be told apart
// from zero values.
type rawPage struct {
	DocID    *string  `json:"doc_id"`
	Filename *string  `json:"filename"`
	Version  *int     `json:"version"`
	Page     *int     `json:"page"`
	Text     *string  `json:"text"`
	Topics   []string `json:"topics"`
	Entities []string `json:"entities"`
}

func (r rawPage) toPage() (Page, error) {
	switch {
	case r.DocID == nil || *r.DocID == "":
		return Page{}, fmt.Errorf("%w: doc_id", ErrMissingField)
	case r.Filename == nil:
		return Page{}, fmt.Errorf("%w: filename", ErrMissingField)
	case r.Page == nil:
		return Page{}, fmt.Errorf("%w: page", ErrMissingField)
	case r.Text == nil:
		return Page{}, fmt.Errorf("%w: text", ErrMissingField)
	}
	return Page{
		DocID:    *r.DocID,
		Filename: *r.Filename,
		Version:  r.Version,
		Page:     *r.Page,
		Text:     *r.Text,
		Topics:   nonNil(r.Topics),
		Entities: nonNil(r.Entities),
	}, nil
}

type rawChunk struct {
	ChunkID    *string  `json:"chunk_id"`
	Text       *string  `json:"text"`
	Source     *string  `json:"source"`
	DocID      *string  `json:"doc_id"`
	Version    *int     `json:"version"`
	Page       *int     `json:"page"`
	Topics     []string `json:"topics"`
	Entities   []string `json:"entities"`
	ChunkIndex *int     `json:"chunk_index"`
}

func (r rawChunk) toChunk() (Chunk, error) {
	switch {
	case r.ChunkID == nil || *r.ChunkID == "":
		return Chunk{}, fmt.Errorf("%w: chunk_id", ErrMissingField)
	case r.Text == nil:
		return Chunk{}, fmt.Errorf("%w: text", ErrMissingField)
	case r.Source == nil:
		return Chunk{}, fmt.Errorf("%w: source", ErrMissingField)
	case r.DocID == nil:
		return Chunk{}, fmt.Errorf("%w: doc_id", ErrMissingField)
	case r.Page == nil:
		return Chunk{}, fmt.Errorf("%w: page", ErrMissingField)
	case r.ChunkIndex == nil:
		return Chunk{}, fmt.Errorf("%w: chunk_index", ErrMissingField)
	}
	return Chunk{
		ChunkID:    *r.ChunkID,
		Text:       *r.Text,
		Source:     *r.Source,
		DocID:      *r.DocID,
		Version:    r.Version,
		Page:       *r.Page,
		Topics:     nonNil(r.Topics),
		Entities:   nonNil(r.Entities),
		ChunkIndex: *r.ChunkIndex,
	}, nil
}

// ReadPages decodes line-delimited Page records. Blank lines are ignored.
// Malformed lines and lines missing required fields are reported to onSkip
// and skipped; only read errors from r abort the scan.
func ReadPages(r io.Reader, onSkip SkipFunc) ([]Page, error) {
	var pages []Page
	err := scanLines(r, func(line int, data []byte) {
		var raw rawPage
		if err := json.Unmarshal(data, &raw); err != nil {
			report(onSkip, line, err)
			return
		}
		p, err := raw.toPage()
		if err != nil {
			report(onSkip, line, err)
			return
		}
		pages = append(pages, p)
	})
	return pages, err
}

// ReadChunks decodes line-delimited Chunk records with the same skip policy
// as ReadPages.
func ReadChunks(r io.Reader, onSkip SkipFunc) ([]Chunk, error) {
	var chunks []Chunk
	err := scanLines(r, func(line int, data []byte) {
		var raw rawChunk
		if err := json.Unmarshal(data, &raw); err != nil {
			report(onSkip, line, err)
			return
		}
		c, err := raw.toChunk()
		if err != nil {
			report(onSkip, line, err)
			return
		}
		chunks = append(chunks, c)
	})
	return chunks, err
}

// WritePages encodes pages one JSON object per line.
func WritePages(w io.Writer, pages []Page) error {
	enc := json.NewEncoder(w)
	for i := range pages {
		p := pages[i]
		p.Topics = nonNil(p.Topics)
		p.Entities = nonNil(p.Entities)
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("encode page %s p%d: %w", p.DocID, p.Page, err)
		}
	}
	return nil
}

// WriteChunks encodes chunks one JSON object per line.
func WriteChunks(w io.Writer, chunks []Chunk) error {
	enc := json.NewEncoder(w)
	for i := range chunks {
		c := chunks[i]
		c.Topics = nonNil(c.Topics)
		c.Entities = nonNil(c.Entities)
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("encode chunk %s: %w", c.ChunkID, err)
		}
	}
	return nil
}

func scanLines(r io.Reader, fn func(line int, data []byte)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for sc.Scan() {
		line++
		data := bytes.TrimSpace(sc.Bytes())
		if len(data) == 0 {
			continue
		}
		fn(line, data)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading line %d: %w", line+1, err)
	}
	return nil
}

func report(onSkip SkipFunc, line int, err error) {
	if onSkip != nil {
		onSkip(line, err)
	}
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
