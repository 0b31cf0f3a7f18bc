package corpus

import "errors"

// ErrMissingField is returned when a record lacks a field a later stage reads.
var ErrMissingField = errors.New("missing required field")

// Page is one physical page of a source document as emitted by the text extractor.
type Page struct {
	DocID    string   `json:"doc_id"`
	Filename string   `json:"filename"`
	Version  *int     `json:"version"`
	Page     int      `json:"page"`
	Text     string   `json:"text"`
	Topics   []string `json:"topics"`
	Entities []string `json:"entities"`
}

// Chunk is a bounded-length retrieval unit derived from exactly one Page.
// Topics and Entities are inherited verbatim from the parent page.
type Chunk struct {
	ChunkID    string   `json:"chunk_id"`
	Text       string   `json:"text"`
	Source     string   `json:"source"`
	DocID      string   `json:"doc_id"`
	Version    *int     `json:"version"`
	Page       int      `json:"page"`
	Topics     []string `json:"topics"`
	Entities   []string `json:"entities"`
	ChunkIndex int      `json:"chunk_index"`
}

// IntPtr returns a pointer to v. Handy for optional versions.
func IntPtr(v int) *int { return &v }
