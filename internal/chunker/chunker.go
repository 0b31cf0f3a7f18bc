// Package chunker splits page text into overlapping, bounded-length chunks
// with identifiers that are stable across runs.
package chunker

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ziadkadry99/edwin/internal/corpus"
)

const (
	DefaultSize    = 700
	DefaultOverlap = 100
)

// ErrInvalidConfig is returned when size and overlap do not satisfy
// 0 <= overlap < size.
var ErrInvalidConfig = errors.New("invalid chunker configuration")

// sentenceBoundary marks a break after . ! or ? followed by whitespace,
// including Unicode spaces such as U+00A0 that PDF extractors emit.
// Abbreviations such as "e.g. " are split too.
var sentenceBoundary = regexp.MustCompile(`[.!?][\s\v\p{Z}\x{0085}]+`)

// Chunker greedily packs sentence segments into chunks of at most size runes,
// seeding each new chunk with the tail of the previous one.
type Chunker struct {
	size    int
	overlap int
}

// New returns a Chunker or ErrInvalidConfig.
func New(size, overlap int) (*Chunker, error) {
	if err := Validate(size, overlap); err != nil {
		return nil, err
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Validate checks the size/overlap invariant without building a Chunker.
func Validate(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: size must be positive, got %d", ErrInvalidConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("%w: overlap must satisfy 0 <= overlap < size (%d), got %d", ErrInvalidConfig, size, overlap)
	}
	return nil
}

// Size returns the configured maximum chunk length in runes.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap length in runes.
func (c *Chunker) Overlap() int { return c.overlap }

// ChunkPage splits page.Text and returns the chunks in emission order.
// Empty text yields no chunks.
func (c *Chunker) ChunkPage(page corpus.Page) []corpus.Chunk {
	texts := c.Split(page.Text)
	if len(texts) == 0 {
		return nil
	}

	chunks := make([]corpus.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = corpus.Chunk{
			ChunkID:    ChunkID(page.DocID, page.Page, i),
			Text:       text,
			Source:     page.Filename,
			DocID:      page.DocID,
			Version:    page.Version,
			Page:       page.Page,
			Topics:     page.Topics,
			Entities:   page.Entities,
			ChunkIndex: i,
		}
	}
	return chunks
}

// ChunkPages chunks every page in order.
func (c *Chunker) ChunkPages(pages []corpus.Page) []corpus.Chunk {
	var out []corpus.Chunk
	for _, p := range pages {
		out = append(out, c.ChunkPage(p)...)
	}
	return out
}

// Split returns the chunk texts for text. A single segment longer than the
// configured size is emitted whole.
func (c *Chunker) Split(text string) []string {
	var (
		chunks     []string
		current    string
		currentLen int
	)

	for _, seg := range Segments(text) {
		segLen := utf8.RuneCountInString(seg)

		joined := currentLen + segLen
		if currentLen > 0 {
			joined++ // joining space
		}
		if currentLen == 0 || joined <= c.size {
			current = join(current, seg)
			currentLen = joined
			continue
		}

		closed := strings.TrimSpace(current)
		chunks = append(chunks, closed)

		current = join(strings.TrimLeftFunc(tail(closed, c.overlap), unicode.IsSpace), seg)
		currentLen = utf8.RuneCountInString(current)
	}

	if last := strings.TrimSpace(current); last != "" {
		chunks = append(chunks, last)
	}
	return chunks
}

// Segments splits text at sentence boundaries. Segments are trimmed and
// empty ones dropped.
func Segments(text string) []string {
	var segs []string
	prev := 0
	for _, loc := range sentenceBoundary.FindAllStringIndex(text, -1) {
		// keep the punctuation, drop the whitespace
		if s := strings.TrimSpace(text[prev : loc[0]+1]); s != "" {
			segs = append(segs, s)
		}
		prev = loc[1]
	}
	if s := strings.TrimSpace(text[prev:]); s != "" {
		segs = append(segs, s)
	}
	return segs
}

// ChunkID formats the deterministic chunk identifier for a page position.
func ChunkID(docID string, page, index int) string {
	return fmt.Sprintf("%s_p%d_c%d", docID, page, index)
}

func join(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}

// tail returns up to the last n runes of s.
func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := utf8.RuneCountInString(s)
	if count <= n {
		return s
	}
	skip := count - n
	for i := range s {
		if skip == 0 {
			return s[i:]
		}
		skip--
	}
	return ""
}
