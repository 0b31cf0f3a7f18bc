package chunker

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/edwin/internal/corpus"
)

// sentence returns a sentence of exactly n runes made of letter plus a period.
func sentence(letter rune, n int) string {
	return strings.Repeat(string(letter), n-1) + "."
}

func TestNewValidatesConfig(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{"defaults", DefaultSize, DefaultOverlap, false},
		{"zero overlap", 100, 0, false},
		{"overlap just below size", 100, 99, false},
		{"overlap equals size", 100, 100, true},
		{"overlap above size", 100, 150, true},
		{"negative overlap", 100, -1, true},
		{"zero size", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.size, tt.overlap)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.size, c.Size())
			assert.Equal(t, tt.overlap, c.Overlap())
		})
	}
}

func TestSegments(t *testing.T) {
	got := Segments("  First one. Second!  Third?\nFourth without end")
	assert.Equal(t, []string{"First one.", "Second!", "Third?", "Fourth without end"}, got)

	assert.Equal(t, []string{"v1.2 is out."}, Segments("v1.2 is out."), "no whitespace after the dot, no break")
	assert.Empty(t, Segments(""))
	assert.Empty(t, Segments("   \n\t "))
}

func TestSegmentsUnicodeWhitespace(t *testing.T) {
	got := Segments("First sentence.\u00a0Second sentence.\u2003Third one!\u3000\u00a0Fourth?\u2029Fifth.")
	assert.Equal(t, []string{"First sentence.", "Second sentence.", "Third one!", "Fourth?", "Fifth."}, got)
}

func TestThreeSentenceScenarioNonBreakingSpaces(t *testing.T) {
	c, err := New(700, 100)
	require.NoError(t, err)

	s1, s2, s3 := sentence('a', 300), sentence('b', 300), sentence('c', 300)
	got := c.Split(s1 + "\u00a0" + s2 + "\u2003" + s3)
	require.Len(t, got, 2)
	assert.Equal(t, s1+" "+s2, got[0])
	assert.Equal(t, sentence('b', 100)+" "+s3, got[1])
}

func TestThreeSentenceScenario(t *testing.T) {
	c, err := New(700, 100)
	require.NoError(t, err)

	s1, s2, s3 := sentence('a', 300), sentence('b', 300), sentence('c', 300)
	page := corpus.Page{
		DocID:    "qap_2024",
		Filename: "QAP 2024.pdf",
		Version:  corpus.IntPtr(2024),
		Page:     7,
		Text:     s1 + " " + s2 + " " + s3,
		Topics:   []string{"scoring"},
		Entities: []string{"PHFA"},
	}

	chunks := c.ChunkPage(page)
	require.Len(t, chunks, 2)

	assert.Equal(t, s1+" "+s2, chunks[0].Text)
	assert.Equal(t, 601, utf8.RuneCountInString(chunks[0].Text))

	overlap := chunks[0].Text[len(chunks[0].Text)-100:]
	assert.Equal(t, sentence('b', 100), overlap)
	assert.Equal(t, overlap+" "+s3, chunks[1].Text)

	assert.Equal(t, "qap_2024_p7_c0", chunks[0].ChunkID)
	assert.Equal(t, "qap_2024_p7_c1", chunks[1].ChunkID)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.ChunkIndex)
		assert.Equal(t, "QAP 2024.pdf", ch.Source)
		assert.Equal(t, "qap_2024", ch.DocID)
		assert.Equal(t, 7, ch.Page)
		assert.Equal(t, 2024, *ch.Version)
		assert.Equal(t, []string{"scoring"}, ch.Topics)
		assert.Equal(t, []string{"PHFA"}, ch.Entities)
	}
}

func TestEmptyPageProducesNoChunks(t *testing.T) {
	c, err := New(DefaultSize, DefaultOverlap)
	require.NoError(t, err)

	assert.Empty(t, c.ChunkPage(corpus.Page{DocID: "d", Page: 1, Text: ""}))
	assert.Empty(t, c.ChunkPage(corpus.Page{DocID: "d", Page: 2, Text: " \n  "}))
}

func TestOversizeSegmentIsNotSplit(t *testing.T) {
	c, err := New(50, 10)
	require.NoError(t, err)

	long := sentence('x', 120)
	got := c.Split(long + " Short one.")
	require.Len(t, got, 2)
	assert.Equal(t, long, got[0], "oversize segment emitted whole")
	assert.Equal(t, long[len(long)-10:]+" Short one.", got[1])

	for _, text := range got {
		assert.NotEmpty(t, text)
	}
}

func TestZeroOverlap(t *testing.T) {
	c, err := New(25, 0)
	require.NoError(t, err)

	got := c.Split("One two three. Four five six. Seven eight nine.")
	assert.Equal(t, []string{"One two three.", "Four five six.", "Seven eight nine."}, got)
}

func TestOverlapUsesRunes(t *testing.T) {
	c, err := New(20, 5)
	require.NoError(t, err)

	got := c.Split("Ünïcödé façade. Ærøskøbing wins.")
	require.Len(t, got, 2)
	assert.Equal(t, "Ünïcödé façade.", got[0])
	assert.Equal(t, "çade. Ærøskøbing wins.", got[1])
}

func randomText(r *rand.Rand, sentences int) string {
	words := []string{"housing", "credit", "tax", "allocation", "developer", "tenant", "income", "plan", "qualified", "unit"}
	marks := []string{".", "!", "?"}
	var parts []string
	for i := 0; i < sentences; i++ {
		n := 1 + r.Intn(40)
		var ws []string
		for j := 0; j < n; j++ {
			ws = append(ws, words[r.Intn(len(words))])
		}
		parts = append(parts, strings.Join(ws, " ")+marks[r.Intn(len(marks))])
	}
	return strings.Join(parts, " ")
}

func TestOverlapBoundAndCoverage(t *testing.T) {
	c, err := New(700, 100)
	require.NoError(t, err)

	r := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		text := randomText(r, 5+r.Intn(60))
		segs := Segments(text)
		chunks := c.Split(text)
		require.NotEmpty(t, chunks)

		maxSeg := 0
		for _, s := range segs {
			if n := utf8.RuneCountInString(s); n > maxSeg {
				maxSeg = n
			}
		}
		for _, ch := range chunks {
			assert.LessOrEqual(t, utf8.RuneCountInString(ch), 700+maxSeg)
		}

		// every segment appears, and in original order
		pos := 0
		for _, s := range segs {
			found := -1
			for i := pos; i < len(chunks); i++ {
				if strings.Contains(chunks[i], s) {
					found = i
					break
				}
			}
			require.NotEqual(t, -1, found, "segment %q missing in trial %d", s, trial)
			pos = found
		}
	}
}

func TestChunkIDsAreUniqueAndDeterministic(t *testing.T) {
	c, err := New(120, 20)
	require.NoError(t, err)

	r := rand.New(rand.NewSource(7))
	var pages []corpus.Page
	for d := 0; d < 4; d++ {
		for p := 1; p <= 5; p++ {
			pages = append(pages, corpus.Page{
				DocID:    fmt.Sprintf("doc%d", d),
				Filename: fmt.Sprintf("doc%d.pdf", d),
				Page:     p,
				Text:     randomText(r, 10),
			})
		}
	}

	first := c.ChunkPages(pages)
	second := c.ChunkPages(pages)
	assert.Equal(t, first, second, "re-chunking reproduces ids and text")

	seen := make(map[string]bool)
	for _, ch := range first {
		assert.False(t, seen[ch.ChunkID], "duplicate id %s", ch.ChunkID)
		seen[ch.ChunkID] = true
	}
}

func TestChunkID(t *testing.T) {
	assert.Equal(t, "Manual_2023_p12_c3", ChunkID("Manual_2023", 12, 3))
}
