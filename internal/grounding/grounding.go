// Package grounding renders retrieval results into the context block handed
// to answer generation.
package grounding

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ziadkadry99/edwin/internal/retriever"
)

const separator = "\n\n"

// Entry renders one result as "[source - page N]: text".
func Entry(r retriever.Result) string {
	return fmt.Sprintf("[%s - page %d]: %s", r.Chunk.Source, r.Chunk.Page, r.Chunk.Text)
}

// Assemble joins the entries for results, in order, with a blank line
// between them. No results yields "".
func Assemble(results []retriever.Result) string {
	return AssembleLimit(results, 0)
}

// AssembleLimit is Assemble bounded to maxChars runes. Entries are kept whole:
// the first entry that would overflow the bound, and every entry after it, is
// dropped. maxChars <= 0 means unbounded.
func AssembleLimit(results []retriever.Result, maxChars int) string {
	var sb strings.Builder
	size := 0
	for i, r := range results {
		entry := Entry(r)
		n := utf8.RuneCountInString(entry)
		if i > 0 {
			n += len(separator)
		}
		if maxChars > 0 && size+n > maxChars {
			break
		}
		if i > 0 {
			sb.WriteString(separator)
		}
		sb.WriteString(entry)
		size += n
	}
	return sb.String()
}

const promptTemplate = `You are a helpful assistant that answers questions using ONLY the information provided in the sources below.
Cite the document name and page number when appropriate.

### User question:
%s

### Sources:
%s

### Answer:`

// BuildPrompt is the answer-generation prompt for question over the given
// context block.
func BuildPrompt(question, context string) string {
	return fmt.Sprintf(promptTemplate, question, context)
}
