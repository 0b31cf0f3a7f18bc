package retriever

import (
	"fmt"
	"strings"
)

// DefaultPreviewChars bounds the text shown per result.
const DefaultPreviewChars = 500

// FormatResults renders results as human-readable text. Text longer than
// maxChars runes is cut and suffixed with "..."; maxChars <= 0 shows it whole.
func FormatResults(results []Result, maxChars int) string {
	if len(results) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d result(s):\n", len(results))

	for i, r := range results {
		fmt.Fprintf(&sb, "\n--- Result %d ---\n", i+1)
		fmt.Fprintf(&sb, "Source: %s (page %d)\n", orUnknown(r.Chunk.Source), r.Chunk.Page)
		fmt.Fprintf(&sb, "Version: %s\n", VersionString(r.Chunk.Version))
		fmt.Fprintf(&sb, "Score: %.4f\n", r.Score)
		if len(r.Chunk.Topics) > 0 {
			fmt.Fprintf(&sb, "Topics: %s\n", strings.Join(r.Chunk.Topics, ", "))
		}
		if len(r.Chunk.Entities) > 0 {
			fmt.Fprintf(&sb, "Entities: %s\n", strings.Join(r.Chunk.Entities, ", "))
		}
		sb.WriteString("Text: ")
		sb.WriteString(Preview(r.Chunk.Text, maxChars))
		sb.WriteString("\n")
	}
	return sb.String()
}

// Preview cuts text to maxChars runes.
func Preview(text string, maxChars int) string {
	if text == "" {
		return "No text available"
	}
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars]) + "..."
}

// VersionString renders an optional version, "N/A" when absent.
func VersionString(v *int) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprint(*v)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
