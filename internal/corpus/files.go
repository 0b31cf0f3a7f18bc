package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/bmatcuk/doublestar/v4"
)

var yearPattern = regexp.MustCompile(`(19|20)\d{2}`)

// VersionFromFilename returns the first four-digit year (1900-2099) found in
// the base name of filename, or nil when there is none.
func VersionFromFilename(filename string) *int {
	m := yearPattern.FindString(filepath.Base(filename))
	if m == "" {
		return nil
	}
	year, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &year
}

// ExpandInputs resolves each input as a doublestar glob. Inputs without glob
// metacharacters are returned as-is so a missing file surfaces as an open
// error. The result is deduplicated and sorted per pattern.
func ExpandInputs(inputs []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, in := range inputs {
		matches, err := doublestar.FilepathGlob(in)
		if err != nil {
			return nil, fmt.Errorf("bad input pattern %q: %w", in, err)
		}
		if len(matches) == 0 {
			matches = []string{in}
		}
		sort.Strings(matches)
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out, nil
}

// ReadPagesFiles reads every file in paths as page JSONL, in order.
func ReadPagesFiles(paths []string, onSkip func(path string, line int, err error)) ([]Page, error) {
	var all []Page
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("open pages %s: %w", p, err)
		}
		pages, err := ReadPages(f, func(line int, err error) {
			if onSkip != nil {
				onSkip(p, line, err)
			}
		})
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read pages %s: %w", p, err)
		}
		all = append(all, pages...)
	}
	return all, nil
}

// ReadChunksFiles reads every file in paths as chunk JSONL, in order.
func ReadChunksFiles(paths []string, onSkip func(path string, line int, err error)) ([]Chunk, error) {
	var all []Chunk
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("open chunks %s: %w", p, err)
		}
		chunks, err := ReadChunks(f, func(line int, err error) {
			if onSkip != nil {
				onSkip(p, line, err)
			}
		})
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read chunks %s: %w", p, err)
		}
		all = append(all, chunks...)
	}
	return all, nil
}

// CreateOutput creates path and its parent directories for writing.
func CreateOutput(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return f, nil
}
