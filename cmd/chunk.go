package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/edwin/internal/chunker"
	"github.com/ziadkadry99/edwin/internal/config"
	"github.com/ziadkadry99/edwin/internal/corpus"
)

var chunkCmd = &cobra.Command{
	Use:   "chunk [pages.jsonl ...]",
	Short: "Split extracted pages into overlapping chunks",
	Long: `Reads page records (one JSON object per line) and writes chunk records
bounded by chunking.size characters, with chunking.overlap characters of
context carried between neighbouring chunks of the same page. Inputs may
be doublestar globs and default to paths.pages.`,
	RunE: runChunk,
}

func init() {
	chunkCmd.Flags().StringP("out", "o", "", "output chunk file (default paths.chunks)")
	chunkCmd.Flags().Int("size", 0, "maximum chunk length in characters (default chunking.size)")
	chunkCmd.Flags().Int("overlap", -1, "characters carried into the next chunk (default chunking.overlap)")
	chunkCmd.Flags().Bool("infer-version", false, "take a missing version from a year in the filename")
	rootCmd.AddCommand(chunkCmd)
}

func runChunk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyChunkFlags(cmd, cfg)

	n, out, err := chunkFiles(cfg, args)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d chunks to %s\n", n, out)
	return nil
}

func applyChunkFlags(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetInt("size"); v > 0 {
		cfg.Chunking.Size = v
	}
	if v, _ := cmd.Flags().GetInt("overlap"); v >= 0 {
		cfg.Chunking.Overlap = v
	}
	if v, _ := cmd.Flags().GetBool("infer-version"); v {
		cfg.Chunking.InferVersion = true
	}
	if v, _ := cmd.Flags().GetString("out"); v != "" {
		cfg.Paths.Chunks = v
	}
}

// chunkFiles runs the chunk stage from page inputs to cfg.Paths.Chunks.
func chunkFiles(cfg *config.Config, args []string) (int, string, error) {
	ch, err := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return 0, "", err
	}

	inputs, err := inputsOr(args, cfg.Paths.Pages)
	if err != nil {
		return 0, "", err
	}
	pages, err := corpus.ReadPagesFiles(inputs, logSkipped)
	if err != nil {
		return 0, "", err
	}

	if cfg.Chunking.InferVersion {
		for i := range pages {
			if pages[i].Version == nil {
				pages[i].Version = corpus.VersionFromFilename(pages[i].Filename)
			}
		}
	}

	chunks := ch.ChunkPages(pages)
	slog.Info("chunked pages", "pages", len(pages), "chunks", len(chunks), "size", ch.Size(), "overlap", ch.Overlap())

	if err := writeChunks(cfg.Paths.Chunks, chunks); err != nil {
		return 0, "", err
	}
	return len(chunks), cfg.Paths.Chunks, nil
}

func writeChunks(path string, chunks []corpus.Chunk) error {
	f, err := corpus.CreateOutput(path)
	if err != nil {
		return err
	}
	if err := corpus.WriteChunks(f, chunks); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writePages(path string, pages []corpus.Page) error {
	f, err := corpus.CreateOutput(path)
	if err != nil {
		return err
	}
	if err := corpus.WritePages(f, pages); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
