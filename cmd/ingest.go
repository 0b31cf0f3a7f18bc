package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/edwin/internal/corpus"
	"github.com/ziadkadry99/edwin/internal/enrich"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [pages.jsonl ...]",
	Short: "Chunk pages and index them in one step",
	Long: `Runs the chunk and index stages back to back: pages are read from the
inputs (default paths.pages), optionally enriched, chunked into
paths.chunks and uploaded to the configured collection. With --enrich the
tagged pages are written to paths.pages before chunking.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Int("size", 0, "maximum chunk length in characters (default chunking.size)")
	ingestCmd.Flags().Int("overlap", -1, "characters carried into the next chunk (default chunking.overlap)")
	ingestCmd.Flags().Bool("infer-version", false, "take a missing version from a year in the filename")
	ingestCmd.Flags().StringP("out", "o", "", "intermediate chunk file (default paths.chunks)")
	ingestCmd.Flags().Bool("enrich", false, "extract topics and entities for untagged pages first")
	addIndexFlags(ingestCmd)
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyChunkFlags(cmd, cfg)
	applyIndexFlags(cmd, cfg)
	quiet, _ := cmd.Flags().GetBool("quiet")

	if doEnrich, _ := cmd.Flags().GetBool("enrich"); doEnrich {
		inputs, err := inputsOr(args, cfg.Paths.Pages)
		if err != nil {
			return err
		}
		pages, err := corpus.ReadPagesFiles(inputs, logSkipped)
		if err != nil {
			return err
		}
		res, err := enrichPages(cmd, cfg, pages, enrich.DefaultConcurrency, quiet)
		if err != nil {
			return err
		}
		if err := writePages(cfg.Paths.Pages, res.pages); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Enriched %d of %d documents\n", res.Enriched, res.Documents)
		args = []string{cfg.Paths.Pages}
	}

	n, out, err := chunkFiles(cfg, args)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d chunks to %s\n", n, out)

	chunks, err := corpus.ReadChunksFiles([]string{out}, logSkipped)
	if err != nil {
		return err
	}
	indexed, err := indexChunks(cmd, cfg, chunks, quiet)
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d of %d chunks into %q\n", indexed, len(chunks), cfg.Store.Collection)
	return err
}
