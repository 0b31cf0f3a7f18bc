package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/edwin/internal/config"
	"github.com/ziadkadry99/edwin/internal/corpus"
	"github.com/ziadkadry99/edwin/internal/embeddings"
	"github.com/ziadkadry99/edwin/internal/indexer"
	"github.com/ziadkadry99/edwin/internal/progress"
)

var indexCmd = &cobra.Command{
	Use:   "index [chunks.jsonl ...]",
	Short: "Embed chunks and upsert them into the vector store",
	Long: `Embeds chunk records in batches and upserts them into the configured
collection, creating it on first use. Point ids derive from chunk ids, so
re-indexing the same chunks overwrites rather than duplicates. Inputs
default to paths.chunks.`,
	RunE: runIndex,
}

func init() {
	addIndexFlags(indexCmd)
	rootCmd.AddCommand(indexCmd)
}

func addIndexFlags(cmd *cobra.Command) {
	cmd.Flags().Int("batch-size", 0, "chunks embedded and uploaded per batch (default indexing.batch_size)")
	cmd.Flags().String("collection", "", "target collection (default store.collection)")
	cmd.Flags().Bool("quiet", false, "line-based progress instead of a progress bar")
}

func applyIndexFlags(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetInt("batch-size"); v > 0 {
		cfg.Indexing.BatchSize = v
	}
	if v, _ := cmd.Flags().GetString("collection"); v != "" {
		cfg.Store.Collection = v
	}
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyIndexFlags(cmd, cfg)

	inputs, err := inputsOr(args, cfg.Paths.Chunks)
	if err != nil {
		return err
	}
	chunks, err := corpus.ReadChunksFiles(inputs, logSkipped)
	if err != nil {
		return err
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	n, err := indexChunks(cmd, cfg, chunks, quiet)
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d of %d chunks into %q\n", n, len(chunks), cfg.Store.Collection)
	return err
}

// indexChunks embeds and upserts chunks, returning how many were stored.
func indexChunks(cmd *cobra.Command, cfg *config.Config, chunks []corpus.Chunk, quiet bool) (n int, err error) {
	embedder, err := createEmbedderFromConfig(cfg, 0)
	if err != nil {
		return 0, err
	}
	defer func() { err = errors.Join(err, embeddings.Close(embedder)) }()

	store, err := createStoreFromConfig(cfg)
	if err != nil {
		return 0, err
	}
	defer func() { err = errors.Join(err, store.Close()) }()

	reporter := progress.NewReporter("Indexing chunks", quiet)
	ix := indexer.New(embedder, store,
		indexer.WithCollection(cfg.Store.Collection),
		indexer.WithBatchSize(cfg.Indexing.BatchSize),
		indexer.WithProgress(progress.Func(reporter)),
	)

	reporter.Start(len(chunks))
	n, err = ix.Index(cmd.Context(), chunks)
	reporter.Finish()
	return n, err
}
