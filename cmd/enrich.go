package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/edwin/internal/config"
	"github.com/ziadkadry99/edwin/internal/corpus"
	"github.com/ziadkadry99/edwin/internal/enrich"
	"github.com/ziadkadry99/edwin/internal/progress"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich [pages.jsonl ...]",
	Short: "Tag pages with LLM-extracted topics and entities",
	Long: `Sends each document's text to the configured LLM once and stores the
returned topics and entities on every page of that document that has none.
Documents whose extraction fails are written unchanged. Inputs default to
paths.pages, which is rewritten in place unless --out is given.`,
	RunE: runEnrich,
}

func init() {
	enrichCmd.Flags().StringP("out", "o", "", "output page file (default: overwrite paths.pages)")
	enrichCmd.Flags().Int("concurrency", enrich.DefaultConcurrency, "documents processed in parallel")
	enrichCmd.Flags().Bool("quiet", false, "line-based progress instead of a progress bar")
	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = cfg.Paths.Pages
	}
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	quiet, _ := cmd.Flags().GetBool("quiet")

	inputs, err := inputsOr(args, cfg.Paths.Pages)
	if err != nil {
		return err
	}
	pages, err := corpus.ReadPagesFiles(inputs, logSkipped)
	if err != nil {
		return err
	}

	res, err := enrichPages(cmd, cfg, pages, concurrency, quiet)
	if err != nil {
		return err
	}
	if err := writePages(out, res.pages); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Enriched %d of %d documents (%d failed), wrote %s\n",
		res.Enriched, res.Documents, len(res.Errors), out)
	return nil
}

type enrichOutcome struct {
	*enrich.Result
	pages []corpus.Page
}

func enrichPages(cmd *cobra.Command, cfg *config.Config, pages []corpus.Page, concurrency int, quiet bool) (*enrichOutcome, error) {
	provider, err := createLLMProviderFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	reporter := progress.NewReporter("Enriching documents", quiet)
	e := enrich.New(provider,
		enrich.WithModel(cfg.Model),
		enrich.WithConcurrency(concurrency),
		enrich.WithProgress(progress.Func(reporter)),
	)

	reporter.Start(countDocuments(pages))
	enriched, res := e.Enrich(cmd.Context(), pages)
	reporter.Finish()
	return &enrichOutcome{Result: res, pages: enriched}, nil
}

func countDocuments(pages []corpus.Page) int {
	seen := make(map[string]bool)
	for _, p := range pages {
		if len(p.Topics) == 0 && len(p.Entities) == 0 {
			seen[p.DocID] = true
		}
	}
	return len(seen)
}
