package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/edwin/internal/rag"
	"github.com/ziadkadry99/edwin/internal/retriever"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Semantically search the indexed documents",
	Long: `Plans the question into metadata filters and a refined query, then
returns the most similar chunks with their source, page, version and
score. Without a question an interactive prompt is started; type exit
or press Ctrl-D to leave it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

func init() {
	addQueryFlags(queryCmd)
	queryCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().Int("top-k", 0, "number of results (default retrieval.top_k)")
	cmd.Flags().Float32("min-score", 0, "drop results scoring below this similarity (default retrieval.min_score)")
	cmd.Flags().StringSlice("topic", nil, "only chunks tagged with one of these topics (repeatable)")
	cmd.Flags().StringSlice("entity", nil, "only chunks tagged with one of these entities (repeatable)")
	cmd.Flags().Int("version", 0, "only chunks from documents of this version")
	cmd.Flags().Bool("no-plan", false, "skip LLM query planning")
}

// requestTemplate builds the per-query request from flags. Flags left at
// their defaults stay unset so config defaults and planner output apply.
func requestTemplate(cmd *cobra.Command) rag.Request {
	var req rag.Request
	flags := cmd.Flags()
	if flags.Changed("top-k") {
		k, _ := flags.GetInt("top-k")
		req.TopK = &k
	}
	if flags.Changed("min-score") {
		m, _ := flags.GetFloat32("min-score")
		req.MinScore = &m
	}
	topics, _ := flags.GetStringSlice("topic")
	entities, _ := flags.GetStringSlice("entity")
	req.Filters.Topics = splitList(topics)
	req.Filters.Entities = splitList(entities)
	if flags.Changed("version") {
		v, _ := flags.GetInt("version")
		req.Filters.Version = &v
	}
	if noPlan, _ := flags.GetBool("no-plan"); noPlan {
		plan := false
		req.Plan = &plan
	}
	return req
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	stack, err := buildQueryStack(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer stack.Close()

	template := requestTemplate(cmd)
	jsonOutput, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()

	search := func(question string) error {
		req := template
		req.Query = question
		resp, err := stack.service.Search(ctx, req)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printQueryResultsJSON(out, resp)
		}
		printQueryResults(out, resp)
		return nil
	}

	if len(args) == 1 {
		return search(args[0])
	}
	return repl(ctx, "Ask a question", func(q string) {
		if err := search(q); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	})
}

// repl prompts until exit, EOF or interrupt. Blank input is ignored.
func repl(ctx context.Context, label string, handle func(string)) error {
	prompt := promptui.Prompt{Label: label}
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := prompt.Run()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading question: %w", err)
		}
		line = strings.TrimSpace(line)
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		handle(line)
	}
}

func printQueryResultsJSON(w io.Writer, resp *rag.Response) error {
	if resp.Results == nil {
		resp.Results = []retriever.Result{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	scoreColor   = color.New(color.FgGreen)
	dimColor     = color.New(color.Faint)
)

func printQueryResults(w io.Writer, resp *rag.Response) {
	if resp.RefinedQuery != resp.Query {
		dimColor.Fprintf(w, "Refined query: %s\n", resp.RefinedQuery)
	}
	if !resp.Filters.IsEmpty() {
		dimColor.Fprintf(w, "Filters: %s\n", describeFilters(resp.Filters))
	}
	if len(resp.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "Found %d results:\n\n", len(resp.Results))
	for i, r := range resp.Results {
		headingColor.Fprintf(w, "  %d. %s (page %d)\n", i+1, r.Chunk.Source, r.Chunk.Page)
		fmt.Fprintf(w, "     Version: %s  ", retriever.VersionString(r.Chunk.Version))
		scoreColor.Fprintf(w, "Score: %.4f\n", r.Score)
		fmt.Fprintf(w, "     %s\n\n", retriever.Preview(r.Chunk.Text, retriever.DefaultPreviewChars))
	}
}

func describeFilters(f retriever.Filters) string {
	var parts []string
	if len(f.Topics) > 0 {
		parts = append(parts, "topics="+strings.Join(f.Topics, "|"))
	}
	if len(f.Entities) > 0 {
		parts = append(parts, "entities="+strings.Join(f.Entities, "|"))
	}
	if f.Version != nil {
		parts = append(parts, "version="+retriever.VersionString(f.Version))
	}
	return strings.Join(parts, " ")
}
