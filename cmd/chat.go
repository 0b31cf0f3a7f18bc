package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/edwin/internal/rag"
)

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Answer questions from the indexed documents with citations",
	Long: `Retrieves the chunks most relevant to each question and asks the
configured LLM to answer using only those sources, citing document name
and page. Without a question an interactive session is started.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	addQueryFlags(chatCmd)
	chatCmd.Flags().Bool("show-context", false, "print the retrieved context before each answer")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	stack, err := buildQueryStack(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer stack.Close()

	template := requestTemplate(cmd)
	showContext, _ := cmd.Flags().GetBool("show-context")
	out := cmd.OutOrStdout()

	answer := func(question string) error {
		req := template
		req.Query = question
		ans, err := stack.service.Answer(ctx, req)
		if err != nil {
			return err
		}
		printAnswer(out, ans, showContext)
		return nil
	}

	if len(args) == 1 {
		return answer(args[0])
	}
	return repl(ctx, "You", func(q string) {
		if err := answer(q); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	})
}

func printAnswer(w io.Writer, ans *rag.Answer, showContext bool) {
	if showContext && ans.Context != "" {
		dimColor.Fprintf(w, "%s\n\n", ans.Context)
	}
	headingColor.Fprint(w, "Edwin: ")
	fmt.Fprintln(w, ans.Text)

	if ans.Response == nil || len(ans.Response.Results) == 0 {
		fmt.Fprintln(w)
		return
	}
	dimColor.Fprint(w, "Sources:")
	seen := make(map[string]bool)
	for _, r := range ans.Response.Results {
		key := fmt.Sprintf("%s p.%d", r.Chunk.Source, r.Chunk.Page)
		if seen[key] {
			continue
		}
		seen[key] = true
		dimColor.Fprintf(w, " [%s]", key)
	}
	fmt.Fprint(w, "\n\n")
}
