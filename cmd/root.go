package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/edwin/internal/config"
	"github.com/ziadkadry99/edwin/internal/logging"
)

var (
	cfgFile   string
	verbose   bool
	logFormat string
	logFile   string
)

var rootCmd = &cobra.Command{
	Use:   "edwin",
	Short: "Semantic search and grounded answers over extracted document pages",
	Long: `Edwin turns page-level text extracted from documents into a searchable
knowledge base. Pages are split into overlapping chunks, embedded and
stored in a vector database with their source, page, version, topics
and entities. Queries are planned by an LLM into filters and a refined
search, and results can be served to agents over MCP or HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging("")
	},
}

// Execute runs the root command. Cancelling ctx interrupts long stages.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text, json or pretty")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "append logs to this file instead of stderr")
}

// setupLogging installs the default logger. --verbose wins over level.
func setupLogging(level string) error {
	if verbose {
		level = "debug"
	}
	cleanup, err := logging.Setup(logging.Config{
		Level:    level,
		Format:   logFormat,
		FilePath: logFile,
	})
	if err != nil {
		return err
	}
	cobra.OnFinalize(cleanup)
	return nil
}
