package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/edwin/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing document search tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		stack, err := buildQueryStack(cmd.Context(), cfg, false)
		if err != nil {
			return err
		}
		defer stack.Close()

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "edwin MCP server started on stdio (store=%s, collection=%s)\n", cfg.Store.Type, cfg.Store.Collection)

		srv := mcpserver.NewServer(stack.service, nil)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
