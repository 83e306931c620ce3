package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/podline/podline/internal/mcp"
	"github.com/podline/podline/internal/search"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdio",
	Long: `Exposes episode search, the file gallery, and the show assistant to
AI agents over the Model Context Protocol. Stdout carries protocol
messages; diagnostics go to stderr.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	resolver, err := loadResolver()
	if err != nil {
		return err
	}
	bridge := newBridge(resolver)
	client := newAPIClient(resolver, bridge)

	token, err := bridge.Token(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	// The episode index is optional; the search tool reports how to build
	// it when missing.
	var searcher mcp.Searcher
	embed := search.BackendEmbeddingFunc(resolver.BackendAPIURL(), token, resolver.EmbeddingModel())
	if index, err := search.NewIndex(embed, resolver.DataDir()); err == nil && index.Count() > 0 {
		searcher = index
	}

	srv := mcp.NewServer(client, searcher, newAssistant(resolver, token))
	return srv.Serve()
}
