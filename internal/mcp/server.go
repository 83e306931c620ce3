// Package mcp exposes the podcast site to AI agents over the Model
// Context Protocol.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/podline/podline/internal/api"
	"github.com/podline/podline/internal/assistant"
	"github.com/podline/podline/internal/search"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Searcher is the episode index surface the server needs.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]search.Result, error)
}

// Server wraps an MCP server exposing episode search, file listing, and
// the assistant as tools. searcher and completer may be nil; the
// corresponding tools then return errors while the rest keep working.
type Server struct {
	api       *api.Client
	searcher  Searcher
	completer assistant.Completer
	mcp       *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(client *api.Client, searcher Searcher, completer assistant.Completer) *Server {
	s := &Server{
		api:       client,
		searcher:  searcher,
		completer: completer,
	}

	s.mcp = server.NewMCPServer(
		"podline",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(searchEpisodesTool, s.handleSearchEpisodes)
	s.mcp.AddTool(getEpisodeTool, s.handleGetEpisode)
	s.mcp.AddTool(listFilesTool, s.handleListFiles)
	s.mcp.AddTool(askAssistantTool, s.handleAskAssistant)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
