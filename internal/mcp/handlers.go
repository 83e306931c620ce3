package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/podline/podline/internal/chat"
	"github.com/podline/podline/internal/search"
)

// handleSearchEpisodes performs semantic search over the episode index.
func (s *Server) handleSearchEpisodes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	if s.searcher == nil {
		return mcp.NewToolResultError("Episode index not available. Run `podline episodes search --reindex` to build it."), nil
	}

	limit := request.GetInt("limit", 10)
	if limit <= 0 {
		limit = 10
	}

	results, err := s.searcher.Search(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(results) == 0 {
		return mcp.NewToolResultText("No matching episodes. The index may be empty; run `podline episodes search --reindex`."), nil
	}

	return mcp.NewToolResultText(formatSearchResults(results)), nil
}

// handleGetEpisode fetches one episode with its full show notes.
func (s *Server) handleGetEpisode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}

	episode, err := s.api.Episode(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("fetching episode %q: %v", id, err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", episode.Title)
	fmt.Fprintf(&sb, "ID: %s\n", episode.ID)
	if !episode.PublishedAt.IsZero() {
		fmt.Fprintf(&sb, "Published: %s\n", episode.PublishedAt.Format("2006-01-02"))
	}
	if episode.Duration > 0 {
		fmt.Fprintf(&sb, "Duration: %dm%02ds\n", episode.Duration/60, episode.Duration%60)
	}
	if episode.AudioURL != "" {
		fmt.Fprintf(&sb, "Audio: %s\n", episode.AudioURL)
	}
	sb.WriteString("\n")
	sb.WriteString(episode.Description)

	return mcp.NewToolResultText(sb.String()), nil
}

// handleListFiles lists the file gallery.
func (s *Server) handleListFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prefix := request.GetString("prefix", "")

	files, err := s.api.Files(ctx, prefix)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing files: %v", err)), nil
	}

	if len(files) == 0 {
		return mcp.NewToolResultText("No files in the gallery."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d file(s):\n", len(files))
	for _, f := range files {
		fmt.Fprintf(&sb, "- %s (%d bytes, %s)\n", f.Name, f.Size, f.ContentType)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleAskAssistant runs a single-turn assistant exchange.
func (s *Server) handleAskAssistant(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	if s.completer == nil {
		return mcp.NewToolResultError("Assistant not configured."), nil
	}

	answer, err := s.completer.Complete(ctx, []chat.Message{
		chat.NewMessage(chat.RoleUser, question),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("assistant failed: %v", err)), nil
	}

	return mcp.NewToolResultText(answer), nil
}

// formatSearchResults converts search results into a text format for AI
// agent consumption.
func formatSearchResults(results []search.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d episode(s):\n", len(results))

	for i, r := range results {
		fmt.Fprintf(&sb, "\n--- Result %d ---\n", i+1)
		fmt.Fprintf(&sb, "Episode: %s\n", r.Title)
		fmt.Fprintf(&sb, "ID: %s\n", r.EpisodeID)
		if !r.PublishedAt.IsZero() {
			fmt.Fprintf(&sb, "Published: %s\n", r.PublishedAt.Format("2006-01-02"))
		}
		fmt.Fprintf(&sb, "Similarity: %.1f%%\n", r.Similarity*100)
		if r.Snippet != "" {
			fmt.Fprintf(&sb, "\n%s\n", r.Snippet)
		}
	}

	return sb.String()
}
