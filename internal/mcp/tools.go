package mcp

import "github.com/mark3labs/mcp-go/mcp"

// searchEpisodesTool defines the search_episodes MCP tool.
var searchEpisodesTool = mcp.NewTool("search_episodes",
	mcp.WithDescription("Search podcast episodes semantically over their show notes. Returns the closest matching episodes."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 10)"),
	),
)

// getEpisodeTool defines the get_episode MCP tool.
var getEpisodeTool = mcp.NewTool("get_episode",
	mcp.WithDescription("Get the full details of a podcast episode, including its complete show notes."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Episode id"),
	),
)

// listFilesTool defines the list_files MCP tool.
var listFilesTool = mcp.NewTool("list_files",
	mcp.WithDescription("List files published in the site's file gallery."),
	mcp.WithString("prefix",
		mcp.Description("Only list files whose name starts with this prefix"),
	),
)

// askAssistantTool defines the ask_assistant MCP tool.
var askAssistantTool = mcp.NewTool("ask_assistant",
	mcp.WithDescription("Ask the show assistant a question about the podcast, its episodes, or published files."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("The question to ask"),
	),
)
