// ABOUTME: MCP tool definitions and registration for the agenda server
// ABOUTME: Defines JSON schemas for the utterance, listing, search and index maintenance tools
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/agenda/internal/app"
)

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, a *app.App) *Handlers {
	handlers := NewHandlers(a)

	// 1. handle_utterance - run one utterance through the intent pipeline
	server.AddTool(mcp.Tool{
		Name:        "handle_utterance",
		Description: "Resolve a natural-language request about notes and events. Classifies it, extracts fields, applies it to the agenda and returns the outcome with an optional reply.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"utterance": map[string]interface{}{
					"type":        "string",
					"description": "What the user said",
				},
				"history": map[string]interface{}{
					"type":        "array",
					"description": "Prior conversation turns, oldest first",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"role":    map[string]interface{}{"type": "string"},
							"content": map[string]interface{}{"type": "string"},
						},
					},
				},
				"reply": map[string]interface{}{
					"type":        "boolean",
					"description": "Generate a natural-language reply (default: true)",
					"default":     true,
				},
			},
			Required: []string{"utterance"},
		},
	}, handlers.HandleUtterance)

	// 2. list_items - list stored notes and events
	server.AddTool(mcp.Tool{
		Name:        "list_items",
		Description: "List stored notes and events, optionally narrowed by type and status.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"item_type": map[string]interface{}{
					"type":        "string",
					"description": "NOTE or EVENT",
					"enum":        []string{"NOTE", "EVENT"},
				},
				"item_status": map[string]interface{}{
					"type":        "string",
					"description": "ACTIVE, CANCELLED or COMPLETED",
					"enum":        []string{"ACTIVE", "CANCELLED", "COMPLETED"},
				},
			},
		},
	}, handlers.ListItems)

	// 3. search_items - semantic search without going through the classifier
	server.AddTool(mcp.Tool{
		Name:        "search_items",
		Description: "Semantic search over stored notes and events.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Text to search for",
				},
				"k": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of results (default: configured semantic_search_k)",
				},
			},
			Required: []string{"query"},
		},
	}, handlers.SearchItems)

	// 4. reindex - rebuild the semantic index from the item store
	server.AddTool(mcp.Tool{
		Name:        "reindex",
		Description: "Rebuild the semantic index from every stored item and clear pending reconcile tasks.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, handlers.Reindex)

	// 5. reconcile - replay index writes that failed after a store commit
	server.AddTool(mcp.Tool{
		Name:        "reconcile",
		Description: "Replay pending reconcile tasks and report remaining drift between the item store and the index.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, handlers.Reconcile)

	return handlers
}
