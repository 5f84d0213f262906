// ABOUTME: MCP tool handler implementations for the agenda server
// ABOUTME: Bridges tool calls onto the pipeline, responder, stores and reindexer
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/harper/agenda/internal/app"
	"github.com/harper/agenda/internal/models"
)

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	app    *app.App
	logger *zap.Logger
}

// NewHandlers creates handlers over a wired App
func NewHandlers(a *app.App) *Handlers {
	logger := a.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{app: a, logger: logger.Named("mcp")}
}

// HandleUtterance handles the handle_utterance tool
func (h *Handlers) HandleUtterance(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	utterance, err := request.RequireString("utterance")
	if err != nil {
		return mcp.NewToolResultError("utterance argument is required and must be a string"), nil
	}
	history, err := historyArg(request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out := h.app.Pipeline.Resolve(ctx, utterance, history)

	response := map[string]interface{}{
		"outcome": out,
	}
	if request.GetBool("reply", true) {
		reply, err := h.app.Responder.Reply(ctx, out, utterance, history)
		if err != nil {
			h.logger.Warn("reply generation failed", zap.String("run_id", out.RunID), zap.Error(err))
			response["reply_error"] = err.Error()
		} else {
			response["reply"] = reply
		}
	}
	return jsonResult(response)
}

// ListItems handles the list_items tool
func (h *Handlers) ListItems(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := models.ItemFilter{
		ItemType:   models.ItemType(strings.ToUpper(request.GetString("item_type", ""))),
		ItemStatus: models.ItemStatus(strings.ToUpper(request.GetString("item_status", ""))),
	}

	var rows []models.ItemRow
	var err error
	if f.ItemType == "" && f.ItemStatus == "" {
		rows, err = h.app.Items.ListItems(ctx)
	} else {
		rows, err = h.app.Items.GetItems(ctx, f)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list items failed: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{
		"items": nonNil(rows),
		"count": len(rows),
	})
}

// SearchItems handles the search_items tool
func (h *Handlers) SearchItems(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}
	k := request.GetInt("k", h.app.Config.SemanticSearchK)
	if k <= 0 {
		return mcp.NewToolResultError(fmt.Sprintf("k must be positive, got %d", k)), nil
	}

	matches, err := h.app.Index.SearchK(ctx, query, k, h.app.Config.RelevanceThreshold, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	ids := make([]int64, len(matches))
	for i, m := range matches {
		ids[i] = m.ItemID
	}
	rows, err := h.app.Items.GetItems(ctx, models.ItemFilter{ItemIDs: ids})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load items failed: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{
		"matches": nonNil(matches),
		"items":   nonNil(models.SortByRank(rows, ids)),
	})
}

// Reindex handles the reindex tool
func (h *Handlers) Reindex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := h.app.Reindexer.Rebuild(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reindex failed: %v", err)), nil
	}
	return jsonResult(map[string]interface{}{"indexed": n})
}

// Reconcile handles the reconcile tool
func (h *Handlers) Reconcile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	replayed, replayErr := h.app.Reindexer.Reconcile(ctx)
	missing, orphaned, err := h.app.Reindexer.Drift(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("drift check failed: %v", err)), nil
	}

	response := map[string]interface{}{
		"replayed": replayed,
		"missing":  nonNil(missing),
		"orphaned": nonNil(orphaned),
	}
	if replayErr != nil {
		response["error"] = replayErr.Error()
	}
	return jsonResult(response)
}

func historyArg(args map[string]any) ([]models.Message, error) {
	raw, ok := args["history"]
	if !ok || raw == nil {
		return nil, nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	var history []models.Message
	if err := json.Unmarshal(b, &history); err != nil {
		return nil, fmt.Errorf("history must be an array of {role, content} objects")
	}
	return history, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
