// Package mcpserver exposes bookmark search as MCP tools over stdio.
// stdout carries JSON-RPC, so nothing else may write to it while serving.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/yuval-kahan/Bookmarks-Search/internal/model"
	"github.com/yuval-kahan/Bookmarks-Search/internal/scope"
	"github.com/yuval-kahan/Bookmarks-Search/internal/search"
)

// Name is the server name announced to clients.
const Name = "bookmarks-search"

// Searcher runs one search.
type Searcher interface {
	Search(ctx context.Context, req search.Request) (*model.Result, error)
}

// HistoryLister returns past searches, newest first.
type HistoryLister interface {
	List(ctx context.Context) ([]model.HistoryRecord, error)
}

type handlers struct {
	search  Searcher
	history HistoryLister
}

// New builds the MCP server. history may be nil.
func New(s Searcher, history HistoryLister, version string) *server.MCPServer {
	h := &handlers{search: s, history: history}
	srv := server.NewMCPServer(Name, version, server.WithToolCapabilities(true))

	srv.AddTool(
		mcp.NewTool("search_bookmarks",
			mcp.WithDescription("Search the user's browser bookmarks. Returns matching bookmarks as JSON."),
			mcp.WithString("query", mcp.Required(), mcp.Description("What to look for")),
			mcp.WithString("mode", mcp.Description("exact, fuzzy or ai (default exact)")),
			mcp.WithBoolean("deep", mcp.Description("Download page content before an ai search")),
			mcp.WithArray("folders", mcp.Description("Limit the search to these folder paths"), mcp.WithStringItems()),
		),
		h.searchBookmarks,
	)

	if history != nil {
		srv.AddTool(
			mcp.NewTool("search_history",
				mcp.WithDescription("List previous bookmark searches, newest first"),
				mcp.WithNumber("limit", mcp.Description("Maximum number of entries (default 20)")),
			),
			h.searchHistory,
		)
	}
	return srv
}

// Serve runs srv on stdin/stdout until the client disconnects.
func Serve(srv *server.MCPServer) error {
	zap.L().Info("mcp: server ready", zap.String("transport", "stdio"))
	err := server.ServeStdio(srv)
	if eris.Is(err, context.Canceled) {
		return nil
	}
	return eris.Wrap(err, "mcp: serve stdio")
}

func (h *handlers) searchBookmarks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query is required"), nil //nolint:nilerr
	}

	sr := search.Request{
		Query: query,
		Mode:  model.SearchMode(req.GetString("mode", string(model.SearchModeExact))),
		Deep:  req.GetBool("deep", false),
	}
	if folders := req.GetStringSlice("folders", nil); len(folders) > 0 {
		sr.Scope = &scope.Selection{Folders: folders}
	}

	res, err := h.search.Search(ctx, sr)
	if err != nil {
		zap.L().Warn("mcp: search failed", zap.String("query", query), zap.Error(err))
		return mcp.NewToolResultError(err.Error()), nil
	}
	zap.L().Debug("mcp: search", zap.String("query", query), zap.Int("results", len(res.Items)))

	if res.Items == nil {
		res.Items = []model.Item{}
	}
	return jsonResult(res)
}

func (h *handlers) searchHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := h.history.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if limit := req.GetInt("limit", 20); limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	if records == nil {
		records = []model.HistoryRecord{}
	}
	return jsonResult(records)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, eris.Wrap(err, "mcp: marshal result")
	}
	return mcp.NewToolResultText(string(data)), nil
}
