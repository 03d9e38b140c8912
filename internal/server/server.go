// Package server exposes affkit's tracker and performance data over
// MCP stdio so assistants can query stats and record events.
package server

import (
	"context"
	"fmt"
	"os"
	"strings"

	mcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"affkit/internal/config"
	"affkit/internal/perfdb"
	"affkit/internal/trackdb"
)

type StatsParams struct {
	Days int `json:"days"`
}

type ListLinksParams struct {
	Limit *int `json:"limit,omitempty"`
}

type GetLinkParams struct {
	Code string `json:"code"`
}

type RecordClickParams struct {
	Code     string  `json:"code"`
	Source   *string `json:"source,omitempty"`
	Platform *string `json:"platform,omitempty"`
	Campaign *string `json:"campaign,omitempty"`
}

type RecordConversionParams struct {
	Code        string  `json:"code"`
	Amount      float64 `json:"amount"`
	IsRecurring bool    `json:"is_recurring"`
	Notes       *string `json:"notes,omitempty"`
}

type RecommendParams struct{}

func Run(ctx context.Context) error {
	server := mcp.NewServer(&mcp.Implementation{Name: "affkit", Version: "v1.0.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{Name: "get_stats", Description: "Dashboard stats for affiliate links over a trailing day window"}, handleStats)
	mcp.AddTool(server, &mcp.Tool{Name: "list_links", Description: "List tracked affiliate links with click/conversion/revenue totals"}, handleListLinks)
	mcp.AddTool(server, &mcp.Tool{Name: "get_link", Description: "Look up one affiliate link by short code"}, handleGetLink)
	mcp.AddTool(server, &mcp.Tool{Name: "record_click", Description: "Record a click against a short code"}, handleRecordClick)
	mcp.AddTool(server, &mcp.Tool{Name: "record_conversion", Description: "Record a conversion (sale) against a short code"}, handleRecordConversion)
	mcp.AddTool(server, &mcp.Tool{Name: "recommend_content", Description: "Next-content recommendation from the performance engine"}, handleRecommend)

	return server.Run(ctx, &mcp.StdioTransport{})
}

// dbNotFound builds the friendly payload for a missing database file.
func dbNotFound(path, hint string) map[string]any {
	return map[string]any{
		"ok":      false,
		"message": fmt.Sprintf("affkit database not found at %s", path),
		"hint":    hint,
		"db_path": path,
	}
}

func openTracker() (string, map[string]any, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", nil, err
	}
	path := cfg.TrackerDBPath()
	if !fileExists(path) {
		return "", dbNotFound(path, "Run 'affkit link add' to create the tracker DB, or set data_dir in ~/.config/affkit/config.yaml."), nil
	}
	return path, nil, nil
}

func handleStats(ctx context.Context, req *mcp.CallToolRequest, p StatsParams) (*mcp.CallToolResult, any, error) {
	if p.Days <= 0 {
		p.Days = 30
	}
	path, notFound, err := openTracker()
	if err != nil {
		return nil, nil, err
	}
	if notFound != nil {
		return nil, notFound, nil
	}
	db, err := trackdb.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	stats, err := trackdb.GetDashboardStats(ctx, db, p.Days)
	if err != nil {
		return nil, queryFailed(err, path), nil
	}
	return nil, stats, nil
}

func handleListLinks(ctx context.Context, req *mcp.CallToolRequest, p ListLinksParams) (*mcp.CallToolResult, any, error) {
	lim := 50
	if p.Limit != nil && *p.Limit > 0 {
		lim = *p.Limit
	}
	path, notFound, err := openTracker()
	if err != nil {
		return nil, nil, err
	}
	if notFound != nil {
		return nil, notFound, nil
	}
	db, err := trackdb.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	links, err := trackdb.ListLinks(ctx, db, lim)
	if err != nil {
		return nil, queryFailed(err, path), nil
	}
	items := make([]map[string]any, 0, len(links))
	for _, l := range links {
		items = append(items, map[string]any{
			"code":        l.ShortCode,
			"product":     l.ProductName,
			"url":         l.OriginalURL,
			"clicks":      l.TotalClicks,
			"conversions": l.TotalConversions,
			"revenue":     l.TotalRevenue,
		})
	}
	return nil, map[string]any{"count": len(items), "items": items}, nil
}

func handleGetLink(ctx context.Context, req *mcp.CallToolRequest, p GetLinkParams) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(p.Code) == "" {
		return nil, map[string]any{"ok": false, "message": "code is required"}, nil
	}
	path, notFound, err := openTracker()
	if err != nil {
		return nil, nil, err
	}
	if notFound != nil {
		return nil, notFound, nil
	}
	db, err := trackdb.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	link, err := trackdb.GetLinkByCode(ctx, db, p.Code)
	if err != nil {
		return nil, map[string]any{"ok": false, "message": err.Error()}, nil
	}
	return nil, map[string]any{
		"code":       link.ShortCode,
		"product":    link.ProductName,
		"url":        link.OriginalURL,
		"program":    link.Program.String,
		"commission": link.Commission.String,
		"created_at": link.CreatedAt,
	}, nil
}

func handleRecordClick(ctx context.Context, req *mcp.CallToolRequest, p RecordClickParams) (*mcp.CallToolResult, any, error) {
	path, notFound, err := openTracker()
	if err != nil {
		return nil, nil, err
	}
	if notFound != nil {
		return nil, notFound, nil
	}
	db, err := trackdb.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	link, err := trackdb.RecordClick(ctx, db, p.Code, deref(p.Source), deref(p.Platform), deref(p.Campaign))
	if err != nil {
		return nil, map[string]any{"ok": false, "message": err.Error()}, nil
	}
	return nil, map[string]any{"ok": true, "product": link.ProductName}, nil
}

func handleRecordConversion(ctx context.Context, req *mcp.CallToolRequest, p RecordConversionParams) (*mcp.CallToolResult, any, error) {
	if p.Amount < 0 {
		return nil, map[string]any{"ok": false, "message": "amount must not be negative"}, nil
	}
	path, notFound, err := openTracker()
	if err != nil {
		return nil, nil, err
	}
	if notFound != nil {
		return nil, notFound, nil
	}
	db, err := trackdb.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	link, err := trackdb.RecordConversion(ctx, db, p.Code, p.Amount, p.IsRecurring, deref(p.Notes))
	if err != nil {
		return nil, map[string]any{"ok": false, "message": err.Error()}, nil
	}
	return nil, map[string]any{"ok": true, "product": link.ProductName, "amount": p.Amount}, nil
}

func handleRecommend(ctx context.Context, req *mcp.CallToolRequest, p RecommendParams) (*mcp.CallToolResult, any, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	path := cfg.PerfDBPath()
	if !fileExists(path) {
		return nil, dbNotFound(path, "Run 'affkit perf record' to create the performance DB."), nil
	}
	db, err := perfdb.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	rec, err := perfdb.Recommend(ctx, db, nil)
	if err != nil {
		return nil, queryFailed(err, path), nil
	}
	return nil, rec, nil
}

func queryFailed(err error, path string) map[string]any {
	if strings.Contains(strings.ToLower(err.Error()), "no such table") {
		return map[string]any{
			"ok":      false,
			"message": "database is present but not initialized (missing tables)",
			"db_path": path,
		}
	}
	return map[string]any{
		"ok":      false,
		"message": "query failed",
		"error":   err.Error(),
		"db_path": path,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func fileExists(p string) bool {
	if p == "" {
		return false
	}
	_, err := os.Stat(p)
	return err == nil
}
