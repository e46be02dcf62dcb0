package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int64 {
	if id, ok := ctx.Value(userIDKey).(int64); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("VitalSync", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("VitalSync health data server. Query raw Garmin health payloads, derived sleep and recovery metrics with personal baselines, and period reports. All data is scoped to the authenticated user."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolQueryHealthData, Handler: h.queryHealthData},
		server.ServerTool{Tool: toolGetSleepMetrics, Handler: h.getSleepMetrics},
		server.ServerTool{Tool: toolGetRecoveryMetrics, Handler: h.getRecoveryMetrics},
		server.ServerTool{Tool: toolGetBaselines, Handler: h.getBaselines},
		server.ServerTool{Tool: toolGenerateReport, Handler: h.generateReport},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resDailySummary, Handler: h.dailySummary},
		server.ServerResource{Resource: resCategoryCatalog, Handler: h.categoryCatalog},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resDailySummary = mcp.NewResource(
	"vitalsync://daily_summary",
	"Daily Summary",
	mcp.WithResourceDescription("Yesterday's sleep and recovery metrics with baseline classifications"),
	mcp.WithMIMEType("application/json"),
)

var resCategoryCatalog = mcp.NewResource(
	"vitalsync://category_catalog",
	"Category Catalog",
	mcp.WithResourceDescription("All raw data categories stored per day"),
	mcp.WithMIMEType("application/json"),
)
