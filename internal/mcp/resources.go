package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/vitalsync/internal/dates"
	"github.com/claude/vitalsync/internal/models"
)

func (h *handlers) dailySummary(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uid := UserIDFromContext(ctx)
	yesterday := dates.Of(time.Now()).AddDays(-1)

	sleep, err := h.ds.SleepMetrics(ctx, uid, yesterday)
	if err != nil {
		h.log.Warn("daily_summary: sleep metrics failed", "error", err)
	}

	recovery, err := h.ds.RecoveryMetrics(ctx, uid, yesterday)
	if err != nil {
		h.log.Warn("daily_summary: recovery metrics failed", "error", err)
	}

	summary := map[string]any{
		"date":     yesterday.String(),
		"sleep":    sleep,
		"recovery": recovery,
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (h *handlers) categoryCatalog(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(models.AllCategories)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
