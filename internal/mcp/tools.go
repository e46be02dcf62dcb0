package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/vitalsync/internal/dates"
	"github.com/claude/vitalsync/internal/models"
)

// defaultDateRange resolves start/end strings, defaulting to the last 7 days
// ending today.
func defaultDateRange(startStr, endStr string) (dates.Date, dates.Date, error) {
	var start, end *dates.Date

	if startStr != "" {
		d, err := dates.Parse(startStr)
		if err != nil {
			return dates.Date{}, dates.Date{}, err
		}
		start = &d
	}
	if endStr != "" {
		d, err := dates.Parse(endStr)
		if err != nil {
			return dates.Date{}, dates.Date{}, err
		}
		end = &d
	}

	span := dates.ResolveRange(start, end, 7, dates.Of(time.Now()))
	return span[0], span[len(span)-1], nil
}

// dateOrYesterday parses the date parameter, defaulting to yesterday, the
// most recent day with a complete night of sleep behind it.
func dateOrYesterday(s string) (dates.Date, error) {
	if s == "" {
		return dates.Of(time.Now()).AddDays(-1), nil
	}
	return dates.Parse(s)
}

// --- Tool definitions ---

var toolQueryHealthData = mcp.NewTool("query_health_data",
	mcp.WithDescription("Retrieve raw per-day Garmin health payloads. Returns JSON documents keyed by date and category (sleep, steps, hrv, stress, body_battery, resting_heart_rate, ...)."),
	mcp.WithString("start", mcp.Description("Start date (YYYY-MM-DD). Defaults to 7 days ago.")),
	mcp.WithString("end", mcp.Description("End date (YYYY-MM-DD). Defaults to today.")),
	mcp.WithString("category", mcp.Description("Restrict to one category (e.g. sleep, hrv, stress). Defaults to all.")),
)

var toolGetSleepMetrics = mcp.NewTool("get_sleep_metrics",
	mcp.WithDescription("Derived sleep metrics for one night with personal-baseline classifications: total sleep time, efficiency, WASO, deep/REM percentages, sleep stress."),
	mcp.WithString("date", mcp.Description("Night to analyze (YYYY-MM-DD). Defaults to yesterday.")),
)

var toolGetRecoveryMetrics = mcp.NewTool("get_recovery_metrics",
	mcp.WithDescription("Derived recovery metrics for one day with personal-baseline classifications: resting heart rate, 7-day rolling HRV, body battery, stress levels."),
	mcp.WithString("date", mcp.Description("Day to analyze (YYYY-MM-DD). Defaults to yesterday.")),
)

var toolGetBaselines = mcp.NewTool("get_baselines",
	mcp.WithDescription("Personal baseline statistics (mean, standard deviation, lookback window) for all sleep and recovery metrics with enough history."),
	mcp.WithString("date", mcp.Description("Anchor date for the history window (YYYY-MM-DD). Defaults to yesterday.")),
	mcp.WithNumber("lookback", mcp.Description("History window in days. Defaults to 30, with per-metric overrides for HRV and resting heart rate.")),
)

var toolGenerateReport = mcp.NewTool("generate_report",
	mcp.WithDescription("Markdown health report for a period: daily averages, totals, and first-half vs second-half trends per metric."),
	mcp.WithString("start", mcp.Description("Start date (YYYY-MM-DD). Defaults to 7 days ago.")),
	mcp.WithString("end", mcp.Description("End date (YYYY-MM-DD). Defaults to today.")),
)

// --- Tool handlers ---

func (h *handlers) queryHealthData(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultDateRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	var categories []models.Category
	if c := req.GetString("category", ""); c != "" {
		categories = append(categories, models.Category(c))
	}

	uid := UserIDFromContext(ctx)
	byDay, err := h.ds.QueryRaw(ctx, uid, start, end, categories)
	if err != nil {
		h.log.Error("mcp query_health_data", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	// JSON object keys must be strings.
	out := make(map[string]any, len(byDay))
	for d, day := range byDay {
		out[d.String()] = day
	}

	result, err := mcp.NewToolResultJSON(out)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSleepMetrics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := dateOrYesterday(req.GetString("date", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)
	m, err := h.ds.SleepMetrics(ctx, uid, date)
	if err != nil {
		h.log.Error("mcp get_sleep_metrics", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if m == nil {
		return mcp.NewToolResultError("no sleep data for " + date.String()), nil
	}

	result, err := mcp.NewToolResultJSON(m)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getRecoveryMetrics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := dateOrYesterday(req.GetString("date", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)
	m, err := h.ds.RecoveryMetrics(ctx, uid, date)
	if err != nil {
		h.log.Error("mcp get_recovery_metrics", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if m == nil {
		return mcp.NewToolResultError("no recovery data for " + date.String()), nil
	}

	result, err := mcp.NewToolResultJSON(m)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getBaselines(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := dateOrYesterday(req.GetString("date", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	lookback := req.GetInt("lookback", 0)
	if lookback < 0 {
		return mcp.NewToolResultError("lookback must not be negative"), nil
	}

	uid := UserIDFromContext(ctx)
	baselines, err := h.ds.Baselines(ctx, uid, date, lookback)
	if err != nil {
		h.log.Error("mcp get_baselines", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(baselines)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) generateReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultDateRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)
	md, err := h.ds.Report(ctx, uid, start, end)
	if err != nil {
		h.log.Error("mcp generate_report", "error", err)
		return mcp.NewToolResultError("report failed: " + err.Error()), nil
	}

	return mcp.NewToolResultText(md), nil
}
