package mcp

import (
	"context"

	"github.com/claude/vitalsync/internal/dates"
	"github.com/claude/vitalsync/internal/metrics"
	"github.com/claude/vitalsync/internal/models"
	"github.com/claude/vitalsync/internal/report"
	"github.com/claude/vitalsync/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Local (in-process
// engine) and HTTPClient (remote via REST API) both satisfy this interface.
type DataSource interface {
	QueryRaw(ctx context.Context, userID int64, start, end dates.Date, categories []models.Category) (map[dates.Date]storage.DayData, error)
	SleepMetrics(ctx context.Context, userID int64, date dates.Date) (*models.SleepMetricsWithBaselines, error)
	RecoveryMetrics(ctx context.Context, userID int64, date dates.Date) (*models.RecoveryMetricsWithBaselines, error)
	Baselines(ctx context.Context, userID int64, date dates.Date, lookback int) (map[string]models.BaselineData, error)
	Report(ctx context.Context, userID int64, start, end dates.Date) (string, error)
}

// Local serves MCP tools straight from the in-process engine.
type Local struct {
	Store     *storage.Store
	Extractor *metrics.Extractor
	Reports   *report.Generator
}

// Compile-time check: *Local satisfies DataSource.
var _ DataSource = (*Local)(nil)

func (l *Local) QueryRaw(ctx context.Context, userID int64, start, end dates.Date, categories []models.Category) (map[dates.Date]storage.DayData, error) {
	return l.Store.Query(ctx, userID, start, end, categories)
}

func (l *Local) SleepMetrics(ctx context.Context, userID int64, date dates.Date) (*models.SleepMetricsWithBaselines, error) {
	return l.Extractor.SleepWithBaselines(ctx, userID, date)
}

func (l *Local) RecoveryMetrics(ctx context.Context, userID int64, date dates.Date) (*models.RecoveryMetricsWithBaselines, error) {
	return l.Extractor.RecoveryWithBaselines(ctx, userID, date)
}

func (l *Local) Baselines(ctx context.Context, userID int64, date dates.Date, lookback int) (map[string]models.BaselineData, error) {
	return l.Extractor.Baselines(ctx, userID, date, lookback)
}

func (l *Local) Report(ctx context.Context, userID int64, start, end dates.Date) (string, error) {
	return l.Reports.Markdown(ctx, userID, start, end)
}
