package metrics

import (
	"context"
	"log/slog"

	"github.com/claude/vitalsync/internal/dates"
	"github.com/claude/vitalsync/internal/models"
	"github.com/claude/vitalsync/internal/storage"
)

// Extractor derives sleep and recovery metrics from the raw store.
type Extractor struct {
	store *storage.Store
	log   *slog.Logger
}

// NewExtractor creates an extractor over the raw store. The extractor never
// touches the network; callers wanting fresh data ensure it first via the
// ingestion layer.
func NewExtractor(store *storage.Store, log *slog.Logger) *Extractor {
	return &Extractor{store: store, log: log}
}

// SleepMetrics computes the derived sleep values for one user/date. Returns
// nil when no sleep record is stored; a stored record with missing fields
// yields a present object with those fields absent. Callers must keep the
// "no data" / "zero minutes" distinction intact.
func (e *Extractor) SleepMetrics(ctx context.Context, userID int64, date dates.Date) (*models.SleepMetrics, error) {
	day, err := e.store.Day(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	return computeSleep(day, date), nil
}

// SleepMetricsRange computes sleep metrics for every date in [start, end]
// that has a sleep record.
func (e *Extractor) SleepMetricsRange(ctx context.Context, userID int64, start, end dates.Date) (map[dates.Date]*models.SleepMetrics, error) {
	byDate, err := e.store.Query(ctx, userID, start, end, []models.Category{models.CategorySleep})
	if err != nil {
		return nil, err
	}

	out := make(map[dates.Date]*models.SleepMetrics)
	for d, day := range byDate {
		if m := computeSleep(day, d); m != nil {
			out[d] = m
		}
	}
	return out, nil
}

// computeSleep is the pure per-day calculation.
func computeSleep(day storage.DayData, date dates.Date) *models.SleepMetrics {
	if _, ok := day[models.CategorySleep]; !ok {
		return nil
	}

	m := &models.SleepMetrics{
		Date:              date,
		DeepSleepSeconds:  extractInt(day, sleepDeepSeconds),
		LightSleepSeconds: extractInt(day, sleepLightSeconds),
		REMSleepSeconds:   extractInt(day, sleepREMSeconds),
		AwakeSeconds:      extractInt(day, sleepAwakeSeconds),
		AvgSleepStress:    extractFloat(day, sleepAvgStress),
		BedtimeTimestamp:  extractInt(day, sleepStartTS),
		WaketimeTimestamp: extractInt(day, sleepEndTS),
	}

	// Total excludes awake time; awake is tracked separately as WASO.
	if m.DeepSleepSeconds != nil && m.LightSleepSeconds != nil && m.REMSleepSeconds != nil {
		m.TotalSleepSeconds = intPtr(*m.DeepSleepSeconds + *m.LightSleepSeconds + *m.REMSleepSeconds)
	}
	m.WASOSeconds = m.AwakeSeconds

	if m.TotalSleepSeconds != nil && m.BedtimeTimestamp != nil && m.WaketimeTimestamp != nil {
		spanSeconds := float64(*m.WaketimeTimestamp-*m.BedtimeTimestamp) / 1000
		if spanSeconds > 0 {
			m.SleepEfficiencyPct = floatPtr(float64(*m.TotalSleepSeconds) / spanSeconds * 100)
		}
	}

	if m.TotalSleepSeconds != nil && *m.TotalSleepSeconds > 0 {
		total := float64(*m.TotalSleepSeconds)
		m.DeepSleepPct = floatPtr(float64(*m.DeepSleepSeconds) / total * 100)
		m.LightSleepPct = floatPtr(float64(*m.LightSleepSeconds) / total * 100)
		m.REMSleepPct = floatPtr(float64(*m.REMSleepSeconds) / total * 100)
	}

	return m
}
