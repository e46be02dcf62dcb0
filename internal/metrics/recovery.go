package metrics

import (
	"context"

	"github.com/claude/vitalsync/internal/dates"
	"github.com/claude/vitalsync/internal/models"
	"github.com/claude/vitalsync/internal/storage"
)

// hrvWindowDays is the inclusive rolling window for the HRV average.
const hrvWindowDays = 7

// RecoveryMetrics computes the derived recovery/ANS values for one
// user/date. Returns nil when every extracted field is absent; a record of
// all nulls is the same as no data.
func (e *Extractor) RecoveryMetrics(ctx context.Context, userID int64, date dates.Date) (*models.RecoveryMetrics, error) {
	// One window query covers both the per-day fields and the HRV rolling
	// average.
	window, err := e.store.Query(ctx, userID, date.AddDays(-(hrvWindowDays-1)), date, nil)
	if err != nil {
		return nil, err
	}
	return computeRecovery(window, date), nil
}

// computeRecovery is the pure calculation over a [date-6, date] window of
// stored payloads.
func computeRecovery(window map[dates.Date]storage.DayData, date dates.Date) *models.RecoveryMetrics {
	day := window[date]

	m := &models.RecoveryMetrics{
		Date:               date,
		RestingHeartRate:   extractInt(day, restingHeartRate),
		HRVRMSSD:           extractFloat(day, hrvNightlyAvg),
		HRV7DayAvg:         rollingHRV(window, date),
		BodyBatteryMax:     extractInt(day, bodyBatteryMax),
		BodyBatteryMin:     extractInt(day, bodyBatteryMin),
		BodyBatteryCharged: extractInt(day, bodyBatteryCharged),
		BodyBatteryDrained: extractInt(day, bodyBatteryDrained),
		AvgStressLevel:     extractFloat(day, stressAvgLevel),
		MaxStressLevel:     extractFloat(day, stressMaxLevel),
	}

	if m.IsEmpty() {
		return nil
	}
	return m
}

// rollingHRV averages the nightly HRV over the window ending at date. Dates
// without a value are ignored, not counted as zero.
func rollingHRV(window map[dates.Date]storage.DayData, date dates.Date) *float64 {
	var sum float64
	var n int
	for d := date.AddDays(-(hrvWindowDays - 1)); !d.After(date); d = d.AddDays(1) {
		day, ok := window[d]
		if !ok {
			continue
		}
		if v, ok := extractNumber(day, hrvNightlyAvg); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return floatPtr(sum / float64(n))
}
