package metrics

import (
	"context"

	"github.com/claude/vitalsync/internal/dates"
	"github.com/claude/vitalsync/internal/models"
)

// annotate attaches baseline context and a classification to a value. With
// no baseline the value stands alone as no_baseline.
func annotate(value float64, baseline *models.BaselineData, lowerIsBetter bool) models.MetricWithBaseline {
	if baseline == nil {
		return models.MetricWithBaseline{Value: value, Status: models.StatusNoBaseline}
	}

	z, status := Classify(value, *baseline, lowerIsBetter)
	return models.MetricWithBaseline{
		Value:          value,
		BaselineMean:   floatPtr(baseline.Mean),
		BaselineStdDev: floatPtr(baseline.StdDev),
		ZScore:         floatPtr(z),
		Status:         status,
	}
}

// baselineFor looks up a metric's baseline and annotates with its polarity.
func baselineFor(baselines map[string]models.BaselineData, name string, value float64) models.MetricWithBaseline {
	if b, ok := baselines[name]; ok {
		return annotate(value, &b, LowerIsBetter(name))
	}
	return annotate(value, nil, LowerIsBetter(name))
}

// SleepWithBaselines computes one night's sleep metrics annotated with the
// user's personal baselines. Returns nil when no sleep record exists for the
// date. Total sleep and efficiency are always present on the result; the
// optional entries are nil when the underlying metric was absent.
func (e *Extractor) SleepWithBaselines(ctx context.Context, userID int64, date dates.Date) (*models.SleepMetricsWithBaselines, error) {
	m, err := e.SleepMetrics(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, nil
	}

	baselines, err := e.SleepBaselines(ctx, userID, date, DefaultLookbackDays)
	if err != nil {
		return nil, err
	}

	out := &models.SleepMetricsWithBaselines{Date: date}

	var total, efficiency float64
	if m.TotalSleepSeconds != nil {
		total = float64(*m.TotalSleepSeconds)
	}
	if m.SleepEfficiencyPct != nil {
		efficiency = *m.SleepEfficiencyPct
	}
	out.TotalSleepTime = baselineFor(baselines, MetricTotalSleep, total)
	out.SleepEfficiency = baselineFor(baselines, MetricSleepEfficiency, efficiency)

	if m.WASOSeconds != nil {
		v := baselineFor(baselines, MetricWASO, float64(*m.WASOSeconds))
		out.WASO = &v
	}
	if m.DeepSleepPct != nil {
		v := baselineFor(baselines, MetricDeepSleepPct, *m.DeepSleepPct)
		out.DeepSleepPct = &v
	}
	if m.REMSleepPct != nil {
		v := baselineFor(baselines, MetricREMSleepPct, *m.REMSleepPct)
		out.REMSleepPct = &v
	}
	if m.AvgSleepStress != nil {
		v := baselineFor(baselines, MetricAvgSleepStress, *m.AvgSleepStress)
		out.AvgSleepStress = &v
	}

	return out, nil
}

// RecoveryWithBaselines computes one day's recovery metrics annotated with
// the user's personal baselines. Returns nil when no recovery data exists.
// Resting heart rate is always present on the result; when absent it carries
// a zero value with no_baseline status.
func (e *Extractor) RecoveryWithBaselines(ctx context.Context, userID int64, date dates.Date) (*models.RecoveryMetricsWithBaselines, error) {
	m, err := e.RecoveryMetrics(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, nil
	}

	baselines, err := e.RecoveryBaselines(ctx, userID, date, DefaultLookbackDays)
	if err != nil {
		return nil, err
	}

	out := &models.RecoveryMetricsWithBaselines{Date: date}

	if m.RestingHeartRate != nil {
		out.RestingHeartRate = baselineFor(baselines, MetricRestingHeartRate, float64(*m.RestingHeartRate))
	} else {
		out.RestingHeartRate = models.MetricWithBaseline{Status: models.StatusNoBaseline}
	}

	if m.HRVRMSSD != nil {
		v := baselineFor(baselines, MetricHRVRMSSD, *m.HRVRMSSD)
		out.HRVRMSSD = &v
	}
	if m.BodyBatteryMax != nil {
		v := baselineFor(baselines, MetricBodyBatteryMax, float64(*m.BodyBatteryMax))
		out.BodyBatteryMax = &v
	}
	if m.BodyBatteryCharged != nil {
		v := baselineFor(baselines, MetricBodyBatteryCharged, float64(*m.BodyBatteryCharged))
		out.BodyBatteryCharged = &v
	}
	if m.AvgStressLevel != nil {
		v := baselineFor(baselines, MetricAvgStressLevel, *m.AvgStressLevel)
		out.AvgStressLevel = &v
	}

	return out, nil
}
