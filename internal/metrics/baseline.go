package metrics

import (
	"context"
	"math"

	"github.com/claude/vitalsync/internal/dates"
	"github.com/claude/vitalsync/internal/models"
)

// Metric names used as baseline keys. They double as the JSON field names of
// the metric objects they come from.
const (
	MetricTotalSleep      = "total_sleep_seconds"
	MetricSleepEfficiency = "sleep_efficiency_pct"
	MetricWASO            = "waso_seconds"
	MetricDeepSleepPct    = "deep_sleep_pct"
	MetricLightSleepPct   = "light_sleep_pct"
	MetricREMSleepPct     = "rem_sleep_pct"
	MetricAvgSleepStress  = "avg_sleep_stress"

	MetricRestingHeartRate   = "resting_heart_rate"
	MetricHRVRMSSD           = "hrv_rmssd"
	MetricBodyBatteryMax     = "body_battery_max"
	MetricBodyBatteryCharged = "body_battery_charged"
	MetricAvgStressLevel     = "avg_stress_level"
)

const (
	// DefaultLookbackDays is the history window for baselines unless a
	// metric overrides it.
	DefaultLookbackDays = 30

	minBaselineSamples = 7

	normalThreshold    = 0.75
	deviationThreshold = 1.5
)

// lowerIsBetterMetrics is the fixed polarity table. Metrics absent here are
// classified as higher-is-better.
var lowerIsBetterMetrics = map[string]bool{
	MetricRestingHeartRate: true,
	MetricAvgStressLevel:   true,
	MetricAvgSleepStress:   true,
	MetricWASO:             true,
}

// lookbackOverrides is the per-metric lookback recorded on published
// baselines. HRV needs a longer horizon to be meaningful; RHR drifts slowly.
var lookbackOverrides = map[string]int{
	MetricHRVRMSSD:         90,
	MetricRestingHeartRate: 60,
}

// LowerIsBetter reports the polarity for a metric name.
func LowerIsBetter(metric string) bool {
	return lowerIsBetterMetrics[metric]
}

// lookbackFor returns the lookback recorded for a metric's baseline.
func lookbackFor(metric string, requested int) int {
	if override, ok := lookbackOverrides[metric]; ok {
		return override
	}
	return requested
}

// ComputeBaseline computes a mean/stddev baseline over historical values.
// Returns nil with fewer than 7 samples, or when the values never vary; a
// zero-variance baseline cannot z-score anything.
func ComputeBaseline(values []float64, lookbackDays int) *models.BaselineData {
	if len(values) < minBaselineSamples {
		return nil
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	// Population standard deviation: divide by N.
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	stdDev := math.Sqrt(sq / float64(len(values)))
	if stdDev == 0 {
		return nil
	}

	return &models.BaselineData{Mean: mean, StdDev: stdDev, LookbackDays: lookbackDays}
}

// Classify scores a value against its baseline. The thresholds are fixed
// constants; 0.75 separates normal from notable, 1.5 notable from
// concerning, mirrored by polarity.
func Classify(value float64, baseline models.BaselineData, lowerIsBetter bool) (float64, models.BaselineStatus) {
	z := (value - baseline.Mean) / baseline.StdDev

	if lowerIsBetter {
		switch {
		case z <= -normalThreshold:
			return z, models.StatusOptimal
		case z <= normalThreshold:
			return z, models.StatusNormal
		case z <= deviationThreshold:
			return z, models.StatusSlightDeviation
		default:
			return z, models.StatusConcerning
		}
	}

	switch {
	case z >= normalThreshold:
		return z, models.StatusOptimal
	case z >= -normalThreshold:
		return z, models.StatusNormal
	case z >= -deviationThreshold:
		return z, models.StatusSlightDeviation
	default:
		return z, models.StatusConcerning
	}
}

// SleepBaselines computes baselines for every sleep metric over the lookback
// window ending the day before date. Nights without a total sleep value are
// skipped entirely; a partial night would skew the stage percentages.
func (e *Extractor) SleepBaselines(ctx context.Context, userID int64, date dates.Date, lookback int) (map[string]models.BaselineData, error) {
	if lookback <= 0 {
		lookback = DefaultLookbackDays
	}

	history, err := e.SleepMetricsRange(ctx, userID, date.AddDays(-lookback), date.AddDays(-1))
	if err != nil {
		return nil, err
	}

	values := make(map[string][]float64)
	for _, m := range history {
		if m.TotalSleepSeconds == nil {
			continue
		}
		values[MetricTotalSleep] = append(values[MetricTotalSleep], float64(*m.TotalSleepSeconds))
		appendFloat(values, MetricSleepEfficiency, m.SleepEfficiencyPct)
		appendInt(values, MetricWASO, m.WASOSeconds)
		appendFloat(values, MetricDeepSleepPct, m.DeepSleepPct)
		appendFloat(values, MetricLightSleepPct, m.LightSleepPct)
		appendFloat(values, MetricREMSleepPct, m.REMSleepPct)
		appendFloat(values, MetricAvgSleepStress, m.AvgSleepStress)
	}

	return publishBaselines(values, lookback), nil
}

// RecoveryBaselines computes baselines for every recovery metric over the
// lookback window ending the day before date.
func (e *Extractor) RecoveryBaselines(ctx context.Context, userID int64, date dates.Date, lookback int) (map[string]models.BaselineData, error) {
	if lookback <= 0 {
		lookback = DefaultLookbackDays
	}

	start, end := date.AddDays(-lookback), date.AddDays(-1)
	window, err := e.store.Query(ctx, userID, start.AddDays(-(hrvWindowDays-1)), end, nil)
	if err != nil {
		return nil, err
	}

	values := make(map[string][]float64)
	for d := start; !d.After(end); d = d.AddDays(1) {
		m := computeRecovery(window, d)
		if m == nil {
			continue
		}
		appendInt(values, MetricRestingHeartRate, m.RestingHeartRate)
		appendFloat(values, MetricHRVRMSSD, m.HRVRMSSD)
		appendInt(values, MetricBodyBatteryMax, m.BodyBatteryMax)
		appendInt(values, MetricBodyBatteryCharged, m.BodyBatteryCharged)
		appendFloat(values, MetricAvgStressLevel, m.AvgStressLevel)
	}

	return publishBaselines(values, lookback), nil
}

// Baselines computes the combined sleep and recovery baseline map for a
// reference date.
func (e *Extractor) Baselines(ctx context.Context, userID int64, date dates.Date, lookback int) (map[string]models.BaselineData, error) {
	sleep, err := e.SleepBaselines(ctx, userID, date, lookback)
	if err != nil {
		return nil, err
	}
	recovery, err := e.RecoveryBaselines(ctx, userID, date, lookback)
	if err != nil {
		return nil, err
	}

	out := make(map[string]models.BaselineData, len(sleep)+len(recovery))
	for name, b := range sleep {
		out[name] = b
	}
	for name, b := range recovery {
		out[name] = b
	}
	return out, nil
}

// publishBaselines runs ComputeBaseline per metric, dropping the ones that
// fail the sample or variance requirements.
func publishBaselines(values map[string][]float64, lookback int) map[string]models.BaselineData {
	out := make(map[string]models.BaselineData)
	for name, vs := range values {
		if b := ComputeBaseline(vs, lookbackFor(name, lookback)); b != nil {
			out[name] = *b
		}
	}
	return out
}

func appendFloat(values map[string][]float64, name string, v *float64) {
	if v != nil {
		values[name] = append(values[name], *v)
	}
}

func appendInt(values map[string][]float64, name string, v *int64) {
	if v != nil {
		values[name] = append(values[name], float64(*v))
	}
}
