package models

import "github.com/claude/vitalsync/internal/dates"

// BaselineStatus classifies a metric value relative to its personal baseline.
type BaselineStatus string

const (
	StatusNormal          BaselineStatus = "normal"
	StatusOptimal         BaselineStatus = "optimal"
	StatusSlightDeviation BaselineStatus = "slight_deviation"
	StatusConcerning      BaselineStatus = "concerning"
	StatusNoBaseline      BaselineStatus = "no_baseline"
)

// BaselineData is a user's historical mean and standard deviation for one
// metric. Published baselines always have StdDev > 0 and at least the
// minimum sample count behind them.
type BaselineData struct {
	Mean         float64 `json:"mean"`
	StdDev       float64 `json:"std_dev"`
	LookbackDays int     `json:"lookback_days"`
}

// MetricWithBaseline is a metric value with its baseline context and
// derived classification. Baseline fields are nil when no baseline exists.
type MetricWithBaseline struct {
	Value          float64        `json:"value"`
	BaselineMean   *float64       `json:"baseline_mean,omitempty"`
	BaselineStdDev *float64       `json:"baseline_std_dev,omitempty"`
	ZScore         *float64       `json:"z_score,omitempty"`
	Status         BaselineStatus `json:"status"`
}

// SleepMetricsWithBaselines is the baseline-annotated view of one night's
// sleep. TotalSleepTime and SleepEfficiency are always present; the rest are
// nil when the underlying metric was absent.
type SleepMetricsWithBaselines struct {
	Date            dates.Date          `json:"date"`
	TotalSleepTime  MetricWithBaseline  `json:"total_sleep_time"`
	SleepEfficiency MetricWithBaseline  `json:"sleep_efficiency"`
	WASO            *MetricWithBaseline `json:"waso,omitempty"`
	DeepSleepPct    *MetricWithBaseline `json:"deep_sleep_pct,omitempty"`
	REMSleepPct     *MetricWithBaseline `json:"rem_sleep_pct,omitempty"`
	AvgSleepStress  *MetricWithBaseline `json:"avg_sleep_stress,omitempty"`
}

// RecoveryMetricsWithBaselines is the baseline-annotated view of one day's
// recovery state.
type RecoveryMetricsWithBaselines struct {
	Date               dates.Date          `json:"date"`
	RestingHeartRate   MetricWithBaseline  `json:"resting_heart_rate"`
	HRVRMSSD           *MetricWithBaseline `json:"hrv_rmssd,omitempty"`
	BodyBatteryMax     *MetricWithBaseline `json:"body_battery_max,omitempty"`
	BodyBatteryCharged *MetricWithBaseline `json:"body_battery_charged,omitempty"`
	AvgStressLevel     *MetricWithBaseline `json:"avg_stress_level,omitempty"`
}
