package models

import "github.com/claude/vitalsync/internal/dates"

// SleepMetrics holds the derived sleep values for one user/date. Every field
// except Date is a pointer: nil means the source payload lacked the field,
// which is distinct from a present zero.
type SleepMetrics struct {
	Date dates.Date `json:"date"`

	TotalSleepSeconds *int64 `json:"total_sleep_seconds,omitempty"`
	DeepSleepSeconds  *int64 `json:"deep_sleep_seconds,omitempty"`
	LightSleepSeconds *int64 `json:"light_sleep_seconds,omitempty"`
	REMSleepSeconds   *int64 `json:"rem_sleep_seconds,omitempty"`
	AwakeSeconds      *int64 `json:"awake_seconds,omitempty"`

	SleepEfficiencyPct *float64 `json:"sleep_efficiency_pct,omitempty"`
	WASOSeconds        *int64   `json:"waso_seconds,omitempty"`

	DeepSleepPct  *float64 `json:"deep_sleep_pct,omitempty"`
	LightSleepPct *float64 `json:"light_sleep_pct,omitempty"`
	REMSleepPct   *float64 `json:"rem_sleep_pct,omitempty"`

	AvgSleepStress *float64 `json:"avg_sleep_stress,omitempty"`

	// Unix timestamps in milliseconds, as delivered by the upstream payload.
	BedtimeTimestamp  *int64 `json:"bedtime_timestamp,omitempty"`
	WaketimeTimestamp *int64 `json:"waketime_timestamp,omitempty"`
}

// RecoveryMetrics holds the derived recovery/ANS values for one user/date.
// Same optionality rule as SleepMetrics.
type RecoveryMetrics struct {
	Date dates.Date `json:"date"`

	RestingHeartRate *int64   `json:"resting_heart_rate,omitempty"`
	HRVRMSSD         *float64 `json:"hrv_rmssd,omitempty"`
	HRV7DayAvg       *float64 `json:"hrv_7day_avg,omitempty"`

	BodyBatteryMax     *int64 `json:"body_battery_max,omitempty"`
	BodyBatteryMin     *int64 `json:"body_battery_min,omitempty"`
	BodyBatteryCharged *int64 `json:"body_battery_charged,omitempty"`
	BodyBatteryDrained *int64 `json:"body_battery_drained,omitempty"`

	AvgStressLevel *float64 `json:"avg_stress_level,omitempty"`
	MaxStressLevel *float64 `json:"max_stress_level,omitempty"`
}

// IsEmpty reports whether every metric field is nil. A record that extracted
// to all nulls is treated the same as no data.
func (m *RecoveryMetrics) IsEmpty() bool {
	return m.RestingHeartRate == nil &&
		m.HRVRMSSD == nil &&
		m.HRV7DayAvg == nil &&
		m.BodyBatteryMax == nil &&
		m.BodyBatteryMin == nil &&
		m.BodyBatteryCharged == nil &&
		m.BodyBatteryDrained == nil &&
		m.AvgStressLevel == nil &&
		m.MaxStressLevel == nil
}
