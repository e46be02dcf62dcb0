// Package metrics derives typed sleep and recovery values from stored raw
// payloads and maintains personal baselines over them. Everything here is a
// pure function of the raw store; nothing derived is persisted.
package metrics

import (
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/claude/vitalsync/internal/models"
	"github.com/claude/vitalsync/internal/storage"
)

// fieldSpec names one place a metric value may live: a category's payload
// and a path within it.
type fieldSpec struct {
	category models.Category
	path     string
}

// Extraction paths into the upstream payloads. Where a metric has several
// sources the chain order is the fallback order and the first non-null
// numeric wins.
var (
	sleepDeepSeconds  = []fieldSpec{{models.CategorySleep, "dailySleepDTO.deepSleepSeconds"}}
	sleepLightSeconds = []fieldSpec{{models.CategorySleep, "dailySleepDTO.lightSleepSeconds"}}
	sleepREMSeconds   = []fieldSpec{{models.CategorySleep, "dailySleepDTO.remSleepSeconds"}}
	sleepAwakeSeconds = []fieldSpec{{models.CategorySleep, "dailySleepDTO.awakeSleepSeconds"}}
	sleepStartTS      = []fieldSpec{{models.CategorySleep, "dailySleepDTO.sleepStartTimestampGMT"}}
	sleepEndTS        = []fieldSpec{{models.CategorySleep, "dailySleepDTO.sleepEndTimestampGMT"}}
	sleepAvgStress    = []fieldSpec{{models.CategorySleep, "avgSleepStress"}}

	// Sleep-derived RHR is considered more reliable than the dedicated
	// endpoint; the order here is load-bearing.
	restingHeartRate = []fieldSpec{
		{models.CategorySleep, "dailySleepDTO.restingHeartRateInBeatsPerMinute"},
		{models.CategoryRestingHeartRate, "restingHeartRate"},
	}

	hrvNightlyAvg = []fieldSpec{{models.CategoryHRV, "hrvSummary.lastNightAvg"}}

	stressAvgLevel = []fieldSpec{{models.CategoryStress, "avgStressLevel"}}
	stressMaxLevel = []fieldSpec{{models.CategoryStress, "maxStressLevel"}}

	bodyBatteryCharged = []fieldSpec{{models.CategoryBodyBattery, "bodyBatteryValueDescriptors.charged"}}
	bodyBatteryDrained = []fieldSpec{{models.CategoryBodyBattery, "bodyBatteryValueDescriptors.drained"}}
	// The daily battery peak arrives on the stress payload, the overnight
	// floor as the first [timestamp, level, ...] triple of the values array.
	bodyBatteryMax = []fieldSpec{{models.CategoryStress, "bodyBatteryChange"}}
	bodyBatteryMin = []fieldSpec{{models.CategoryBodyBattery, "bodyBatteryValuesArray.0.2"}}
)

// extractNumber walks a fallback chain and returns the first numeric value
// found. A missing category, missing path, or non-numeric field degrades to
// absent rather than failing.
func extractNumber(day storage.DayData, chain []fieldSpec) (float64, bool) {
	for _, spec := range chain {
		payload, ok := day[spec.category]
		if !ok {
			continue
		}
		res := gjson.GetBytes(payload, spec.path)
		if v, ok := coerceNumber(res); ok {
			return v, true
		}
	}
	return 0, false
}

// coerceNumber accepts JSON numbers and numeric strings; anything else is
// absent.
func coerceNumber(res gjson.Result) (float64, bool) {
	switch res.Type {
	case gjson.Number:
		return res.Num, true
	case gjson.String:
		v, err := strconv.ParseFloat(res.Str, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	default:
		return 0, false
	}
}

func extractInt(day storage.DayData, chain []fieldSpec) *int64 {
	v, ok := extractNumber(day, chain)
	if !ok {
		return nil
	}
	n := int64(v)
	return &n
}

func extractFloat(day storage.DayData, chain []fieldSpec) *float64 {
	v, ok := extractNumber(day, chain)
	if !ok {
		return nil
	}
	return &v
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int64) *int64       { return &v }
