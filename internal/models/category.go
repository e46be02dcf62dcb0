package models

// Category is a named bucket of health data stored and fetched independently
// per day.
type Category string

const (
	CategorySleep            Category = "sleep"
	CategorySteps            Category = "steps"
	CategoryHRV              Category = "hrv"
	CategoryStress           Category = "stress"
	CategoryBodyBattery      Category = "body_battery"
	CategoryHeartRate        Category = "heart_rate"
	CategoryRestingHeartRate Category = "resting_heart_rate"
	CategoryActivities       Category = "activities"
	CategorySpO2             Category = "spo2"
	CategoryRespiration      Category = "respiration"
	CategoryFloors           Category = "floors"
	CategoryHydration        Category = "hydration"

	// CategoryRaw is the catch-all bucket for day payloads whose shape
	// matched none of the known top-level keys.
	CategoryRaw Category = "raw"
)

// AllCategories lists every known category except the raw catch-all.
var AllCategories = []Category{
	CategorySleep,
	CategorySteps,
	CategoryHRV,
	CategoryStress,
	CategoryBodyBattery,
	CategoryHeartRate,
	CategoryRestingHeartRate,
	CategoryActivities,
	CategorySpO2,
	CategoryRespiration,
	CategoryFloors,
	CategoryHydration,
}

// RecoveryCategories are the categories the recovery calculator reads.
var RecoveryCategories = []Category{
	CategorySleep,
	CategoryHRV,
	CategoryStress,
	CategoryBodyBattery,
}
