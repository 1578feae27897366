package remote

import "time"

// SensorReading maps a sensor key to its latest value. A nil entry means the
// backend reported the sensor but has no current value for it.
type SensorReading map[string]*float64

// Recommendation maps an AI recommendation key to its suggested value, with
// the same nullability semantics as SensorReading.
type Recommendation map[string]*float64

// RecipeEntry is one row of the recipe table: a stored optimal sensor
// configuration plus growth-comparison metrics for a plant.
type RecipeEntry struct {
	Plant               string             `json:"plant"`
	OptimalConfig       map[string]float64 `json:"optimal_config"`
	TraditionalTimeDays *float64           `json:"traditional_time_days"`
	AquaponicsTimeDays  *float64           `json:"aquaponics_time_days"`
	TraditionalSizeCM   *float64           `json:"traditional_size_cm"`
	AquaponicsSizeCM    *float64           `json:"aquaponics_size_cm"`
}

// RecipeStub is the payload submitted when an operator adds a plant manually.
type RecipeStub struct {
	Plant         string             `json:"plant"`
	OptimalConfig map[string]float64 `json:"optimal_config"`
	Metrics       map[string]float64 `json:"metrics"`
}

// ComparisonEntry is one row of the traditional-vs-aquaponics table.
type ComparisonEntry struct {
	Plant               string   `json:"plant"`
	TraditionalTimeDays *float64 `json:"traditional_time_days"`
	AquaponicsTimeDays  *float64 `json:"aquaponics_time_days"`
	TraditionalSizeCM   *float64 `json:"traditional_size_cm"`
	AquaponicsSizeCM    *float64 `json:"aquaponics_size_cm"`
}

// HistoryEntry is a timestamped set of sensor readings.
type HistoryEntry struct {
	Timestamp time.Time           `json:"timestamp"`
	Readings  map[string]*float64 `json:"readings"`
}

// ActuatorState maps a device identifier to its last known state. Values are
// opaque scalars; the backend decides per device whether they are strings or
// numbers, so no coercion happens on this side.
type ActuatorState map[string]interface{}
