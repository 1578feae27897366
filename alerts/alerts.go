// Package alerts derives out-of-range alerts from the latest sensor reading.
// Evaluation is a pure function of the reading and the configured ranges; the
// result is never cached so it always reflects the newest data.
package alerts

import (
	"fmt"

	"github.com/timzifer/aquasync/remote"
)

// Threshold is the acceptable inclusive [Min, Max] range for one sensor key.
type Threshold struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Table is an ordered set of thresholds. Keys absent from the table carry no
// implicit range and never produce alerts.
type Table []Threshold

// DefaultTable returns the built-in sensor ranges used when the configuration
// does not override them.
func DefaultTable() Table {
	return Table{
		{Key: "water_temp_c", Label: "Water temperature", Min: 18, Max: 30},
		{Key: "air_temp_c", Label: "Air temperature", Min: 15, Max: 35},
		{Key: "humidity_pct", Label: "Humidity", Min: 40, Max: 90},
		{Key: "ph", Label: "pH", Min: 6.0, Max: 8.0},
		{Key: "ec_ms_cm", Label: "Conductivity", Min: 0.8, Max: 3.0},
		{Key: "do_mg_l", Label: "Dissolved oxygen", Min: 4.0, Max: 12.0},
		{Key: "co2_ppm", Label: "CO2", Min: 300, Max: 1200},
		{Key: "ammonia_ppm", Label: "Ammonia", Min: 0, Max: 1.0},
		{Key: "nitrate_ppm", Label: "Nitrate", Min: 5, Max: 150},
		{Key: "nitrite_ppm", Label: "Nitrite", Min: 0, Max: 0.5},
		{Key: "water_level_pct", Label: "Water level", Min: 30, Max: 100},
		{Key: "light_lux", Label: "Light", Min: 2000, Max: 50000},
	}
}

// Alert describes one out-of-range observation or fired rule.
type Alert struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Message string   `json:"message"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Value   *float64 `json:"value,omitempty"`
}

// Evaluate returns an alert for every thresholded key whose value lies
// outside its inclusive range. Nil values and keys without a threshold are
// skipped. The result order follows the table order.
func Evaluate(reading remote.SensorReading, table Table) []Alert {
	if len(reading) == 0 || len(table) == 0 {
		return nil
	}
	var result []Alert
	for _, threshold := range table {
		value, ok := reading[threshold.Key]
		if !ok || value == nil {
			continue
		}
		if *value >= threshold.Min && *value <= threshold.Max {
			continue
		}
		min, max, observed := threshold.Min, threshold.Max, *value
		result = append(result, Alert{
			Key:     threshold.Key,
			Label:   threshold.Label,
			Message: fmt.Sprintf("%s out of range: %v (expected %v to %v)", threshold.Label, observed, min, max),
			Min:     &min,
			Max:     &max,
			Value:   &observed,
		})
	}
	return result
}
