package session

import (
	"sync"
	"time"

	"github.com/timzifer/aquasync/remote"
)

// Caches holds the per-resource response caches. Every cache is replaced
// wholesale on a successful fetch and keeps its previous content on failure;
// there is no partial merge. Only the orchestrator and the mutation gateway
// write here.
type Caches struct {
	mu              sync.RWMutex
	sensors         remote.SensorReading
	sensorsAt       time.Time
	recommendations remote.Recommendation
	recipes         []remote.RecipeEntry
	comparison      []remote.ComparisonEntry
	history         []remote.HistoryEntry
	actuators       remote.ActuatorState
	actuatorInputs  remote.ActuatorState
}

// NewCaches returns an empty cache set.
func NewCaches() *Caches {
	return &Caches{}
}

// SetSensors replaces the sensor cache.
func (c *Caches) SetSensors(reading remote.SensorReading, ts time.Time) {
	c.mu.Lock()
	c.sensors = reading
	c.sensorsAt = ts
	c.mu.Unlock()
}

// Sensors returns the latest sensor reading and its fetch timestamp.
func (c *Caches) Sensors() (remote.SensorReading, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneReading(c.sensors), c.sensorsAt
}

// SetRecommendations replaces the AI recommendation cache.
func (c *Caches) SetRecommendations(rec remote.Recommendation) {
	c.mu.Lock()
	c.recommendations = rec
	c.mu.Unlock()
}

// Recommendations returns the latest AI recommendations.
func (c *Caches) Recommendations() remote.Recommendation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return remote.Recommendation(cloneReading(remote.SensorReading(c.recommendations)))
}

// SetRecipes replaces the recipe table.
func (c *Caches) SetRecipes(recipes []remote.RecipeEntry) {
	c.mu.Lock()
	c.recipes = recipes
	c.mu.Unlock()
}

// Recipes returns the cached recipe table.
func (c *Caches) Recipes() []remote.RecipeEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]remote.RecipeEntry(nil), c.recipes...)
}

// SetComparison replaces the traditional-vs-aquaponics table.
func (c *Caches) SetComparison(entries []remote.ComparisonEntry) {
	c.mu.Lock()
	c.comparison = entries
	c.mu.Unlock()
}

// Comparison returns the cached comparison table.
func (c *Caches) Comparison() []remote.ComparisonEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]remote.ComparisonEntry(nil), c.comparison...)
}

// SetHistory replaces the history window.
func (c *Caches) SetHistory(entries []remote.HistoryEntry) {
	c.mu.Lock()
	c.history = entries
	c.mu.Unlock()
}

// History returns the cached history window.
func (c *Caches) History() []remote.HistoryEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]remote.HistoryEntry(nil), c.history...)
}

// SetActuators replaces the actuator state cache and re-seeds the pending
// input values from it. Edits made before the refresh are discarded, matching
// the page-entry and post-write reseed semantics.
func (c *Caches) SetActuators(state remote.ActuatorState) {
	inputs := make(remote.ActuatorState, len(state))
	for device, value := range state {
		inputs[device] = value
	}
	c.mu.Lock()
	c.actuators = state
	c.actuatorInputs = inputs
	c.mu.Unlock()
}

// Actuators returns the last known actuator states.
func (c *Caches) Actuators() remote.ActuatorState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneState(c.actuators)
}

// ActuatorInputs returns the user-edited, not-yet-submitted actuator values.
func (c *Caches) ActuatorInputs() remote.ActuatorState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneState(c.actuatorInputs)
}

// SetActuatorInput records a pending edit for a single device without
// touching the authoritative state cache.
func (c *Caches) SetActuatorInput(device string, value interface{}) {
	c.mu.Lock()
	if c.actuatorInputs == nil {
		c.actuatorInputs = make(remote.ActuatorState)
	}
	c.actuatorInputs[device] = value
	c.mu.Unlock()
}

func cloneReading(reading remote.SensorReading) remote.SensorReading {
	if reading == nil {
		return nil
	}
	clone := make(remote.SensorReading, len(reading))
	for key, value := range reading {
		clone[key] = value
	}
	return clone
}

func cloneState(state remote.ActuatorState) remote.ActuatorState {
	if state == nil {
		return nil
	}
	clone := make(remote.ActuatorState, len(state))
	for device, value := range state {
		clone[device] = value
	}
	return clone
}
