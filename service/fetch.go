package service

import (
	"time"

	"github.com/timzifer/aquasync/session"
	"github.com/timzifer/aquasync/telemetry"
)

// The refresh* helpers below issue one fetch each. They must be called from
// the engine loop: the fetch itself runs on its own goroutine, and the
// completion is dispatched back to the loop. A failed fetch is logged and
// leaves the previous cache content untouched.

func (e *Engine) refreshSensors() {
	// In demo mode with a selected plant, the backend serves the
	// plant-specific optimal simulation; in every other case the mode
	// default applies.
	plant := ""
	if e.mode.Get() == session.ModeDemo {
		plant = e.plants.Selected()
	}
	go func() {
		reading, err := e.client.Sensors(e.runCtx, plant)
		e.dispatch(func() {
			if err != nil {
				e.telemetry.IncFetch(resourceSensors, telemetry.OutcomeError)
				e.logger.Warn().Err(err).Str("plant", plant).Msg("fetch sensors")
				return
			}
			e.telemetry.IncFetch(resourceSensors, telemetry.OutcomeOK)
			e.caches.SetSensors(reading, time.Now())
			e.publishAlertTransitions()
		})
	}()
}

func (e *Engine) refreshRecommendations() {
	go func() {
		rec, err := e.client.Recommendations(e.runCtx)
		e.dispatch(func() {
			if err != nil {
				e.telemetry.IncFetch(resourceAI, telemetry.OutcomeError)
				e.logger.Warn().Err(err).Msg("fetch recommendations")
				return
			}
			e.telemetry.IncFetch(resourceAI, telemetry.OutcomeOK)
			e.caches.SetRecommendations(rec)
		})
	}()
}

// refreshPlants refreshes the catalog and reconciles the selection: a
// non-empty desired name wins (used after a manual add), otherwise a
// selection that is empty or no longer present is reassigned to the first
// catalog entry, or cleared when the catalog is empty.
func (e *Engine) refreshPlants(desired string) {
	go func() {
		plants, err := e.client.Plants(e.runCtx)
		e.dispatch(func() {
			if err != nil {
				e.telemetry.IncFetch(resourcePlants, telemetry.OutcomeError)
				e.logger.Warn().Err(err).Msg("fetch plants")
				return
			}
			e.telemetry.IncFetch(resourcePlants, telemetry.OutcomeOK)
			e.plants.SetCatalog(plants)
			if desired != "" {
				e.plants.Select(desired)
				return
			}
			selected := e.plants.Selected()
			if selected != "" && e.plants.Contains(selected) {
				return
			}
			catalog := e.plants.Catalog()
			if len(catalog) > 0 {
				e.plants.Select(catalog[0])
			} else {
				e.plants.Select("")
			}
		})
	}()
}

func (e *Engine) refreshRecipes() {
	go func() {
		recipes, err := e.client.Recipes(e.runCtx)
		e.dispatch(func() {
			if err != nil {
				e.telemetry.IncFetch(resourceRecipes, telemetry.OutcomeError)
				e.logger.Warn().Err(err).Msg("fetch recipes")
				return
			}
			e.telemetry.IncFetch(resourceRecipes, telemetry.OutcomeOK)
			e.caches.SetRecipes(recipes)
		})
	}()
}

func (e *Engine) refreshComparison() {
	go func() {
		entries, err := e.client.Comparison(e.runCtx)
		e.dispatch(func() {
			if err != nil {
				e.telemetry.IncFetch(resourceComparison, telemetry.OutcomeError)
				e.logger.Warn().Err(err).Msg("fetch comparison table")
				return
			}
			e.telemetry.IncFetch(resourceComparison, telemetry.OutcomeOK)
			e.caches.SetComparison(entries)
		})
	}()
}

func (e *Engine) refreshHistory() {
	limit := e.cfg.HistoryLimit
	go func() {
		entries, err := e.client.History(e.runCtx, limit)
		e.dispatch(func() {
			if err != nil {
				e.telemetry.IncFetch(resourceHistory, telemetry.OutcomeError)
				e.logger.Warn().Err(err).Msg("fetch history")
				return
			}
			e.telemetry.IncFetch(resourceHistory, telemetry.OutcomeOK)
			e.caches.SetHistory(entries)
		})
	}()
}

func (e *Engine) refreshActuators() {
	go func() {
		state, err := e.client.Actuators(e.runCtx)
		e.dispatch(func() {
			if err != nil {
				e.telemetry.IncFetch(resourceActuators, telemetry.OutcomeError)
				e.logger.Warn().Err(err).Msg("fetch actuators")
				return
			}
			e.telemetry.IncFetch(resourceActuators, telemetry.OutcomeOK)
			e.caches.SetActuators(state)
		})
	}()
}
