package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/timzifer/aquasync/remote"
	"github.com/timzifer/aquasync/session"
	"github.com/timzifer/aquasync/telemetry"
)

// ErrValidation marks local precondition failures. They short-circuit before
// any network call and never mutate a cache.
var ErrValidation = errors.New("validation rejected")

var (
	// ErrBlankPlantName rejects empty or whitespace-only plant names.
	ErrBlankPlantName = fmt.Errorf("%w: plant name must not be blank", ErrValidation)
	// ErrDemoModeMutation rejects writes that require real mode.
	ErrDemoModeMutation = fmt.Errorf("%w: operation requires real mode", ErrValidation)
	// ErrBlankDevice rejects actuator writes without a device identifier.
	ErrBlankDevice = fmt.Errorf("%w: device must not be blank", ErrValidation)
)

// Mutation kinds reported to telemetry.
const (
	mutationSetMode     = "set_mode"
	mutationAddPlant    = "add_plant"
	mutationSetActuator = "set_actuator"
)

// SetMode submits a mode switch to the backend and commits it locally on
// success. On failure the mode is left unchanged; there is no retry.
func (e *Engine) SetMode(ctx context.Context, raw string) error {
	mode, err := session.ParseMode(raw)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err)
	}
	if err := e.client.SetMode(ctx, string(mode)); err != nil {
		e.telemetry.IncMutation(mutationSetMode, telemetry.OutcomeError)
		e.logger.Error().Err(err).Str("mode", raw).Msg("set mode")
		return err
	}
	e.telemetry.IncMutation(mutationSetMode, telemetry.OutcomeOK)
	e.dispatch(func() { e.mode.Set(mode) })
	return nil
}

// AddPlant registers a new plant by submitting a recipe stub, then refreshes
// the recipe table and the plant catalog and selects the new plant. Manual
// plant entry is a real-mode operation; blank names are rejected locally.
func (e *Engine) AddPlant(ctx context.Context, name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ErrBlankPlantName
	}
	if e.mode.Get() == session.ModeDemo {
		return ErrDemoModeMutation
	}
	stub := remote.RecipeStub{
		Plant:         trimmed,
		OptimalConfig: map[string]float64{},
		Metrics:       map[string]float64{},
	}
	if err := e.client.AddRecipe(ctx, stub); err != nil {
		e.telemetry.IncMutation(mutationAddPlant, telemetry.OutcomeError)
		e.logger.Error().Err(err).Str("plant", trimmed).Msg("add plant")
		return err
	}
	e.telemetry.IncMutation(mutationAddPlant, telemetry.OutcomeOK)
	e.dispatch(func() {
		e.refreshRecipes()
		e.refreshPlants(trimmed)
	})
	return nil
}

// SetActuator submits the edited value for a device verbatim, without type
// coercion, and reconciles the actuator caches from the authoritative state
// on success. Actuator writes are a real-mode operation.
func (e *Engine) SetActuator(ctx context.Context, device string, value interface{}) error {
	if strings.TrimSpace(device) == "" {
		return ErrBlankDevice
	}
	if e.mode.Get() == session.ModeDemo {
		return ErrDemoModeMutation
	}
	if err := e.client.SetActuator(ctx, device, value); err != nil {
		e.telemetry.IncMutation(mutationSetActuator, telemetry.OutcomeError)
		e.logger.Error().Err(err).Str("device", device).Msg("set actuator")
		return err
	}
	e.telemetry.IncMutation(mutationSetActuator, telemetry.OutcomeOK)
	e.dispatch(func() { e.refreshActuators() })
	return nil
}
