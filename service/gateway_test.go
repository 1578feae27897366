package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/timzifer/aquasync/session"
)

func switchToReal(t *testing.T, engine *Engine, fc *fakeClient) {
	t.Helper()
	require.NoError(t, engine.SetMode(context.Background(), "real"))
	eventually(t, func() bool { return engine.Mode() == session.ModeReal }, "mode committed")
}

func TestAddPlantRejectsBlankNames(t *testing.T) {
	fc := newFakeClient()
	engine := startEngine(t, slowConfig(), fc)
	switchToReal(t, engine, fc)

	require.ErrorIs(t, engine.AddPlant(context.Background(), ""), ErrBlankPlantName)
	require.ErrorIs(t, engine.AddPlant(context.Background(), "   "), ErrBlankPlantName)
	require.ErrorIs(t, engine.AddPlant(context.Background(), "\t\n"), ErrBlankPlantName)
	require.Zero(t, fc.count("add_recipe"))
}

func TestAddPlantRejectedInDemoMode(t *testing.T) {
	fc := newFakeClient()
	engine := startEngine(t, slowConfig(), fc)
	eventually(t, func() bool { return engine.SelectedPlant() == "Basil" }, "bootstrap settled")

	err := engine.AddPlant(context.Background(), "Tomato")
	require.ErrorIs(t, err, ErrDemoModeMutation)
	require.ErrorIs(t, err, ErrValidation)
	require.Zero(t, fc.count("add_recipe"))
}

func TestAddPlantSubmitsStubAndSelectsNewPlant(t *testing.T) {
	fc := newFakeClient()
	engine := startEngine(t, slowConfig(), fc)
	switchToReal(t, engine, fc)

	recipesBefore := fc.count("recipes")
	require.NoError(t, engine.AddPlant(context.Background(), "  Tomato  "))

	fc.mu.Lock()
	require.Len(t, fc.stubs, 1)
	stub := fc.stubs[0]
	fc.mu.Unlock()
	require.Equal(t, "Tomato", stub.Plant, "name submitted trimmed")
	require.NotNil(t, stub.OptimalConfig)
	require.Empty(t, stub.OptimalConfig)
	require.NotNil(t, stub.Metrics)
	require.Empty(t, stub.Metrics)

	eventually(t, func() bool { return engine.SelectedPlant() == "Tomato" }, "new plant selected")
	eventually(t, func() bool { return fc.count("recipes") == recipesBefore+1 }, "recipe table refreshed")
	require.Contains(t, engine.PlantCatalog(), "Tomato")
}

func TestAddPlantBackendFailureLeavesStateUntouched(t *testing.T) {
	fc := newFakeClient()
	fc.set(func(f *fakeClient) { f.addRecipeErr = errors.New("boom") })
	engine := startEngine(t, slowConfig(), fc)
	switchToReal(t, engine, fc)
	eventually(t, func() bool { return engine.SelectedPlant() == "Basil" }, "bootstrap settled")

	require.Error(t, engine.AddPlant(context.Background(), "Tomato"))
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, "Basil", engine.SelectedPlant())
	require.NotContains(t, engine.PlantCatalog(), "Tomato")
}

func TestSetActuatorRejectedLocally(t *testing.T) {
	fc := newFakeClient()
	engine := startEngine(t, slowConfig(), fc)

	// demo mode rejection happens before any network traffic
	require.ErrorIs(t, engine.SetActuator(context.Background(), "pump", "off"), ErrDemoModeMutation)

	switchToReal(t, engine, fc)
	require.ErrorIs(t, engine.SetActuator(context.Background(), "", "off"), ErrBlankDevice)
	require.ErrorIs(t, engine.SetActuator(context.Background(), "  ", "off"), ErrBlankDevice)
	require.Zero(t, fc.count("set_actuator"))
}

func TestSetActuatorSubmitsValueVerbatim(t *testing.T) {
	fc := newFakeClient()
	engine := startEngine(t, slowConfig(), fc)
	switchToReal(t, engine, fc)

	require.NoError(t, engine.SetActuator(context.Background(), "pump", "off"))
	require.NoError(t, engine.SetActuator(context.Background(), "valve", 0.75))
	require.NoError(t, engine.SetActuator(context.Background(), "light", true))

	fc.mu.Lock()
	writes := append([]actuatorWrite(nil), fc.actuatorWrites...)
	fc.mu.Unlock()
	require.Len(t, writes, 3)
	require.Equal(t, actuatorWrite{device: "pump", value: "off"}, writes[0])
	require.Equal(t, actuatorWrite{device: "valve", value: 0.75}, writes[1])
	require.Equal(t, actuatorWrite{device: "light", value: true}, writes[2])

	// the authoritative state is refetched and the pending edits reseeded
	eventually(t, func() bool {
		state := engine.State()
		return state.Actuators["pump"] == "off" && state.ActuatorInputs["pump"] == "off"
	}, "caches reconciled from backend")
}

func TestSetActuatorBackendFailureKeepsCache(t *testing.T) {
	fc := newFakeClient()
	engine := startEngine(t, slowConfig(), fc)
	require.NoError(t, engine.SetPage("actuators"))
	eventually(t, func() bool { return engine.State().Actuators["pump"] == "on" }, "actuators fetched")
	switchToReal(t, engine, fc)

	fc.set(func(f *fakeClient) { f.setActuatorErr = errors.New("boom") })
	require.Error(t, engine.SetActuator(context.Background(), "pump", "off"))
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, "on", engine.State().Actuators["pump"], "state retained on failure")
}

func TestSetModeRejectsUnknownMode(t *testing.T) {
	fc := newFakeClient()
	engine := startEngine(t, slowConfig(), fc)

	require.ErrorIs(t, engine.SetMode(context.Background(), "hybrid"), ErrValidation)
	require.Zero(t, fc.count("set_mode"))
}

func TestSetModeBackendFailureLeavesModeUnchanged(t *testing.T) {
	fc := newFakeClient()
	fc.set(func(f *fakeClient) { f.setModeErr = errors.New("boom") })
	engine := startEngine(t, slowConfig(), fc)
	eventually(t, func() bool { return engine.SelectedPlant() == "Basil" }, "bootstrap settled")

	require.Error(t, engine.SetMode(context.Background(), "real"))
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, session.ModeDemo, engine.Mode())
}
