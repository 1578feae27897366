// Package service implements the client-side synchronization engine: it
// reacts to mode, page and plant selection changes, schedules one-shot and
// recurring fetches against the backend, and reconciles local caches after
// mutations.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/timzifer/aquasync/alerts"
	"github.com/timzifer/aquasync/config"
	"github.com/timzifer/aquasync/notify"
	"github.com/timzifer/aquasync/remote"
	"github.com/timzifer/aquasync/session"
	"github.com/timzifer/aquasync/telemetry"
)

// Engine owns the session-scoped stores and caches and drives all remote
// traffic. Fetches run concurrently, but every completion is applied by the
// single Run loop, so cache updates never interleave.
type Engine struct {
	cfg    *config.Config
	logger zerolog.Logger
	client remote.Client

	mode   *session.ModeStore
	page   *session.PageStore
	plants *session.PlantStore
	caches *session.Caches

	table alerts.Table
	rules []alerts.Rule

	telemetry telemetry.Collector
	notifier  notify.Notifier

	sessionID string

	apply   chan func()
	stopped chan struct{}
	runCtx  context.Context

	pollers *pollerSet

	raised map[string]struct{}

	liveView *liveViewServer
}

// New builds an engine from configuration and a backend client.
func New(cfg *config.Config, logger zerolog.Logger, client remote.Client) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("config must not be nil")
	}
	if client == nil {
		return nil, errors.New("client must not be nil")
	}
	table := thresholdTable(cfg.Thresholds)
	rules, err := compileRules(cfg.Rules)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:       cfg,
		logger:    logger.With().Str("component", "engine").Logger(),
		client:    client,
		mode:      session.NewModeStore(),
		page:      session.NewPageStore(),
		plants:    session.NewPlantStore(),
		caches:    session.NewCaches(),
		table:     table,
		rules:     rules,
		telemetry: telemetry.Noop(),
		notifier:  notify.Noop(),
		sessionID: uuid.NewString(),
		apply:     make(chan func(), 128),
		stopped:   make(chan struct{}),
		pollers:   newPollerSet(),
		raised:    make(map[string]struct{}),
	}
	e.mode.Subscribe(e.onModeChanged)
	e.plants.Subscribe(e.onPlantChanged)
	e.page.Subscribe(e.onPageChanged)
	return e, nil
}

// Validate performs a dry-run validation of the configuration without
// creating an engine or touching the network.
func Validate(cfg *config.Config) error {
	if cfg == nil {
		return errors.New("config must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := compileRules(cfg.Rules); err != nil {
		return err
	}
	return nil
}

func thresholdTable(cfgs []config.ThresholdConfig) alerts.Table {
	if len(cfgs) == 0 {
		return alerts.DefaultTable()
	}
	table := make(alerts.Table, 0, len(cfgs))
	for _, threshold := range cfgs {
		label := threshold.Label
		if label == "" {
			label = threshold.Key
		}
		table = append(table, alerts.Threshold{
			Key:   threshold.Key,
			Label: label,
			Min:   threshold.Min,
			Max:   threshold.Max,
		})
	}
	return table
}

func compileRules(cfgs []config.RuleConfig) ([]alerts.Rule, error) {
	rules := make([]alerts.Rule, 0, len(cfgs))
	for _, ruleCfg := range cfgs {
		rule, err := alerts.NewRule(ruleCfg.ID, ruleCfg.Expr, ruleCfg.Message)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// SetTelemetry configures the collector used for metric emission.
func (e *Engine) SetTelemetry(collector telemetry.Collector) {
	if e == nil {
		return
	}
	if collector == nil {
		collector = telemetry.Noop()
	}
	e.telemetry = collector
}

// SetNotifier configures the alert transition notifier.
func (e *Engine) SetNotifier(notifier notify.Notifier) {
	if e == nil {
		return
	}
	if notifier == nil {
		notifier = notify.Noop()
	}
	e.notifier = notifier
}

// SessionID returns the identifier stamped on logs and the live view.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// Run executes the engine loop until the context is cancelled. All store
// changes and fetch completions are applied here, one at a time.
func (e *Engine) Run(ctx context.Context) error {
	e.runCtx = ctx
	defer close(e.stopped)
	e.logger.Info().Str("session", e.sessionID).Msg("session started")

	e.bootstrap()
	e.reconcilePollers()

	for {
		select {
		case <-ctx.Done():
			e.pollers.stopAll(e.telemetry)
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case fn := <-e.apply:
			fn()
		}
	}
}

// dispatch hands a closure to the Run loop. Closures queued before Run starts
// execute once the loop is up; after shutdown they are dropped.
func (e *Engine) dispatch(fn func()) {
	select {
	case e.apply <- fn:
	case <-e.stopped:
	}
}

// bootstrap implements the session start sequence: fetch the mode once, then
// the plant catalog once. When the fetched mode differs from the default the
// mode change effects cover the remaining initial fetches.
func (e *Engine) bootstrap() {
	go func() {
		raw, err := e.client.Mode(e.runCtx)
		e.dispatch(func() {
			if err != nil {
				e.telemetry.IncFetch(resourceMode, telemetry.OutcomeError)
				e.logger.Warn().Err(err).Msg("fetch mode")
				e.initialFetches()
				return
			}
			e.telemetry.IncFetch(resourceMode, telemetry.OutcomeOK)
			mode, parseErr := session.ParseMode(raw)
			if parseErr != nil {
				e.logger.Warn().Err(parseErr).Msg("backend reported unusable mode")
				e.initialFetches()
				return
			}
			if mode == e.mode.Get() {
				e.initialFetches()
				return
			}
			e.mode.Set(mode)
		})
	}()
}

// initialFetches issues the session start fetches when no mode transition
// happened to trigger them.
func (e *Engine) initialFetches() {
	e.refreshPlants("")
	e.refreshSensors()
	e.refreshRecommendations()
	e.refreshRecipes()
	e.refreshComparison()
}

func (e *Engine) onModeChanged(old, new session.Mode) {
	e.logger.Info().Str("from", string(old)).Str("to", string(new)).Msg("mode changed")
	e.refreshSensors()
	e.refreshRecommendations()
	e.refreshRecipes()
	e.refreshComparison()
	e.refreshPlants("")
	e.restartPollers()
}

func (e *Engine) onPlantChanged(old, new string) {
	e.logger.Debug().Str("from", old).Str("to", new).Msg("plant selection changed")
	e.refreshSensors()
	e.refreshRecommendations()
	e.restartDashboardPoller()
}

func (e *Engine) onPageChanged(old, new session.Page) {
	e.logger.Debug().Str("from", string(old)).Str("to", string(new)).Msg("page changed")
	e.reconcilePollers()
	if new == session.PageActuators {
		e.refreshActuators()
	}
}

// Alerts derives the current alert list from the latest sensor reading. The
// result is recomputed on every call and never cached.
func (e *Engine) Alerts() []alerts.Alert {
	reading, _ := e.caches.Sensors()
	result := alerts.Evaluate(reading, e.table)
	for _, rule := range e.rules {
		fired, err := rule.Evaluate(reading)
		if err != nil {
			e.logger.Debug().Err(err).Str("rule", rule.ID()).Msg("alert rule inert")
			continue
		}
		if fired {
			result = append(result, rule.Alert())
		}
	}
	return result
}

// publishAlertTransitions diffs the freshly derived alert set against the
// previously published one and forwards raised/cleared events. Runs on the
// loop after every sensor cache replacement.
func (e *Engine) publishAlertTransitions() {
	current := e.Alerts()
	e.telemetry.SetActiveAlerts(len(current))

	seen := make(map[string]struct{}, len(current))
	for _, alert := range current {
		seen[alert.Key] = struct{}{}
		if _, ok := e.raised[alert.Key]; !ok {
			e.notifier.AlertRaised(alert)
		}
	}
	for key := range e.raised {
		if _, ok := seen[key]; !ok {
			e.notifier.AlertCleared(key)
		}
	}
	e.raised = seen
}

// EnableLiveView starts the JSON surface consumed by the presentation layer.
func (e *Engine) EnableLiveView(listen string) error {
	if e == nil {
		return errors.New("engine is nil")
	}
	if e.liveView != nil {
		return errors.New("live view already enabled")
	}
	if listen == "" {
		listen = e.cfg.LiveView.Listen
	}
	logger := e.logger.With().Str("component", "live_view").Logger()
	server, err := newLiveViewServer(listen, e, e.cfg.LiveView.AllowedOrigins, logger)
	if err != nil {
		return err
	}
	e.liveView = server
	return nil
}

// LiveViewAddress returns the listen address of the live view server, if
// enabled.
func (e *Engine) LiveViewAddress() string {
	if e == nil || e.liveView == nil {
		return ""
	}
	return e.liveView.address()
}

// Close releases background resources held by the engine.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}
	if e.liveView != nil {
		e.liveView.close()
	}
	e.notifier.Close()
	return nil
}

// EngineState is the full session snapshot rendered on the live view.
type EngineState struct {
	SessionID        string                   `json:"session_id"`
	Mode             session.Mode             `json:"mode"`
	Page             session.Page             `json:"page"`
	Plants           []string                 `json:"plants"`
	SelectedPlant    string                   `json:"selected_plant"`
	Sensors          remote.SensorReading     `json:"sensors"`
	SensorsUpdatedAt *time.Time               `json:"sensors_updated_at,omitempty"`
	Recommendations  remote.Recommendation    `json:"recommendations"`
	Recipes          []remote.RecipeEntry     `json:"recipes"`
	Comparison       []remote.ComparisonEntry `json:"comparison"`
	History          []remote.HistoryEntry    `json:"history"`
	HistorySummary   []alerts.Summary         `json:"history_summary"`
	Actuators        remote.ActuatorState     `json:"actuators"`
	ActuatorInputs   remote.ActuatorState     `json:"actuator_inputs"`
	Alerts           []alerts.Alert           `json:"alerts"`
	Pollers          []PollerStatus           `json:"pollers"`
}

// State assembles a consistent read snapshot for external consumers.
func (e *Engine) State() EngineState {
	sensors, sensorsAt := e.caches.Sensors()
	state := EngineState{
		SessionID:       e.sessionID,
		Mode:            e.mode.Get(),
		Page:            e.page.Get(),
		Plants:          e.plants.Catalog(),
		SelectedPlant:   e.plants.Selected(),
		Sensors:         sensors,
		Recommendations: e.caches.Recommendations(),
		Recipes:         e.caches.Recipes(),
		Comparison:      e.caches.Comparison(),
		History:         e.caches.History(),
		Actuators:       e.caches.Actuators(),
		ActuatorInputs:  e.caches.ActuatorInputs(),
		Alerts:          e.Alerts(),
		Pollers:         e.pollers.statuses(),
	}
	if !sensorsAt.IsZero() {
		state.SensorsUpdatedAt = &sensorsAt
	}
	state.HistorySummary = alerts.SummarizeHistory(state.History)
	return state
}

// Mode returns the current operating mode.
func (e *Engine) Mode() session.Mode { return e.mode.Get() }

// Page returns the active page.
func (e *Engine) Page() session.Page { return e.page.Get() }

// SelectedPlant returns the current plant selection.
func (e *Engine) SelectedPlant() string { return e.plants.Selected() }

// PlantCatalog returns the known plant identifiers.
func (e *Engine) PlantCatalog() []string { return e.plants.Catalog() }

// SetPage navigates to another page. Unknown pages are rejected.
func (e *Engine) SetPage(raw string) error {
	page, err := session.ParsePage(raw)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err)
	}
	e.dispatch(func() { e.page.Set(page) })
	return nil
}

// SelectPlant changes the selection. Any non-empty string is accepted,
// including names not yet present in the catalog.
func (e *Engine) SelectPlant(name string) {
	e.dispatch(func() { e.plants.Select(name) })
}

// SetActuatorInput records a pending, not-yet-submitted actuator edit.
func (e *Engine) SetActuatorInput(device string, value interface{}) {
	e.dispatch(func() { e.caches.SetActuatorInput(device, value) })
}
