package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/timzifer/aquasync/session"
	"github.com/timzifer/aquasync/telemetry"
)

// Resource names used for poller handles, metrics and fetch accounting.
const (
	resourceMode       = "mode"
	resourcePlants     = "plants"
	resourceSensors    = "sensors"
	resourceAI         = "ai"
	resourceRecipes    = "recipes"
	resourceComparison = "comparison"
	resourceHistory    = "history"
	resourceActuators  = "actuators"

	pollerDashboard = "dashboard"
	pollerHistory   = "history"
)

// PollerStatus describes one running recurring fetch.
type PollerStatus struct {
	Resource  string        `json:"resource"`
	Interval  time.Duration `json:"interval"`
	StartedAt time.Time     `json:"started_at"`
}

type poller struct {
	resource  string
	interval  time.Duration
	startedAt time.Time
	cancel    context.CancelFunc
}

// pollerSet enforces the single-owner invariant: starting a poller for a
// resource first cancels any previous poller registered under the same name.
// Mutation happens only on the engine loop; the mutex covers status reads
// from live view handlers.
type pollerSet struct {
	mu      sync.Mutex
	running map[string]*poller
}

func newPollerSet() *pollerSet {
	return &pollerSet{running: make(map[string]*poller)}
}

func (s *pollerSet) statuses() []PollerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	statuses := make([]PollerStatus, 0, len(s.running))
	for _, p := range s.running {
		statuses = append(statuses, PollerStatus{Resource: p.resource, Interval: p.interval, StartedAt: p.startedAt})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Resource < statuses[j].Resource })
	return statuses
}

func (s *pollerSet) active(resource string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[resource]
	return ok
}

func (s *pollerSet) put(p *poller) (previous *poller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous = s.running[p.resource]
	s.running[p.resource] = p
	return previous
}

func (s *pollerSet) remove(resource string) *poller {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.running[resource]
	delete(s.running, resource)
	return p
}

func (s *pollerSet) stopAll(collector telemetry.Collector) {
	s.mu.Lock()
	running := s.running
	s.running = make(map[string]*poller)
	s.mu.Unlock()
	for _, p := range running {
		p.cancel()
		collector.SetPollerActive(p.resource, false)
	}
}

// startPoller schedules tick on a fixed cadence under the given resource
// name. Ticks are dispatched to the engine loop, so whatever parameters they
// read reflect the state at tick time. Must be called from the loop.
func (e *Engine) startPoller(resource string, interval time.Duration, immediate bool, tick func()) {
	ctx, cancel := context.WithCancel(e.runCtx)
	p := &poller{resource: resource, interval: interval, startedAt: time.Now(), cancel: cancel}
	if previous := e.pollers.put(p); previous != nil {
		previous.cancel()
	}
	e.telemetry.SetPollerActive(resource, true)
	if immediate {
		tick()
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.dispatch(tick)
			}
		}
	}()
}

func (e *Engine) stopPoller(resource string) {
	if p := e.pollers.remove(resource); p != nil {
		p.cancel()
		e.telemetry.SetPollerActive(resource, false)
	}
}

// reconcilePollers aligns the running pollers with the current (mode, page)
// tuple: the dashboard poller runs while the dashboard page is active, the
// history poller only while the history page is active in real mode.
func (e *Engine) reconcilePollers() {
	if e.page.Get() == session.PageDashboard {
		if !e.pollers.active(pollerDashboard) {
			e.startDashboardPoller()
		}
	} else {
		e.stopPoller(pollerDashboard)
	}

	if e.page.Get() == session.PageHistory && e.mode.Get() == session.ModeReal {
		if !e.pollers.active(pollerHistory) {
			e.startHistoryPoller()
		}
	} else {
		e.stopPoller(pollerHistory)
	}
}

// restartPollers tears down all recurring fetches and rebuilds the set for
// the new mode. Used on mode transitions so pollers pick up new parameters
// immediately instead of on their next tick.
func (e *Engine) restartPollers() {
	e.stopPoller(pollerDashboard)
	e.stopPoller(pollerHistory)
	e.reconcilePollers()
}

// restartDashboardPoller resets the dashboard cadence after a plant
// selection change. A history poller is unaffected by plant selection.
func (e *Engine) restartDashboardPoller() {
	if !e.pollers.active(pollerDashboard) {
		return
	}
	e.stopPoller(pollerDashboard)
	e.startDashboardPoller()
}

func (e *Engine) startDashboardPoller() {
	e.startPoller(pollerDashboard, e.cfg.Intervals.Dashboard.Duration, false, func() {
		e.refreshSensors()
		e.refreshRecommendations()
	})
}

func (e *Engine) startHistoryPoller() {
	e.startPoller(pollerHistory, e.cfg.Intervals.History.Duration, true, func() {
		if e.mode.Get() != session.ModeReal {
			return
		}
		e.refreshHistory()
	})
}
