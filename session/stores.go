package session

import (
	"fmt"
	"sync"
)

// Mode selects between the simulated and the live-hardware operating context.
type Mode string

const (
	ModeDemo Mode = "demo"
	ModeReal Mode = "real"
)

// ParseMode validates a mode identifier received from the backend or a user.
func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case ModeDemo, ModeReal:
		return Mode(raw), nil
	}
	return "", fmt.Errorf("unknown mode %q", raw)
}

// Page identifies which logical view is active.
type Page string

const (
	PageDashboard   Page = "dashboard"
	PageDatabase    Page = "database"
	PageTraditional Page = "traditional"
	PageHistory     Page = "history"
	PageActuators   Page = "actuators"
)

// ParsePage validates a page identifier received from the presentation layer.
func ParsePage(raw string) (Page, error) {
	switch Page(raw) {
	case PageDashboard, PageDatabase, PageTraditional, PageHistory, PageActuators:
		return Page(raw), nil
	}
	return "", fmt.Errorf("unknown page %q", raw)
}

// ModeStore holds the current operating mode and notifies subscribers
// synchronously on change. Setting the current value again is a no-op.
type ModeStore struct {
	mu        sync.RWMutex
	value     Mode
	listeners []func(old, new Mode)
}

// NewModeStore creates a store initialised to demo mode.
func NewModeStore() *ModeStore {
	return &ModeStore{value: ModeDemo}
}

// Get returns the current mode.
func (s *ModeStore) Get() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set replaces the mode and notifies subscribers when the value changed.
func (s *ModeStore) Set(mode Mode) {
	s.mu.Lock()
	old := s.value
	if old == mode {
		s.mu.Unlock()
		return
	}
	s.value = mode
	listeners := append(([]func(old, new Mode))(nil), s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(old, mode)
	}
}

// Subscribe registers a change listener. Listeners run synchronously on the
// goroutine that called Set.
func (s *ModeStore) Subscribe(fn func(old, new Mode)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// PageStore holds the active page and notifies subscribers on change.
type PageStore struct {
	mu        sync.RWMutex
	value     Page
	listeners []func(old, new Page)
}

// NewPageStore creates a store initialised to the dashboard page.
func NewPageStore() *PageStore {
	return &PageStore{value: PageDashboard}
}

// Get returns the active page.
func (s *PageStore) Get() Page {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set replaces the active page and notifies subscribers when it changed.
func (s *PageStore) Set(page Page) {
	s.mu.Lock()
	old := s.value
	if old == page {
		s.mu.Unlock()
		return
	}
	s.value = page
	listeners := append(([]func(old, new Page))(nil), s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(old, page)
	}
}

// Subscribe registers a change listener.
func (s *PageStore) Subscribe(fn func(old, new Page)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// PlantStore holds the known plant catalog and the current selection. The
// selection is a weak reference: it may name a plant not yet present in the
// catalog to support manual entry before the backend confirms it.
type PlantStore struct {
	mu        sync.RWMutex
	catalog   []string
	selected  string
	listeners []func(old, new string)
}

// NewPlantStore creates an empty plant store.
func NewPlantStore() *PlantStore {
	return &PlantStore{}
}

// Catalog returns a copy of the known plant identifiers.
func (s *PlantStore) Catalog() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.catalog...)
}

// Selected returns the currently selected plant, or "" when none is selected.
func (s *PlantStore) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Contains reports whether the catalog holds the given identifier.
func (s *PlantStore) Contains(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, plant := range s.catalog {
		if plant == name {
			return true
		}
	}
	return false
}

// SetCatalog replaces the catalog, dropping duplicate identifiers while
// preserving order. The selection is left untouched; reconciling it against
// the refreshed catalog is the orchestrator's job.
func (s *PlantStore) SetCatalog(plants []string) {
	deduped := make([]string, 0, len(plants))
	seen := make(map[string]struct{}, len(plants))
	for _, plant := range plants {
		if _, ok := seen[plant]; ok {
			continue
		}
		seen[plant] = struct{}{}
		deduped = append(deduped, plant)
	}
	s.mu.Lock()
	s.catalog = deduped
	s.mu.Unlock()
}

// Select replaces the selection and notifies subscribers when it changed.
// Any string is accepted, including names absent from the catalog.
func (s *PlantStore) Select(name string) {
	s.mu.Lock()
	old := s.selected
	if old == name {
		s.mu.Unlock()
		return
	}
	s.selected = name
	listeners := append(([]func(old, new string))(nil), s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(old, name)
	}
}

// Subscribe registers a selection change listener.
func (s *PlantStore) Subscribe(fn func(old, new string)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}
