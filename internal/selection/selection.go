// Package selection holds the single source of truth for what the studio
// has selected: one agent, one version of that agent, and one system.
// Every write funnels through this store so no two components can
// disagree about the current selection.
package selection

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Field identifies which identity changed in a notification.
type Field string

const (
	FieldAgent   Field = "agent"
	FieldVersion Field = "version"
	FieldSystem  Field = "system"
)

// Change describes one selection transition.
type Change struct {
	Field    Field
	Previous string
	Current  string
}

// Navigator reflects the agent selection into the externally visible
// navigation location. The browser implementation rewrites the URL bar;
// tests use a recording fake.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(path string)

// Navigate calls f.
func (f NavigatorFunc) Navigate(path string) { f(path) }

// Store holds the selected agent, version, and system identities.
// An empty string means nothing is selected for that slot.
type Store struct {
	mu        sync.RWMutex
	agentID   string
	versionID string
	systemID  string

	nav         Navigator
	subscribers []func(Change)
}

// New creates a selection store. nav may be nil when no surface needs
// location updates (tests, embedded use).
func New(nav Navigator) *Store {
	return &Store{nav: nav}
}

// Subscribe registers a callback invoked after every selection change.
// Callbacks run outside the store lock, on the mutating goroutine.
func (s *Store) Subscribe(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// ── Agent ────────────────────────────────────────────────────

// SelectAgent sets the selected agent and updates the navigation location
// to /agents/{id}/ (or /agents/new/ for an empty id). Version and system
// selection are left untouched; their owners refresh independently.
func (s *Store) SelectAgent(id string) {
	s.mu.Lock()
	prev := s.agentID
	s.agentID = id
	nav := s.nav
	s.mu.Unlock()

	if nav != nil {
		if id == "" {
			nav.Navigate("/agents/new/")
		} else {
			nav.Navigate("/agents/" + id + "/")
		}
	}

	if prev != id {
		log.Debug().Str("agent", id).Msg("agent selected")
	}
	s.notify(Change{Field: FieldAgent, Previous: prev, Current: id})
}

// AgentID returns the selected agent id, or "" when none is selected.
func (s *Store) AgentID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agentID
}

// ── Version ──────────────────────────────────────────────────

// SelectVersion sets the selected version for the current agent.
func (s *Store) SelectVersion(id string) {
	s.mu.Lock()
	prev := s.versionID
	s.versionID = id
	s.mu.Unlock()

	s.notify(Change{Field: FieldVersion, Previous: prev, Current: id})
}

// VersionID returns the selected version id, or "".
func (s *Store) VersionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versionID
}

// ── System ───────────────────────────────────────────────────

// SelectSystem sets the selected system.
func (s *Store) SelectSystem(id string) {
	s.mu.Lock()
	prev := s.systemID
	s.systemID = id
	s.mu.Unlock()

	s.notify(Change{Field: FieldSystem, Previous: prev, Current: id})
}

// SystemID returns the selected system id, or "".
func (s *Store) SystemID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.systemID
}

// ── Internal ─────────────────────────────────────────────────

func (s *Store) notify(change Change) {
	s.mu.RLock()
	subs := make([]func(Change), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(change)
	}
}
