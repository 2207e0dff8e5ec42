// Package graph maintains the expand/collapse state of the agent-system
// graph surface. Exactly one system may be expanded at a time; expanding
// another collapses the first. Member lists are cached per system and
// refetched after every membership mutation, so displayed data is never
// stale relative to the last known mutation.
package graph

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/agentstudio/agentstudio/console/internal/repos"
	"github.com/agentstudio/agentstudio/console/pkg/models"
)

// Manager owns the expanded-system toggle and the member caches.
type Manager struct {
	systems *repos.SystemRepository

	mu       sync.RWMutex
	expanded string
	members  map[string][]models.SystemMember
}

// NewManager creates a graph manager over the system repository.
func NewManager(systems *repos.SystemRepository) *Manager {
	return &Manager{
		systems: systems,
		members: make(map[string][]models.SystemMember),
	}
}

// Toggle expands a system, collapsing whichever system was expanded
// before. Toggling the currently expanded system collapses it. Expanding
// fetches the member list unless a cached copy exists; collapsing keeps
// the cache so re-expanding is free.
func (m *Manager) Toggle(ctx context.Context, systemID string) {
	m.mu.Lock()
	if m.expanded == systemID {
		m.expanded = ""
		m.mu.Unlock()
		return
	}
	m.expanded = systemID
	_, cached := m.members[systemID]
	m.mu.Unlock()

	if !cached {
		m.refetchMembers(ctx, systemID)
	}
}

// Collapse clears the expanded system without touching member caches.
func (m *Manager) Collapse() {
	m.mu.Lock()
	m.expanded = ""
	m.mu.Unlock()
}

// Expanded returns the id of the expanded system, or "".
func (m *Manager) Expanded() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.expanded
}

// Members returns the cached member list for a system.
func (m *Manager) Members(systemID string) []models.SystemMember {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cached := m.members[systemID]
	out := make([]models.SystemMember, len(cached))
	copy(out, cached)
	return out
}

// ── Membership mutations ─────────────────────────────────────
//
// Every mutation refetches the member list afterward; the optimistic
// local edit is never treated as authoritative.

// AddMember adds an agent to a system and refetches its members.
func (m *Manager) AddMember(ctx context.Context, systemID, agentID string, role models.MemberRole) error {
	if err := m.systems.AddMember(ctx, systemID, agentID, role); err != nil {
		return err
	}
	m.refetchMembers(ctx, systemID)
	return nil
}

// UpdateMemberRole changes a member's role and refetches the members.
func (m *Manager) UpdateMemberRole(ctx context.Context, systemID, memberID string, role models.MemberRole) error {
	if err := m.systems.UpdateMemberRole(ctx, systemID, memberID, role); err != nil {
		return err
	}
	m.refetchMembers(ctx, systemID)
	return nil
}

// RemoveMember removes a member and refetches the members. Callers must
// gate this behind explicit user confirmation.
func (m *Manager) RemoveMember(ctx context.Context, systemID, memberID string) error {
	if err := m.systems.RemoveMember(ctx, systemID, memberID); err != nil {
		return err
	}
	m.refetchMembers(ctx, systemID)
	return nil
}

// Evict drops the member cache for a system (after a system deletion).
func (m *Manager) Evict(systemID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.members, systemID)
	if m.expanded == systemID {
		m.expanded = ""
	}
}

func (m *Manager) refetchMembers(ctx context.Context, systemID string) {
	members, err := m.systems.Members(ctx, systemID)
	if err != nil {
		log.Warn().Err(err).Str("system", systemID).Msg("fetch system members failed, keeping cached list")
		return
	}

	m.mu.Lock()
	m.members[systemID] = members
	m.mu.Unlock()
}
