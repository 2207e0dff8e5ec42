package repos

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/agentstudio/agentstudio/console/internal/backend"
	"github.com/agentstudio/agentstudio/console/pkg/models"
)

// SystemRepository caches the agent-system collection and carries the
// member sub-collection calls used by the graph manager.
type SystemRepository struct {
	client *backend.Client

	mu      sync.RWMutex
	systems []models.AgentSystem
}

// NewSystemRepository creates a system repository over the shared client.
func NewSystemRepository(client *backend.Client) *SystemRepository {
	return &SystemRepository{client: client}
}

// Load fetches the full system collection. On failure the prior cache is
// left untouched; the error is logged and returned for callers that care.
func (r *SystemRepository) Load(ctx context.Context) error {
	systems, err := backend.GetCollection[models.AgentSystem](ctx, r.client, "/systems/")
	if err != nil {
		log.Warn().Err(err).Msg("load systems failed, keeping cached collection")
		return err
	}

	r.mu.Lock()
	r.systems = systems
	r.mu.Unlock()
	return nil
}

// Systems returns a copy of the cached collection.
func (r *SystemRepository) Systems() []models.AgentSystem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.AgentSystem, len(r.systems))
	copy(out, r.systems)
	return out
}

// Get returns the cached system with the given id.
func (r *SystemRepository) Get(id string) (models.AgentSystem, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.systems {
		if s.ID == id {
			return s, true
		}
	}
	return models.AgentSystem{}, false
}

// CreateSystemRequest is the payload for creating a system.
type CreateSystemRequest struct {
	Name         string `json:"name"`
	Slug         string `json:"slug,omitempty"`
	Description  string `json:"description,omitempty"`
	EntryAgentID string `json:"entry_agent,omitempty"`
}

// Create posts a new system and reloads the collection.
func (r *SystemRepository) Create(ctx context.Context, req CreateSystemRequest) (models.AgentSystem, error) {
	var created models.AgentSystem
	if err := r.client.Post(ctx, "/systems/", req, &created); err != nil {
		return models.AgentSystem{}, err
	}
	r.Load(ctx)

	log.Info().Str("system", created.ID).Str("name", created.Name).Msg("system created")
	return created, nil
}

// Update patches a system and reloads the collection.
func (r *SystemRepository) Update(ctx context.Context, id string, fields map[string]any) error {
	if err := r.client.Patch(ctx, "/systems/"+id+"/", fields, nil); err != nil {
		return err
	}
	r.Load(ctx)
	return nil
}

// Delete removes a system and reloads the collection. Callers must gate
// this behind explicit user confirmation.
func (r *SystemRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Delete(ctx, "/systems/"+id+"/"); err != nil {
		return err
	}
	r.Load(ctx)

	log.Info().Str("system", id).Msg("system deleted")
	return nil
}

// Publish marks a system as published.
func (r *SystemRepository) Publish(ctx context.Context, id string) error {
	if err := r.client.Post(ctx, "/systems/"+id+"/publish/", nil, nil); err != nil {
		return err
	}
	r.Load(ctx)
	return nil
}

// ── Members ──────────────────────────────────────────────────

// Members fetches the member list of one system. Unlike collection loads
// this returns the error: the graph manager decides whether to keep its
// cached members.
func (r *SystemRepository) Members(ctx context.Context, systemID string) ([]models.SystemMember, error) {
	return backend.GetCollection[models.SystemMember](ctx, r.client, "/systems/"+systemID+"/members/")
}

// AddMember adds an agent to a system.
func (r *SystemRepository) AddMember(ctx context.Context, systemID, agentID string, role models.MemberRole) error {
	body := map[string]any{"agent": agentID, "role": role}
	return r.client.Post(ctx, "/systems/"+systemID+"/members/", body, nil)
}

// UpdateMemberRole changes a member's advisory role.
func (r *SystemRepository) UpdateMemberRole(ctx context.Context, systemID, memberID string, role models.MemberRole) error {
	body := map[string]any{"role": role}
	return r.client.Patch(ctx, "/systems/"+systemID+"/members/"+memberID+"/", body, nil)
}

// RemoveMember removes a member row. Callers must gate this behind
// explicit user confirmation.
func (r *SystemRepository) RemoveMember(ctx context.Context, systemID, memberID string) error {
	return r.client.Delete(ctx, "/systems/"+systemID+"/members/"+memberID+"/")
}
