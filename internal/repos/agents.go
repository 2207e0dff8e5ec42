// Package repos wraps the studio backend's resource collections. Each
// repository caches the last-fetched collection in memory; Load failures
// keep the prior cache so surfaces never blank out, and every mutation
// is followed by an unconditional reload so the cache never drifts from
// the backend's view.
package repos

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/agentstudio/agentstudio/console/internal/backend"
	"github.com/agentstudio/agentstudio/console/pkg/models"
)

// AgentRepository caches the agent collection.
type AgentRepository struct {
	client *backend.Client

	mu     sync.RWMutex
	agents []models.Agent
}

// NewAgentRepository creates an agent repository over the shared client.
func NewAgentRepository(client *backend.Client) *AgentRepository {
	return &AgentRepository{client: client}
}

// Load fetches the full agent collection. On failure the prior cache is
// left untouched; the error is logged and returned for callers that care.
func (r *AgentRepository) Load(ctx context.Context) error {
	agents, err := backend.GetCollection[models.Agent](ctx, r.client, "/agents/")
	if err != nil {
		log.Warn().Err(err).Msg("load agents failed, keeping cached collection")
		return err
	}

	r.mu.Lock()
	r.agents = agents
	r.mu.Unlock()
	return nil
}

// Agents returns a copy of the cached collection.
func (r *AgentRepository) Agents() []models.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Agent, len(r.agents))
	copy(out, r.agents)
	return out
}

// Get returns the cached agent with the given id.
func (r *AgentRepository) Get(id string) (models.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.agents {
		if a.ID == id {
			return a, true
		}
	}
	return models.Agent{}, false
}

// CreateAgentRequest is the payload for creating an agent.
type CreateAgentRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
	Icon string `json:"icon,omitempty"`
}

// Create posts a new agent and reloads the collection.
func (r *AgentRepository) Create(ctx context.Context, req CreateAgentRequest) (models.Agent, error) {
	var created models.Agent
	if err := r.client.Post(ctx, "/agents/", req, &created); err != nil {
		return models.Agent{}, err
	}
	r.Load(ctx)

	log.Info().Str("agent", created.ID).Str("name", created.Name).Msg("agent created")
	return created, nil
}

// Update patches an agent and reloads the collection.
func (r *AgentRepository) Update(ctx context.Context, id string, fields map[string]any) error {
	if err := r.client.Patch(ctx, "/agents/"+id+"/", fields, nil); err != nil {
		return err
	}
	r.Load(ctx)
	return nil
}

// Delete removes an agent and reloads the collection. Callers must gate
// this behind explicit user confirmation.
func (r *AgentRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Delete(ctx, "/agents/"+id+"/"); err != nil {
		return err
	}
	r.Load(ctx)

	log.Info().Str("agent", id).Msg("agent deleted")
	return nil
}
