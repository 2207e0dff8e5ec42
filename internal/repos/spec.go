package repos

import (
	"context"
	"sync"

	"github.com/agentstudio/agentstudio/console/internal/backend"
	"github.com/agentstudio/agentstudio/console/pkg/models"
)

// SpecRepository reads and writes the agent-linked specification document
// at /agents/{id}/spec/. The last-fetched spec is cached so surfaces can
// re-render without a round trip.
type SpecRepository struct {
	client *backend.Client

	mu      sync.RWMutex
	agentID string
	spec    models.AgentSpec
}

// NewSpecRepository creates a spec repository over the shared client.
func NewSpecRepository(client *backend.Client) *SpecRepository {
	return &SpecRepository{client: client}
}

// Get fetches the spec for an agent and caches it.
func (r *SpecRepository) Get(ctx context.Context, agentID string) (models.AgentSpec, error) {
	var spec models.AgentSpec
	if err := r.client.Get(ctx, "/agents/"+agentID+"/spec/", &spec); err != nil {
		return models.AgentSpec{}, err
	}

	r.mu.Lock()
	r.agentID = agentID
	r.spec = spec
	r.mu.Unlock()
	return spec, nil
}

// Put saves new spec content for an agent and caches the returned document
// (the backend bumps current_version on every save).
func (r *SpecRepository) Put(ctx context.Context, agentID, content string) (models.AgentSpec, error) {
	body := map[string]string{"content": content}
	var spec models.AgentSpec
	if err := r.client.Put(ctx, "/agents/"+agentID+"/spec/", body, &spec); err != nil {
		return models.AgentSpec{}, err
	}

	r.mu.Lock()
	r.agentID = agentID
	r.spec = spec
	r.mu.Unlock()
	return spec, nil
}

// Cached returns the last-fetched spec and the agent it belongs to.
func (r *SpecRepository) Cached() (string, models.AgentSpec) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.agentID, r.spec
}
