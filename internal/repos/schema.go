package repos

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/agentstudio/agentstudio/console/internal/backend"
	"github.com/agentstudio/agentstudio/console/pkg/models"
)

// SchemaRepository reads and writes the facet-partitioned schema bundle
// at /agents/{id}/full-schema/. PUT accepts either a partial object keyed
// by the facet being saved or the whole bundle.
type SchemaRepository struct {
	client *backend.Client

	mu      sync.RWMutex
	agentID string
	bundle  models.SchemaBundle
}

// NewSchemaRepository creates a schema repository over the shared client.
func NewSchemaRepository(client *backend.Client) *SchemaRepository {
	return &SchemaRepository{client: client}
}

// Get fetches the full schema bundle for an agent and caches it.
func (r *SchemaRepository) Get(ctx context.Context, agentID string) (models.SchemaBundle, error) {
	var bundle models.SchemaBundle
	if err := r.client.Get(ctx, "/agents/"+agentID+"/full-schema/", &bundle); err != nil {
		return models.SchemaBundle{}, err
	}

	r.mu.Lock()
	r.agentID = agentID
	r.bundle = bundle
	r.mu.Unlock()
	return bundle, nil
}

// PutFacet saves one facet as a partial update, then refetches the bundle
// so the cache reflects any server-side normalization.
func (r *SchemaRepository) PutFacet(ctx context.Context, agentID string, facet models.Facet, raw json.RawMessage) (models.SchemaBundle, error) {
	body := map[models.Facet]json.RawMessage{facet: raw}
	if err := r.client.Put(ctx, "/agents/"+agentID+"/full-schema/", body, nil); err != nil {
		return models.SchemaBundle{}, err
	}
	return r.Get(ctx, agentID)
}

// PutFull saves the whole bundle, then refetches it.
func (r *SchemaRepository) PutFull(ctx context.Context, agentID string, bundle models.SchemaBundle) (models.SchemaBundle, error) {
	if err := r.client.Put(ctx, "/agents/"+agentID+"/full-schema/", bundle, nil); err != nil {
		return models.SchemaBundle{}, err
	}
	return r.Get(ctx, agentID)
}

// Cached returns the last-fetched bundle and the agent it belongs to.
func (r *SchemaRepository) Cached() (string, models.SchemaBundle) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.agentID, r.bundle
}
