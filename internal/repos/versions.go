package repos

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/agentstudio/agentstudio/console/internal/backend"
	"github.com/agentstudio/agentstudio/console/internal/selection"
	"github.com/agentstudio/agentstudio/console/pkg/models"
)

// VersionRepository caches the version collection for one agent at a time
// and auto-selects a version after every load: the active version when one
// exists, otherwise the first version in returned order.
type VersionRepository struct {
	client *backend.Client
	sel    *selection.Store

	mu       sync.RWMutex
	agentID  string
	versions []models.AgentVersion
}

// NewVersionRepository creates a version repository over the shared client.
func NewVersionRepository(client *backend.Client, sel *selection.Store) *VersionRepository {
	return &VersionRepository{client: client, sel: sel}
}

// Load fetches the versions of the given agent. On failure the prior
// cache is kept. After a successful load the selection store's version
// slot is updated to the auto-selected version.
func (r *VersionRepository) Load(ctx context.Context, agentID string) error {
	if agentID == "" {
		r.mu.Lock()
		r.agentID = ""
		r.versions = nil
		r.mu.Unlock()
		r.sel.SelectVersion("")
		return nil
	}

	versions, err := backend.GetCollection[models.AgentVersion](ctx, r.client, "/agents/"+agentID+"/versions/")
	if err != nil {
		log.Warn().Err(err).Str("agent", agentID).Msg("load versions failed, keeping cached collection")
		return err
	}

	r.mu.Lock()
	r.agentID = agentID
	r.versions = versions
	r.mu.Unlock()

	r.sel.SelectVersion(autoSelect(versions))
	return nil
}

// autoSelect picks the active version, falling back to the first.
func autoSelect(versions []models.AgentVersion) string {
	for _, v := range versions {
		if v.IsActive {
			return v.ID
		}
	}
	if len(versions) > 0 {
		return versions[0].ID
	}
	return ""
}

// Versions returns a copy of the cached collection.
func (r *VersionRepository) Versions() []models.AgentVersion {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.AgentVersion, len(r.versions))
	copy(out, r.versions)
	return out
}

// AgentID returns the agent the cache belongs to.
func (r *VersionRepository) AgentID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.agentID
}

// Activate flips exactly one version to active server-side and reloads.
// The call is idempotent: activating the already-active version is a no-op
// on the backend.
func (r *VersionRepository) Activate(ctx context.Context, agentID, versionID string) error {
	if err := r.client.Post(ctx, "/agents/"+agentID+"/versions/"+versionID+"/activate/", nil, nil); err != nil {
		return err
	}
	r.Load(ctx, agentID)

	log.Info().Str("agent", agentID).Str("version", versionID).Msg("version activated")
	return nil
}
