package repos

import (
	"context"
	"net/url"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/agentstudio/agentstudio/console/internal/backend"
	"github.com/agentstudio/agentstudio/console/pkg/models"
)

// DocumentRepository wraps the standalone spec-document tree at
// /spec-documents/: flat collection plus tree, per-document history,
// and server-side markdown rendering.
type DocumentRepository struct {
	client *backend.Client

	mu        sync.RWMutex
	documents []models.SpecDocument
	tree      []models.SpecDocument
}

// NewDocumentRepository creates a document repository over the shared client.
func NewDocumentRepository(client *backend.Client) *DocumentRepository {
	return &DocumentRepository{client: client}
}

// Load fetches the flat document collection. On failure the prior cache
// is left untouched; the error is logged and returned for callers that care.
func (r *DocumentRepository) Load(ctx context.Context) error {
	docs, err := backend.GetCollection[models.SpecDocument](ctx, r.client, "/spec-documents/")
	if err != nil {
		log.Warn().Err(err).Msg("load spec documents failed, keeping cached collection")
		return err
	}

	r.mu.Lock()
	r.documents = docs
	r.mu.Unlock()
	return nil
}

// LoadTree fetches the nested document tree.
func (r *DocumentRepository) LoadTree(ctx context.Context) error {
	tree, err := backend.GetCollection[models.SpecDocument](ctx, r.client, "/spec-documents/tree/")
	if err != nil {
		log.Warn().Err(err).Msg("load spec document tree failed, keeping cached tree")
		return err
	}

	r.mu.Lock()
	r.tree = tree
	r.mu.Unlock()
	return nil
}

// Documents returns a copy of the cached flat collection.
func (r *DocumentRepository) Documents() []models.SpecDocument {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.SpecDocument, len(r.documents))
	copy(out, r.documents)
	return out
}

// Tree returns a copy of the cached tree roots.
func (r *DocumentRepository) Tree() []models.SpecDocument {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.SpecDocument, len(r.tree))
	copy(out, r.tree)
	return out
}

// CreateDocumentRequest is the payload for creating a spec document.
type CreateDocumentRequest struct {
	Title         string `json:"title"`
	Content       string `json:"content,omitempty"`
	ParentID      string `json:"parent,omitempty"`
	LinkedAgentID string `json:"linked_agent,omitempty"`
}

// Create posts a new document and reloads the collection and tree.
func (r *DocumentRepository) Create(ctx context.Context, req CreateDocumentRequest) (models.SpecDocument, error) {
	var created models.SpecDocument
	if err := r.client.Post(ctx, "/spec-documents/", req, &created); err != nil {
		return models.SpecDocument{}, err
	}
	r.Load(ctx)
	r.LoadTree(ctx)
	return created, nil
}

// Update patches a document and reloads the collection and tree.
func (r *DocumentRepository) Update(ctx context.Context, id string, fields map[string]any) error {
	if err := r.client.Patch(ctx, "/spec-documents/"+id+"/", fields, nil); err != nil {
		return err
	}
	r.Load(ctx)
	r.LoadTree(ctx)
	return nil
}

// Delete removes a document and reloads the collection and tree. Callers
// must gate this behind explicit user confirmation.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Delete(ctx, "/spec-documents/"+id+"/"); err != nil {
		return err
	}
	r.Load(ctx)
	r.LoadTree(ctx)
	return nil
}

// History returns the immutable version snapshots of one document.
func (r *DocumentRepository) History(ctx context.Context, id string) ([]models.SpecDocumentVersion, error) {
	return backend.GetCollection[models.SpecDocumentVersion](ctx, r.client, "/spec-documents/"+id+"/history/")
}

// Render asks the backend to render a document's markdown. The console
// never renders markdown itself.
func (r *DocumentRepository) Render(ctx context.Context, path string) (string, error) {
	var out struct {
		HTML string `json:"html"`
	}
	q := url.Values{"path": {path}}
	if err := r.client.Get(ctx, "/spec-documents/render/?"+q.Encode(), &out); err != nil {
		return "", err
	}
	return out.HTML, nil
}
