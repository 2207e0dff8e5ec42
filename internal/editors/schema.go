package editors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	"github.com/agentstudio/agentstudio/console/internal/repos"
	"github.com/agentstudio/agentstudio/console/pkg/models"
)

// ErrReadOnlyFacet is returned when a save targets the functions facet.
var ErrReadOnlyFacet = errors.New("facet is read-only")

// facetSchemas holds the structural validators applied to facet buffers
// on top of plain well-formedness. Deliberately permissive: the backend
// owns semantic validation.
var facetSchemas = map[models.Facet]*gojsonschema.Schema{
	models.FacetVersion: mustSchema(`{"type": ["integer", "string", "null"]}`),
	models.FacetTools: mustSchema(`{
		"type": "array",
		"items": {
			"type": "object",
			"required": ["type"],
			"properties": {
				"type": {"type": "string"},
				"function": {"type": "object"},
				"_meta": {"type": "object"}
			}
		}
	}`),
	models.FacetDynamicTools:  mustSchema(`{"type": "array", "items": {"type": "object"}}`),
	models.FacetSubAgentTools: mustSchema(`{"type": "array", "items": {"type": "object"}}`),
	models.FacetKnowledge: mustSchema(`{
		"type": "array",
		"items": {
			"type": "object",
			"required": ["inclusion_mode"],
			"properties": {
				"name": {"type": "string"},
				"content": {"type": "string"},
				"inclusion_mode": {"enum": ["always", "rag"]},
				"rag": {"type": "object"}
			}
		}
	}`),
	models.FacetRAGConfig:    mustSchema(`{"type": ["object", "null"]}`),
	models.FacetMemoryConfig: mustSchema(`{"type": ["object", "null"]}`),
}

func mustSchema(doc string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(doc))
	if err != nil {
		panic(fmt.Sprintf("invalid facet schema: %v", err))
	}
	return schema
}

// facetBuffer is one independently dirty-tracked sub-buffer.
type facetBuffer struct {
	buffer     string
	snapshot   string
	state      State
	savedTimer *time.Timer
}

// SchemaEditor composes eight facet buffers over one agent's schema
// bundle. The facets share a single error slot; a malformed buffer blocks
// save for that facet only.
type SchemaEditor struct {
	repo       *repos.SchemaRepository
	savedDelay time.Duration

	mu         sync.Mutex
	agentID    string
	buffers    map[models.Facet]*facetBuffer
	schemaErr  string
	generation int
}

// NewSchemaEditor creates a schema editor. savedDelay controls how long
// the transient saved indicator stays visible.
func NewSchemaEditor(repo *repos.SchemaRepository, savedDelay time.Duration) *SchemaEditor {
	e := &SchemaEditor{repo: repo, savedDelay: savedDelay}
	e.buffers = emptyBuffers()
	return e
}

func emptyBuffers() map[models.Facet]*facetBuffer {
	buffers := make(map[models.Facet]*facetBuffer, len(models.Facets))
	for _, f := range models.Facets {
		buffers[f] = &facetBuffer{state: StateClean}
	}
	return buffers
}

// LoadAgent resets every facet buffer and dirty flag, then fetches the
// bundle for the newly selected agent. The reset happens first so stale
// facet content from a previous agent is never visible, even transiently.
func (e *SchemaEditor) LoadAgent(ctx context.Context, agentID string) {
	e.mu.Lock()
	e.agentID = agentID
	for _, fb := range e.buffers {
		if fb.savedTimer != nil {
			fb.savedTimer.Stop()
		}
	}
	e.buffers = emptyBuffers()
	e.schemaErr = ""
	e.generation++
	e.mu.Unlock()

	if agentID == "" {
		return
	}

	bundle, err := e.repo.Get(ctx, agentID)
	if err != nil {
		log.Warn().Err(err).Str("agent", agentID).Msg("load schema bundle failed")
		return
	}

	e.mu.Lock()
	if e.agentID == agentID {
		for _, f := range models.Facets {
			content := string(bundle.Get(f))
			fb := e.buffers[f]
			fb.buffer = content
			fb.snapshot = content
			fb.state = StateClean
		}
	}
	e.mu.Unlock()
}

// Reload refetches the bundle, discarding unsaved edits in every facet.
func (e *SchemaEditor) Reload(ctx context.Context) {
	e.mu.Lock()
	agentID := e.agentID
	e.mu.Unlock()
	e.LoadAgent(ctx, agentID)
}

// SetFacet applies a local edit to one facet buffer. Edits to the
// read-only functions facet are ignored. The shared error slot reflects
// the validity of the edited buffer.
func (e *SchemaEditor) SetFacet(facet models.Facet, content string) {
	if !facet.Valid() || facet.ReadOnly() {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	fb := e.buffers[facet]
	if fb.state == StateSaving {
		fb.buffer = content
		return
	}

	fb.buffer = content
	if fb.savedTimer != nil {
		fb.savedTimer.Stop()
		fb.savedTimer = nil
	}
	if fb.buffer == fb.snapshot {
		fb.state = StateClean
	} else {
		fb.state = StateDirty
	}

	if msg := validateFacet(facet, content); msg != "" {
		e.schemaErr = msg
	} else {
		e.schemaErr = ""
	}
}

// validateFacet checks well-formedness and the facet's structural schema.
// Returns "" when the content is acceptable.
func validateFacet(facet models.Facet, content string) string {
	if content == "" {
		return ""
	}
	if !json.Valid([]byte(content)) {
		return fmt.Sprintf("%s: invalid JSON", facet)
	}

	schema, ok := facetSchemas[facet]
	if !ok {
		return ""
	}
	result, err := schema.Validate(gojsonschema.NewStringLoader(content))
	if err != nil {
		return fmt.Sprintf("%s: %v", facet, err)
	}
	if !result.Valid() {
		return fmt.Sprintf("%s: %s", facet, result.Errors()[0].String())
	}
	return ""
}

// CanSave reports whether one facet is currently savable: editable,
// dirty, and holding valid content.
func (e *SchemaEditor) CanSave(facet models.Facet) bool {
	if !facet.Valid() || facet.ReadOnly() {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	fb := e.buffers[facet]
	if fb.buffer == fb.snapshot {
		return false
	}
	return validateFacet(facet, fb.buffer) == ""
}

// SaveFacet writes one facet to the backend as a partial update. On
// success the facet's snapshot is updated and its saved indicator shown;
// on failure the shared error slot is set and the facet enters the error
// state with its buffer preserved.
func (e *SchemaEditor) SaveFacet(ctx context.Context, facet models.Facet) error {
	if !facet.Valid() {
		return fmt.Errorf("unknown facet %q", facet)
	}
	if facet.ReadOnly() {
		return ErrReadOnlyFacet
	}

	e.mu.Lock()
	fb := e.buffers[facet]
	if fb.buffer == fb.snapshot {
		e.mu.Unlock()
		return ErrNotDirty
	}
	content := fb.buffer
	if msg := validateFacet(facet, content); msg != "" {
		e.schemaErr = msg
		e.mu.Unlock()
		return fmt.Errorf("facet %s is not savable: %s", facet, msg)
	}
	agentID := e.agentID
	fb.state = StateSaving
	gen := e.generation
	e.mu.Unlock()

	_, err := e.repo.PutFacet(ctx, agentID, facet, json.RawMessage(content))

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.generation != gen {
		return err
	}

	if err != nil {
		fb.state = StateError
		e.schemaErr = fmt.Sprintf("%s: %s", facet, err)
		return err
	}

	fb.snapshot = content
	e.schemaErr = ""
	if fb.buffer == fb.snapshot {
		fb.state = StateSaved
		e.startSavedTimerLocked(facet, gen)
	} else {
		fb.state = StateDirty
	}
	return nil
}

// SaveAll writes the whole bundle in one request. Every editable dirty
// facet must hold valid content; read-only facets are never sent.
func (e *SchemaEditor) SaveAll(ctx context.Context) error {
	e.mu.Lock()
	agentID := e.agentID
	gen := e.generation

	var bundle models.SchemaBundle
	dirty := make([]models.Facet, 0, len(models.Facets))
	for _, f := range models.Facets {
		if f.ReadOnly() {
			continue
		}
		fb := e.buffers[f]
		if fb.buffer != fb.snapshot {
			if msg := validateFacet(f, fb.buffer); msg != "" {
				e.schemaErr = msg
				e.mu.Unlock()
				return fmt.Errorf("facet %s is not savable: %s", f, msg)
			}
			dirty = append(dirty, f)
		}
		if fb.buffer != "" {
			bundle.Set(f, json.RawMessage(fb.buffer))
		}
	}
	if len(dirty) == 0 {
		e.mu.Unlock()
		return ErrNotDirty
	}
	for _, f := range dirty {
		e.buffers[f].state = StateSaving
	}
	e.mu.Unlock()

	_, err := e.repo.PutFull(ctx, agentID, bundle)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.generation != gen {
		return err
	}

	if err != nil {
		for _, f := range dirty {
			e.buffers[f].state = StateError
		}
		e.schemaErr = err.Error()
		return err
	}

	e.schemaErr = ""
	for _, f := range dirty {
		fb := e.buffers[f]
		fb.snapshot = fb.buffer
		fb.state = StateSaved
		e.startSavedTimerLocked(f, gen)
	}
	return nil
}

// ── Accessors ────────────────────────────────────────────────

// Facet returns one facet's buffer content.
func (e *SchemaEditor) Facet(facet models.Facet) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if fb, ok := e.buffers[facet]; ok {
		return fb.buffer
	}
	return ""
}

// Dirty reports whether one facet differs from its last-saved snapshot.
func (e *SchemaEditor) Dirty(facet models.Facet) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if fb, ok := e.buffers[facet]; ok {
		return fb.buffer != fb.snapshot
	}
	return false
}

// FacetState returns one facet's lifecycle state.
func (e *SchemaEditor) FacetState(facet models.Facet) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if fb, ok := e.buffers[facet]; ok {
		return fb.state
	}
	return StateClean
}

// SchemaErr returns the shared error slot, or "".
func (e *SchemaEditor) SchemaErr() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.schemaErr
}

// AgentID returns the agent the buffers belong to.
func (e *SchemaEditor) AgentID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.agentID
}

// ── Saved indicator ──────────────────────────────────────────

func (e *SchemaEditor) startSavedTimerLocked(facet models.Facet, gen int) {
	fb := e.buffers[facet]
	if fb.savedTimer != nil {
		fb.savedTimer.Stop()
	}
	fb.savedTimer = time.AfterFunc(e.savedDelay, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.generation == gen && e.buffers[facet] == fb && fb.state == StateSaved {
			fb.state = StateClean
		}
	})
}
