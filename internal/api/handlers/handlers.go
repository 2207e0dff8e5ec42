// Package handlers implements the HTTP handlers for the console surface.
// The rendering surfaces (spec editor, schema editor, graph, widget
// placeholders) talk to the console through these endpoints; the builder
// widget can also deliver UI-control events here instead of the
// in-process callback.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/agentstudio/agentstudio/console/internal/backend"
	"github.com/agentstudio/agentstudio/console/internal/console"
	"github.com/agentstudio/agentstudio/console/internal/editors"
	"github.com/agentstudio/agentstudio/console/internal/repos"
	"github.com/agentstudio/agentstudio/console/pkg/models"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Console *console.Console
	Version string
}

// New creates a Handlers instance over one console.
func New(c *console.Console, version string) *Handlers {
	return &Handlers{Console: c, Version: version}
}

// ── State snapshot ───────────────────────────────────────────

// StateSnapshot is the full console state one surface render needs.
type StateSnapshot struct {
	Version   string `json:"version"`
	Selection struct {
		AgentID   string `json:"agent_id"`
		VersionID string `json:"version_id"`
		SystemID  string `json:"system_id"`
	} `json:"selection"`
	Agents   []models.Agent        `json:"agents"`
	Versions []models.AgentVersion `json:"versions"`
	Systems  []models.AgentSystem  `json:"systems"`

	SpecEditor struct {
		State  editors.State `json:"state"`
		Dirty  bool          `json:"dirty"`
		Buffer string        `json:"buffer"`
		Error  string        `json:"error,omitempty"`
	} `json:"spec_editor"`

	SchemaEditor struct {
		States    map[models.Facet]editors.State `json:"states"`
		Dirty     map[models.Facet]bool          `json:"dirty"`
		SchemaErr string                         `json:"schema_error,omitempty"`
	} `json:"schema_editor"`

	Graph struct {
		Expanded string                `json:"expanded_system"`
		Members  []models.SystemMember `json:"members"`
	} `json:"graph"`

	Widgets struct {
		TestActive    bool `json:"test_active"`
		BuilderActive bool `json:"builder_active"`
		TestAnonymous bool `json:"test_anonymous"`
	} `json:"widgets"`
}

func (h *Handlers) GetState(w http.ResponseWriter, r *http.Request) {
	c := h.Console

	var snap StateSnapshot
	snap.Version = h.Version
	snap.Selection.AgentID = c.Selection.AgentID()
	snap.Selection.VersionID = c.Selection.VersionID()
	snap.Selection.SystemID = c.Selection.SystemID()
	snap.Agents = c.Agents.Agents()
	snap.Versions = c.Versions.Versions()
	snap.Systems = c.Systems.Systems()

	snap.SpecEditor.State = c.SpecEditor.State()
	snap.SpecEditor.Dirty = c.SpecEditor.Dirty()
	snap.SpecEditor.Buffer = c.SpecEditor.Buffer()
	snap.SpecEditor.Error = c.SpecEditor.Err()

	snap.SchemaEditor.States = make(map[models.Facet]editors.State, len(models.Facets))
	snap.SchemaEditor.Dirty = make(map[models.Facet]bool, len(models.Facets))
	for _, f := range models.Facets {
		snap.SchemaEditor.States[f] = c.SchemaEditor.FacetState(f)
		snap.SchemaEditor.Dirty[f] = c.SchemaEditor.Dirty(f)
	}
	snap.SchemaEditor.SchemaErr = c.SchemaEditor.SchemaErr()

	snap.Graph.Expanded = c.Graph.Expanded()
	if snap.Graph.Expanded != "" {
		snap.Graph.Members = c.Graph.Members(snap.Graph.Expanded)
	}

	snap.Widgets.TestActive = c.Bridge.TestActive()
	snap.Widgets.BuilderActive = c.Bridge.BuilderActive()
	snap.Widgets.TestAnonymous = c.Bridge.TestAnonymous()

	respondJSON(w, http.StatusOK, snap)
}

// ── Selection ────────────────────────────────────────────────

func (h *Handlers) SelectAgent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AgentID string `json:"agent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.Console.SelectAgent(r.Context(), req.AgentID)
	respondJSON(w, http.StatusOK, map[string]string{"agent_id": req.AgentID})
}

func (h *Handlers) SelectSystem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SystemID string `json:"system_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.Console.SelectSystem(r.Context(), req.SystemID)
	respondJSON(w, http.StatusOK, map[string]string{"system_id": req.SystemID})
}

// ── UI-control ingress ───────────────────────────────────────

// UIControl accepts an out-of-band control event and hands it to the
// widget bridge. Unrecognized actions are accepted and ignored, matching
// the bridge's protocol contract.
func (h *Handlers) UIControl(w http.ResponseWriter, r *http.Request) {
	var evt models.UIControlEvent
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		respondError(w, http.StatusBadRequest, "invalid event payload")
		return
	}

	h.Console.Bridge.HandleUIControl(r.Context(), evt)
	w.WriteHeader(http.StatusAccepted)
}

// ── Agents ───────────────────────────────────────────────────

func (h *Handlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents := h.Console.Agents.Agents()
	if agents == nil {
		agents = []models.Agent{}
	}
	respondJSON(w, http.StatusOK, agents)
}

func (h *Handlers) CreateAgent(w http.ResponseWriter, r *http.Request) {
	var req repos.CreateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.Console.Agents.Create(r.Context(), req)
	if err != nil {
		respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// DeleteAgent requires confirm=true: destructive actions are always
// gated behind an explicit confirmation step.
func (h *Handlers) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		respondError(w, http.StatusPreconditionRequired, "deletion requires confirm=true")
		return
	}

	agentID := chi.URLParam(r, "agentID")
	if err := h.Console.DeleteAgent(r.Context(), agentID); err != nil {
		respondBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Versions ─────────────────────────────────────────────────

func (h *Handlers) ListVersions(w http.ResponseWriter, r *http.Request) {
	versions := h.Console.Versions.Versions()
	if versions == nil {
		versions = []models.AgentVersion{}
	}
	respondJSON(w, http.StatusOK, versions)
}

func (h *Handlers) ActivateVersion(w http.ResponseWriter, r *http.Request) {
	versionID := chi.URLParam(r, "versionID")
	agentID := h.Console.Selection.AgentID()
	if agentID == "" {
		respondError(w, http.StatusConflict, "no agent selected")
		return
	}

	if err := h.Console.Versions.Activate(r.Context(), agentID, versionID); err != nil {
		respondBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Spec editor ──────────────────────────────────────────────

func (h *Handlers) specEditorState(w http.ResponseWriter) {
	e := h.Console.SpecEditor
	respondJSON(w, http.StatusOK, map[string]any{
		"state":  e.State(),
		"dirty":  e.Dirty(),
		"buffer": e.Buffer(),
		"error":  e.Err(),
		"spec":   e.Spec(),
	})
}

func (h *Handlers) GetSpecEditor(w http.ResponseWriter, r *http.Request) {
	h.specEditorState(w)
}

func (h *Handlers) EditSpec(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.Console.SpecEditor.SetBuffer(req.Content)
	h.specEditorState(w)
}

func (h *Handlers) SaveSpec(w http.ResponseWriter, r *http.Request) {
	if err := h.Console.SpecEditor.Save(r.Context()); err != nil {
		if err == editors.ErrNotDirty {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondBackendError(w, err)
		return
	}
	h.specEditorState(w)
}

func (h *Handlers) ReloadSpec(w http.ResponseWriter, r *http.Request) {
	h.Console.SpecEditor.Reload(r.Context())
	h.specEditorState(w)
}

// ── Schema editor ────────────────────────────────────────────

func (h *Handlers) EditFacet(w http.ResponseWriter, r *http.Request) {
	facet := models.Facet(chi.URLParam(r, "facet"))
	if !facet.Valid() {
		respondError(w, http.StatusNotFound, "unknown facet")
		return
	}
	if facet.ReadOnly() {
		respondError(w, http.StatusMethodNotAllowed, "facet is read-only")
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e := h.Console.SchemaEditor
	e.SetFacet(facet, req.Content)
	respondJSON(w, http.StatusOK, map[string]any{
		"facet":        facet,
		"state":        e.FacetState(facet),
		"dirty":        e.Dirty(facet),
		"can_save":     e.CanSave(facet),
		"schema_error": e.SchemaErr(),
	})
}

func (h *Handlers) SaveFacet(w http.ResponseWriter, r *http.Request) {
	facet := models.Facet(chi.URLParam(r, "facet"))
	e := h.Console.SchemaEditor

	if err := e.SaveFacet(r.Context(), facet); err != nil {
		switch err {
		case editors.ErrNotDirty:
			respondError(w, http.StatusConflict, err.Error())
		case editors.ErrReadOnlyFacet:
			respondError(w, http.StatusMethodNotAllowed, err.Error())
		default:
			respondBackendError(w, err)
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"facet": facet,
		"state": e.FacetState(facet),
	})
}

func (h *Handlers) SaveFullSchema(w http.ResponseWriter, r *http.Request) {
	if err := h.Console.SchemaEditor.SaveAll(r.Context()); err != nil {
		if err == editors.ErrNotDirty {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ReloadSchema(w http.ResponseWriter, r *http.Request) {
	h.Console.SchemaEditor.Reload(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// ── Systems & graph ──────────────────────────────────────────

func (h *Handlers) ListSystems(w http.ResponseWriter, r *http.Request) {
	systems := h.Console.Systems.Systems()
	if systems == nil {
		systems = []models.AgentSystem{}
	}
	respondJSON(w, http.StatusOK, systems)
}

func (h *Handlers) CreateSystem(w http.ResponseWriter, r *http.Request) {
	var req repos.CreateSystemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.Console.Systems.Create(r.Context(), req)
	if err != nil {
		respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handlers) DeleteSystem(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		respondError(w, http.StatusPreconditionRequired, "deletion requires confirm=true")
		return
	}

	systemID := chi.URLParam(r, "systemID")
	if err := h.Console.DeleteSystem(r.Context(), systemID); err != nil {
		respondBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ToggleSystem(w http.ResponseWriter, r *http.Request) {
	systemID := chi.URLParam(r, "systemID")
	h.Console.Graph.Toggle(r.Context(), systemID)
	respondJSON(w, http.StatusOK, map[string]string{
		"expanded_system": h.Console.Graph.Expanded(),
	})
}

func (h *Handlers) ListMembers(w http.ResponseWriter, r *http.Request) {
	systemID := chi.URLParam(r, "systemID")
	members := h.Console.Graph.Members(systemID)
	if members == nil {
		members = []models.SystemMember{}
	}
	respondJSON(w, http.StatusOK, members)
}

func (h *Handlers) AddMember(w http.ResponseWriter, r *http.Request) {
	systemID := chi.URLParam(r, "systemID")

	var req struct {
		AgentID string            `json:"agent"`
		Role    models.MemberRole `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Console.Graph.AddMember(r.Context(), systemID, req.AgentID, req.Role); err != nil {
		respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"system_id": systemID})
}

func (h *Handlers) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	systemID := chi.URLParam(r, "systemID")
	memberID := chi.URLParam(r, "memberID")

	var req struct {
		Role models.MemberRole `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Console.Graph.UpdateMemberRole(r.Context(), systemID, memberID, req.Role); err != nil {
		respondBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		respondError(w, http.StatusPreconditionRequired, "removal requires confirm=true")
		return
	}

	systemID := chi.URLParam(r, "systemID")
	memberID := chi.URLParam(r, "memberID")
	if err := h.Console.Graph.RemoveMember(r.Context(), systemID, memberID); err != nil {
		respondBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) PublishSystem(w http.ResponseWriter, r *http.Request) {
	systemID := chi.URLParam(r, "systemID")
	if err := h.Console.Systems.Publish(r.Context(), systemID); err != nil {
		respondBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Documents ────────────────────────────────────────────────

func (h *Handlers) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs := h.Console.Documents.Documents()
	if docs == nil {
		docs = []models.SpecDocument{}
	}
	respondJSON(w, http.StatusOK, docs)
}

func (h *Handlers) DocumentTree(w http.ResponseWriter, r *http.Request) {
	tree := h.Console.Documents.Tree()
	if tree == nil {
		tree = []models.SpecDocument{}
	}
	respondJSON(w, http.StatusOK, tree)
}

func (h *Handlers) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req repos.CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.Console.Documents.Create(r.Context(), req)
	if err != nil {
		respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handlers) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")

	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Console.Documents.Update(r.Context(), docID, fields); err != nil {
		respondBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		respondError(w, http.StatusPreconditionRequired, "deletion requires confirm=true")
		return
	}

	docID := chi.URLParam(r, "docID")
	if err := h.Console.Documents.Delete(r.Context(), docID); err != nil {
		respondBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) DocumentHistory(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	history, err := h.Console.Documents.History(r.Context(), docID)
	if err != nil {
		respondBackendError(w, err)
		return
	}
	if history == nil {
		history = []models.SpecDocumentVersion{}
	}
	respondJSON(w, http.StatusOK, history)
}

func (h *Handlers) RenderDocument(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	html, err := h.Console.Documents.Render(r.Context(), path)
	if err != nil {
		respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"html": html})
}

// ── Widgets ──────────────────────────────────────────────────

func (h *Handlers) RefreshTestWidget(w http.ResponseWriter, r *http.Request) {
	h.Console.Bridge.RefreshTest(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) RefreshBuilderWidget(w http.ResponseWriter, r *http.Request) {
	h.Console.Bridge.RefreshBuilder(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) SetTestAuthMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Anonymous bool `json:"anonymous"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.Console.Bridge.SetTestAuthMode(r.Context(), req.Anonymous)
	log.Info().Bool("anonymous", req.Anonymous).Msg("test widget auth mode set")
	w.WriteHeader(http.StatusNoContent)
}

// ── Helpers ──────────────────────────────────────────────────

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondBackendError maps backend failures onto the console surface,
// preserving the backend's status when it is meaningful.
func respondBackendError(w http.ResponseWriter, err error) {
	var apiErr *backend.APIError
	if backend.AsAPIError(err, &apiErr) {
		respondError(w, apiErr.Status, apiErr.Detail)
		return
	}
	respondError(w, http.StatusBadGateway, err.Error())
}
