// Package models defines the shared data types for the Agent Studio console:
// agents, versions, systems, spec documents, and the facet-partitioned schema
// bundle edited by the studio surfaces. All durable state lives in the studio
// backend; these types are the client-side view of it.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ── Agent ────────────────────────────────────────────────────

// Agent is a single conversational configuration. The slug is the
// external-facing key used by embedded chat widgets.
type Agent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
	Icon string `json:"icon,omitempty"`
}

// AgentVersion is one historical version of an agent's configuration.
// The backend guarantees at most one version per agent is active.
type AgentVersion struct {
	ID       string `json:"id"`
	Version  string `json:"version"`
	IsActive bool   `json:"is_active"`
	IsDraft  bool   `json:"is_draft"`
}

// AgentSpec is the agent-linked specification document returned by
// GET /agents/{id}/spec/.
type AgentSpec struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Content        string `json:"content"`
	CurrentVersion int    `json:"current_version"`
	HasSpec        bool   `json:"has_spec"`
}

// ── Systems ──────────────────────────────────────────────────

// MemberRole is advisory metadata on a system membership row.
type MemberRole string

const (
	RoleSpecialist MemberRole = "specialist"
	RoleUtility    MemberRole = "utility"
	RoleSupervisor MemberRole = "supervisor"
	RoleEntryPoint MemberRole = "entry_point"
)

// AgentSystem groups agents behind a single conversational entry point.
type AgentSystem struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Slug         string         `json:"slug"`
	Description  string         `json:"description,omitempty"`
	EntryAgentID string         `json:"entry_agent,omitempty"`
	Members      []SystemMember `json:"members,omitempty"`
}

// SystemMember is the join row between a system and an agent.
type SystemMember struct {
	ID      string     `json:"id"`
	AgentID string     `json:"agent"`
	Role    MemberRole `json:"role"`
}

// ── Spec documents ───────────────────────────────────────────

// SpecDocument is a tree-structured, versioned free-text node, optionally
// linked to one agent. The tree is formed via ParentID; each save bumps
// Version server-side.
type SpecDocument struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	Path          string `json:"path"`
	Version       int    `json:"version"`
	ParentID      string `json:"parent,omitempty"`
	LinkedAgentID string `json:"linked_agent,omitempty"`

	// Children is populated only by the tree endpoint.
	Children []SpecDocument `json:"children,omitempty"`
}

// SpecDocumentVersion is an immutable historical snapshot, read-only
// from the client.
type SpecDocumentVersion struct {
	ID        string    `json:"id"`
	Version   int       `json:"version"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ── Schema bundle ────────────────────────────────────────────

// Facet names one of the eight configuration facets of a schema bundle.
type Facet string

const (
	FacetVersion       Facet = "version"
	FacetTools         Facet = "tools"
	FacetDynamicTools  Facet = "dynamic_tools"
	FacetSubAgentTools Facet = "sub_agent_tools"
	FacetKnowledge     Facet = "knowledge"
	FacetRAGConfig     Facet = "rag_config"
	FacetMemoryConfig  Facet = "memory_config"
	FacetFunctions     Facet = "functions"
)

// Facets lists all facets in display order.
var Facets = []Facet{
	FacetVersion,
	FacetTools,
	FacetDynamicTools,
	FacetSubAgentTools,
	FacetKnowledge,
	FacetRAGConfig,
	FacetMemoryConfig,
	FacetFunctions,
}

// ReadOnly reports whether a facet can never be saved from the client.
// Functions are computed server-side from registered code.
func (f Facet) ReadOnly() bool { return f == FacetFunctions }

// Valid reports whether f names a known facet.
func (f Facet) Valid() bool {
	for _, known := range Facets {
		if f == known {
			return true
		}
	}
	return false
}

// SchemaBundle is the composite read/write view over one agent's full
// configuration, exchanged with GET/PUT /agents/{id}/full-schema/.
// Facet payloads are kept as raw JSON so editor buffers round-trip
// without reformatting.
type SchemaBundle struct {
	Version       json.RawMessage `json:"version,omitempty"`
	Tools         json.RawMessage `json:"tools,omitempty"`
	DynamicTools  json.RawMessage `json:"dynamic_tools,omitempty"`
	SubAgentTools json.RawMessage `json:"sub_agent_tools,omitempty"`
	Knowledge     json.RawMessage `json:"knowledge,omitempty"`
	RAGConfig     json.RawMessage `json:"rag_config,omitempty"`
	MemoryConfig  json.RawMessage `json:"memory_config,omitempty"`
	Functions     json.RawMessage `json:"functions,omitempty"`
}

// Get returns the raw payload for one facet.
func (b *SchemaBundle) Get(f Facet) json.RawMessage {
	switch f {
	case FacetVersion:
		return b.Version
	case FacetTools:
		return b.Tools
	case FacetDynamicTools:
		return b.DynamicTools
	case FacetSubAgentTools:
		return b.SubAgentTools
	case FacetKnowledge:
		return b.Knowledge
	case FacetRAGConfig:
		return b.RAGConfig
	case FacetMemoryConfig:
		return b.MemoryConfig
	case FacetFunctions:
		return b.Functions
	}
	return nil
}

// Set replaces the raw payload for one facet.
func (b *SchemaBundle) Set(f Facet, raw json.RawMessage) error {
	switch f {
	case FacetVersion:
		b.Version = raw
	case FacetTools:
		b.Tools = raw
	case FacetDynamicTools:
		b.DynamicTools = raw
	case FacetSubAgentTools:
		b.SubAgentTools = raw
	case FacetKnowledge:
		b.Knowledge = raw
	case FacetRAGConfig:
		b.RAGConfig = raw
	case FacetMemoryConfig:
		b.MemoryConfig = raw
	case FacetFunctions:
		b.Functions = raw
	default:
		return fmt.Errorf("unknown facet %q", f)
	}
	return nil
}

// ── Facet payload conventions ────────────────────────────────

// ToolMeta is the execution metadata carried in a tool entry's _meta field.
type ToolMeta struct {
	FunctionPath string `json:"function_path,omitempty"`
	ToolID       string `json:"tool_id,omitempty"`
	IsDynamic    bool   `json:"is_dynamic,omitempty"`
}

// ToolEntry is one entry in the tools facet: an OpenAI-format tool schema
// plus studio execution metadata.
type ToolEntry struct {
	Type     string          `json:"type"`
	Function json.RawMessage `json:"function"`
	Meta     *ToolMeta       `json:"_meta,omitempty"`
}

// RAGStatus is the indexing state of a RAG knowledge source.
type RAGStatus struct {
	Status string `json:"status"`
}

// KnowledgeEntry is one entry in the knowledge facet. InclusionMode is
// "always" (inlined into the prompt) or "rag" (retrieved on demand once
// indexing reports status "indexed").
type KnowledgeEntry struct {
	Name          string     `json:"name"`
	Content       string     `json:"content,omitempty"`
	InclusionMode string     `json:"inclusion_mode"`
	RAG           *RAGStatus `json:"rag,omitempty"`
}

// DecodeTools decodes the tools facet into typed entries.
func (b *SchemaBundle) DecodeTools() ([]ToolEntry, error) {
	if len(b.Tools) == 0 {
		return nil, nil
	}
	var tools []ToolEntry
	if err := json.Unmarshal(b.Tools, &tools); err != nil {
		return nil, fmt.Errorf("decode tools facet: %w", err)
	}
	return tools, nil
}

// DecodeKnowledge decodes the knowledge facet into typed entries.
func (b *SchemaBundle) DecodeKnowledge() ([]KnowledgeEntry, error) {
	if len(b.Knowledge) == 0 {
		return nil, nil
	}
	var entries []KnowledgeEntry
	if err := json.Unmarshal(b.Knowledge, &entries); err != nil {
		return nil, fmt.Errorf("decode knowledge facet: %w", err)
	}
	return entries, nil
}

// ── UI control events ────────────────────────────────────────

// UIControlAction tags an unsolicited control event from the builder widget.
type UIControlAction string

const (
	ActionSwitchAgent  UIControlAction = "switch_agent"
	ActionSwitchSystem UIControlAction = "switch_system"
	ActionRefreshSpec  UIControlAction = "refresh_spec"
	ActionRefreshTest  UIControlAction = "refresh_test"
)

// UIControlEvent is an asynchronous, unsolicited message from the builder
// widget instructing the console to change selection or refresh a view.
// Unrecognized actions are ignored without error.
type UIControlEvent struct {
	Action   UIControlAction `json:"action"`
	AgentID  string          `json:"agent_id,omitempty"`
	SystemID string          `json:"system_id,omitempty"`
	Payload  map[string]any  `json:"payload,omitempty"`
}
