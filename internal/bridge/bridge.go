// Package bridge owns the lifecycle of the two embedded chat widgets:
// the test widget bound to the selected agent, and the builder widget
// bound to the studio's meta-agent. The bridge is the only component
// permitted to create or destroy widget instances.
//
// Recreating a widget is the expensive path and discards its in-flight
// conversation, so it is reserved for: no agent context (placeholder),
// an identity change not expressible as metadata, an explicit manual
// refresh, and test-widget auth-mode toggles. Builder navigation uses
// the cheap metadata-update path.
package bridge

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/agentstudio/agentstudio/console/internal/config"
	"github.com/agentstudio/agentstudio/console/internal/editors"
	"github.com/agentstudio/agentstudio/console/internal/repos"
	"github.com/agentstudio/agentstudio/console/internal/selection"
	"github.com/agentstudio/agentstudio/console/internal/widget"
	"github.com/agentstudio/agentstudio/console/pkg/models"
)

// Mount point container ids for the two widget slots.
const (
	testContainerID    = "test-widget-container"
	builderContainerID = "builder-widget-container"
)

// slot tracks one widget instance: absent (nil handle) or active.
type slot struct {
	handle     widget.Handle
	instanceID string
	agentKey   string
}

func (s *slot) destroy() {
	if s.handle != nil {
		s.handle.Destroy()
		s.handle = nil
		s.instanceID = ""
		s.agentKey = ""
	}
}

// Bridge manages the test and builder widget slots and interprets the
// inbound UI-control protocol from the builder widget.
type Bridge struct {
	factory widget.Factory
	cfg     config.WidgetConfig

	sel    *selection.Store
	agents *repos.AgentRepository
	spec   *editors.SpecEditor

	// onSystemSwitch forwards switch_system events to the consuming
	// surface; the bridge performs no local state change for them.
	onSystemSwitch func(systemID string)

	mu            sync.Mutex
	test          slot
	builder       slot
	testAnonymous bool
}

// New creates a widget bridge.
func New(
	factory widget.Factory,
	cfg config.WidgetConfig,
	sel *selection.Store,
	agents *repos.AgentRepository,
	spec *editors.SpecEditor,
) *Bridge {
	return &Bridge{
		factory: factory,
		cfg:     cfg,
		sel:     sel,
		agents:  agents,
		spec:    spec,
	}
}

// OnSystemSwitch registers the external listener for switch_system events.
func (b *Bridge) OnSystemSwitch(fn func(systemID string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onSystemSwitch = fn
}

// ── Test widget ──────────────────────────────────────────────

// SyncTest reconciles the test widget with the current selection. With no
// agent selected the slot is torn down and the mount point shows a
// placeholder. A changed agent identity cannot be patched into the test
// widget (its agent key is instantiation-time config), so it recreates.
func (b *Bridge) SyncTest(ctx context.Context) {
	agent, ok := b.agents.Get(b.sel.AgentID())
	if !ok || agent.Slug == "" {
		b.mu.Lock()
		b.test.destroy()
		b.mu.Unlock()
		return
	}

	b.mu.Lock()
	if b.test.handle != nil && b.test.agentKey == agent.Slug {
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	b.recreateTest(ctx, agent)
}

// RefreshTest forces the expensive recreate path on the test widget only.
// Without an agent context (no selection, or a selected agent with no
// slug yet) the slot is torn down, same as SyncTest.
func (b *Bridge) RefreshTest(ctx context.Context) {
	agent, ok := b.agents.Get(b.sel.AgentID())
	if !ok || agent.Slug == "" {
		b.mu.Lock()
		b.test.destroy()
		b.mu.Unlock()
		return
	}
	b.recreateTest(ctx, agent)
}

// SetTestAuthMode toggles the test widget between session and anonymous
// authentication. A changed mode always recreates the test widget — its
// auth configuration changes entirely — and leaves the builder untouched.
func (b *Bridge) SetTestAuthMode(ctx context.Context, anonymous bool) {
	b.mu.Lock()
	if b.testAnonymous == anonymous {
		b.mu.Unlock()
		return
	}
	b.testAnonymous = anonymous
	b.mu.Unlock()

	b.RefreshTest(ctx)
}

// TestAnonymous reports the test widget's auth mode.
func (b *Bridge) TestAnonymous() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.testAnonymous
}

func (b *Bridge) recreateTest(ctx context.Context, agent models.Agent) {
	b.mu.Lock()
	b.test.destroy()
	anonymous := b.testAnonymous
	b.mu.Unlock()

	cfg := widget.Config{
		ContainerID:       testContainerID,
		BackendURL:        b.cfg.BackendURL,
		AgentKey:          agent.Slug,
		Title:             b.cfg.TestTitle,
		PrimaryColor:      b.cfg.PrimaryColor,
		ShowClearButton:   true,
		ShowDebugButton:   true,
		ShowExpandButton:  true,
		ShowModelSelector: true,
		Embedded:          true,
		AuthStrategy:      widget.AuthSession,
		APIPaths: widget.APIPaths{
			Runs:      "/api/agent-runs/",
			RunEvents: "/api/agent-runs/%s/events/",
			Models:    "/api/models/",
		},
		Metadata: map[string]any{"agent_id": agent.ID},
	}
	if anonymous {
		cfg.AuthStrategy = widget.AuthAnonymous
		cfg.AnonymousSessionEndpoint = b.cfg.AnonymousSessionEndpoint
	}

	handle, err := b.factory.CreateInstance(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Str("agent", agent.ID).Msg("create test widget failed")
		return
	}

	b.mu.Lock()
	b.test.handle = handle
	b.test.instanceID = uuid.New().String()
	b.test.agentKey = agent.Slug
	b.mu.Unlock()

	log.Debug().Str("agent", agent.Slug).Bool("anonymous", anonymous).Msg("test widget created")
}

// ── Builder widget ───────────────────────────────────────────

// SyncBuilder reconciles the builder widget with the current selection.
// The builder is created once against the studio's meta-agent; normal
// navigation only patches its bound agent id via metadata, preserving the
// in-progress builder conversation.
func (b *Bridge) SyncBuilder(ctx context.Context) {
	agentID := b.sel.AgentID()

	b.mu.Lock()
	handle := b.builder.handle
	b.mu.Unlock()

	if handle != nil {
		if err := handle.UpdateMetadata(map[string]any{"agent_id": agentID}); err != nil {
			log.Warn().Err(err).Msg("builder metadata update failed")
		}
		return
	}

	b.recreateBuilder(ctx, agentID)
}

// RefreshBuilder forces the expensive recreate path on the builder widget
// (operator-requested manual refresh only).
func (b *Bridge) RefreshBuilder(ctx context.Context) {
	b.recreateBuilder(ctx, b.sel.AgentID())
}

func (b *Bridge) recreateBuilder(ctx context.Context, agentID string) {
	b.mu.Lock()
	b.builder.destroy()
	b.mu.Unlock()

	cfg := widget.Config{
		ContainerID:     builderContainerID,
		BackendURL:      b.cfg.BackendURL,
		AgentKey:        b.cfg.BuilderAgentKey,
		Title:           b.cfg.BuilderTitle,
		PrimaryColor:    b.cfg.PrimaryColor,
		ShowClearButton: true,
		Embedded:        true,
		AuthStrategy:    widget.AuthSession,
		APIPaths: widget.APIPaths{
			Runs:      "/api/agent-runs/",
			RunEvents: "/api/agent-runs/%s/events/",
			Models:    "/api/models/",
		},
		Metadata:    map[string]any{"agent_id": agentID},
		OnUIControl: b.handleEvent,
	}

	handle, err := b.factory.CreateInstance(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("create builder widget failed")
		return
	}

	b.mu.Lock()
	b.builder.handle = handle
	b.builder.instanceID = uuid.New().String()
	b.builder.agentKey = b.cfg.BuilderAgentKey
	b.mu.Unlock()

	log.Debug().Str("agent_key", b.cfg.BuilderAgentKey).Msg("builder widget created")
}

// ── Lifecycle ────────────────────────────────────────────────

// Init creates both widgets for the current selection.
func (b *Bridge) Init(ctx context.Context) {
	b.SyncTest(ctx)
	b.SyncBuilder(ctx)
}

// DestroyAll tears down both widget slots.
func (b *Bridge) DestroyAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.test.destroy()
	b.builder.destroy()
}

// TestActive reports whether the test slot holds a live instance.
func (b *Bridge) TestActive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.test.handle != nil
}

// BuilderActive reports whether the builder slot holds a live instance.
func (b *Bridge) BuilderActive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.builder.handle != nil
}

func (b *Bridge) handleEvent(evt models.UIControlEvent) {
	b.HandleUIControl(context.Background(), evt)
}

// ── Inbound protocol ─────────────────────────────────────────

// HandleUIControl interprets one unsolicited control event from the
// builder widget. Events may arrive at any time; the bridge does not
// serialize against other components' in-flight operations. Unrecognized
// actions are ignored without error.
func (b *Bridge) HandleUIControl(ctx context.Context, evt models.UIControlEvent) {
	log.Debug().Str("action", string(evt.Action)).Msg("ui control event")

	switch evt.Action {
	case models.ActionSwitchAgent:
		b.switchAgent(ctx, evt.AgentID)

	case models.ActionSwitchSystem:
		b.mu.Lock()
		fn := b.onSystemSwitch
		b.mu.Unlock()
		if fn != nil {
			fn(evt.SystemID)
		}

	case models.ActionRefreshSpec:
		// Discards unsaved local edits.
		b.spec.Reload(ctx)

	case models.ActionRefreshTest:
		b.RefreshTest(ctx)

	default:
		log.Debug().Str("action", string(evt.Action)).Msg("ignoring unrecognized ui control action")
	}
}

// switchAgent routes a builder-initiated agent switch: reload the agent
// cache when the target is unknown, funnel the selection through the
// selection store (whose subscribers refresh the version repository and
// the spec editor), patch the builder's metadata — never recreate it for
// this action — and recreate the test widget for the new agent.
func (b *Bridge) switchAgent(ctx context.Context, agentID string) {
	if agentID == "" {
		return
	}

	if _, ok := b.agents.Get(agentID); !ok {
		b.agents.Load(ctx)
	}
	if _, ok := b.agents.Get(agentID); !ok {
		log.Warn().Str("agent", agentID).Msg("switch_agent target not found after reload")
		return
	}

	b.sel.SelectAgent(agentID)
	b.SyncBuilder(ctx)
	b.SyncTest(ctx)
}
