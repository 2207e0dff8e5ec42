// Package console wires every studio component into one explicit
// application context: selection store, repositories, editors, graph
// manager, and widget bridge. No component lives in a package-level
// singleton, so tests construct isolated consoles freely.
package console

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/agentstudio/agentstudio/console/internal/backend"
	"github.com/agentstudio/agentstudio/console/internal/bridge"
	"github.com/agentstudio/agentstudio/console/internal/config"
	"github.com/agentstudio/agentstudio/console/internal/editors"
	"github.com/agentstudio/agentstudio/console/internal/graph"
	"github.com/agentstudio/agentstudio/console/internal/repos"
	"github.com/agentstudio/agentstudio/console/internal/selection"
	"github.com/agentstudio/agentstudio/console/internal/widget"
)

// Console is the studio's client-side orchestration core.
type Console struct {
	cfg    *config.Config
	client *backend.Client

	Selection *selection.Store
	Agents    *repos.AgentRepository
	Versions  *repos.VersionRepository
	Systems   *repos.SystemRepository
	Specs     *repos.SpecRepository
	Schemas   *repos.SchemaRepository
	Documents *repos.DocumentRepository

	SpecEditor   *editors.SpecEditor
	SchemaEditor *editors.SchemaEditor
	Graph        *graph.Manager
	Bridge       *bridge.Bridge
}

// New builds a console over the given widget factory and navigator.
func New(cfg *config.Config, factory widget.Factory, nav selection.Navigator) *Console {
	client := backend.New(cfg.Backend)

	sel := selection.New(nav)
	agents := repos.NewAgentRepository(client)
	versions := repos.NewVersionRepository(client, sel)
	systems := repos.NewSystemRepository(client)
	specs := repos.NewSpecRepository(client)
	schemas := repos.NewSchemaRepository(client)
	documents := repos.NewDocumentRepository(client)

	savedDelay := cfg.Widgets.SavedIndicator()
	specEditor := editors.NewSpecEditor(specs, savedDelay)
	schemaEditor := editors.NewSchemaEditor(schemas, savedDelay)

	c := &Console{
		cfg:          cfg,
		client:       client,
		Selection:    sel,
		Agents:       agents,
		Versions:     versions,
		Systems:      systems,
		Specs:        specs,
		Schemas:      schemas,
		Documents:    documents,
		SpecEditor:   specEditor,
		SchemaEditor: schemaEditor,
		Graph:        graph.NewManager(systems),
		Bridge:       bridge.New(factory, cfg.Widgets, sel, agents, specEditor),
	}

	// switch_system control events funnel into system selection like any
	// user click on the graph.
	c.Bridge.OnSystemSwitch(func(systemID string) {
		c.SelectSystem(context.Background(), systemID)
	})

	// Repositories and editors observe the selection funnel: every agent
	// change — user action or builder widget event — refreshes the version
	// collection and both editors. In-flight loads for a superseded
	// selection are not cancelled; a stale response is applied as-is to
	// whatever it targets, matching the studio's accepted race.
	sel.Subscribe(func(change selection.Change) {
		if change.Field != selection.FieldAgent {
			return
		}
		ctx := context.Background()
		c.Versions.Load(ctx, change.Current)
		c.SpecEditor.LoadAgent(ctx, change.Current)
		c.SchemaEditor.LoadAgent(ctx, change.Current)
	})

	return c
}

// Client exposes the shared backend client.
func (c *Console) Client() *backend.Client { return c.client }

// Bootstrap performs the initial data load — agents and systems are
// independent and loaded in parallel, as is the document tree — and then
// schedules widget initialization after a short fixed delay so the host
// layout can stabilize before mount points are measured. Load failures
// are not fatal: the console starts with empty caches and recovers on
// the next successful load.
func (c *Console) Bootstrap(ctx context.Context) error {
	// No shared cancellation: each load stands alone, so one endpoint
	// being down must not abort the siblings still in flight.
	var g errgroup.Group
	g.Go(func() error { return c.Agents.Load(ctx) })
	g.Go(func() error { return c.Systems.Load(ctx) })
	g.Go(func() error {
		if err := c.Documents.Load(ctx); err != nil {
			return err
		}
		return c.Documents.LoadTree(ctx)
	})
	err := g.Wait()
	if err != nil {
		log.Warn().Err(err).Msg("bootstrap load incomplete, continuing with cached state")
	}

	delay := c.cfg.Widgets.InitDelay()
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		c.Bridge.Init(ctx)
	}()

	return err
}

// SelectAgent funnels a user-initiated agent selection through the
// selection store and reconciles both widgets with the new selection.
func (c *Console) SelectAgent(ctx context.Context, agentID string) {
	c.Selection.SelectAgent(agentID)
	c.Bridge.SyncBuilder(ctx)
	c.Bridge.SyncTest(ctx)
}

// SelectSystem funnels a user-initiated system selection.
func (c *Console) SelectSystem(ctx context.Context, systemID string) {
	c.Selection.SelectSystem(systemID)
	if systemID != "" && c.Graph.Expanded() != systemID {
		c.Graph.Toggle(ctx, systemID)
	}
}

// DeleteAgent removes an agent. Deleting the currently selected agent
// transitions the selection back to unselected and cascades a reload of
// every dependent view. Surfaces must confirm with the user first.
func (c *Console) DeleteAgent(ctx context.Context, agentID string) error {
	if err := c.Agents.Delete(ctx, agentID); err != nil {
		return err
	}
	if c.Selection.AgentID() == agentID {
		c.SelectAgent(ctx, "")
	}
	return nil
}

// DeleteSystem removes a system, evicting its member cache and clearing
// its selection when it was selected. Surfaces must confirm first.
func (c *Console) DeleteSystem(ctx context.Context, systemID string) error {
	if err := c.Systems.Delete(ctx, systemID); err != nil {
		return err
	}
	c.Graph.Evict(systemID)
	if c.Selection.SystemID() == systemID {
		c.Selection.SelectSystem("")
	}
	return nil
}

// Shutdown tears down both widgets.
func (c *Console) Shutdown() {
	c.Bridge.DestroyAll()
}
