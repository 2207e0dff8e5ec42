package editors

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/agentstudio/agentstudio/console/internal/repos"
	"github.com/agentstudio/agentstudio/console/pkg/models"
)

// ErrNotDirty is returned when Save is called on a clean buffer.
var ErrNotDirty = errors.New("buffer has no unsaved changes")

// SpecEditor maintains the editable spec buffer for the selected agent.
type SpecEditor struct {
	repo       *repos.SpecRepository
	savedDelay time.Duration

	mu         sync.Mutex
	agentID    string
	spec       models.AgentSpec
	buffer     string
	snapshot   string
	state      State
	err        string
	savedTimer *time.Timer
	generation int
}

// NewSpecEditor creates a spec editor. savedDelay controls how long the
// transient saved indicator stays visible.
func NewSpecEditor(repo *repos.SpecRepository, savedDelay time.Duration) *SpecEditor {
	return &SpecEditor{repo: repo, savedDelay: savedDelay, state: StateClean}
}

// LoadAgent resets the buffer and fetches the spec for a newly selected
// agent. The reset happens before the fetch so stale content from a
// previous agent is never visible, even transiently. An empty agentID
// leaves the editor empty.
func (e *SpecEditor) LoadAgent(ctx context.Context, agentID string) {
	e.mu.Lock()
	e.agentID = agentID
	e.spec = models.AgentSpec{}
	e.buffer = ""
	e.snapshot = ""
	e.state = StateClean
	e.err = ""
	e.generation++
	e.stopSavedTimerLocked()
	e.mu.Unlock()

	if agentID == "" {
		return
	}

	spec, err := e.repo.Get(ctx, agentID)
	if err != nil {
		log.Warn().Err(err).Str("agent", agentID).Msg("load spec failed")
		return
	}

	e.mu.Lock()
	// A newer LoadAgent may have superseded this fetch.
	if e.agentID == agentID {
		e.spec = spec
		e.buffer = spec.Content
		e.snapshot = spec.Content
	}
	e.mu.Unlock()
}

// Reload refetches the buffer from the backend, discarding unsaved edits.
func (e *SpecEditor) Reload(ctx context.Context) {
	e.mu.Lock()
	agentID := e.agentID
	e.mu.Unlock()
	e.LoadAgent(ctx, agentID)
}

// SetBuffer applies a local edit. The state becomes dirty only when the
// content differs from the last-saved snapshot.
func (e *SpecEditor) SetBuffer(content string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateSaving {
		// Edits during a save are applied; the save result updates the
		// snapshot, and the diff below decides the final state.
		e.buffer = content
		return
	}

	e.buffer = content
	e.stopSavedTimerLocked()
	if e.buffer == e.snapshot {
		e.state = StateClean
	} else {
		e.state = StateDirty
	}
	e.err = ""
}

// Save writes the buffer to the backend. Only reachable from dirty (or
// error, for a retry); on success the snapshot is updated and the saved
// indicator is shown, on failure the editor enters the error state with
// the buffer preserved.
func (e *SpecEditor) Save(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateDirty && e.state != StateError {
		e.mu.Unlock()
		return ErrNotDirty
	}
	agentID := e.agentID
	content := e.buffer
	e.state = StateSaving
	e.err = ""
	gen := e.generation
	e.mu.Unlock()

	spec, err := e.repo.Put(ctx, agentID, content)

	e.mu.Lock()
	defer e.mu.Unlock()

	// A LoadAgent that happened mid-save wins; drop the stale result.
	if e.generation != gen {
		return err
	}

	if err != nil {
		e.state = StateError
		e.err = err.Error()
		return err
	}

	e.spec = spec
	e.snapshot = content
	if e.buffer == e.snapshot {
		e.state = StateSaved
		e.startSavedTimerLocked()
	} else {
		// Edited while saving.
		e.state = StateDirty
	}
	return nil
}

// ── Accessors ────────────────────────────────────────────────

// Buffer returns the current buffer content.
func (e *SpecEditor) Buffer() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffer
}

// Dirty reports whether the buffer differs from the last-saved snapshot.
func (e *SpecEditor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffer != e.snapshot
}

// State returns the editor state.
func (e *SpecEditor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Err returns the last save error message, or "".
func (e *SpecEditor) Err() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Spec returns the last-loaded spec document.
func (e *SpecEditor) Spec() models.AgentSpec {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.spec
}

// AgentID returns the agent the buffer belongs to.
func (e *SpecEditor) AgentID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.agentID
}

// ── Saved indicator ──────────────────────────────────────────

func (e *SpecEditor) startSavedTimerLocked() {
	e.stopSavedTimerLocked()
	gen := e.generation
	e.savedTimer = time.AfterFunc(e.savedDelay, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.generation == gen && e.state == StateSaved {
			e.state = StateClean
		}
	})
}

func (e *SpecEditor) stopSavedTimerLocked() {
	if e.savedTimer != nil {
		e.savedTimer.Stop()
		e.savedTimer = nil
	}
}
