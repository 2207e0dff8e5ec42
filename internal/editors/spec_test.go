package editors_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agentstudio/agentstudio/console/internal/backend"
	"github.com/agentstudio/agentstudio/console/internal/config"
	"github.com/agentstudio/agentstudio/console/internal/editors"
	"github.com/agentstudio/agentstudio/console/internal/repos"
)

// specBackend fakes /agents/{id}/spec/ with per-agent content.
type specBackend struct {
	mu      sync.Mutex
	content map[string]string
	version map[string]int
	failPut bool
	puts    int
	srv     *httptest.Server
}

func newSpecBackend(t *testing.T) *specBackend {
	t.Helper()
	b := &specBackend{
		content: map[string]string{},
		version: map[string]int{},
	}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agentID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/agents/"), "/spec/")

		b.mu.Lock()
		defer b.mu.Unlock()

		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{
				"id":              "spec-" + agentID,
				"content":         b.content[agentID],
				"current_version": b.version[agentID],
				"has_spec":        b.content[agentID] != "",
			})
		case http.MethodPut:
			b.puts++
			if b.failPut {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"detail":"save rejected"}`))
				return
			}
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			b.content[agentID] = body["content"]
			b.version[agentID]++
			json.NewEncoder(w).Encode(map[string]any{
				"id":              "spec-" + agentID,
				"content":         b.content[agentID],
				"current_version": b.version[agentID],
				"has_spec":        true,
			})
		}
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *specBackend) set(agentID, content string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.content[agentID] = content
	b.version[agentID] = 1
}

func newSpecEditor(t *testing.T, b *specBackend, savedDelay time.Duration) *editors.SpecEditor {
	t.Helper()
	client := backend.New(config.BackendConfig{BaseURL: b.srv.URL})
	return editors.NewSpecEditor(repos.NewSpecRepository(client), savedDelay)
}

func TestLoadAgentFillsBufferClean(t *testing.T) {
	b := newSpecBackend(t)
	b.set("a1", "# Agent One")
	e := newSpecEditor(t, b, time.Second)

	e.LoadAgent(context.Background(), "a1")

	if got := e.Buffer(); got != "# Agent One" {
		t.Errorf("Buffer() = %q, want loaded content", got)
	}
	if e.Dirty() {
		t.Error("Dirty() = true after load, want false")
	}
	if got := e.State(); got != editors.StateClean {
		t.Errorf("State() = %v, want clean", got)
	}
}

func TestEditThenRevertIsClean(t *testing.T) {
	b := newSpecBackend(t)
	b.set("a1", "original")
	e := newSpecEditor(t, b, time.Second)
	e.LoadAgent(context.Background(), "a1")

	e.SetBuffer("edited")
	if !e.Dirty() {
		t.Fatal("Dirty() = false after edit, want true")
	}

	e.SetBuffer("original")
	if e.Dirty() {
		t.Error("Dirty() = true after reverting to snapshot, want false")
	}
	if got := e.State(); got != editors.StateClean {
		t.Errorf("State() = %v, want clean", got)
	}
}

func TestSaveWritesContentAndShowsIndicator(t *testing.T) {
	b := newSpecBackend(t)
	b.set("a1", "original")
	e := newSpecEditor(t, b, 50*time.Millisecond)
	e.LoadAgent(context.Background(), "a1")

	e.SetBuffer("updated")
	if err := e.Save(context.Background()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if got := e.State(); got != editors.StateSaved {
		t.Errorf("State() = %v immediately after save, want saved", got)
	}
	if e.Dirty() {
		t.Error("Dirty() = true after save, want false")
	}
	if got := e.Spec().CurrentVersion; got != 2 {
		t.Errorf("CurrentVersion = %d, want 2 (bumped on save)", got)
	}

	// The indicator clears on its own.
	deadline := time.Now().Add(2 * time.Second)
	for e.State() != editors.StateClean {
		if time.Now().After(deadline) {
			t.Fatalf("State() = %v, saved indicator never cleared", e.State())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSaveCleanBufferIsRejected(t *testing.T) {
	b := newSpecBackend(t)
	b.set("a1", "original")
	e := newSpecEditor(t, b, time.Second)
	e.LoadAgent(context.Background(), "a1")

	if err := e.Save(context.Background()); err != editors.ErrNotDirty {
		t.Errorf("Save() error = %v, want ErrNotDirty", err)
	}
	if b.puts != 0 {
		t.Errorf("puts = %d, want 0", b.puts)
	}
}

func TestSaveFailureEntersErrorState(t *testing.T) {
	b := newSpecBackend(t)
	b.set("a1", "original")
	e := newSpecEditor(t, b, time.Second)
	e.LoadAgent(context.Background(), "a1")

	e.SetBuffer("updated")
	b.failPut = true

	if err := e.Save(context.Background()); err == nil {
		t.Fatal("Save() error = nil, want failure")
	}
	if !e.Dirty() {
		t.Error("Dirty() = false after failed save, want true")
	}
	if got := e.State(); got != editors.StateError {
		t.Errorf("State() = %v, want error", got)
	}
	if got := e.Err(); got != "save rejected" {
		t.Errorf("Err() = %q, want backend detail", got)
	}
	if got := e.Buffer(); got != "updated" {
		t.Errorf("Buffer() = %q, edits were lost on failed save", got)
	}

	// A retry from the error state reaches the backend again.
	b.failPut = false
	if err := e.Save(context.Background()); err != nil {
		t.Fatalf("Save() retry error = %v", err)
	}
	if got := e.State(); got != editors.StateSaved {
		t.Errorf("State() = %v after retry, want saved", got)
	}
	if got := e.Err(); got != "" {
		t.Errorf("Err() = %q after retry, want cleared", got)
	}
}

func TestLoadAgentResetsDirtyBuffer(t *testing.T) {
	b := newSpecBackend(t)
	b.set("a1", "one")
	b.set("a2", "two")
	e := newSpecEditor(t, b, time.Second)

	e.LoadAgent(context.Background(), "a1")
	e.SetBuffer("unsaved edits")

	e.LoadAgent(context.Background(), "a2")

	if got := e.Buffer(); got != "two" {
		t.Errorf("Buffer() = %q, want a2 content", got)
	}
	if e.Dirty() {
		t.Error("Dirty() = true after agent switch, want false")
	}
	if got := e.AgentID(); got != "a2" {
		t.Errorf("AgentID() = %q, want a2", got)
	}
}

func TestReloadDiscardsEdits(t *testing.T) {
	b := newSpecBackend(t)
	b.set("a1", "server content")
	e := newSpecEditor(t, b, time.Second)
	e.LoadAgent(context.Background(), "a1")

	e.SetBuffer("local edits")
	e.Reload(context.Background())

	if got := e.Buffer(); got != "server content" {
		t.Errorf("Buffer() = %q, want server content after reload", got)
	}
	if e.Dirty() {
		t.Error("Dirty() = true after reload, want false")
	}
}

func TestLoadAgentEmptyLeavesEditorEmpty(t *testing.T) {
	b := newSpecBackend(t)
	b.set("a1", "content")
	e := newSpecEditor(t, b, time.Second)
	e.LoadAgent(context.Background(), "a1")

	e.LoadAgent(context.Background(), "")

	if got := e.Buffer(); got != "" {
		t.Errorf("Buffer() = %q, want empty", got)
	}
	if got := e.AgentID(); got != "" {
		t.Errorf("AgentID() = %q, want empty", got)
	}
}
