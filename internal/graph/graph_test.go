package graph_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/agentstudio/agentstudio/console/internal/backend"
	"github.com/agentstudio/agentstudio/console/internal/config"
	"github.com/agentstudio/agentstudio/console/internal/graph"
	"github.com/agentstudio/agentstudio/console/internal/repos"
	"github.com/agentstudio/agentstudio/console/pkg/models"
)

// membersBackend fakes the /systems/{id}/members/ sub-collection.
type membersBackend struct {
	mu      sync.Mutex
	members map[string][]models.SystemMember
	fetches map[string]int
	srv     *httptest.Server
}

func newMembersBackend(t *testing.T) *membersBackend {
	t.Helper()
	b := &membersBackend{
		members: map[string][]models.SystemMember{},
		fetches: map[string]int{},
	}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		// systems/{id}/members[/{memberID}]
		if len(parts) < 3 || parts[0] != "systems" || parts[2] != "members" {
			http.NotFound(w, r)
			return
		}
		systemID := parts[1]

		b.mu.Lock()
		defer b.mu.Unlock()

		switch r.Method {
		case http.MethodGet:
			b.fetches[systemID]++
			json.NewEncoder(w).Encode(b.members[systemID])
		case http.MethodPost:
			var body struct {
				Agent string            `json:"agent"`
				Role  models.MemberRole `json:"role"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			b.members[systemID] = append(b.members[systemID], models.SystemMember{
				ID:      "m" + body.Agent,
				AgentID: body.Agent,
				Role:    body.Role,
			})
			w.WriteHeader(http.StatusCreated)
		case http.MethodPatch:
			memberID := parts[3]
			var body struct {
				Role models.MemberRole `json:"role"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			for i := range b.members[systemID] {
				if b.members[systemID][i].ID == memberID {
					b.members[systemID][i].Role = body.Role
				}
			}
			w.WriteHeader(http.StatusNoContent)
		case http.MethodDelete:
			memberID := parts[3]
			kept := b.members[systemID][:0]
			for _, m := range b.members[systemID] {
				if m.ID != memberID {
					kept = append(kept, m)
				}
			}
			b.members[systemID] = kept
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *membersBackend) seed(systemID string, members ...models.SystemMember) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.members[systemID] = members
}

func (b *membersBackend) fetchCount(systemID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fetches[systemID]
}

func newManager(t *testing.T, b *membersBackend) *graph.Manager {
	t.Helper()
	client := backend.New(config.BackendConfig{BaseURL: b.srv.URL})
	return graph.NewManager(repos.NewSystemRepository(client))
}

func TestToggleExpandsAndFetchesMembers(t *testing.T) {
	b := newMembersBackend(t)
	b.seed("sys1", models.SystemMember{ID: "m1", AgentID: "a1", Role: models.RoleSupervisor})
	m := newManager(t, b)

	m.Toggle(context.Background(), "sys1")

	if got := m.Expanded(); got != "sys1" {
		t.Errorf("Expanded() = %q, want sys1", got)
	}
	members := m.Members("sys1")
	if len(members) != 1 || members[0].AgentID != "a1" {
		t.Errorf("Members(sys1) = %v, want one member a1", members)
	}
}

func TestToggleSameSystemCollapses(t *testing.T) {
	b := newMembersBackend(t)
	b.seed("sys1")
	m := newManager(t, b)

	m.Toggle(context.Background(), "sys1")
	m.Toggle(context.Background(), "sys1")

	if got := m.Expanded(); got != "" {
		t.Errorf("Expanded() = %q after second toggle, want empty", got)
	}
}

func TestExpandingAnotherCollapsesFirst(t *testing.T) {
	b := newMembersBackend(t)
	b.seed("sys1")
	b.seed("sys2")
	m := newManager(t, b)

	m.Toggle(context.Background(), "sys1")
	m.Toggle(context.Background(), "sys2")

	if got := m.Expanded(); got != "sys2" {
		t.Errorf("Expanded() = %q, want sys2 (single-expand)", got)
	}
}

func TestCollapseKeepsCacheReExpandIsFree(t *testing.T) {
	b := newMembersBackend(t)
	b.seed("sys1", models.SystemMember{ID: "m1", AgentID: "a1", Role: models.RoleSpecialist})
	m := newManager(t, b)

	m.Toggle(context.Background(), "sys1")
	m.Toggle(context.Background(), "sys1") // collapse
	m.Toggle(context.Background(), "sys1") // re-expand

	if got := b.fetchCount("sys1"); got != 1 {
		t.Errorf("member fetches = %d, want 1 (cache reused on re-expand)", got)
	}
	if got := len(m.Members("sys1")); got != 1 {
		t.Errorf("len(Members) = %d, want cached 1", got)
	}
}

func TestMutationsRefetchMembers(t *testing.T) {
	b := newMembersBackend(t)
	b.seed("sys1", models.SystemMember{ID: "m1", AgentID: "a1", Role: models.RoleSpecialist})
	m := newManager(t, b)
	ctx := context.Background()

	m.Toggle(ctx, "sys1")

	if err := m.AddMember(ctx, "sys1", "a2", models.RoleUtility); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}
	if got := len(m.Members("sys1")); got != 2 {
		t.Errorf("len(Members) = %d after add, want 2", got)
	}

	if err := m.UpdateMemberRole(ctx, "sys1", "ma2", models.RoleSupervisor); err != nil {
		t.Fatalf("UpdateMemberRole() error = %v", err)
	}
	members := m.Members("sys1")
	var updated bool
	for _, mem := range members {
		if mem.ID == "ma2" && mem.Role == models.RoleSupervisor {
			updated = true
		}
	}
	if !updated {
		t.Errorf("Members = %v, role change not reflected after refetch", members)
	}

	if err := m.RemoveMember(ctx, "sys1", "ma2"); err != nil {
		t.Fatalf("RemoveMember() error = %v", err)
	}
	if got := len(m.Members("sys1")); got != 1 {
		t.Errorf("len(Members) = %d after remove, want 1", got)
	}

	if got := b.fetchCount("sys1"); got != 4 {
		t.Errorf("member fetches = %d, want 4 (initial + one per mutation)", got)
	}
}

func TestEvictDropsCacheAndCollapses(t *testing.T) {
	b := newMembersBackend(t)
	b.seed("sys1", models.SystemMember{ID: "m1", AgentID: "a1"})
	m := newManager(t, b)

	m.Toggle(context.Background(), "sys1")
	m.Evict("sys1")

	if got := m.Expanded(); got != "" {
		t.Errorf("Expanded() = %q after evict, want empty", got)
	}
	if got := len(m.Members("sys1")); got != 0 {
		t.Errorf("len(Members) = %d after evict, want 0", got)
	}
}
