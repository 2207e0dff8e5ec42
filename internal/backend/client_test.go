package backend_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agentstudio/agentstudio/console/internal/backend"
	"github.com/agentstudio/agentstudio/console/internal/config"
	"github.com/agentstudio/agentstudio/console/pkg/models"
)

func newTestClient(t *testing.T, handler http.Handler) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return backend.New(config.BackendConfig{
		BaseURL:   srv.URL,
		CSRFToken: "fallback-token",
	})
}

func TestGetDecodesJSON(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/agents/a1/" {
			t.Errorf("path = %q, want /agents/a1/", r.URL.Path)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q, want application/json", got)
		}
		w.Write([]byte(`{"id":"a1","name":"Support Bot","slug":"support-bot"}`))
	}))

	var agent models.Agent
	if err := c.Get(context.Background(), "/agents/a1/", &agent); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if agent.Name != "Support Bot" {
		t.Errorf("agent.Name = %q, want %q", agent.Name, "Support Bot")
	}
}

func TestMutatingRequestsCarryCSRFToken(t *testing.T) {
	var gotToken string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-CSRFToken")
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := c.Post(context.Background(), "/agents/", map[string]string{"name": "x"}, nil); err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if gotToken != "fallback-token" {
		t.Errorf("X-CSRFToken = %q, want fallback-token", gotToken)
	}
}

func TestCSRFCookieWinsOverFallback(t *testing.T) {
	var postToken string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "cookie-token", Path: "/"})
			w.Write([]byte(`{}`))
		default:
			postToken = r.Header.Get("X-CSRFToken")
			w.WriteHeader(http.StatusNoContent)
		}
	}))

	var out map[string]any
	if err := c.Get(context.Background(), "/bootstrap/", &out); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if err := c.Post(context.Background(), "/agents/", nil, nil); err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if postToken != "cookie-token" {
		t.Errorf("X-CSRFToken = %q, want cookie-token", postToken)
	}
}

func TestGetDoesNotCarryCSRFToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-CSRFToken"); got != "" {
			t.Errorf("GET carried X-CSRFToken = %q, want empty", got)
		}
		w.Write([]byte(`[]`))
	}))

	var out []models.Agent
	if err := c.Get(context.Background(), "/agents/", &out); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
}

func TestErrorMappingExtractsDetail(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"agent not found"}`))
	}))

	err := c.Get(context.Background(), "/agents/missing/", nil)
	if err == nil {
		t.Fatal("Get() error = nil, want APIError")
	}

	var apiErr *backend.APIError
	if !backend.AsAPIError(err, &apiErr) {
		t.Fatalf("error %v is not an APIError", err)
	}
	if apiErr.Status != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", apiErr.Status)
	}
	if apiErr.Detail != "agent not found" {
		t.Errorf("Detail = %q, want %q", apiErr.Detail, "agent not found")
	}
	if !backend.IsNotFound(err) {
		t.Error("IsNotFound() = false, want true")
	}
}

func TestErrorMappingFallsBackToStatusText(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`not json`))
	}))

	err := c.Get(context.Background(), "/agents/", nil)
	var apiErr *backend.APIError
	if !backend.AsAPIError(err, &apiErr) {
		t.Fatalf("error %v is not an APIError", err)
	}
	if apiErr.Detail != "Internal Server Error" {
		t.Errorf("Detail = %q, want status text", apiErr.Detail)
	}
}

func TestNoContentSuccess(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := c.Delete(context.Background(), "/agents/a1/"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}

func TestGetRetriesTransientFailures(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := backend.New(config.BackendConfig{
		BaseURL:             srv.URL,
		MaxRetryElapsedSecs: 10,
	})

	var out []models.Agent
	if err := c.Get(context.Background(), "/agents/", &out); err != nil {
		t.Fatalf("Get() error = %v after %d calls", err, calls)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := backend.New(config.BackendConfig{
		BaseURL:             srv.URL,
		MaxRetryElapsedSecs: 10,
	})

	if err := c.Get(context.Background(), "/agents/missing/", nil); err == nil {
		t.Fatal("Get() error = nil, want APIError")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (4xx is permanent)", calls)
	}
}

func TestDecodeCollectionBareArray(t *testing.T) {
	items, err := backend.DecodeCollection[models.Agent]([]byte(`[{"id":"a1"},{"id":"a2"}]`))
	if err != nil {
		t.Fatalf("DecodeCollection() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[1].ID != "a2" {
		t.Errorf("items[1].ID = %q, want a2", items[1].ID)
	}
}

func TestDecodeCollectionEnvelope(t *testing.T) {
	items, err := backend.DecodeCollection[models.Agent]([]byte(`{"count":1,"results":[{"id":"a1"}]}`))
	if err != nil {
		t.Fatalf("DecodeCollection() error = %v", err)
	}
	if len(items) != 1 || items[0].ID != "a1" {
		t.Errorf("items = %v, want one agent a1", items)
	}
}
