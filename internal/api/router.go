package api

import (
	"encoding/json"
	"net/http"

	"github.com/agentstudio/agentstudio/console/internal/api/handlers"
	"github.com/agentstudio/agentstudio/console/internal/api/middleware"
	"github.com/agentstudio/agentstudio/console/internal/config"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates the HTTP router for the console surface.
func NewRouter(cfg *config.Config, h *handlers.Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Trace-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health & info
	r.Get("/health", healthHandler)
	r.Get("/version", versionHandler(cfg))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Console state & ingress
		r.Get("/state", h.GetState)
		r.Post("/ui-control", h.UIControl)

		// Selection
		r.Route("/selection", func(r chi.Router) {
			r.Post("/agent", h.SelectAgent)
			r.Post("/system", h.SelectSystem)
		})

		// Agents
		r.Route("/agents", func(r chi.Router) {
			r.Get("/", h.ListAgents)
			r.Post("/", h.CreateAgent)
			r.Route("/{agentID}", func(r chi.Router) {
				r.Delete("/", h.DeleteAgent)
			})
		})

		// Versions of the selected agent
		r.Route("/versions", func(r chi.Router) {
			r.Get("/", h.ListVersions)
			r.Post("/{versionID}/activate", h.ActivateVersion)
		})

		// Spec editor
		r.Route("/spec-editor", func(r chi.Router) {
			r.Get("/", h.GetSpecEditor)
			r.Put("/buffer", h.EditSpec)
			r.Post("/save", h.SaveSpec)
			r.Post("/reload", h.ReloadSpec)
		})

		// Schema editor
		r.Route("/schema-editor", func(r chi.Router) {
			r.Post("/save", h.SaveFullSchema)
			r.Post("/reload", h.ReloadSchema)
			r.Route("/facets/{facet}", func(r chi.Router) {
				r.Put("/buffer", h.EditFacet)
				r.Post("/save", h.SaveFacet)
			})
		})

		// Systems & the member graph
		r.Route("/systems", func(r chi.Router) {
			r.Get("/", h.ListSystems)
			r.Post("/", h.CreateSystem)
			r.Route("/{systemID}", func(r chi.Router) {
				r.Delete("/", h.DeleteSystem)
				r.Post("/toggle", h.ToggleSystem)
				r.Post("/publish", h.PublishSystem)
				r.Route("/members", func(r chi.Router) {
					r.Get("/", h.ListMembers)
					r.Post("/", h.AddMember)
					r.Patch("/{memberID}", h.UpdateMemberRole)
					r.Delete("/{memberID}", h.RemoveMember)
				})
			})
		})

		// Spec documents
		r.Route("/spec-documents", func(r chi.Router) {
			r.Get("/", h.ListDocuments)
			r.Post("/", h.CreateDocument)
			r.Get("/tree", h.DocumentTree)
			r.Get("/render", h.RenderDocument)
			r.Route("/{docID}", func(r chi.Router) {
				r.Patch("/", h.UpdateDocument)
				r.Delete("/", h.DeleteDocument)
				r.Get("/history", h.DocumentHistory)
			})
		})

		// Widgets
		r.Route("/widgets", func(r chi.Router) {
			r.Post("/test/refresh", h.RefreshTestWidget)
			r.Post("/test/auth-mode", h.SetTestAuthMode)
			r.Post("/builder/refresh", h.RefreshBuilderWidget)
		})
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "agentstudio-console",
	})
}

func versionHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"version": cfg.Version,
			"service": "agentstudio-console",
		})
	}
}
