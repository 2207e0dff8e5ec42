// Package server provides the public entry point for initializing the
// studio console.
//
// This package exists in pkg/ (not internal/) so that hosting shells can
// import it and compose the console with their own widget factory or
// navigator.
//
// Usage:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":8090", srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/agentstudio/agentstudio/console/internal/api"
	"github.com/agentstudio/agentstudio/console/internal/api/handlers"
	"github.com/agentstudio/agentstudio/console/internal/config"
	"github.com/agentstudio/agentstudio/console/internal/console"
	"github.com/agentstudio/agentstudio/console/internal/selection"
	"github.com/agentstudio/agentstudio/console/internal/telemetry"
	"github.com/agentstudio/agentstudio/console/internal/widget"

	"github.com/rs/zerolog/log"
)

// Options overrides the pieces a hosting shell may want to supply.
type Options struct {
	// Config replaces the environment-derived configuration.
	Config *config.Config

	// Factory replaces the in-process widget host.
	Factory widget.Factory

	// Navigator receives route changes from the selection store. The
	// default logs them.
	Navigator selection.Navigator
}

// Server holds the initialized console.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Console is the orchestration core, exposed for hosting shells.
	Console *console.Console

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes the console from environment configuration.
func New(ctx context.Context) (*Server, error) {
	return NewWithOptions(ctx, Options{})
}

// NewWithOptions initializes the console with explicit overrides.
func NewWithOptions(ctx context.Context, opts Options) (*Server, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Load()
	}

	shutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	factory := opts.Factory
	if factory == nil {
		factory = widget.NewHostFactory()
	}

	nav := opts.Navigator
	if nav == nil {
		nav = selection.NavigatorFunc(func(path string) {
			log.Info().Str("path", path).Msg("route changed")
		})
	}

	c := console.New(cfg, factory, nav)
	log.Info().Str("backend", cfg.Backend.BaseURL).Msg("console initialized")

	if err := c.Bootstrap(ctx); err != nil {
		log.Warn().Err(err).Msg("bootstrap completed with errors")
	}

	h := handlers.New(c, cfg.Version)
	router := api.NewRouter(cfg, h)

	return &Server{
		Handler:      router,
		Console:      c,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}
