package widget

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// HostFactory is the in-process widget host. It owns every live embed,
// keyed by container, and replaces an existing embed when a new one is
// created into the same container.
type HostFactory struct {
	mu        sync.Mutex
	instances map[string]*hostHandle
}

// NewHostFactory returns an empty host.
func NewHostFactory() *HostFactory {
	return &HostFactory{instances: make(map[string]*hostHandle)}
}

// CreateInstance mounts a widget into its container. A previous embed in
// the same container is destroyed first.
func (f *HostFactory) CreateInstance(ctx context.Context, cfg Config) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if prev, ok := f.instances[cfg.ContainerID]; ok && !prev.destroyed {
		prev.destroyLocked()
	}

	h := &hostHandle{factory: f, cfg: cfg}
	f.instances[cfg.ContainerID] = h

	log.Info().
		Str("container", cfg.ContainerID).
		Str("agent_key", cfg.AgentKey).
		Str("auth", string(cfg.AuthStrategy)).
		Msg("widget mounted")
	return h, nil
}

// Instance returns the live embed in a container, if any.
func (f *HostFactory) Instance(containerID string) (Config, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.instances[containerID]
	if !ok || h.destroyed {
		return Config{}, false
	}
	return h.cfg, true
}

type hostHandle struct {
	factory   *HostFactory
	cfg       Config
	destroyed bool
}

func (h *hostHandle) Destroy() {
	h.factory.mu.Lock()
	defer h.factory.mu.Unlock()
	h.destroyLocked()
}

func (h *hostHandle) destroyLocked() {
	if h.destroyed {
		return
	}
	h.destroyed = true
	log.Info().Str("container", h.cfg.ContainerID).Msg("widget destroyed")
}

func (h *hostHandle) UpdateMetadata(partial map[string]any) error {
	h.factory.mu.Lock()
	defer h.factory.mu.Unlock()
	if h.destroyed {
		return ErrDestroyed
	}
	if h.cfg.Metadata == nil {
		h.cfg.Metadata = make(map[string]any, len(partial))
	}
	for k, v := range partial {
		h.cfg.Metadata[k] = v
	}
	log.Debug().Str("container", h.cfg.ContainerID).Msg("widget metadata updated")
	return nil
}
