// Package widget declares the narrow contract the console holds over the
// third-party embedded chat widget. The widget itself is consumed, not
// implemented here: the console only creates instances, destroys them,
// and patches their bound metadata. Inbound control events arrive through
// the OnUIControl callback; the console never inspects widget internals.
package widget

import (
	"context"
	"errors"

	"github.com/agentstudio/agentstudio/console/pkg/models"
)

// ErrDestroyed is returned by operations on a torn-down instance.
var ErrDestroyed = errors.New("widget instance destroyed")

// AuthStrategy selects how a widget authenticates against its backend.
type AuthStrategy string

const (
	AuthSession   AuthStrategy = "session"
	AuthAnonymous AuthStrategy = "anonymous"
)

// APIPaths are the backend paths a widget instance talks to.
type APIPaths struct {
	Runs      string `json:"runs"`
	RunEvents string `json:"runEvents"`
	Models    string `json:"models"`
}

// Config enumerates the recognized widget instantiation options.
type Config struct {
	ContainerID              string         `json:"containerId"`
	BackendURL               string         `json:"backendUrl"`
	AgentKey                 string         `json:"agentKey"`
	Title                    string         `json:"title"`
	PrimaryColor             string         `json:"primaryColor"`
	ShowClearButton          bool           `json:"showClearButton"`
	ShowDebugButton          bool           `json:"showDebugButton"`
	ShowExpandButton         bool           `json:"showExpandButton"`
	ShowModelSelector        bool           `json:"showModelSelector"`
	Embedded                 bool           `json:"embedded"`
	AuthStrategy             AuthStrategy   `json:"authStrategy"`
	AuthToken                string         `json:"authToken,omitempty"`
	AnonymousSessionEndpoint string         `json:"anonymousSessionEndpoint,omitempty"`
	APIPaths                 APIPaths       `json:"apiPaths"`
	Metadata                 map[string]any `json:"metadata,omitempty"`

	// OnUIControl receives unsolicited control events from the widget.
	// May be nil for widgets that never emit them (the test widget).
	OnUIControl func(models.UIControlEvent) `json:"-"`
}

// Handle is a live widget instance.
type Handle interface {
	// Destroy tears the instance down, discarding its conversation state.
	Destroy()

	// UpdateMetadata patches the instance's bound metadata in place,
	// preserving conversation state.
	UpdateMetadata(partial map[string]any) error
}

// Factory creates widget instances. Creation is expensive; callers must
// prefer UpdateMetadata over destroy-and-recreate whenever the change is
// expressible as metadata.
type Factory interface {
	CreateInstance(ctx context.Context, cfg Config) (Handle, error)
}
