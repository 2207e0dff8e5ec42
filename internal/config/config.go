// Package config holds configuration for the Agent Studio console.
// Values come from an optional TOML file, overridden by environment
// variables, with sensible defaults for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the console process.
type Config struct {
	Port      int             `toml:"port"`
	Version   string          `toml:"version"`
	Backend   BackendConfig   `toml:"backend"`
	Widgets   WidgetConfig    `toml:"widgets"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// BackendConfig describes the studio REST backend the console talks to.
type BackendConfig struct {
	BaseURL string `toml:"base_url"`

	// CSRFToken is the fallback token used for mutating requests when no
	// csrftoken cookie is present (the page-injected value in the browser).
	CSRFToken string `toml:"csrf_token"`

	TimeoutSecs int `toml:"timeout_secs"`

	// MaxRetryElapsedSecs caps retry backoff for idempotent reads.
	// Zero disables retries.
	MaxRetryElapsedSecs int `toml:"max_retry_elapsed_secs"`
}

// WidgetConfig carries the defaults applied to embedded chat widgets.
type WidgetConfig struct {
	BackendURL               string `toml:"backend_url"`
	TestTitle                string `toml:"test_title"`
	BuilderTitle             string `toml:"builder_title"`
	BuilderAgentKey          string `toml:"builder_agent_key"`
	PrimaryColor             string `toml:"primary_color"`
	AnonymousSessionEndpoint string `toml:"anonymous_session_endpoint"`

	// InitDelayMillis defers widget creation after initial data load so the
	// host layout can stabilize before mount points are measured.
	InitDelayMillis int `toml:"init_delay_millis"`

	// SavedIndicatorMillis is how long editor "saved" indicators stay visible.
	SavedIndicatorMillis int `toml:"saved_indicator_millis"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool   `toml:"enabled"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
	ServiceName  string `toml:"service_name"`
}

// Timeout returns the backend request timeout as a duration.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(b.TimeoutSecs) * time.Second
}

// MaxRetryElapsed returns the retry budget for idempotent reads.
func (b BackendConfig) MaxRetryElapsed() time.Duration {
	return time.Duration(b.MaxRetryElapsedSecs) * time.Second
}

// InitDelay returns the widget initialization delay.
func (w WidgetConfig) InitDelay() time.Duration {
	return time.Duration(w.InitDelayMillis) * time.Millisecond
}

// SavedIndicator returns how long the saved indicator is shown.
func (w WidgetConfig) SavedIndicator() time.Duration {
	if w.SavedIndicatorMillis <= 0 {
		return 2 * time.Second
	}
	return time.Duration(w.SavedIndicatorMillis) * time.Millisecond
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:    envInt("STUDIO_PORT", 8090),
		Version: envStr("STUDIO_VERSION", "0.4.0"),
		Backend: BackendConfig{
			BaseURL:             envStr("STUDIO_BACKEND_URL", "http://localhost:8000"),
			CSRFToken:           envStr("STUDIO_CSRF_TOKEN", ""),
			TimeoutSecs:         envInt("STUDIO_BACKEND_TIMEOUT_SECS", 30),
			MaxRetryElapsedSecs: envInt("STUDIO_BACKEND_RETRY_SECS", 0),
		},
		Widgets: WidgetConfig{
			BackendURL:               envStr("STUDIO_WIDGET_BACKEND_URL", envStr("STUDIO_BACKEND_URL", "http://localhost:8000")),
			TestTitle:                envStr("STUDIO_TEST_WIDGET_TITLE", "Test Agent"),
			BuilderTitle:             envStr("STUDIO_BUILDER_WIDGET_TITLE", "Agent Builder"),
			BuilderAgentKey:          envStr("STUDIO_BUILDER_AGENT_KEY", "agent-builder"),
			PrimaryColor:             envStr("STUDIO_WIDGET_COLOR", "#6366f1"),
			AnonymousSessionEndpoint: envStr("STUDIO_ANON_SESSION_ENDPOINT", "/api/widget/session/"),
			InitDelayMillis:          envInt("STUDIO_WIDGET_INIT_DELAY_MS", 300),
			SavedIndicatorMillis:     envInt("STUDIO_SAVED_INDICATOR_MS", 2000),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "agentstudio-console"),
		},
	}
}

// LoadFile reads a TOML configuration file and applies environment
// overrides on top of it.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Load()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	// Env vars win over file values when explicitly set.
	if v := os.Getenv("STUDIO_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("STUDIO_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	return cfg, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
