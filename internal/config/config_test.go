package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentstudio/agentstudio/console/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg := config.Load()

	if cfg.Port != 8090 {
		t.Errorf("Port = %d, want 8090", cfg.Port)
	}
	if cfg.Backend.BaseURL != "http://localhost:8000" {
		t.Errorf("Backend.BaseURL = %q, want default", cfg.Backend.BaseURL)
	}
	if got := cfg.Widgets.SavedIndicator(); got != 2*time.Second {
		t.Errorf("SavedIndicator() = %v, want 2s", got)
	}
	if cfg.Telemetry.Enabled {
		t.Error("Telemetry.Enabled = true by default, want false")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STUDIO_PORT", "9999")
	t.Setenv("STUDIO_BACKEND_URL", "http://backend.test")

	cfg := config.Load()
	if cfg.Port != 9999 {
		t.Errorf("Port = %d, want 9999", cfg.Port)
	}
	if cfg.Backend.BaseURL != "http://backend.test" {
		t.Errorf("Backend.BaseURL = %q, want env value", cfg.Backend.BaseURL)
	}
	// The widget backend follows the studio backend unless set separately.
	if cfg.Widgets.BackendURL != "http://backend.test" {
		t.Errorf("Widgets.BackendURL = %q, want backend URL", cfg.Widgets.BackendURL)
	}
}

func TestLoadFileAppliesTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.toml")
	data := []byte(`
port = 7070

[backend]
base_url = "http://file.test"
timeout_secs = 5

[widgets]
builder_agent_key = "meta-builder"
saved_indicator_millis = 500
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("Port = %d, want 7070", cfg.Port)
	}
	if cfg.Backend.BaseURL != "http://file.test" {
		t.Errorf("Backend.BaseURL = %q, want file value", cfg.Backend.BaseURL)
	}
	if got := cfg.Backend.Timeout(); got != 5*time.Second {
		t.Errorf("Timeout() = %v, want 5s", got)
	}
	if cfg.Widgets.BuilderAgentKey != "meta-builder" {
		t.Errorf("BuilderAgentKey = %q, want file value", cfg.Widgets.BuilderAgentKey)
	}
	if got := cfg.Widgets.SavedIndicator(); got != 500*time.Millisecond {
		t.Errorf("SavedIndicator() = %v, want 500ms", got)
	}
}

func TestLoadFileEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.toml")
	os.WriteFile(path, []byte("[backend]\nbase_url = \"http://file.test\"\n"), 0o644)

	t.Setenv("STUDIO_BACKEND_URL", "http://env.test")

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Backend.BaseURL != "http://env.test" {
		t.Errorf("Backend.BaseURL = %q, want env override", cfg.Backend.BaseURL)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := config.LoadFile("/nonexistent/console.toml"); err == nil {
		t.Error("LoadFile() error = nil for missing file, want error")
	}
}
