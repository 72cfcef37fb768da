package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENGINE_BASE_URL", "https://engine.example.com/api")
	t.Setenv("PORT", "")
	t.Setenv("STARTING_CREDITS", "")
	t.Setenv("POLL_INTERVAL_SECONDS", "")
	t.Setenv("POLL_ERROR_INTERVAL_SECONDS", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.StartingCredits != 1000 {
		t.Fatalf("StartingCredits = %d, want 1000", cfg.StartingCredits)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Fatalf("PollInterval = %s, want 5s", cfg.PollInterval)
	}
	if cfg.PollErrorInterval != 10*time.Second {
		t.Fatalf("PollErrorInterval = %s, want 10s", cfg.PollErrorInterval)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("CORSAllowedOrigins = %#v, want nil", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfigRequiresEngineBaseURL(t *testing.T) {
	t.Setenv("ENGINE_BASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error without ENGINE_BASE_URL")
	}
}

func TestLoadConfigParsesOverrides(t *testing.T) {
	t.Setenv("ENGINE_BASE_URL", "https://engine.example.com/api")
	t.Setenv("POLL_INTERVAL_SECONDS", "2")
	t.Setenv("POLL_ERROR_INTERVAL_SECONDS", "7")
	t.Setenv("STARTING_CREDITS", "2500")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com ,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Fatalf("PollInterval = %s, want 2s", cfg.PollInterval)
	}
	if cfg.PollErrorInterval != 7*time.Second {
		t.Fatalf("PollErrorInterval = %s, want 7s", cfg.PollErrorInterval)
	}
	if cfg.StartingCredits != 2500 {
		t.Fatalf("StartingCredits = %d, want 2500", cfg.StartingCredits)
	}
	want := []string{"https://app.example.com", "https://staging.example.com"}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[0] != want[0] || cfg.CORSAllowedOrigins[1] != want[1] {
		t.Fatalf("CORSAllowedOrigins = %#v, want %#v", cfg.CORSAllowedOrigins, want)
	}
}
