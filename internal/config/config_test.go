package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want development", cfg.Env)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.StatsCacheTTL != 30*time.Second {
		t.Errorf("StatsCacheTTL = %v, want 30s", cfg.StatsCacheTTL)
	}
	if cfg.ImportMaxBytes != 5<<20 {
		t.Errorf("ImportMaxBytes = %d, want %d", cfg.ImportMaxBytes, 5<<20)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STATS_CACHE_TTL", "2m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.leadcentral.fr, https://admin.leadcentral.fr")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.StatsCacheTTL != 2*time.Minute {
		t.Errorf("StatsCacheTTL = %v, want 2m", cfg.StatsCacheTTL)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://admin.leadcentral.fr" {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
}

func TestGetEnvAsDurationInvalid(t *testing.T) {
	t.Setenv("STATS_CACHE_TTL", "not-a-duration")

	cfg := Load()
	if cfg.StatsCacheTTL != 30*time.Second {
		t.Errorf("invalid duration should fall back to default, got %v", cfg.StatsCacheTTL)
	}
}
