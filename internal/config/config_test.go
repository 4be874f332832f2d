package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/acadify")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("TZ", "")
	t.Setenv("REDIS_DB", "")
	t.Setenv("STATUS_REFRESH_INTERVAL", "")
	t.Setenv("EVENTS_QUEUE", "")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr == "" || cfg.Redis.Queue != "acadify:events" || cfg.StatusRefreshInterval != time.Minute {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Location == nil {
		t.Fatal("location is nil")
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestLoadRejectsBadInterval(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/acadify")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("REDIS_DB", "")
	t.Setenv("STATUS_REFRESH_INTERVAL", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error")
	}
}

func TestMustEnvPanics(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_DB", "")
	t.Setenv("STATUS_REFRESH_INTERVAL", "")
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for missing DATABASE_URL")
		}
	}()
	_, _ = Load()
}
