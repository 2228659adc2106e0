package config

import "testing"

func TestLoadServerDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost:5432/scoresheet?sslmode=disable")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.EventsLimit != 50 {
		t.Fatalf("EventsLimit = %d, want 50", cfg.EventsLimit)
	}
	if cfg.IdleTimeoutMins != 120 {
		t.Fatalf("IdleTimeoutMins = %d, want 120", cfg.IdleTimeoutMins)
	}
}

func TestLoadServerRequiresPostgresDSN(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")

	_, err := LoadServer()
	if err == nil {
		t.Fatal("LoadServer() expected error, got nil")
	}
}

func TestLoadServerParseTypes(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost:5432/scoresheet?sslmode=disable")
	t.Setenv("EVENTS_LIMIT", "25")
	t.Setenv("SESSION_IDLE_TIMEOUT_MINUTES", "30")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.EventsLimit != 25 {
		t.Fatalf("EventsLimit = %d, want 25", cfg.EventsLimit)
	}
	if cfg.IdleTimeoutMins != 30 {
		t.Fatalf("IdleTimeoutMins = %d, want 30", cfg.IdleTimeoutMins)
	}
}
