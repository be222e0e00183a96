package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8000" || cfg.CacheBackend != "redis" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.RequestTimeout != 15*time.Second || cfg.CoalesceMisses {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if pg := cfg.Postgres(); pg.Port != 5432 || pg.SSLMode != "disable" {
		t.Fatalf("unexpected postgres config %+v", pg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "memory")
	t.Setenv("COALESCE_MISSES", "true")
	t.Setenv("MONGO_USER", "reader")
	t.Setenv("ADAPTER_TIMEOUT", "3s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CacheBackend != "memory" || !cfg.CoalesceMisses {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if m := cfg.Mongo(); m.User != "reader" || m.ConnectTimeout != 3*time.Second {
		t.Fatalf("unexpected mongo config %+v", m)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"unparsable", "REDIS_DB", "zero", "parse env:"},
		{"unknown backend", "CACHE_BACKEND", "memcached", "invalid config:"},
		{"timeout too short", "REQUEST_TIMEOUT", "10ms", "invalid config:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q error, got %v", tt.want, err)
			}
		})
	}
}
