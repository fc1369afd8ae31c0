package config

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Test server defaults
	if cfg.Server.Listen != ":8000" {
		t.Errorf("expected listen ':8000', got %s", cfg.Server.Listen)
	}
	if len(cfg.Server.AllowedOrigins) != 2 {
		t.Errorf("expected 2 allowed origins, got %d", len(cfg.Server.AllowedOrigins))
	}

	// Test database defaults
	if cfg.Databases.Postgres.Port != 5432 {
		t.Errorf("expected postgresql port 5432, got %d", cfg.Databases.Postgres.Port)
	}
	if cfg.Databases.MySQL.Port != 3306 {
		t.Errorf("expected mysql port 3306, got %d", cfg.Databases.MySQL.Port)
	}
	if cfg.Databases.Oracle.Port != 1521 {
		t.Errorf("expected oracle port 1521, got %d", cfg.Databases.Oracle.Port)
	}
	if cfg.Databases.Postgres.Configured() {
		t.Errorf("expected postgresql to be unconfigured by default")
	}

	// Test query defaults
	if cfg.Query.MaxRows != 1000 {
		t.Errorf("expected max_rows 1000, got %d", cfg.Query.MaxRows)
	}
	if cfg.Query.Timeout != 30*time.Second {
		t.Errorf("expected timeout 30s, got %v", cfg.Query.Timeout)
	}
	if cfg.Query.DefaultDialect != "postgresql" {
		t.Errorf("expected default dialect 'postgresql', got %s", cfg.Query.DefaultDialect)
	}
	if cfg.Query.AllowSetOperations {
		t.Errorf("expected set operations to be denied by default")
	}
	if !cfg.Query.MockFallback {
		t.Errorf("expected mock fallback enabled by default")
	}

	// Test llm defaults
	if cfg.LLM.Model != "gpt-4" {
		t.Errorf("expected model 'gpt-4', got %s", cfg.LLM.Model)
	}
	if cfg.LLM.Active() {
		t.Errorf("expected llm inactive without an api key")
	}

	// Test rate limit defaults
	if cfg.RateLimit.Requests != 10 || cfg.RateLimit.Window != time.Minute {
		t.Errorf("expected 10 requests per minute, got %d per %v", cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected logging level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected logging format 'json', got %s", cfg.Logging.Format)
	}
}

func TestDatabaseConfigured(t *testing.T) {
	tests := []struct {
		name string
		db   DatabaseConfig
		want bool
	}{
		{"empty", DatabaseConfig{Port: 5432}, false},
		{"host only", DatabaseConfig{Host: "db"}, true},
		{"dsn only", DatabaseConfig{DSN: "postgres://u@h/db"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.db.Configured(); got != tt.want {
				t.Errorf("Configured() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfigDatabaseLookup(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Databases.MySQL.Host = "mysql-host"

	db, ok := cfg.Database("mysql")
	if !ok {
		t.Fatal("expected mysql to be a known backend")
	}
	if db.Host != "mysql-host" {
		t.Errorf("expected host 'mysql-host', got %s", db.Host)
	}

	if _, ok := cfg.Database("sqlserver"); ok {
		t.Error("expected sqlserver to be unknown")
	}
}

func TestTrustedProxyPrefixes(t *testing.T) {
	s := ServerConfig{TrustedProxies: []string{"10.0.0.0/8", "192.168.1.7", " ::1 ", "::ffff:172.16.0.1"}}

	prefixes, err := s.TrustedProxyPrefixes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"10.0.0.0/8", "192.168.1.7/32", "::1/128", "172.16.0.1/32"}
	if len(prefixes) != len(want) {
		t.Fatalf("expected %d prefixes, got %d", len(want), len(prefixes))
	}
	for i, p := range prefixes {
		if p.String() != want[i] {
			t.Errorf("prefix %d: expected %s, got %s", i, want[i], p)
		}
	}

	s.TrustedProxies = []string{"proxy.internal"}
	if _, err := s.TrustedProxyPrefixes(); err == nil {
		t.Error("expected an error for a host name")
	}
}
