package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func noEnv(string) (string, bool) { return "", false }

func mapEnv(m map[string]string) lookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "primarily.yaml")
	yamlData := `
environment: production
server:
  addr: ":9000"
  cors_origins: ["https://app.example.com"]
database:
  path: /var/lib/primarily.db
alerts:
  retention: 72h
log:
  level: warn
`
	if err := os.WriteFile(file, []byte(yamlData), 0o600); err != nil {
		t.Fatal(err)
	}
	dotenv := filepath.Join(dir, ".env")
	if err := os.WriteFile(dotenv, []byte("PRIMARILY_LOG_LEVEL=debug\nPRIMARILY_JWT_SECRET=from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	env := mapEnv(map[string]string{
		"PRIMARILY_CONFIG":     file,
		"PRIMARILY_JWT_SECRET": "from-env",
		"PRIMARILY_ACCESS_TTL": "30m",
	})
	cfg, err := load([]string{"--env-file", dotenv, "--addr", ":7000"}, env)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Environment != "production" {
		t.Errorf("environment from file: got %q", cfg.Environment)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("flag should win over file: got %q", cfg.Server.Addr)
	}
	if cfg.Database.Path != "/var/lib/primarily.db" {
		t.Errorf("db path from file: got %q", cfg.Database.Path)
	}
	if cfg.Alerts.Retention != 72*time.Hour {
		t.Errorf("retention from file: got %v", cfg.Alerts.Retention)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("dotenv should override file: got %q", cfg.Log.Level)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("process env should win over dotenv: got %q", cfg.Auth.JWTSecret)
	}
	if cfg.Auth.AccessTTL != 30*time.Minute {
		t.Errorf("access ttl from env: got %v", cfg.Auth.AccessTTL)
	}
	if len(cfg.Server.CORSOrigins) != 1 {
		t.Errorf("cors origins from file: got %v", cfg.Server.CORSOrigins)
	}
	// Untouched values keep their defaults.
	if cfg.Events.HandlerTimeout != 5*time.Second {
		t.Errorf("handler timeout default: got %v", cfg.Events.HandlerTimeout)
	}
}

func TestLoadErrors(t *testing.T) {
	missingEnv := filepath.Join(t.TempDir(), "missing.env")

	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{"bad duration", nil, map[string]string{"PRIMARILY_ACCESS_TTL": "soon"}},
		{"bad environment", []string{"--env", "staging"}, nil},
		{"missing config file", []string{"--config", "/nonexistent/primarily.yaml"}, nil},
		{"positional argument", []string{"serve"}, nil},
		{"unknown flag", []string{"--bogus"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--env-file", missingEnv}, tt.args...)
			if _, err := load(args, mapEnv(tt.env)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadHelp(t *testing.T) {
	_, err := load([]string{"--help"}, noEnv)
	if !errors.Is(err, pflag.ErrHelp) {
		t.Errorf("expected pflag.ErrHelp, got %v", err)
	}
}

func TestParseCSV(t *testing.T) {
	got := parseCSV(" a, ,b ,")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("parseCSV = %v", got)
	}
	if parseCSV("  ") != nil {
		t.Error("expected nil for blank input")
	}
}
