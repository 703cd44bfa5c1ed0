package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "devserve.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidFullConfig(t *testing.T) {
	yaml := `
entry: src/main.js
inputs:
  - assets
  - index.html
output: public/js/bundle.js
port: 9000
rel: public/js
less: styles/main.less
lessc: /usr/local/bin/lessc
command: "make docs"
http:
  - "localhost:3000/api"
https:
  - "auth.example.com/login"
env:
  API_BASE: "/api"
timing:
  startupGrace: "2s"
  keepalive: "15s"
  debounce: "50ms"
`
	path := writeTempConfig(t, yaml)
	cfg, errs := Load(path)

	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if cfg.Entry != "src/main.js" {
		t.Errorf("entry = %q, want %q", cfg.Entry, "src/main.js")
	}
	if len(cfg.Inputs) != 2 || cfg.Inputs[0] != "assets" || cfg.Inputs[1] != "index.html" {
		t.Errorf("inputs = %v", cfg.Inputs)
	}
	if cfg.Output != "public/js/bundle.js" {
		t.Errorf("output = %q", cfg.Output)
	}
	if cfg.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Port)
	}
	if cfg.Rel != "public/js" {
		t.Errorf("rel = %q", cfg.Rel)
	}
	if cfg.Less != "styles/main.less" || cfg.Lessc != "/usr/local/bin/lessc" {
		t.Errorf("less = %q lessc = %q", cfg.Less, cfg.Lessc)
	}
	if cfg.Command != "make docs" {
		t.Errorf("command = %q", cfg.Command)
	}
	if len(cfg.HTTP) != 1 || len(cfg.HTTPS) != 1 {
		t.Errorf("http = %v https = %v", cfg.HTTP, cfg.HTTPS)
	}
	if cfg.Env["API_BASE"] != "/api" {
		t.Errorf("env = %v", cfg.Env)
	}
	if cfg.Timing.StartupGrace != "2s" || cfg.Timing.Keepalive != "15s" || cfg.Timing.Debounce != "50ms" {
		t.Errorf("timing = %+v", cfg.Timing)
	}
}

func TestLoad_MissingFileReturnsEmptyConfig(t *testing.T) {
	cfg, errs := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if cfg == nil {
		t.Fatal("expected empty config, got nil")
	}
	if cfg.Entry != "" || len(cfg.Inputs) != 0 {
		t.Errorf("expected zero config, got %+v", cfg)
	}
}

func TestLoad_EmptyFileReturnsEmptyConfig(t *testing.T) {
	path := writeTempConfig(t, "   \n\n")
	cfg, errs := Load(path)
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if cfg == nil {
		t.Fatal("expected empty config, got nil")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeTempConfig(t, "inputs: [unterminated\n")
	cfg, errs := Load(path)
	if cfg != nil {
		t.Errorf("expected nil config, got %+v", cfg)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
	if !strings.Contains(errs[0].Error(), "failed to parse config YAML") {
		t.Errorf("unexpected error: %v", errs[0])
	}
}

func TestLoad_InvalidRulesAreStripped(t *testing.T) {
	yaml := `
http:
  - "localhost:3000/api"
  - ":3000/missing-host"
https:
  - "secure.example/ok"
  - "host:/empty-port"
`
	path := writeTempConfig(t, yaml)
	cfg, errs := Load(path)
	if cfg == nil {
		t.Fatal("expected partial config")
	}
	if len(errs) != 2 {
		t.Fatalf("expected 2 validation errors, got %v", errs)
	}
	if !strings.HasPrefix(errs[0].Error(), "http[1]") {
		t.Errorf("first error = %q, want http[1] prefix", errs[0])
	}
	if !strings.HasPrefix(errs[1].Error(), "https[1]") {
		t.Errorf("second error = %q, want https[1] prefix", errs[1])
	}
	if len(cfg.HTTP) != 1 || cfg.HTTP[0] != "localhost:3000/api" {
		t.Errorf("http = %v", cfg.HTTP)
	}
	if len(cfg.HTTPS) != 1 || cfg.HTTPS[0] != "secure.example/ok" {
		t.Errorf("https = %v", cfg.HTTPS)
	}
}

func TestLoad_InvalidEntryIsCleared(t *testing.T) {
	path := writeTempConfig(t, "entry: src/main.ts\n")
	cfg, errs := Load(path)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
	if cfg.Entry != "" {
		t.Errorf("entry = %q, want cleared", cfg.Entry)
	}
}

func TestLoad_InvalidTimingIsCleared(t *testing.T) {
	yaml := `
timing:
  startupGrace: "soon"
  keepalive: "-1s"
  debounce: "100ms"
`
	path := writeTempConfig(t, yaml)
	cfg, errs := Load(path)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
	if cfg.Timing.StartupGrace != "" || cfg.Timing.Keepalive != "" {
		t.Errorf("invalid timings not cleared: %+v", cfg.Timing)
	}
	if cfg.Timing.Debounce != "100ms" {
		t.Errorf("valid timing dropped: %+v", cfg.Timing)
	}
}

func TestLoad_PortOutOfRange(t *testing.T) {
	path := writeTempConfig(t, "port: 70000\n")
	cfg, errs := Load(path)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
	if cfg.Port != 0 {
		t.Errorf("port = %d, want 0", cfg.Port)
	}
}
