package main

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig with missing file: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("default addr = %q, want :8080", cfg.Addr)
	}
	if cfg.Cookie.Name != "listo_sess" {
		t.Errorf("default cookie name = %q, want listo_sess", cfg.Cookie.Name)
	}
	if cfg.SessionSweep != "@every 1h" {
		t.Errorf("default session sweep = %q", cfg.SessionSweep)
	}
	if got := cfg.SessionTTL(); got != 14*24*time.Hour {
		t.Errorf("default session TTL = %v, want 336h", got)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listo.yaml")
	body := `
addr: ":9090"
cookie:
  name: custom_sess
  ttl: 1h
  same_site: strict
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Errorf("addr = %q, want :9090", cfg.Addr)
	}
	if cfg.Cookie.Name != "custom_sess" {
		t.Errorf("cookie name = %q", cfg.Cookie.Name)
	}
	if got := cfg.SessionTTL(); got != time.Hour {
		t.Errorf("session TTL = %v, want 1h", got)
	}
	if got := cfg.SameSite(); got != http.SameSiteStrictMode {
		t.Errorf("same site = %v, want strict", got)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("ADDR", ":7070")
	t.Setenv("SESSION_COOKIE_NAME", "env_sess")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":7070" {
		t.Errorf("addr = %q, want env override :7070", cfg.Addr)
	}
	if cfg.Cookie.Name != "env_sess" {
		t.Errorf("cookie name = %q, want env override env_sess", cfg.Cookie.Name)
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listo.yaml")
	if err := os.WriteFile(path, []byte("addr: [broken"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig accepted malformed yaml")
	}
}
