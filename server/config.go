package main

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name     string `yaml:"name"`
	TTL      string `yaml:"ttl"`
	Secure   bool   `yaml:"secure"`
	SameSite string `yaml:"same_site"`
}

// Config is the top-level server configuration parsed from listo.yaml.
// Environment variables override file values so container deployments
// don't need a config file at all.
type Config struct {
	Addr         string       `yaml:"addr"`
	DatabaseURL  string       `yaml:"database_url"`
	Cookie       CookieConfig `yaml:"cookie"`
	SessionSweep string       `yaml:"session_sweep"`
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func applyDefaults(c *Config) {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = "postgres://postgres:postgres@db:5432/listo?sslmode=disable"
	}
	if c.Cookie.Name == "" {
		c.Cookie.Name = "listo_sess"
	}
	if c.Cookie.TTL == "" {
		c.Cookie.TTL = "336h" // 14 days
	}
	if c.Cookie.SameSite == "" {
		c.Cookie.SameSite = "lax"
	}
	if c.SessionSweep == "" {
		c.SessionSweep = "@every 1h"
	}
}

func applyEnv(c *Config) {
	c.Addr = getenv("ADDR", c.Addr)
	c.DatabaseURL = getenv("DATABASE_URL", c.DatabaseURL)
	c.Cookie.Name = getenv("SESSION_COOKIE_NAME", c.Cookie.Name)
	c.Cookie.TTL = getenv("SESSION_TTL", c.Cookie.TTL)
	if getenv("COOKIE_SECURE", "") == "true" {
		c.Cookie.Secure = true
	}
	c.Cookie.SameSite = getenv("COOKIE_SAMESITE", c.Cookie.SameSite)
}

// LoadConfig reads path if it exists, then layers env overrides and
// defaults. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	var c Config
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}
	applyDefaults(&c)
	applyEnv(&c)
	return c, nil
}

// SessionTTL parses the configured cookie TTL, falling back to 14 days.
func (c Config) SessionTTL() time.Duration {
	if d, err := time.ParseDuration(c.Cookie.TTL); err == nil && d > 0 {
		return d
	}
	return 14 * 24 * time.Hour
}

func (c Config) SameSite() http.SameSite {
	switch strings.ToLower(c.Cookie.SameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
