// Package config loads server settings from an optional YAML file and
// AVATAR_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Addr     string `yaml:"addr"`
	LogLevel string `yaml:"log_level"`
	// DataDir holds uploaded models and export artifacts.
	DataDir string `yaml:"data_dir"`
	DB      string `yaml:"db"`
	// Presets replaces the built-in preset catalog when set.
	Presets string `yaml:"presets"`

	Display  Display  `yaml:"display"`
	Pipeline Pipeline `yaml:"pipeline"`
	Auth     Auth     `yaml:"auth"`
	Session  Session  `yaml:"session"`
}

type Display struct {
	ForceFallback bool `yaml:"force_fallback"`
}

type Pipeline struct {
	// PhaseDelay paces each phase so progress is visible.
	PhaseDelay time.Duration `yaml:"phase_delay"`
	// RenderScale divides export image sizes before resampling.
	RenderScale int `yaml:"render_scale"`
}

type Auth struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
	Secure bool          `yaml:"secure_cookie"`
	// Users maps usernames to bcrypt hashes.
	Users map[string]string `yaml:"users"`
}

type Session struct {
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Addr:     ":8080",
		LogLevel: "info",
		DataDir:  "data",
		DB:       filepath.Join("data", "avatars.db"),
		Pipeline: Pipeline{PhaseDelay: 400 * time.Millisecond, RenderScale: 2},
		Auth:     Auth{Expiry: 24 * time.Hour},
		Session:  Session{IdleTimeout: 2 * time.Hour},
	}
}

// Load reads path (skipped when empty) over the defaults, then applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(filepath.Clean(path)) //nolint:gosec // operator-supplied config path
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(getenv func(string) string) error {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Addr, "AVATAR_ADDR")
	set(&c.DB, "AVATAR_DB")
	set(&c.DataDir, "AVATAR_DATA_DIR")
	set(&c.Auth.Secret, "AVATAR_SECRET")
	set(&c.LogLevel, "AVATAR_LOG_LEVEL")
	set(&c.Presets, "AVATAR_PRESETS")
	if v := getenv("AVATAR_PASSWORD_HASH"); v != "" {
		user := getenv("AVATAR_USER")
		if user == "" {
			user = "admin"
		}
		if c.Auth.Users == nil {
			c.Auth.Users = map[string]string{}
		}
		c.Auth.Users[user] = v
	}
	if v := getenv("AVATAR_FORCE_FALLBACK"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: AVATAR_FORCE_FALLBACK: %w", err)
		}
		c.Display.ForceFallback = b
	}
	return nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is empty"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is empty"))
	}
	if c.Pipeline.PhaseDelay < 0 {
		errs = append(errs, errors.New("pipeline.phase_delay is negative"))
	}
	if c.Pipeline.RenderScale < 0 {
		errs = append(errs, errors.New("pipeline.render_scale is negative"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Level returns the parsed log level.
func (c Config) Level() slog.Level {
	l, _ := ParseLevel(c.LogLevel)
	return l
}

// ParseLevel accepts debug, info, warn and error.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}
