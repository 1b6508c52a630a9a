// Package config loads settings from defaults, an optional ini or yaml file and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

const envPrefix = "INFODESK_"

// MySQL: collation should be utf8mb4_unicode_ci
const DefaultDB = "sqlite3:infodesk.sqlite3?_busy_timeout=10000&_journal=WAL&_sync=NORMAL&_foreign_keys=on&cache=shared"

type Config struct {
	Listen   string `ini:"listen" yaml:"listen"`
	Base     string `ini:"base" yaml:"base"` // path prefix, the reverse proxy must not strip it
	DB       string `ini:"db" yaml:"db"`     // see github.com/xo/dburl
	Media    string `ini:"media" yaml:"media"`
	LogLevel string `ini:"log_level" yaml:"log_level"`

	MinPasswordLength      int   `ini:"min_password_length" yaml:"min_password_length"`
	RequirePasswordConfirm bool  `ini:"require_password_confirm" yaml:"require_password_confirm"`
	MaxImageBytes          int64 `ini:"max_image_bytes" yaml:"max_image_bytes"`

	SessionLifetime    time.Duration `ini:"session_lifetime" yaml:"session_lifetime"`
	SessionIdleTimeout time.Duration `ini:"session_idle_timeout" yaml:"session_idle_timeout"`
}

func Default() Config {
	return Config{
		Listen:                 "127.0.0.1:8080",
		DB:                     DefaultDB,
		Media:                  "media",
		LogLevel:               "info",
		MinPasswordLength:      8,
		RequirePasswordConfirm: true,
		MaxImageBytes:          5 << 20,
		SessionLifetime:        720 * time.Hour,
		SessionIdleTimeout:     12 * time.Hour,
	}
}

// Load applies the file at path (if path is not empty) and the environment to the defaults.
func Load(path string) (Config, error) {
	var cfg = Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	cfg.Base = CleanBase(cfg.Base)
	return cfg, nil
}

// loadFile overwrites the fields which are present in the file.
func (c *Config) loadFile(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(raw, c); err != nil {
			return fmt.Errorf("parsing config %s: %w", path, err)
		}
	default:
		file, err := ini.Load(path)
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
		if err := file.Section("").MapTo(c); err != nil {
			return fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {

	var strs = map[string]*string{
		"LISTEN":    &c.Listen,
		"BASE":      &c.Base,
		"DB":        &c.DB,
		"MEDIA":     &c.Media,
		"LOG_LEVEL": &c.LogLevel,
	}
	for key, field := range strs {
		if v, ok := lookup(envPrefix + key); ok {
			*field = v
		}
	}

	var durations = map[string]*time.Duration{
		"SESSION_LIFETIME":     &c.SessionLifetime,
		"SESSION_IDLE_TIMEOUT": &c.SessionIdleTimeout,
	}
	for key, field := range durations {
		if v, ok := lookup(envPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, key, err)
			}
			*field = d
		}
	}

	if v, ok := lookup(envPrefix + "MIN_PASSWORD_LENGTH"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sMIN_PASSWORD_LENGTH: %w", envPrefix, err)
		}
		c.MinPasswordLength = n
	}

	if v, ok := lookup(envPrefix + "MAX_IMAGE_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sMAX_IMAGE_BYTES: %w", envPrefix, err)
		}
		c.MaxImageBytes = n
	}

	if v, ok := lookup(envPrefix + "REQUIRE_PASSWORD_CONFIRM"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sREQUIRE_PASSWORD_CONFIRM: %w", envPrefix, err)
		}
		c.RequirePasswordConfirm = b
	}

	return nil
}

// CleanBase returns "" or a prefix with a leading and without a trailing slash.
func CleanBase(base string) string {
	base = strings.Trim(base, "/")
	if base != "" {
		base = "/" + base
	}
	return base
}
