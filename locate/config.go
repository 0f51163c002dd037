// Copyright 2026 The Geoloc Authors
// SPDX-License-Identifier: Apache-2.0

package locate

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the process-wide settings. Precedence, lowest first:
// built-in defaults, config file, GEOLOC_* environment variables,
// command-line flags.
type Config struct {
	Format         string `yaml:"format"`
	Provider       string `yaml:"provider"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	H3Resolution   int    `yaml:"h3_resolution"`

	Primary  PrimaryConfig  `yaml:"primary"`
	Fallback FallbackConfig `yaml:"fallback"`
}

// PrimaryConfig configures the GeoClue session.
type PrimaryConfig struct {
	DesktopID     string `yaml:"desktop_id"`
	AccuracyLevel uint32 `yaml:"accuracy_level"`
}

// FallbackConfig configures the IP-geolocation request.
type FallbackConfig struct {
	Endpoint       string `yaml:"endpoint"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Format:         string(StylePlain),
		Provider:       string(ModeAuto),
		TimeoutSeconds: int(DefaultPrimaryTimeout / time.Second),
		H3Resolution:   DefaultH3Resolution,
		Primary: PrimaryConfig{
			DesktopID:     DefaultDesktopID,
			AccuracyLevel: DefaultAccuracyLevel,
		},
		Fallback: FallbackConfig{
			Endpoint:       DefaultIPAPIEndpoint,
			TimeoutSeconds: int(DefaultFallbackTimeout / time.Second),
		},
	}
}

// DefaultConfigPath returns the conventional config file location,
// or "" when the user config directory cannot be determined.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}

	return filepath.Join(dir, "geoloc", "config.yaml")
}

// LoadConfig reads a YAML config file on top of the defaults. The
// caller decides whether a missing file is an error; parse failures
// always are.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnvOverrides reads GEOLOC_* environment variables and overrides
// config values. Supported: GEOLOC_FORMAT, GEOLOC_PROVIDER,
// GEOLOC_TIMEOUT, GEOLOC_FALLBACK_ENDPOINT, GEOLOC_DESKTOP_ID.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("GEOLOC_FORMAT"); v != "" {
		c.Format = v
	}
	if v := os.Getenv("GEOLOC_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("GEOLOC_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("GEOLOC_FALLBACK_ENDPOINT"); v != "" {
		c.Fallback.Endpoint = v
	}
	if v := os.Getenv("GEOLOC_DESKTOP_ID"); v != "" {
		c.Primary.DesktopID = v
	}
}

// PrimaryTimeout returns the bounded wait for the native provider.
func (c *Config) PrimaryTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultPrimaryTimeout
	}

	return time.Duration(c.TimeoutSeconds) * time.Second
}

// FallbackTimeout returns the bounded wait for the IP-geolocation
// request.
func (c *Config) FallbackTimeout() time.Duration {
	if c.Fallback.TimeoutSeconds <= 0 {
		return DefaultFallbackTimeout
	}

	return time.Duration(c.Fallback.TimeoutSeconds) * time.Second
}
