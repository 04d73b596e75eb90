// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Thermoquad/pidconf/pkg/pidconf"
	"gopkg.in/yaml.v3"
)

// EnvLogLevel overrides the configured log level
const EnvLogLevel = "PIDCONF_LOG_LEVEL"

// Config holds connection and protocol settings.
// Parameter values are never stored here.
type Config struct {
	Port              string        `yaml:"port"`
	Baud              int           `yaml:"baud"`
	URL               string        `yaml:"url"`
	Username          string        `yaml:"username"`
	NoSSLVerify       bool          `yaml:"no_ssl_verify"`
	Timeout           time.Duration `yaml:"timeout"`
	HandshakeAttempts int           `yaml:"handshake_attempts"`
	LogLevel          string        `yaml:"log_level"`
	RawLog            string        `yaml:"raw_log"`
}

// DefaultConfig returns the built-in settings
func DefaultConfig() Config {
	return Config{
		Baud:              pidconf.DefaultBaudRate,
		Timeout:           pidconf.DefaultReadTimeout,
		HandshakeAttempts: pidconf.DefaultHandshakeAttempts,
		LogLevel:          "warn",
	}
}

// LoadConfig reads a YAML file on top of the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return cfg, nil
}

// Validate checks settings that would make the session unusable
func (c Config) Validate() error {
	if c.Baud <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.Baud)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout %s", c.Timeout)
	}
	if c.HandshakeAttempts < 1 {
		return fmt.Errorf("handshake attempts must be at least 1, got %d", c.HandshakeAttempts)
	}
	if c.URL != "" && !strings.HasPrefix(c.URL, "ws://") && !strings.HasPrefix(c.URL, "wss://") {
		return fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", c.URL)
	}
	return nil
}

// resolveConfig merges the config file, explicitly set flags and the
// environment, in increasing order of precedence.
func resolveConfig(changed func(name string) bool) (Config, error) {
	cfg := DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = LoadConfig(configPath); err != nil {
			return Config{}, err
		}
	}

	if configPath == "" || changed("port") {
		cfg.Port = portName
	}
	if configPath == "" || changed("baud") {
		cfg.Baud = baudRate
	}
	if configPath == "" || changed("url") {
		cfg.URL = wsURL
	}
	if configPath == "" || changed("username") {
		cfg.Username = wsUsername
	}
	if configPath == "" || changed("no-ssl-verify") {
		cfg.NoSSLVerify = wsNoSSLVerify
	}
	if configPath == "" || changed("timeout") {
		cfg.Timeout = readTimeout
	}
	if configPath == "" || changed("handshake-attempts") {
		cfg.HandshakeAttempts = handshakeAttempts
	}
	if configPath == "" || changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if configPath == "" || changed("raw-log") {
		cfg.RawLog = rawLogPath
	}
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		cfg.LogLevel = lvl
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
