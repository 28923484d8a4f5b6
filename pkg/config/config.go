package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Defaults for every configurable value. Each can be overridden by the
// optional YAML config file and then by environment variables.
const (
	DefaultICURL     = "https://icp-api.io"
	DefaultWorkspace = "./workspace"
	DefaultKeyFile   = "./identity.json"
	DefaultPort      = 3844
	DefaultLogLevel  = "info"
)

// Config holds the daemon configuration.
type Config struct {
	// CanisterID is the textual principal of the remote LLM actor.
	CanisterID string `yaml:"canister_id"`
	// ICURL is the Internet Computer API endpoint.
	ICURL string `yaml:"ic_url"`
	// Workspace is the root directory holding git checkouts.
	Workspace string `yaml:"workspace"`
	// KeyFile is the path of the persisted identity keypair.
	KeyFile string `yaml:"key_file"`
	// Port is the HTTP listen port.
	Port int `yaml:"port"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns a Config populated with defaults only.
func Default() Config {
	return Config{
		ICURL:     DefaultICURL,
		Workspace: DefaultWorkspace,
		KeyFile:   DefaultKeyFile,
		Port:      DefaultPort,
		LogLevel:  DefaultLogLevel,
	}
}

// Load builds the effective configuration: defaults, then the YAML file at
// path if it exists, then environment variables. A missing file is not an
// error; an unreadable or malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DEVAGENT_CANISTER_ID"); v != "" {
		c.CanisterID = v
	}
	if v := os.Getenv("DEVAGENT_IC_URL"); v != "" {
		c.ICURL = v
	}
	if v := os.Getenv("DEVAGENT_WORKSPACE"); v != "" {
		c.Workspace = v
	}
	if v := os.Getenv("DEVAGENT_KEY_FILE"); v != "" {
		c.KeyFile = v
	}
	if v := os.Getenv("DEVAGENT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("DEVAGENT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DEVAGENT_PORT %q: %w", v, err)
		}
		c.Port = port
	}
	return nil
}

// Validate checks the fields that have no usable fallback.
func (c Config) Validate() error {
	if c.CanisterID == "" {
		return fmt.Errorf("canister id is required (set DEVAGENT_CANISTER_ID or canister_id in the config file)")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	return nil
}
