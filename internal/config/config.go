package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Data      DataConfig      `yaml:"data"`
	Auth      AuthConfig      `yaml:"auth"`
	Garmin    GarminConfig    `yaml:"garmin"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DataConfig locates the per-user raw data stores.
type DataConfig struct {
	Dir string `yaml:"dir"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type GarminConfig struct {
	BaseURL        string `yaml:"base_url"`
	TokenDir       string `yaml:"token_dir"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// Timeout returns the upstream request timeout.
func (g GarminConfig) Timeout() time.Duration {
	if g.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix VITALSYNC_ and underscore-separated paths:
//
//	VITALSYNC_SERVER_HOST, VITALSYNC_SERVER_PORT,
//	VITALSYNC_DATA_DIR, VITALSYNC_AUTH_API_KEY,
//	VITALSYNC_GARMIN_BASE_URL, VITALSYNC_GARMIN_TOKEN_DIR,
//	VITALSYNC_TS_HOSTNAME, VITALSYNC_TS_STATE_DIR
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VITALSYNC_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("VITALSYNC_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("VITALSYNC_DATA_DIR"); v != "" {
		cfg.Data.Dir = v
	}
	if v := os.Getenv("VITALSYNC_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("VITALSYNC_GARMIN_BASE_URL"); v != "" {
		cfg.Garmin.BaseURL = v
	}
	if v := os.Getenv("VITALSYNC_GARMIN_TOKEN_DIR"); v != "" {
		cfg.Garmin.TokenDir = v
	}
	if v := os.Getenv("VITALSYNC_TS_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
	if v := os.Getenv("VITALSYNC_TS_STATE_DIR"); v != "" {
		cfg.Tailscale.StateDir = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Garmin.BaseURL == "" {
		cfg.Garmin.BaseURL = "https://connectapi.garmin.com"
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Data.Dir == "" {
		return fmt.Errorf("data.dir is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Garmin.TokenDir == "" {
		return fmt.Errorf("garmin.token_dir is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	return nil
}
