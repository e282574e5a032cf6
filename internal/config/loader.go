package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"modelgate/internal/common/fsutil"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	Addr       string   `json:"addr" yaml:"addr" toml:"addr"`
	DaemonURL  string   `json:"daemon_url" yaml:"daemon_url" toml:"daemon_url"`
	DaemonBin  string   `json:"daemon_bin" yaml:"daemon_bin" toml:"daemon_bin"`
	DaemonArgs []string `json:"daemon_args" yaml:"daemon_args" toml:"daemon_args"`
	Model      string   `json:"model" yaml:"model" toml:"model"`
	InstanceID string   `json:"instance_id" yaml:"instance_id" toml:"instance_id"`

	ProbeTimeoutMS         int    `json:"probe_timeout_ms" yaml:"probe_timeout_ms" toml:"probe_timeout_ms"`
	CatalogTimeoutSeconds  int    `json:"catalog_timeout_seconds" yaml:"catalog_timeout_seconds" toml:"catalog_timeout_seconds"`
	LaunchAttempts         int    `json:"launch_attempts" yaml:"launch_attempts" toml:"launch_attempts"`
	LaunchIntervalMS       int    `json:"launch_interval_ms" yaml:"launch_interval_ms" toml:"launch_interval_ms"`
	LaunchLockPath         string `json:"launch_lock_path" yaml:"launch_lock_path" toml:"launch_lock_path"`
	FetchTimeoutSeconds    int    `json:"fetch_timeout_seconds" yaml:"fetch_timeout_seconds" toml:"fetch_timeout_seconds"`
	GenerateTimeoutSeconds int    `json:"generate_timeout_seconds" yaml:"generate_timeout_seconds" toml:"generate_timeout_seconds"`

	MaxBodyBytes int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	CORSEnabled  *bool    `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins  []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	BootstrapOnStart *bool `json:"bootstrap_on_start" yaml:"bootstrap_on_start" toml:"bootstrap_on_start"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return cfg, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(p)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse json: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse toml: %w", err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// WriteYAML encodes cfg as YAML, the format Load reads back.
func WriteYAML(w io.Writer, cfg Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
