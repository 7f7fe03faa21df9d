// Package config loads the node configuration file and environment
// overrides consumed by discovery, pairing and endpoint resolution.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tualatrix/openclaw/pkg/bridge"
)

// Environment override variables. Trimmed non-empty values win over
// file-configured credentials.
const (
	EnvGatewayPassword = "OPENCLAW_GATEWAY_PASSWORD"
	EnvGatewayToken    = "OPENCLAW_GATEWAY_TOKEN"
)

// Config is the node configuration file structure.
type Config struct {
	Node      NodeConfig      `yaml:"node"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Log       LogConfig       `yaml:"log"`
	Storage   StorageConfig   `yaml:"storage"`
}

// NodeConfig describes this node.
type NodeConfig struct {
	// DisplayName is the user-facing device name, sent in hello and
	// fed into the local-identity filter.
	DisplayName string `yaml:"displayName"`
}

// DiscoveryConfig controls service browsing.
type DiscoveryConfig struct {
	// TailnetDomain is an optional extra browse domain besides the
	// local multicast domain.
	TailnetDomain string `yaml:"tailnetDomain"`

	// Interface restricts browsing to one network interface.
	Interface string `yaml:"interface"`
}

// GatewayConfig controls endpoint resolution.
type GatewayConfig struct {
	// LocalPort is the gateway control port used in local mode.
	LocalPort int `yaml:"localPort"`

	// Remote holds remote-mode credentials.
	Remote RemoteConfig `yaml:"remote"`

	// Auth holds local-mode credentials.
	Auth AuthConfig `yaml:"auth"`
}

// RemoteConfig holds remote-mode credentials.
type RemoteConfig struct {
	Password string `yaml:"password"`
}

// AuthConfig holds local-mode credentials.
type AuthConfig struct {
	Password string `yaml:"password"`
}

// LogConfig controls logging output.
type LogConfig struct {
	// Level is the slog level: debug, info, warn or error.
	Level string `yaml:"level"`

	// ProtocolPath is the CBOR protocol event log file. Empty
	// disables protocol logging.
	ProtocolPath string `yaml:"protocolPath"`
}

// StorageConfig locates the credential stores.
type StorageConfig struct {
	// Path is the primary credential store file.
	Path string `yaml:"path"`

	// LegacyPath is the secondary store reconciled at startup.
	// Empty disables reconciliation.
	LegacyPath string `yaml:"legacyPath"`
}

// Default returns the built-in configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	dir := filepath.Join(home, ".openclaw")

	return &Config{
		Gateway: GatewayConfig{
			LocalPort: bridge.DefaultPort,
		},
		Log: LogConfig{
			Level: "info",
		},
		Storage: StorageConfig{
			Path: filepath.Join(dir, "credentials.json"),
		},
	}
}

// Load reads a YAML configuration file, filling unset fields with
// defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Gateway.LocalPort == 0 {
		cfg.Gateway.LocalPort = bridge.DefaultPort
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = Default().Storage.Path
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if c.Gateway.LocalPort < 1 || c.Gateway.LocalPort > 65535 {
		return fmt.Errorf("gateway.localPort out of range: %d", c.Gateway.LocalPort)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log.level %q", c.Log.Level)
	}
	return nil
}

// PasswordOverride returns the trimmed environment password override.
func PasswordOverride() string {
	return strings.TrimSpace(os.Getenv(EnvGatewayPassword))
}

// TokenOverride returns the trimmed environment token override.
func TokenOverride() string {
	return strings.TrimSpace(os.Getenv(EnvGatewayToken))
}

// Domains returns the browse domain list: the local multicast domain
// plus the configured tailnet domain, if any.
func (c *Config) Domains() []string {
	domains := []string{bridge.DefaultDomain}
	if d := strings.TrimSpace(c.Discovery.TailnetDomain); d != "" {
		domains = append(domains, d)
	}
	return domains
}
