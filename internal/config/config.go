// ABOUTME: Configuration loading and parsing for identity-gateway
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable holding the config file path.
const EnvConfigPath = "IDENTITY_GATEWAY_CONFIG"

// Directory drivers.
const (
	DriverSQLite   = "sqlite"
	DriverKeycloak = "keycloak"
)

// minSecretLength matches the token verifier and minter minimum.
const minSecretLength = 32

// minInitialPasswordLength matches the embedded directory's password minimum.
const minInitialPasswordLength = 6

// Config represents the complete identity-gateway configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale" toml:"tailscale"`
	Auth      AuthConfig      `yaml:"auth" toml:"auth"`
	Directory DirectoryConfig `yaml:"directory" toml:"directory"`
	Audit     AuditConfig     `yaml:"audit" toml:"audit"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr" toml:"grpc_addr"`
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Hostname  string `yaml:"hostname" toml:"hostname"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key"`
	StateDir  string `yaml:"state_dir" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
}

// AuthConfig holds caller authentication configuration.
// At least one of JWTSecret or JWKSURL must be set.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret"`
	JWKSURL   string `yaml:"jwks_url" toml:"jwks_url"`
	Issuer    string `yaml:"issuer" toml:"issuer"`
	Audience  string `yaml:"audience" toml:"audience"`
	AdminRole string `yaml:"admin_role" toml:"admin_role"`
}

// DirectoryConfig selects and configures the identity directory backend
type DirectoryConfig struct {
	Driver          string         `yaml:"driver" toml:"driver"`
	InitialPassword string         `yaml:"initial_password" toml:"initial_password"`
	TokenSecret     string         `yaml:"token_secret" toml:"token_secret"`
	TokenIssuer     string         `yaml:"token_issuer" toml:"token_issuer"`
	TokenTTL        time.Duration  `yaml:"-" toml:"-"`
	TokenTTLRaw     string         `yaml:"token_ttl" toml:"token_ttl"`
	SQLite          SQLiteConfig   `yaml:"sqlite" toml:"sqlite"`
	Keycloak        KeycloakConfig `yaml:"keycloak" toml:"keycloak"`
}

// SQLiteConfig holds the embedded directory database location
type SQLiteConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// KeycloakConfig holds Keycloak Admin REST API settings
type KeycloakConfig struct {
	BaseURL      string `yaml:"base_url" toml:"base_url"`
	Realm        string `yaml:"realm" toml:"realm"`
	AdminRealm   string `yaml:"admin_realm" toml:"admin_realm"`
	ClientID     string `yaml:"client_id" toml:"client_id"`
	ClientSecret string `yaml:"client_secret" toml:"client_secret"`
	Username     string `yaml:"username" toml:"username"`
	Password     string `yaml:"password" toml:"password"`
}

// AuditConfig holds audit log configuration. An empty path disables the audit log.
type AuditConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// DefaultPath returns the config path from IDENTITY_GATEWAY_CONFIG, falling back to
// $XDG_CONFIG_HOME/identity-gateway/gateway.yaml.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "identity-gateway", "gateway.yaml")
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are parsed as TOML, anything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyDefaults()

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Directory.Driver == "" {
		c.Directory.Driver = DriverSQLite
	}
	if c.Directory.Keycloak.ClientID == "" {
		c.Directory.Keycloak.ClientID = "admin-cli"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	// Server addresses are required unless Tailscale is enabled
	if !c.Tailscale.Enabled {
		if c.Server.GRPCAddr == "" {
			return fmt.Errorf("server.grpc_addr is required (or enable tailscale)")
		}
		if c.Server.HTTPAddr == "" {
			return fmt.Errorf("server.http_addr is required (or enable tailscale)")
		}
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if err := c.Auth.validate(); err != nil {
		return err
	}
	if err := c.Directory.validate(); err != nil {
		return err
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

func (a AuthConfig) validate() error {
	if a.JWTSecret == "" && a.JWKSURL == "" {
		return fmt.Errorf("auth.jwt_secret or auth.jwks_url is required")
	}
	if a.JWTSecret != "" && len(a.JWTSecret) < minSecretLength {
		return fmt.Errorf("auth.jwt_secret must be at least %d bytes", minSecretLength)
	}
	if a.JWKSURL != "" {
		if _, err := url.ParseRequestURI(a.JWKSURL); err != nil {
			return fmt.Errorf("auth.jwks_url is not a valid URL: %w", err)
		}
	}
	return nil
}

func (d DirectoryConfig) validate() error {
	if d.InitialPassword == "" {
		return fmt.Errorf("directory.initial_password is required")
	}
	if len(d.InitialPassword) < minInitialPasswordLength {
		return fmt.Errorf("directory.initial_password must be at least %d characters", minInitialPasswordLength)
	}
	if len(d.TokenSecret) < minSecretLength {
		return fmt.Errorf("directory.token_secret must be at least %d bytes", minSecretLength)
	}

	switch d.Driver {
	case DriverSQLite:
		if d.SQLite.Path == "" {
			return fmt.Errorf("directory.sqlite.path is required")
		}
	case DriverKeycloak:
		kc := d.Keycloak
		if kc.BaseURL == "" {
			return fmt.Errorf("directory.keycloak.base_url is required")
		}
		if kc.Realm == "" {
			return fmt.Errorf("directory.keycloak.realm is required")
		}
		if kc.ClientSecret == "" && (kc.Username == "" || kc.Password == "") {
			return fmt.Errorf("directory.keycloak.client_secret or username and password are required")
		}
	default:
		return fmt.Errorf("directory.driver must be %s or %s, got %q", DriverSQLite, DriverKeycloak, d.Driver)
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Directory.TokenTTLRaw != "" {
		ttl, err := time.ParseDuration(cfg.Directory.TokenTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing token_ttl %q: %w", cfg.Directory.TokenTTLRaw, err)
		}
		if ttl <= 0 {
			return fmt.Errorf("token_ttl must be positive, got %q", cfg.Directory.TokenTTLRaw)
		}
		cfg.Directory.TokenTTL = ttl
	}
	return nil
}
