// Package config loads and saves the client configuration.
//
// Values are layered: built-in defaults, then the TOML file, then the
// XFILEHOST_* environment variables. Command-line flags are applied last by
// the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	PolicyOptimistic = "optimistic"
	PolicyRefetch    = "refetch"
)

const (
	EnvBaseURL   = "XFILEHOST_BASE_URL"
	EnvToken     = "XFILEHOST_TOKEN"
	EnvTokenFile = "XFILEHOST_TOKEN_FILE"
)

var (
	ErrNoBaseURL     = errors.New("base_url is required")
	ErrDeletePolicy  = errors.New("delete_policy must be optimistic or refetch")
	ErrGridRows      = errors.New("grid.rows must be positive")
	ErrGridTileWidth = errors.New("grid.tile_width must be positive")
	ErrNoListings    = errors.New("at least one listing is required")
)

// Config represents the application configuration
type Config struct {
	BaseURL      string    `toml:"base_url"`
	Token        string    `toml:"token,omitempty"`
	TokenFile    string    `toml:"token_file,omitempty"`
	DownloadDir  string    `toml:"download_dir,omitempty"`
	DeletePolicy string    `toml:"delete_policy"`
	LogLevel     string    `toml:"log_level"`
	Grid         Grid      `toml:"grid"`
	HTTP         HTTP      `toml:"http"`
	Listings     []Listing `toml:"listings"`
}

// Grid controls tile layout. Page size is columns*rows, columns being
// derived from the measured width.
type Grid struct {
	Rows      int     `toml:"rows"`
	TileWidth float32 `toml:"tile_width"`
	Gap       float32 `toml:"gap"`
}

type HTTP struct {
	// ReadRetries applies to idempotent reads only. Mutations are never retried.
	ReadRetries    int  `toml:"read_retries"`
	TimeoutSeconds int  `toml:"timeout_seconds"`
	DisableHTTP2   bool `toml:"disable_http2"`
}

// Listing is a named list endpoint shown in the sidebar.
type Listing struct {
	Name     string `toml:"name"`
	Endpoint string `toml:"endpoint"`
}

func Default() *Config {
	return &Config{
		DeletePolicy: PolicyOptimistic,
		LogLevel:     "info",
		Grid: Grid{
			Rows:      5,
			TileWidth: 160,
			Gap:       8,
		},
		HTTP: HTTP{
			TimeoutSeconds: 30,
		},
		Listings: []Listing{
			{Name: "My files", Endpoint: "/files"},
		},
	}
}

// DefaultPath returns <UserConfigDir>/xfilehost/config.toml.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir, err = os.UserHomeDir()
		if err != nil {
			configDir = "."
		}
		configDir = filepath.Join(configDir, ".config")
	}
	return filepath.Join(configDir, "xfilehost", "config.toml")
}

// Load reads path over the defaults and applies the environment. A missing
// file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// ApplyEnv overrides fields from the environment. lookup is os.LookupEnv
// outside of tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvBaseURL); ok && v != "" {
		c.BaseURL = v
	}
	if v, ok := lookup(EnvToken); ok && v != "" {
		c.Token = v
	}
	if v, ok := lookup(EnvTokenFile); ok && v != "" {
		c.TokenFile = v
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrNoBaseURL
	}
	switch c.DeletePolicy {
	case PolicyOptimistic, PolicyRefetch:
	default:
		return fmt.Errorf("%w: got %s", ErrDeletePolicy, strconv.Quote(c.DeletePolicy))
	}
	if c.Grid.Rows <= 0 {
		return ErrGridRows
	}
	if c.Grid.TileWidth <= 0 {
		return ErrGridTileWidth
	}
	if len(c.Listings) == 0 {
		return ErrNoListings
	}
	return nil
}

// ResolveToken returns the bearer token. An inline token wins over the
// token file. An empty result means unauthenticated requests.
func (c *Config) ResolveToken() (string, error) {
	if c.Token != "" {
		return c.Token, nil
	}
	if c.TokenFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.TokenFile)
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes the configuration to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file may hold a token.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
