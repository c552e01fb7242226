// Package config implements TOML configuration loading, validation, and
// platform path resolution for spacecache. The override chain is
// defaults -> config file -> environment -> CLI flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Cache policies. The policy decides, per sync invocation, whether the
// network is consulted at all.
const (
	// PolicyDisabled always invalidates the store and re-ingests.
	PolicyDisabled = "disabled"
	// PolicyTTL refreshes incrementally once the last sync is older
	// than cache.ttl.
	PolicyTTL = "ttl"
	// PolicyCacheOnly never touches the network once a sync exists.
	PolicyCacheOnly = "cache-only"
)

// Config is the top-level configuration parsed from a TOML file.
type Config struct {
	Space   SpaceConfig   `toml:"space"`
	Cache   CacheConfig   `toml:"cache"`
	Resolve ResolveConfig `toml:"resolve"`
	Ingest  IngestConfig  `toml:"ingest"`
	Logging LoggingConfig `toml:"logging"`
}

// SpaceConfig identifies the remote space and how to reach it.
type SpaceConfig struct {
	ID          string `toml:"id"`
	AccessToken string `toml:"access_token"`
	BaseURL     string `toml:"base_url"`
}

// CacheConfig controls the freshness policy of the local mirror.
type CacheConfig struct {
	Policy string `toml:"policy"`
	TTL    string `toml:"ttl"`
	Dir    string `toml:"dir"`
}

// ResolveConfig controls link resolution.
type ResolveConfig struct {
	Depth       int `toml:"depth"`
	Concurrency int `toml:"concurrency"`
}

// IngestConfig controls the ingestion worker pool and page size.
type IngestConfig struct {
	Concurrency int `toml:"concurrency"`
	PageSize    int `toml:"page_size"`
}

// LoggingConfig controls log output behavior: level, format, rotation.
type LoggingConfig struct {
	LogLevel         string `toml:"log_level"`
	LogFile          string `toml:"log_file"`
	LogFormat        string `toml:"log_format"`
	LogRetentionDays int    `toml:"log_retention_days"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Empty values mean "not specified".
type CLIOverrides struct {
	ConfigPath  string // --config flag
	SpaceID     string // --space flag
	AccessToken string // --access-token flag
	CachePolicy string // --cache-policy flag
}

// Load resolves the effective configuration: defaults, then the config
// file (if present), then environment variables, then CLI flags.
// Validation failures are fatal — a misconfigured cache must not run.
func Load(overrides CLIOverrides) (*Config, error) {
	cfg := DefaultConfig()

	env := ReadEnvOverrides()

	path := overrides.ConfigPath
	if path == "" {
		path = env.ConfigPath
	}

	explicit := path != ""
	if path == "" {
		path = DefaultConfigPath()
	}

	if err := decodeFile(path, cfg, explicit); err != nil {
		return nil, err
	}

	applyEnv(cfg, env)
	applyCLI(cfg, overrides)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// decodeFile merges the TOML file at path into cfg. A missing file is
// only an error when the path was requested explicitly.
func decodeFile(path string, cfg *Config, explicit bool) error {
	_, err := toml.DecodeFile(path, cfg)
	if errors.Is(err, fs.ErrNotExist) {
		if explicit {
			return fmt.Errorf("config: file %s does not exist", path)
		}

		return nil
	}

	if err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return nil
}

func applyEnv(cfg *Config, env EnvOverrides) {
	if env.SpaceID != "" {
		cfg.Space.ID = env.SpaceID
	}

	if env.AccessToken != "" {
		cfg.Space.AccessToken = env.AccessToken
	}
}

func applyCLI(cfg *Config, overrides CLIOverrides) {
	if overrides.SpaceID != "" {
		cfg.Space.ID = overrides.SpaceID
	}

	if overrides.AccessToken != "" {
		cfg.Space.AccessToken = overrides.AccessToken
	}

	if overrides.CachePolicy != "" {
		cfg.Cache.Policy = overrides.CachePolicy
	}
}

// TTLDuration returns the parsed cache TTL. Validate has already
// guaranteed it parses.
func (c *Config) TTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.Cache.TTL)
	return d
}

// EnsureCacheDir creates the cache directory if needed and returns it.
func (c *Config) EnsureCacheDir() (string, error) {
	dir := c.Cache.Dir
	if dir == "" {
		dir = DefaultCacheDir()
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("config: creating cache directory %s: %w", dir, err)
	}

	return dir, nil
}
