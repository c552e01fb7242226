package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig      = "SPACECACHE_CONFIG"
	EnvSpaceID     = "SPACECACHE_SPACE_ID"
	EnvAccessToken = "SPACECACHE_ACCESS_TOKEN" //nolint:gosec // env var name, not a credential
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath  string // SPACECACHE_CONFIG: override config file path
	SpaceID     string // SPACECACHE_SPACE_ID
	AccessToken string // SPACECACHE_ACCESS_TOKEN
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. This does not modify the Config; Load applies the fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:  os.Getenv(EnvConfig),
		SpaceID:     os.Getenv(EnvSpaceID),
		AccessToken: os.Getenv(EnvAccessToken),
	}
}
