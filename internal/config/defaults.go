package config

// Default values for configuration options, the first layer of the
// override chain. Chosen to work without any config file beyond the
// space id and access token.
const (
	defaultBaseURL            = "https://cdn.contentful.com"
	defaultCachePolicy        = PolicyTTL
	defaultCacheTTL           = "1h"
	defaultResolveDepth       = 2
	defaultResolveConcurrency = 2
	defaultIngestConcurrency  = 3
	defaultPageSize           = 100
	defaultLogLevel           = "info"
	defaultLogFormat          = "auto"
	defaultLogRetentionDays   = 30
)

// DefaultConfig returns a Config populated with all default values.
// Used as the starting point for TOML decoding so unset fields retain
// their defaults.
func DefaultConfig() *Config {
	return &Config{
		Space: SpaceConfig{
			BaseURL: defaultBaseURL,
		},
		Cache: CacheConfig{
			Policy: defaultCachePolicy,
			TTL:    defaultCacheTTL,
		},
		Resolve: ResolveConfig{
			Depth:       defaultResolveDepth,
			Concurrency: defaultResolveConcurrency,
		},
		Ingest: IngestConfig{
			Concurrency: defaultIngestConcurrency,
			PageSize:    defaultPageSize,
		},
		Logging: LoggingConfig{
			LogLevel:         defaultLogLevel,
			LogFormat:        defaultLogFormat,
			LogRetentionDays: defaultLogRetentionDays,
		},
	}
}
