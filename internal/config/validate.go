package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrConfiguration is the sentinel for configuration errors. Construction
// fails fast on any of these — there is no degraded mode.
var ErrConfiguration = errors.New("config: invalid configuration")

func configErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Validate checks the resolved configuration for completeness and sanity.
func (c *Config) Validate() error {
	if c.Space.ID == "" {
		return configErr("space.id is required")
	}

	switch c.Cache.Policy {
	case PolicyDisabled, PolicyTTL, PolicyCacheOnly:
	default:
		return configErr("cache.policy must be %q, %q, or %q (got %q)",
			PolicyDisabled, PolicyTTL, PolicyCacheOnly, c.Cache.Policy)
	}

	if c.Cache.Policy == PolicyTTL {
		d, err := time.ParseDuration(c.Cache.TTL)
		if err != nil {
			return configErr("cache.ttl %q is not a duration", c.Cache.TTL)
		}

		if d <= 0 {
			return configErr("cache.ttl must be positive (got %s)", c.Cache.TTL)
		}
	}

	// cache-only never needs a token; everything else talks to the API.
	if c.Cache.Policy != PolicyCacheOnly && c.Space.AccessToken == "" {
		return configErr("space.access_token is required for policy %q", c.Cache.Policy)
	}

	if c.Space.BaseURL == "" {
		return configErr("space.base_url is required")
	}

	if c.Resolve.Depth < 0 {
		return configErr("resolve.depth must be >= 0 (got %d)", c.Resolve.Depth)
	}

	if c.Resolve.Concurrency < 1 {
		return configErr("resolve.concurrency must be >= 1 (got %d)", c.Resolve.Concurrency)
	}

	if c.Ingest.Concurrency < 1 {
		return configErr("ingest.concurrency must be >= 1 (got %d)", c.Ingest.Concurrency)
	}

	if c.Ingest.PageSize < 1 {
		return configErr("ingest.page_size must be >= 1 (got %d)", c.Ingest.PageSize)
	}

	return nil
}
