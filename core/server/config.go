package server

import "time"

// Config holds configuration for the read-only status API.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API.
	ApiKey string `mapstructure:"api_key" default:""`
	// CacheTTLSeconds bounds how long batch inventories are reused by the reconcile endpoint.
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds" default:"60"`
}

// CacheTTL returns the inventory cache lifetime; zero disables caching.
func (c Config) CacheTTL() time.Duration {
	if c.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.CacheTTLSeconds) * time.Second
}
