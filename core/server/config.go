package server

import "time"

// Config holds configuration for the status HTTP API.
type Config struct {
	// Enabled starts the status API alongside the sync loop.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API. Empty disables auth.
	ApiKey string `mapstructure:"api_key" default:""`
	// ReportTTLSeconds is how long a verification report is served from cache.
	ReportTTLSeconds int `mapstructure:"report_ttl_seconds" default:"30"`
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return ":" + c.Port
}

// ReportTTL returns ReportTTLSeconds as a duration.
func (c Config) ReportTTL() time.Duration {
	if c.ReportTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.ReportTTLSeconds) * time.Second
}
