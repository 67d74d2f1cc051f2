package config

import (
	"fmt"
	"strings"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

var validDrivers = map[string]bool{
	"bolt": true, "sqlite": true, "memory": true,
}

// Validate checks the settings for errors.
// Returns a slice of error messages (empty if valid).
func (s *Settings) Validate() []string {
	var errs []string

	if s.Server.Port < 1 || s.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port: must be between 1 and 65535, got %d", s.Server.Port))
	}

	if !validDrivers[s.Database.Driver] {
		errs = append(errs, fmt.Sprintf("database.driver: must be one of bolt, sqlite, memory; got %q", s.Database.Driver))
	}
	if s.Database.Driver != "memory" && strings.TrimSpace(s.Database.Path) == "" {
		errs = append(errs, "database.path: required for persistent drivers")
	}

	if strings.TrimSpace(s.Cache.Directory) == "" {
		errs = append(errs, "cache.directory: required")
	}

	if s.Metadata.CacheTTLHours < 0 {
		errs = append(errs, fmt.Sprintf("metadata.cacheTtlHours: must not be negative, got %d", s.Metadata.CacheTTLHours))
	}

	if s.Library.MaxProfiles < 1 || s.Library.MaxProfiles > 5 {
		errs = append(errs, fmt.Sprintf("library.maxProfiles: must be between 1 and 5, got %d", s.Library.MaxProfiles))
	}

	if s.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, "rateLimit.requestsPerSecond: must not be negative")
	}
	if s.RateLimit.RequestsPerSecond > 0 && s.RateLimit.Burst < 1 {
		errs = append(errs, "rateLimit.burst: must be at least 1 when rate limiting is enabled")
	}

	if !validLogLevels[s.Log.Level] {
		errs = append(errs, fmt.Sprintf("log.level: must be one of debug, info, warn, error; got %q", s.Log.Level))
	}

	return errs
}
