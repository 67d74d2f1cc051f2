package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_CreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	m := NewManager(path)

	s, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)

	_, err = os.Stat(path)
	assert.NoError(t, err, "defaults should be written to disk")
}

func TestLoad_Backfills(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	partial := `{
		"server": {"port": 9000},
		"metadata": {"cacheTtlHours": 6},
		"cache": {"directory": "/var/marquee"},
		"database": {"driver": "sqlite", "path": "/var/marquee/library.sqlite"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(partial), 0o644))

	s, err := NewManager(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, s.Server.Port)
	assert.Equal(t, "0.0.0.0", s.Server.Host)
	assert.Equal(t, 6, s.Metadata.CacheTTLHours)
	assert.Equal(t, "sqlite", s.Database.Driver)
	assert.Equal(t, "en-US", s.Metadata.Language)
	assert.Equal(t, 5, s.Library.MaxProfiles)
	assert.Equal(t, "cache/logs/backend.log", s.Log.File)
	assert.Empty(t, s.Validate())
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	m := NewManager(path)

	s := DefaultSettings()
	s.Auth.Secret = "s3cret"
	s.Database.Driver = "memory"
	require.NoError(t, m.Save(s))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file should be renamed away")

	loaded, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}

func TestLoad_NoPath(t *testing.T) {
	_, err := NewManager("").Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	s := DefaultSettings()
	assert.Empty(t, s.Validate())

	s.Server.Port = 99999
	s.Database.Driver = "postgres"
	s.Library.MaxProfiles = 9
	s.Log.Level = "verbose"
	s.RateLimit = RateLimitSettings{RequestsPerSecond: 5}

	errs := s.Validate()
	for _, want := range []string{"server.port", "database.driver", "library.maxProfiles", "log.level", "rateLimit.burst"} {
		assert.True(t, containsError(errs, want), "expected %s error, got %v", want, errs)
	}
}

func containsError(errs []string, substr string) bool {
	for _, e := range errs {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}
