package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server    ServerSettings    `json:"server"`
	Metadata  MetadataSettings  `json:"metadata"`
	Cache     CacheSettings     `json:"cache"`
	Database  DatabaseSettings  `json:"database"`
	Auth      AuthSettings      `json:"auth"`
	Library   LibrarySettings   `json:"library"`
	RateLimit RateLimitSettings `json:"rateLimit"`
	Log       LogConfig         `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type MetadataSettings struct {
	TMDBAPIKey    string `json:"tmdbApiKey"`
	Language      string `json:"language"`
	CacheTTLHours int    `json:"cacheTtlHours"`
}

// CacheSettings holds the directory for locally persisted state (profiles, preferences).
type CacheSettings struct {
	Directory string `json:"directory"`
}

// DatabaseSettings selects the document store backing the library collections.
type DatabaseSettings struct {
	Driver string `json:"driver"` // bolt | sqlite | memory
	Path   string `json:"path"`
}

type AuthSettings struct {
	Secret string `json:"secret"`
	Issuer string `json:"issuer"`
}

type LibrarySettings struct {
	MaxProfiles int `json:"maxProfiles"`
}

// RateLimitSettings applies per client IP. Zero requests per second disables limiting.
type RateLimitSettings struct {
	RequestsPerSecond float64 `json:"requestsPerSecond"`
	Burst             int     `json:"burst"`
}

type LogConfig struct {
	File       string `json:"file"`
	Level      string `json:"level"`
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

func DefaultSettings() Settings {
	return Settings{
		Server:    ServerSettings{Host: "0.0.0.0", Port: 7777},
		Metadata:  MetadataSettings{TMDBAPIKey: "", Language: "en-US", CacheTTLHours: 24},
		Cache:     CacheSettings{Directory: "cache"},
		Database:  DatabaseSettings{Driver: "bolt", Path: "cache/library.db"},
		Auth:      AuthSettings{Secret: "", Issuer: "marquee"},
		Library:   LibrarySettings{MaxProfiles: 5},
		RateLimit: RateLimitSettings{RequestsPerSecond: 20, Burst: 40},
		Log: LogConfig{
			File:       "cache/logs/backend.log",
			Level:      "info",
			MaxSize:    50,   // 50 MB per file
			MaxBackups: 3,    // keep 3 old files
			MaxAge:     7,    // 7 days
			Compress:   true, // compress old files
		},
	}
}

// Manager loads and persists settings to a JSON file.
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// Path returns the settings file location.
func (m *Manager) Path() string {
	return m.path
}

// EnsureDir ensures parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads settings.json from disk or creates defaults if missing.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		// create with defaults
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}
	f, err := os.Open(m.path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()

	var s Settings
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return Settings{}, err
	}

	backfill(&s)
	return s, nil
}

// backfill fills zero values for settings introduced after the file was written.
func backfill(s *Settings) {
	defaults := DefaultSettings()

	if strings.TrimSpace(s.Server.Host) == "" {
		s.Server.Host = defaults.Server.Host
	}
	if s.Server.Port == 0 {
		s.Server.Port = defaults.Server.Port
	}
	if strings.TrimSpace(s.Metadata.Language) == "" {
		s.Metadata.Language = defaults.Metadata.Language
	}
	if s.Metadata.CacheTTLHours == 0 {
		s.Metadata.CacheTTLHours = defaults.Metadata.CacheTTLHours
	}
	if strings.TrimSpace(s.Cache.Directory) == "" {
		s.Cache.Directory = defaults.Cache.Directory
	}
	if strings.TrimSpace(s.Database.Driver) == "" {
		s.Database.Driver = defaults.Database.Driver
	}
	if strings.TrimSpace(s.Database.Path) == "" {
		s.Database.Path = defaults.Database.Path
	}
	if strings.TrimSpace(s.Auth.Issuer) == "" {
		s.Auth.Issuer = defaults.Auth.Issuer
	}
	if s.Library.MaxProfiles == 0 {
		s.Library.MaxProfiles = defaults.Library.MaxProfiles
	}
	if s.RateLimit.Burst == 0 && s.RateLimit.RequestsPerSecond > 0 {
		s.RateLimit.Burst = int(s.RateLimit.RequestsPerSecond) * 2
		if s.RateLimit.Burst < 1 {
			s.RateLimit.Burst = 1
		}
	}

	// Backfill Log settings
	if strings.TrimSpace(s.Log.File) == "" {
		s.Log.File = defaults.Log.File
	}
	if strings.TrimSpace(s.Log.Level) == "" {
		s.Log.Level = defaults.Log.Level
	}
	if s.Log.MaxSize == 0 {
		s.Log.MaxSize = defaults.Log.MaxSize
	}
	if s.Log.MaxBackups == 0 {
		s.Log.MaxBackups = defaults.Log.MaxBackups
	}
	if s.Log.MaxAge == 0 {
		s.Log.MaxAge = defaults.Log.MaxAge
	}
}

// Save writes the provided settings to disk atomically.
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, m.path)
}
