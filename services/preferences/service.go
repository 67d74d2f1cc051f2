package preferences

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"marquee/models"
)

var (
	ErrStorageDirRequired = errors.New("storage directory not provided")
	ErrUserIDRequired     = errors.New("user id is required")
	ErrInvalidQuality     = errors.New("quality must be one of auto, 1080p, 720p, 480p")
)

// Service persists per-user local preferences: autoplay, quality and recent searches.
type Service struct {
	mu    sync.RWMutex
	fs    afero.Fs
	path  string
	prefs map[string]models.Preferences
}

// NewService creates a preferences service storing data inside the provided directory of fs.
func NewService(fs afero.Fs, storageDir string) (*Service, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}

	if err := fs.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create preferences dir: %w", err)
	}

	svc := &Service{
		fs:    fs,
		path:  filepath.Join(storageDir, "preferences.json"),
		prefs: make(map[string]models.Preferences),
	}

	if err := svc.load(); err != nil {
		return nil, err
	}

	return svc, nil
}

// Get returns the user's preferences, falling back to defaults.
func (s *Service) Get(userID string) (models.Preferences, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.Preferences{}, ErrUserIDRequired
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getLocked(userID), nil
}

// UpdatePlayback applies the non-nil autoplay and quality fields.
func (s *Service) UpdatePlayback(userID string, update models.PlaybackUpdate) (models.Preferences, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.Preferences{}, ErrUserIDRequired
	}
	if update.Quality != nil && !models.ValidQuality(strings.ToLower(strings.TrimSpace(*update.Quality))) {
		return models.Preferences{}, ErrInvalidQuality
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prefs := s.getLocked(userID)
	if update.Autoplay != nil {
		prefs.Autoplay = *update.Autoplay
	}
	if update.Quality != nil {
		prefs.Quality = strings.ToLower(strings.TrimSpace(*update.Quality))
	}
	return s.putLocked(userID, prefs)
}

// AddRecentSearch records query as the most recent search. A query already in the
// history (case-insensitive) moves to the front. Blank queries are ignored.
func (s *Service) AddRecentSearch(userID, query string) (models.Preferences, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.Preferences{}, ErrUserIDRequired
	}
	query = strings.Join(strings.Fields(query), " ")

	s.mu.Lock()
	defer s.mu.Unlock()

	prefs := s.getLocked(userID)
	if query == "" {
		return prefs, nil
	}

	searches := make([]string, 0, models.MaxRecentSearches)
	searches = append(searches, query)
	for _, existing := range prefs.RecentSearches {
		if strings.EqualFold(existing, query) {
			continue
		}
		if len(searches) == models.MaxRecentSearches {
			break
		}
		searches = append(searches, existing)
	}
	prefs.RecentSearches = searches
	return s.putLocked(userID, prefs)
}

// RemoveRecentSearch deletes one entry from the history.
func (s *Service) RemoveRecentSearch(userID, query string) (models.Preferences, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.Preferences{}, ErrUserIDRequired
	}
	query = strings.Join(strings.Fields(query), " ")

	s.mu.Lock()
	defer s.mu.Unlock()

	prefs := s.getLocked(userID)
	kept := make([]string, 0, len(prefs.RecentSearches))
	for _, existing := range prefs.RecentSearches {
		if !strings.EqualFold(existing, query) {
			kept = append(kept, existing)
		}
	}
	if len(kept) == len(prefs.RecentSearches) {
		return prefs, nil
	}
	prefs.RecentSearches = kept
	return s.putLocked(userID, prefs)
}

// ClearRecentSearches empties the history.
func (s *Service) ClearRecentSearches(userID string) (models.Preferences, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.Preferences{}, ErrUserIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prefs := s.getLocked(userID)
	prefs.RecentSearches = []string{}
	return s.putLocked(userID, prefs)
}

// Delete removes all stored preferences for the user.
func (s *Service) Delete(userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrUserIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, ok := s.prefs[userID]
	if !ok {
		return nil
	}
	delete(s.prefs, userID)
	if err := s.saveLocked(); err != nil {
		s.prefs[userID] = previous
		return err
	}
	return nil
}

func (s *Service) getLocked(userID string) models.Preferences {
	prefs, ok := s.prefs[userID]
	if !ok {
		return models.DefaultPreferences()
	}
	prefs.RecentSearches = append([]string{}, prefs.RecentSearches...)
	return prefs
}

func (s *Service) putLocked(userID string, prefs models.Preferences) (models.Preferences, error) {
	previous, existed := s.prefs[userID]
	s.prefs[userID] = prefs
	if err := s.saveLocked(); err != nil {
		if existed {
			s.prefs[userID] = previous
		} else {
			delete(s.prefs, userID)
		}
		return models.Preferences{}, err
	}
	return s.getLocked(userID), nil
}

func (s *Service) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.fs.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open preferences file: %w", err)
	}
	defer file.Close()

	var stored map[string]models.Preferences
	if err := json.NewDecoder(file).Decode(&stored); err != nil {
		return fmt.Errorf("decode preferences: %w", err)
	}

	s.prefs = make(map[string]models.Preferences, len(stored))
	for userID, prefs := range stored {
		if !models.ValidQuality(prefs.Quality) {
			prefs.Quality = models.QualityAuto
		}
		if prefs.RecentSearches == nil {
			prefs.RecentSearches = []string{}
		}
		if len(prefs.RecentSearches) > models.MaxRecentSearches {
			prefs.RecentSearches = prefs.RecentSearches[:models.MaxRecentSearches]
		}
		s.prefs[userID] = prefs
	}
	return nil
}

func (s *Service) saveLocked() error {
	tmp := s.path + ".tmp"
	file, err := s.fs.Create(tmp)
	if err != nil {
		return fmt.Errorf("create preferences temp file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.prefs); err != nil {
		file.Close()
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("encode preferences: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("sync preferences: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("close preferences temp file: %w", err)
	}

	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace preferences file: %w", err)
	}

	return nil
}
