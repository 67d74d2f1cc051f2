package profiles

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/crypto/bcrypt"

	"marquee/models"
)

var (
	ErrStorageDirRequired = errors.New("storage directory not provided")
	ErrUserIDRequired     = errors.New("user id is required")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrTitleRequired      = errors.New("title is required")
	ErrTitleTooLong       = fmt.Errorf("title must be at most %d characters", models.MaxProfileTitleLength)
	ErrTitleTaken         = errors.New("title is already used by another profile")
	ErrProfileLimit       = fmt.Errorf("a user can have at most %d profiles", models.MaxProfiles)
	ErrInvalidAgeLimit    = errors.New("age limit must be between 0 and 21")
	ErrPinRequired        = errors.New("PIN is required")
	ErrPinInvalid         = errors.New("invalid PIN")
	ErrPinFormat          = errors.New("PIN must be exactly 4 digits")
)

// NewProfile carries the fields accepted when creating a profile.
type NewProfile struct {
	Title      string `json:"title"`
	AvatarKey  string `json:"avatarKey,omitempty"`
	PosterPath string `json:"posterPath,omitempty"`
	AgeLimit   int    `json:"ageLimit"`
	AdultOnly  bool   `json:"adultOnly"`
	Language   string `json:"language,omitempty"`
}

type account struct {
	Profiles []models.Profile
	ActiveID string
}

// Service manages the profiles of every user and their active-profile pointer.
type Service struct {
	mu       sync.RWMutex
	fs       afero.Fs
	path     string
	accounts map[string]*account
	now      func() time.Time
	maxCount int
}

// NewService creates a profiles service storing data inside the provided directory of fs.
func NewService(fs afero.Fs, storageDir string) (*Service, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}

	if err := fs.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create profiles dir: %w", err)
	}

	svc := &Service{
		fs:       fs,
		path:     filepath.Join(storageDir, "profiles.json"),
		accounts: make(map[string]*account),
		now:      func() time.Time { return time.Now().UTC() },
		maxCount: models.MaxProfiles,
	}

	if err := svc.load(); err != nil {
		return nil, err
	}

	return svc, nil
}

// SetLimit lowers the per-user profile cap. Values outside 1..MaxProfiles are ignored.
func (s *Service) SetLimit(n int) {
	if n < 1 || n > models.MaxProfiles {
		return
	}
	s.mu.Lock()
	s.maxCount = n
	s.mu.Unlock()
}

// List returns the user's profiles ordered by creation time.
func (s *Service) List(userID string) []models.Profile {
	userID = strings.TrimSpace(userID)

	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[userID]
	if !ok {
		return []models.Profile{}
	}
	out := make([]models.Profile, len(acct.Profiles))
	copy(out, acct.Profiles)
	return out
}

// Get returns a single profile.
func (s *Service) Get(userID, profileID string) (models.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, idx := s.findLocked(userID, profileID)
	if idx < 0 {
		return models.Profile{}, false
	}
	return acct.Profiles[idx], true
}

// ActiveID returns the active profile id, or "" when none is selected.
func (s *Service) ActiveID(userID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if acct, ok := s.accounts[strings.TrimSpace(userID)]; ok {
		return acct.ActiveID
	}
	return ""
}

// Active returns the active profile.
func (s *Service) Active(userID string) (models.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[strings.TrimSpace(userID)]
	if !ok || acct.ActiveID == "" {
		return models.Profile{}, false
	}
	_, idx := s.findLocked(userID, acct.ActiveID)
	if idx < 0 {
		return models.Profile{}, false
	}
	return acct.Profiles[idx], true
}

// Create adds a profile. The first profile of a user becomes active.
func (s *Service) Create(userID string, input NewProfile) (models.Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.Profile{}, ErrUserIDRequired
	}
	title, err := normaliseTitle(input.Title)
	if err != nil {
		return models.Profile{}, err
	}
	if input.AgeLimit < 0 || input.AgeLimit > 21 {
		return models.Profile{}, ErrInvalidAgeLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.snapshotLocked(userID)
	acct, ok := s.accounts[userID]
	if !ok {
		acct = &account{}
	}
	if len(acct.Profiles) >= s.maxCount {
		return models.Profile{}, ErrProfileLimit
	}
	if titleTaken(acct.Profiles, title, "") {
		return models.Profile{}, ErrTitleTaken
	}

	now := s.now()
	profile := models.Profile{
		ID:         uuid.NewString(),
		Title:      title,
		AvatarKey:  strings.TrimSpace(input.AvatarKey),
		PosterPath: strings.TrimSpace(input.PosterPath),
		AgeLimit:   input.AgeLimit,
		AdultOnly:  input.AdultOnly,
		Language:   strings.TrimSpace(input.Language),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	acct.Profiles = append(acct.Profiles, profile)
	if acct.ActiveID == "" {
		acct.ActiveID = profile.ID
	}
	s.accounts[userID] = acct

	if err := s.commitLocked(userID, prev, existed); err != nil {
		return models.Profile{}, err
	}
	return profile, nil
}

// Update applies the non-nil fields of update.
func (s *Service) Update(userID, profileID string, update models.ProfileUpdate) (models.Profile, error) {
	var title string
	if update.Title != nil {
		t, err := normaliseTitle(*update.Title)
		if err != nil {
			return models.Profile{}, err
		}
		title = t
	}
	if update.AgeLimit != nil && (*update.AgeLimit < 0 || *update.AgeLimit > 21) {
		return models.Profile{}, ErrInvalidAgeLimit
	}
	userID = strings.TrimSpace(userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, idx := s.findLocked(userID, profileID)
	if idx < 0 {
		return models.Profile{}, ErrProfileNotFound
	}
	profile := acct.Profiles[idx]

	if update.Title != nil {
		if titleTaken(acct.Profiles, title, profile.ID) {
			return models.Profile{}, ErrTitleTaken
		}
		profile.Title = title
	}
	if update.AvatarKey != nil {
		profile.AvatarKey = strings.TrimSpace(*update.AvatarKey)
	}
	if update.PosterPath != nil {
		profile.PosterPath = strings.TrimSpace(*update.PosterPath)
	}
	if update.AgeLimit != nil {
		profile.AgeLimit = *update.AgeLimit
	}
	if update.AdultOnly != nil {
		profile.AdultOnly = *update.AdultOnly
	}
	if update.Language != nil {
		profile.Language = strings.TrimSpace(*update.Language)
	}
	profile.UpdatedAt = s.now()
	prev, _ := s.snapshotLocked(userID)
	acct.Profiles[idx] = profile

	if err := s.commitLocked(userID, prev, true); err != nil {
		return models.Profile{}, err
	}
	return profile, nil
}

// Delete removes a profile. When it was active the pointer moves to the oldest
// remaining profile, or is cleared when none remain. Returns the new active id.
func (s *Service) Delete(userID, profileID string) (string, error) {
	userID = strings.TrimSpace(userID)
	profileID = strings.TrimSpace(profileID)

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, idx := s.findLocked(userID, profileID)
	if idx < 0 {
		return "", ErrProfileNotFound
	}
	prev, _ := s.snapshotLocked(userID)

	acct.Profiles = append(acct.Profiles[:idx], acct.Profiles[idx+1:]...)
	if acct.ActiveID == profileID {
		acct.ActiveID = ""
		if len(acct.Profiles) > 0 {
			acct.ActiveID = acct.Profiles[0].ID
		}
	}

	if err := s.commitLocked(userID, prev, true); err != nil {
		return "", err
	}
	return acct.ActiveID, nil
}

// SetActive points the user's active profile at profileID. An empty id clears it.
func (s *Service) SetActive(userID, profileID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrUserIDRequired
	}
	profileID = strings.TrimSpace(profileID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if profileID == "" {
		acct, ok := s.accounts[userID]
		if !ok || acct.ActiveID == "" {
			return nil
		}
		prev, _ := s.snapshotLocked(userID)
		acct.ActiveID = ""
		return s.commitLocked(userID, prev, true)
	}

	acct, idx := s.findLocked(userID, profileID)
	if idx < 0 {
		return ErrProfileNotFound
	}
	if acct.ActiveID == profileID {
		return nil
	}
	prev, _ := s.snapshotLocked(userID)
	acct.ActiveID = profileID
	return s.commitLocked(userID, prev, true)
}

// SetPin locks the profile behind a 4 digit PIN.
func (s *Service) SetPin(userID, profileID, pin string) (models.Profile, error) {
	pin = strings.TrimSpace(pin)
	if pin == "" {
		return models.Profile{}, ErrPinRequired
	}
	if !validPin(pin) {
		return models.Profile{}, ErrPinFormat
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return models.Profile{}, fmt.Errorf("hash PIN: %w", err)
	}

	userID = strings.TrimSpace(userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, idx := s.findLocked(userID, profileID)
	if idx < 0 {
		return models.Profile{}, ErrProfileNotFound
	}
	prev, _ := s.snapshotLocked(userID)
	profile := acct.Profiles[idx]
	profile.PinHash = string(hash)
	profile.Locked = true
	profile.UpdatedAt = s.now()
	acct.Profiles[idx] = profile

	if err := s.commitLocked(userID, prev, true); err != nil {
		return models.Profile{}, err
	}
	return profile, nil
}

// ClearPin unlocks the profile.
func (s *Service) ClearPin(userID, profileID string) (models.Profile, error) {
	userID = strings.TrimSpace(userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, idx := s.findLocked(userID, profileID)
	if idx < 0 {
		return models.Profile{}, ErrProfileNotFound
	}
	prev, _ := s.snapshotLocked(userID)
	profile := acct.Profiles[idx]
	profile.PinHash = ""
	profile.Locked = false
	profile.UpdatedAt = s.now()
	acct.Profiles[idx] = profile

	if err := s.commitLocked(userID, prev, true); err != nil {
		return models.Profile{}, err
	}
	return profile, nil
}

// VerifyPin returns nil when the PIN matches or the profile has none.
func (s *Service) VerifyPin(userID, profileID, pin string) error {
	s.mu.RLock()
	acct, idx := s.findLocked(userID, profileID)
	if idx < 0 {
		s.mu.RUnlock()
		return ErrProfileNotFound
	}
	hash := acct.Profiles[idx].PinHash
	s.mu.RUnlock()

	if hash == "" {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(strings.TrimSpace(pin))); err != nil {
		return ErrPinInvalid
	}
	return nil
}

// snapshotLocked copies the user's account so a failed save can restore it.
func (s *Service) snapshotLocked(userID string) (account, bool) {
	acct, ok := s.accounts[userID]
	if !ok {
		return account{}, false
	}
	return account{
		Profiles: append([]models.Profile(nil), acct.Profiles...),
		ActiveID: acct.ActiveID,
	}, true
}

// commitLocked persists every account. When the write fails the user's account is
// put back to prev, or removed when it did not exist before.
func (s *Service) commitLocked(userID string, prev account, existed bool) error {
	if err := s.saveLocked(); err != nil {
		if existed {
			s.accounts[userID] = &prev
		} else {
			delete(s.accounts, userID)
		}
		return err
	}
	return nil
}

func (s *Service) findLocked(userID, profileID string) (*account, int) {
	acct, ok := s.accounts[strings.TrimSpace(userID)]
	if !ok {
		return nil, -1
	}
	profileID = strings.TrimSpace(profileID)
	for i, p := range acct.Profiles {
		if p.ID == profileID {
			return acct, i
		}
	}
	return acct, -1
}

func normaliseTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > models.MaxProfileTitleLength {
		return "", ErrTitleTooLong
	}
	return title, nil
}

func titleTaken(profiles []models.Profile, title, exceptID string) bool {
	for _, p := range profiles {
		if p.ID != exceptID && strings.EqualFold(p.Title, title) {
			return true
		}
	}
	return false
}

func validPin(pin string) bool {
	if len(pin) != 4 {
		return false
	}
	for _, r := range pin {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// profileFields drops the MarshalJSON override so the record can carry the PIN hash.
type profileFields models.Profile

type profileRecord struct {
	profileFields
	PinHash string `json:"pinHash,omitempty"`
}

type accountRecord struct {
	UserID   string          `json:"userId"`
	ActiveID string          `json:"activeProfileId,omitempty"`
	Profiles []profileRecord `json:"profiles"`
}

func (s *Service) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.fs.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open profiles file: %w", err)
	}
	defer file.Close()

	var stored []accountRecord
	if err := json.NewDecoder(file).Decode(&stored); err != nil {
		return fmt.Errorf("decode profiles: %w", err)
	}

	s.accounts = make(map[string]*account, len(stored))
	for _, rec := range stored {
		if strings.TrimSpace(rec.UserID) == "" {
			continue
		}
		acct := &account{Profiles: make([]models.Profile, 0, len(rec.Profiles))}
		for _, pr := range rec.Profiles {
			if strings.TrimSpace(pr.ID) == "" {
				continue
			}
			profile := models.Profile(pr.profileFields)
			profile.PinHash = pr.PinHash
			if profile.CreatedAt.IsZero() {
				profile.CreatedAt = s.now()
			}
			if profile.UpdatedAt.IsZero() {
				profile.UpdatedAt = profile.CreatedAt
			}
			acct.Profiles = append(acct.Profiles, profile)
		}
		sort.SliceStable(acct.Profiles, func(i, j int) bool {
			return acct.Profiles[i].CreatedAt.Before(acct.Profiles[j].CreatedAt)
		})
		for _, p := range acct.Profiles {
			if p.ID == rec.ActiveID {
				acct.ActiveID = rec.ActiveID
				break
			}
		}
		s.accounts[rec.UserID] = acct
	}

	return nil
}

func (s *Service) saveLocked() error {
	records := make([]accountRecord, 0, len(s.accounts))
	for userID, acct := range s.accounts {
		rec := accountRecord{UserID: userID, ActiveID: acct.ActiveID, Profiles: make([]profileRecord, 0, len(acct.Profiles))}
		for _, p := range acct.Profiles {
			rec.Profiles = append(rec.Profiles, profileRecord{profileFields: profileFields(p), PinHash: p.PinHash})
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].UserID < records[j].UserID })

	tmp := s.path + ".tmp"
	file, err := s.fs.Create(tmp)
	if err != nil {
		return fmt.Errorf("create profiles temp file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		file.Close()
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("encode profiles: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("sync profiles: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("close profiles temp file: %w", err)
	}

	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace profiles file: %w", err)
	}

	return nil
}
