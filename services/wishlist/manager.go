// Package wishlist manages named wishlist folders for the active profile.
//
// The whole folder list is stored as a single document and rewritten on every change.
package wishlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"marquee/internal/docstore"
	"marquee/models"
	"marquee/services/library"
)

const (
	Collection  = "wishlistFolders"
	documentKey = "folders"
)

// Manager holds the wishlist folders of the active profile.
type Manager struct {
	store         docstore.Store
	userID        string
	activeProfile library.ProfileFunc
	now           func() time.Time

	// writeMu serialises read-modify-write cycles against the store.
	writeMu sync.Mutex

	mu        sync.Mutex
	folders   []models.WishlistFolder
	profileID string
	seq       uint64
}

func NewManager(store docstore.Store, userID string, activeProfile library.ProfileFunc) *Manager {
	if activeProfile == nil {
		activeProfile = func() string { return "" }
	}
	return &Manager{
		store:         store,
		userID:        strings.TrimSpace(userID),
		activeProfile: activeProfile,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Folders returns a deep copy of the cached folders.
func (m *Manager) Folders() []models.WishlistFolder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneFolders(m.folders)
}

// Folder returns the cached folder with id.
func (m *Manager) Folder(id string) (models.WishlistFolder, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idx := folderIndex(m.folders, id); idx >= 0 {
		return cloneFolders(m.folders[idx : idx+1])[0], true
	}
	return models.WishlistFolder{}, false
}

// ProfileID returns the profile the cached folders belong to.
func (m *Manager) ProfileID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profileID
}

// CreateFolder appends a new empty folder.
func (m *Manager) CreateFolder(ctx context.Context, name string) (models.WishlistFolder, library.RejectReason, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.WishlistFolder{}, library.RejectInvalidName, nil
	}

	folder := models.WishlistFolder{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: m.now(),
		Contents:  []models.ContentRef{},
	}
	reason, err := m.mutate(ctx, func(folders []models.WishlistFolder) ([]models.WishlistFolder, library.RejectReason) {
		return append(folders, folder), library.Accepted
	})
	if err != nil || reason != library.Accepted {
		return models.WishlistFolder{}, reason, err
	}
	return folder, library.Accepted, nil
}

// RenameFolder changes a folder name.
func (m *Manager) RenameFolder(ctx context.Context, folderID, name string) (library.RejectReason, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return library.RejectInvalidName, nil
	}
	return m.mutate(ctx, func(folders []models.WishlistFolder) ([]models.WishlistFolder, library.RejectReason) {
		idx := folderIndex(folders, folderID)
		if idx < 0 {
			return nil, library.RejectNotFound
		}
		folders[idx].Name = name
		return folders, library.Accepted
	})
}

// DeleteFolder removes a folder with its contents.
func (m *Manager) DeleteFolder(ctx context.Context, folderID string) (library.RejectReason, error) {
	return m.mutate(ctx, func(folders []models.WishlistFolder) ([]models.WishlistFolder, library.RejectReason) {
		idx := folderIndex(folders, folderID)
		if idx < 0 {
			return nil, library.RejectNotFound
		}
		return append(folders[:idx], folders[idx+1:]...), library.Accepted
	})
}

// AddContent appends ref to a folder. A ref already in the folder is skipped with RejectDuplicate.
func (m *Manager) AddContent(ctx context.Context, folderID string, ref models.ContentRef) (library.RejectReason, error) {
	if ref.ID <= 0 || !ref.MediaType.Valid() {
		return library.RejectInvalidEntry, nil
	}
	return m.mutate(ctx, func(folders []models.WishlistFolder) ([]models.WishlistFolder, library.RejectReason) {
		idx := folderIndex(folders, folderID)
		if idx < 0 {
			return nil, library.RejectNotFound
		}
		if folders[idx].Index(ref.ID, ref.MediaType) >= 0 {
			return nil, library.RejectDuplicate
		}
		folders[idx].Contents = append(folders[idx].Contents, ref)
		return folders, library.Accepted
	})
}

// RemoveContent drops a ref from a folder. An empty mediaType matches by id alone.
func (m *Manager) RemoveContent(ctx context.Context, folderID string, contentID int64, mediaType models.MediaType) (library.RejectReason, error) {
	return m.mutate(ctx, func(folders []models.WishlistFolder) ([]models.WishlistFolder, library.RejectReason) {
		idx := folderIndex(folders, folderID)
		if idx < 0 {
			return nil, library.RejectNotFound
		}
		pos := folders[idx].Index(contentID, mediaType)
		if pos < 0 {
			return nil, library.RejectNotFound
		}
		contents := folders[idx].Contents
		folders[idx].Contents = append(contents[:pos], contents[pos+1:]...)
		return folders, library.Accepted
	})
}

// MoveContent moves a ref between folders. It is rejected, with nothing changed,
// when the destination already holds the ref.
func (m *Manager) MoveContent(ctx context.Context, fromID, toID string, contentID int64, mediaType models.MediaType) (library.RejectReason, error) {
	if fromID == toID {
		return library.RejectDuplicate, nil
	}
	return m.mutate(ctx, func(folders []models.WishlistFolder) ([]models.WishlistFolder, library.RejectReason) {
		src, dst := folderIndex(folders, fromID), folderIndex(folders, toID)
		if src < 0 || dst < 0 {
			return nil, library.RejectNotFound
		}
		pos := folders[src].Index(contentID, mediaType)
		if pos < 0 {
			return nil, library.RejectNotFound
		}
		ref := folders[src].Contents[pos]
		if folders[dst].Index(ref.ID, ref.MediaType) >= 0 {
			return nil, library.RejectDuplicate
		}
		contents := folders[src].Contents
		folders[src].Contents = append(contents[:pos], contents[pos+1:]...)
		folders[dst].Contents = append(folders[dst].Contents, ref)
		return folders, library.Accepted
	})
}

// FetchAll loads the folders of profileID, or of the active profile when empty.
// Results superseded by a newer FetchAll or Reset are discarded.
func (m *Manager) FetchAll(ctx context.Context, profileID string) error {
	if m.userID == "" {
		return library.ErrAuthRequired
	}
	profileID = m.resolveProfile(profileID)

	m.mu.Lock()
	m.seq++
	seq := m.seq
	if profileID == "" {
		m.folders = nil
		m.profileID = ""
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	folders, err := m.load(ctx, docstore.Scope{UserID: m.userID, ProfileID: profileID})
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if seq != m.seq {
		return nil
	}
	m.folders = folders
	m.profileID = profileID
	return nil
}

// Reset clears the cache and invalidates in-flight fetches.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.folders = nil
	m.profileID = ""
}

// mutate loads the current folder list for the active profile, applies fn and
// writes the whole list back. The cache is only updated after the write succeeds,
// and only while profileID is still the active profile.
func (m *Manager) mutate(ctx context.Context, fn func([]models.WishlistFolder) ([]models.WishlistFolder, library.RejectReason)) (library.RejectReason, error) {
	if m.userID == "" {
		return "", library.ErrAuthRequired
	}
	profileID := strings.TrimSpace(m.activeProfile())
	if profileID == "" {
		return library.RejectNoActiveProfile, nil
	}
	scope := docstore.Scope{UserID: m.userID, ProfileID: profileID}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	seq := m.seq
	m.mu.Unlock()

	current, err := m.load(ctx, scope)
	if err != nil {
		return "", err
	}

	next, reason := fn(current)
	if reason != library.Accepted {
		return reason, nil
	}

	data, err := json.Marshal(next)
	if err != nil {
		return "", fmt.Errorf("encode wishlist folders: %w", err)
	}
	if err := m.store.Upsert(ctx, scope, Collection, documentKey, data); err != nil {
		log.Printf("[wishlist] write for %s failed: %v", scope, err)
		return "", fmt.Errorf("write wishlist folders: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// the cache may only take the write if it still belongs to the active profile
	// and no Reset or fetch of another profile ran while the write was in flight
	if strings.TrimSpace(m.activeProfile()) != profileID {
		return library.Accepted, nil
	}
	if m.seq != seq && m.profileID != profileID {
		return library.Accepted, nil
	}
	m.seq++
	m.folders = cloneFolders(next)
	m.profileID = profileID
	return library.Accepted, nil
}

func (m *Manager) load(ctx context.Context, scope docstore.Scope) ([]models.WishlistFolder, error) {
	doc, err := m.store.Get(ctx, scope, Collection, documentKey)
	if errors.Is(err, docstore.ErrNotFound) {
		return []models.WishlistFolder{}, nil
	}
	if err != nil {
		log.Printf("[wishlist] fetch for %s failed: %v", scope, err)
		return nil, fmt.Errorf("fetch wishlist folders: %w", err)
	}

	var folders []models.WishlistFolder
	if err := json.Unmarshal(doc.Data, &folders); err != nil {
		return nil, fmt.Errorf("decode wishlist folders: %w", err)
	}
	for i := range folders {
		if folders[i].Contents == nil {
			folders[i].Contents = []models.ContentRef{}
		}
	}
	return folders, nil
}

func (m *Manager) resolveProfile(profileID string) string {
	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		profileID = strings.TrimSpace(m.activeProfile())
	}
	return profileID
}

func folderIndex(folders []models.WishlistFolder, id string) int {
	for i, f := range folders {
		if f.ID == id {
			return i
		}
	}
	return -1
}

func cloneFolders(folders []models.WishlistFolder) []models.WishlistFolder {
	out := make([]models.WishlistFolder, len(folders))
	for i, f := range folders {
		f.Contents = append([]models.ContentRef{}, f.Contents...)
		out[i] = f
	}
	return out
}
