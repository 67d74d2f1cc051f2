// Package library keeps per-profile library collections (continue watching,
// likes, downloads) in memory and mirrors every change to the document store.
package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"marquee/internal/docstore"
	"marquee/models"
)

// Schema describes how a manager derives keys, validates and timestamps entries of type E.
type Schema[E any] struct {
	Collection string
	Key        func(E) models.CompositeKey
	Entry      func(E) models.LibraryEntry
	// Validate runs after the common checks. Optional.
	Validate  func(E) RejectReason
	Stamp     func(*E, int64)
	Timestamp func(E) int64
}

// ProfileFunc returns the id of the active profile, or "" when none is selected.
type ProfileFunc func() string

// Manager is the keyed collection mirror shared by the watching, likes and downloads managers.
// The in-memory list only ever reflects one profile and is kept sorted by timestamp, newest first.
type Manager[E any] struct {
	schema        Schema[E]
	store         docstore.Store
	userID        string
	activeProfile ProfileFunc
	now           func() time.Time

	mu        sync.Mutex
	items     []E
	profileID string
	seq       uint64
}

// NewManager builds a manager for userID. activeProfile is consulted on every call.
func NewManager[E any](schema Schema[E], store docstore.Store, userID string, activeProfile ProfileFunc) *Manager[E] {
	if activeProfile == nil {
		activeProfile = func() string { return "" }
	}
	return &Manager[E]{
		schema:        schema,
		store:         store,
		userID:        strings.TrimSpace(userID),
		activeProfile: activeProfile,
		now:           time.Now,
	}
}

// Add stores entry for the active profile and prepends it to the list.
// Entries whose key is already present are skipped with RejectDuplicate.
func (m *Manager[E]) Add(ctx context.Context, entry E) (RejectReason, error) {
	if m.userID == "" {
		return "", ErrAuthRequired
	}
	profileID := strings.TrimSpace(m.activeProfile())
	if profileID == "" {
		return RejectNoActiveProfile, nil
	}

	if reason := m.validate(entry); reason != Accepted {
		return reason, nil
	}

	key := m.schema.Key(entry).String()

	m.mu.Lock()
	seq := m.seq
	loaded := m.profileID == profileID
	present := loaded && m.indexLocked(key) >= 0
	m.mu.Unlock()
	if present {
		return RejectDuplicate, nil
	}

	scope := docstore.Scope{UserID: m.userID, ProfileID: profileID}
	if !loaded {
		_, err := m.store.Get(ctx, scope, m.schema.Collection, key)
		if err == nil {
			return RejectDuplicate, nil
		}
		if !errors.Is(err, docstore.ErrNotFound) {
			log.Printf("[library] %s lookup %s failed: %v", m.schema.Collection, key, err)
			return "", fmt.Errorf("lookup %s: %w", key, err)
		}
	}

	m.schema.Stamp(&entry, m.now().UnixMilli())
	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", key, err)
	}
	if err := m.store.Upsert(ctx, scope, m.schema.Collection, key, data); err != nil {
		log.Printf("[library] %s write %s for %s failed: %v", m.schema.Collection, key, scope, err)
		return "", fmt.Errorf("write %s: %w", key, err)
	}

	m.mu.Lock()
	if strings.TrimSpace(m.activeProfile()) != profileID {
		// switched away while the write was in flight; the entry is stored for profileID
		m.mu.Unlock()
		return Accepted, nil
	}
	if m.profileID == profileID {
		// a concurrent Add of the same key may have landed while the write was in flight
		if m.indexLocked(key) < 0 {
			m.items = append([]E{entry}, m.items...)
		}
		m.mu.Unlock()
		return Accepted, nil
	}
	stale := m.seq != seq
	m.mu.Unlock()
	if stale {
		// a Reset or newer fetch owns the list now
		return Accepted, nil
	}

	// the list was never loaded for the active profile; load it
	if err := m.FetchAll(ctx, profileID); err != nil {
		log.Printf("[library] %s reload after add failed: %v", m.schema.Collection, err)
	}
	return Accepted, nil
}

// Remove deletes entry from profileID. An empty profileID means the active profile.
func (m *Manager[E]) Remove(ctx context.Context, profileID string, entry E) (RejectReason, error) {
	return m.RemoveKey(ctx, profileID, m.schema.Key(entry))
}

// RemoveKey deletes the entry stored under key from profileID.
func (m *Manager[E]) RemoveKey(ctx context.Context, profileID string, key models.CompositeKey) (RejectReason, error) {
	if m.userID == "" {
		return "", ErrAuthRequired
	}
	profileID = m.resolveProfile(profileID)
	if profileID == "" {
		return RejectNoActiveProfile, nil
	}

	k := key.String()
	scope := docstore.Scope{UserID: m.userID, ProfileID: profileID}
	if err := m.store.Delete(ctx, scope, m.schema.Collection, k); err != nil {
		log.Printf("[library] %s delete %s for %s failed: %v", m.schema.Collection, k, scope, err)
		return "", fmt.Errorf("delete %s: %w", k, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profileID == profileID {
		if idx := m.indexLocked(k); idx >= 0 {
			m.items = append(m.items[:idx], m.items[idx+1:]...)
		}
	}
	return Accepted, nil
}

// FetchAll replaces the list with the remote collection of profileID, or of the
// active profile when profileID is empty. With no profile at all the list is cleared.
// A result is discarded if a newer FetchAll or Reset was issued meanwhile.
func (m *Manager[E]) FetchAll(ctx context.Context, profileID string) error {
	if m.userID == "" {
		return ErrAuthRequired
	}
	profileID = m.resolveProfile(profileID)

	m.mu.Lock()
	m.seq++
	seq := m.seq
	if profileID == "" {
		m.items = nil
		m.profileID = ""
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	scope := docstore.Scope{UserID: m.userID, ProfileID: profileID}
	docs, err := m.store.List(ctx, scope, m.schema.Collection)
	if err != nil {
		log.Printf("[library] %s fetch for %s failed: %v", m.schema.Collection, scope, err)
		return fmt.Errorf("fetch %s: %w", m.schema.Collection, err)
	}

	items := make([]E, 0, len(docs))
	for _, doc := range docs {
		var entry E
		if err := json.Unmarshal(doc.Data, &entry); err != nil {
			log.Printf("[library] skipping unreadable %s document %s: %v", m.schema.Collection, doc.Key, err)
			continue
		}
		items = append(items, entry)
	}
	m.sortEntries(items)

	m.mu.Lock()
	defer m.mu.Unlock()
	if seq != m.seq {
		return nil
	}
	m.items = items
	m.profileID = profileID
	return nil
}

// Reset clears the in-memory list without touching the store. In-flight fetches are discarded.
func (m *Manager[E]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.items = nil
	m.profileID = ""
}

// Items returns a copy of the current list.
func (m *Manager[E]) Items() []E {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]E, len(m.items))
	copy(out, m.items)
	return out
}

// Len returns the number of cached entries.
func (m *Manager[E]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Contains reports whether key is in the cached list.
func (m *Manager[E]) Contains(key models.CompositeKey) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexLocked(key.String()) >= 0
}

// ProfileID returns the profile the cached list belongs to.
func (m *Manager[E]) ProfileID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profileID
}

func (m *Manager[E]) resolveProfile(profileID string) string {
	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		profileID = strings.TrimSpace(m.activeProfile())
	}
	return profileID
}

func (m *Manager[E]) validate(entry E) RejectReason {
	base := m.schema.Entry(entry)
	if base.ContentID <= 0 || !base.MediaType.Valid() {
		return RejectInvalidEntry
	}
	if m.schema.Validate != nil {
		if reason := m.schema.Validate(entry); reason != Accepted {
			return reason
		}
	}
	if !base.HasImage() {
		return RejectMissingImage
	}
	return Accepted
}

func (m *Manager[E]) indexLocked(key string) int {
	for i, item := range m.items {
		if m.schema.Key(item).String() == key {
			return i
		}
	}
	return -1
}

func (m *Manager[E]) sortEntries(items []E) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := m.schema.Timestamp(items[i]), m.schema.Timestamp(items[j])
		if ti == tj {
			return m.schema.Key(items[i]).String() < m.schema.Key(items[j]).String()
		}
		return ti > tj
	})
}
