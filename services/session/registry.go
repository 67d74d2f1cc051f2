// Package session holds the library managers of each signed-in user and keeps them
// aligned with the user's active profile.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"marquee/internal/docstore"
	"marquee/services/library"
	"marquee/services/profiles"
	"marquee/services/wishlist"
)

var ErrUserIDRequired = errors.New("user id is required")

// ProfileDirectory is the subset of the profiles service the registry depends on.
type ProfileDirectory interface {
	ActiveID(userID string) string
	SetActive(userID, profileID string) error
	VerifyPin(userID, profileID, pin string) error
	Delete(userID, profileID string) (string, error)
}

var _ ProfileDirectory = (*profiles.Service)(nil)

// Session is the set of library managers for one user.
type Session struct {
	UserID    string
	Watching  *library.Watching
	Likes     *library.Likes
	Downloads *library.Downloads
	Wishlist  *wishlist.Manager

	mu     sync.Mutex
	loaded bool
}

func newSession(store docstore.Store, userID string, active library.ProfileFunc) *Session {
	return &Session{
		UserID:    userID,
		Watching:  library.NewWatching(store, userID, active),
		Likes:     library.NewLikes(store, userID, active),
		Downloads: library.NewDownloads(store, userID, active),
		Wishlist:  wishlist.NewManager(store, userID, active),
	}
}

// Reload refetches every manager for profileID (the active profile when empty).
func (s *Session) Reload(ctx context.Context, profileID string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Watching.FetchAll(gctx, profileID) })
	g.Go(func() error { return s.Likes.FetchAll(gctx, profileID) })
	g.Go(func() error { return s.Downloads.FetchAll(gctx, profileID) })
	g.Go(func() error { return s.Wishlist.FetchAll(gctx, profileID) })
	if err := g.Wait(); err != nil {
		return fmt.Errorf("reload session %s: %w", s.UserID, err)
	}

	s.mu.Lock()
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Reset clears every manager's cache.
func (s *Session) Reset() {
	s.Watching.Reset()
	s.Likes.Reset()
	s.Downloads.Reset()
	s.Wishlist.Reset()

	s.mu.Lock()
	s.loaded = false
	s.mu.Unlock()
}

func (s *Session) ensureLoaded(ctx context.Context) error {
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()
	if loaded {
		return nil
	}
	return s.Reload(ctx, "")
}

// Registry maps user ids to sessions.
type Registry struct {
	store    docstore.Store
	profiles ProfileDirectory

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(store docstore.Store, profiles ProfileDirectory) *Registry {
	return &Registry{
		store:    store,
		profiles: profiles,
		sessions: make(map[string]*Session),
	}
}

// Get returns the user's session, creating and loading it on first use.
func (r *Registry) Get(ctx context.Context, userID string) (*Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	r.mu.Lock()
	sess, ok := r.sessions[userID]
	if !ok {
		sess = newSession(r.store, userID, func() string { return r.profiles.ActiveID(userID) })
		r.sessions[userID] = sess
	}
	r.mu.Unlock()

	if err := sess.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return sess, nil
}

// SwitchProfile verifies the PIN of a locked profile, makes it active and reloads every manager.
func (r *Registry) SwitchProfile(ctx context.Context, userID, profileID, pin string) error {
	if err := r.profiles.VerifyPin(userID, profileID, pin); err != nil {
		return err
	}
	if err := r.profiles.SetActive(userID, profileID); err != nil {
		return err
	}

	sess, err := r.Get(ctx, userID)
	if err != nil {
		return err
	}
	return sess.Reload(ctx, "")
}

// DeleteProfile removes the profile, its stored library documents, and reloads the
// session for whichever profile became active.
func (r *Registry) DeleteProfile(ctx context.Context, userID, profileID string) (string, error) {
	activeID, err := r.profiles.Delete(userID, profileID)
	if err != nil {
		return "", err
	}

	scope := docstore.Scope{UserID: userID, ProfileID: profileID}
	if err := r.store.DropProfile(ctx, scope); err != nil {
		log.Printf("[session] failed to drop documents of %s: %v", scope, err)
	}

	sess, err := r.Get(ctx, userID)
	if err != nil {
		return activeID, err
	}
	return activeID, sess.Reload(ctx, "")
}

// Logout resets and forgets the user's session.
func (r *Registry) Logout(userID string) {
	userID = strings.TrimSpace(userID)

	r.mu.Lock()
	sess, ok := r.sessions[userID]
	delete(r.sessions, userID)
	r.mu.Unlock()

	if ok {
		sess.Reset()
		log.Printf("[session] user %s logged out", userID)
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
