// Package docstore persists per-profile library documents.
//
// Documents are opaque JSON blobs addressed by user, profile, collection and key,
// mirroring the users/{userId}/{profileId}/{collection}/{key} hierarchy.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

//go:generate mockgen -destination=mocks/store_mock.go -package=mocks marquee/internal/docstore Store

var (
	ErrNotFound      = errors.New("document not found")
	ErrInvalidScope  = errors.New("user and profile are required")
	ErrInvalidKey    = errors.New("collection and key are required")
	ErrUnknownDriver = errors.New("unknown docstore driver")
)

// Scope selects the profile a document belongs to.
type Scope struct {
	UserID    string
	ProfileID string
}

// Validate returns ErrInvalidScope when either identifier is blank.
func (s Scope) Validate() error {
	if strings.TrimSpace(s.UserID) == "" || strings.TrimSpace(s.ProfileID) == "" {
		return ErrInvalidScope
	}
	return nil
}

func (s Scope) String() string {
	return s.UserID + "/" + s.ProfileID
}

// Document is a stored record.
type Document struct {
	Key       string
	Data      []byte
	UpdatedAt time.Time
}

// Store is the remote document store the library managers mirror to.
// Upsert is last-write-wins per key.
type Store interface {
	List(ctx context.Context, scope Scope, collection string) ([]Document, error)
	Get(ctx context.Context, scope Scope, collection, key string) (Document, error)
	Upsert(ctx context.Context, scope Scope, collection, key string, data []byte) error
	Delete(ctx context.Context, scope Scope, collection, key string) error
	DropProfile(ctx context.Context, scope Scope) error
	Close() error
}

// Driver names accepted by Open.
const (
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Open constructs the store selected by driver.
func Open(driver, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverBolt:
		return OpenBolt(path)
	case DriverSQLite:
		return OpenSQLite(path)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

func checkArgs(scope Scope, collection, key string) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(collection) == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	return nil
}
