package docstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketUsers = []byte("users")

// Bolt stores documents in a bbolt file using nested buckets
// users -> {userId} -> {profileId} -> {collection} -> key.
type Bolt struct {
	db  *bolt.DB
	now func() time.Time
}

// OpenBolt opens (or creates) the bbolt database at path.
func OpenBolt(path string) (*Bolt, error) {
	if path == "" {
		return nil, errors.New("bolt path is required")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create docstore dir: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketUsers)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init bolt buckets: %w", err)
	}

	return &Bolt{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Bolt) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// profileBucket walks to the profile bucket, creating missing levels when create is set.
func profileBucket(tx *bolt.Tx, scope Scope, create bool) (*bolt.Bucket, error) {
	root := tx.Bucket(bucketUsers)
	if root == nil {
		return nil, nil
	}
	if !create {
		user := root.Bucket([]byte(scope.UserID))
		if user == nil {
			return nil, nil
		}
		return user.Bucket([]byte(scope.ProfileID)), nil
	}
	user, err := root.CreateBucketIfNotExists([]byte(scope.UserID))
	if err != nil {
		return nil, err
	}
	return user.CreateBucketIfNotExists([]byte(scope.ProfileID))
}

func collectionBucket(tx *bolt.Tx, scope Scope, collection string, create bool) (*bolt.Bucket, error) {
	profile, err := profileBucket(tx, scope, create)
	if err != nil || profile == nil {
		return nil, err
	}
	if !create {
		return profile.Bucket([]byte(collection)), nil
	}
	return profile.CreateBucketIfNotExists([]byte(collection))
}

func (s *Bolt) List(ctx context.Context, scope Scope, collection string) ([]Document, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var docs []Document
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := collectionBucket(tx, scope, collection, false)
		if err != nil || b == nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			if v == nil {
				return nil
			}
			doc, err := decodeBoltValue(k, v)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list %s/%s: %w", scope, collection, err)
	}
	if docs == nil {
		docs = []Document{}
	}
	return docs, nil
}

func (s *Bolt) Get(ctx context.Context, scope Scope, collection, key string) (Document, error) {
	if err := checkArgs(scope, collection, key); err != nil {
		return Document{}, err
	}
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	var doc Document
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := collectionBucket(tx, scope, collection, false)
		if err != nil || b == nil {
			return err
		}
		v := b.Get([]byte(key))
		if v == nil {
			return nil
		}
		doc, err = decodeBoltValue([]byte(key), v)
		found = err == nil
		return err
	})
	if err != nil {
		return Document{}, fmt.Errorf("get %s/%s/%s: %w", scope, collection, key, err)
	}
	if !found {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (s *Bolt) Upsert(ctx context.Context, scope Scope, collection, key string, data []byte) error {
	if err := checkArgs(scope, collection, key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	value := encodeBoltValue(s.now(), data)
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := collectionBucket(tx, scope, collection, true)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("upsert %s/%s/%s: %w", scope, collection, key, err)
	}
	return nil
}

func (s *Bolt) Delete(ctx context.Context, scope Scope, collection, key string) error {
	if err := checkArgs(scope, collection, key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := collectionBucket(tx, scope, collection, false)
		if err != nil || b == nil {
			return err
		}
		return b.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s/%s: %w", scope, collection, key, err)
	}
	return nil
}

func (s *Bolt) DropProfile(ctx context.Context, scope Scope) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketUsers)
		if root == nil {
			return nil
		}
		user := root.Bucket([]byte(scope.UserID))
		if user == nil || user.Bucket([]byte(scope.ProfileID)) == nil {
			return nil
		}
		return user.DeleteBucket([]byte(scope.ProfileID))
	})
	if err != nil {
		return fmt.Errorf("drop profile %s: %w", scope, err)
	}
	return nil
}

// Values are an 8 byte big-endian unix-nano timestamp followed by the document body.
func encodeBoltValue(updatedAt time.Time, data []byte) []byte {
	buf := make([]byte, 8+len(data))
	binary.BigEndian.PutUint64(buf[:8], uint64(updatedAt.UnixNano()))
	copy(buf[8:], data)
	return buf
}

func decodeBoltValue(key, value []byte) (Document, error) {
	if len(value) < 8 {
		return Document{}, fmt.Errorf("corrupt document %q", key)
	}
	data := make([]byte, len(value)-8)
	copy(data, value[8:])
	return Document{
		Key:       string(key),
		Data:      data,
		UpdatedAt: time.Unix(0, int64(binary.BigEndian.Uint64(value[:8]))).UTC(),
	}, nil
}
