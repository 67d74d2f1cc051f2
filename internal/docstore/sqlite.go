package docstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLite stores documents in a single table keyed by (user, profile, collection, key).
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens the database at path and applies pending migrations.
// ":memory:" is accepted for tests.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create docstore dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite serialises writers anyway; a single connection also keeps :memory: consistent.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func migrate(db *sql.DB) error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, sub)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	results, err := provider.Up(context.Background())
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		log.Printf("[docstore] applied migration %s (%s)", r.Source.Path, r.Duration)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) List(ctx context.Context, scope Scope, collection string) ([]Document, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_key, data, updated_at FROM documents
		 WHERE user_id = ? AND profile_id = ? AND collection = ?
		 ORDER BY doc_key`,
		scope.UserID, scope.ProfileID, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s/%s: %w", scope, collection, err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var doc Document
		var updated int64
		if err := rows.Scan(&doc.Key, &doc.Data, &updated); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.UpdatedAt = time.Unix(0, updated).UTC()
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *SQLite) Get(ctx context.Context, scope Scope, collection, key string) (Document, error) {
	if err := checkArgs(scope, collection, key); err != nil {
		return Document{}, err
	}

	doc := Document{Key: key}
	var updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT data, updated_at FROM documents
		 WHERE user_id = ? AND profile_id = ? AND collection = ? AND doc_key = ?`,
		scope.UserID, scope.ProfileID, collection, key).Scan(&doc.Data, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get %s/%s/%s: %w", scope, collection, key, err)
	}
	doc.UpdatedAt = time.Unix(0, updated).UTC()
	return doc, nil
}

func (s *SQLite) Upsert(ctx context.Context, scope Scope, collection, key string, data []byte) error {
	if err := checkArgs(scope, collection, key); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (user_id, profile_id, collection, doc_key, data, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, profile_id, collection, doc_key)
		 DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		scope.UserID, scope.ProfileID, collection, key, data, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("upsert %s/%s/%s: %w", scope, collection, key, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, scope Scope, collection, key string) error {
	if err := checkArgs(scope, collection, key); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE user_id = ? AND profile_id = ? AND collection = ? AND doc_key = ?`,
		scope.UserID, scope.ProfileID, collection, key)
	if err != nil {
		return fmt.Errorf("delete %s/%s/%s: %w", scope, collection, key, err)
	}
	return nil
}

func (s *SQLite) DropProfile(ctx context.Context, scope Scope) error {
	if err := scope.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE user_id = ? AND profile_id = ?`,
		scope.UserID, scope.ProfileID)
	if err != nil {
		return fmt.Errorf("drop profile %s: %w", scope, err)
	}
	return nil
}
