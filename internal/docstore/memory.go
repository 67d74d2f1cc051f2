package docstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory keeps documents in process. Used by tests and the "memory" driver.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]map[string]Document
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string]map[string]Document),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func memoryBucket(scope Scope, collection string) string {
	return scope.String() + "/" + collection
}

func (m *Memory) List(ctx context.Context, scope Scope, collection string) ([]Document, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	bucket := m.docs[memoryBucket(scope, collection)]
	docs := make([]Document, 0, len(bucket))
	for _, doc := range bucket {
		docs = append(docs, cloneDocument(doc))
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Key < docs[j].Key })
	return docs, nil
}

func (m *Memory) Get(ctx context.Context, scope Scope, collection, key string) (Document, error) {
	if err := checkArgs(scope, collection, key); err != nil {
		return Document{}, err
	}
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[memoryBucket(scope, collection)][key]
	if !ok {
		return Document{}, ErrNotFound
	}
	return cloneDocument(doc), nil
}

func (m *Memory) Upsert(ctx context.Context, scope Scope, collection, key string, data []byte) error {
	if err := checkArgs(scope, collection, key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	name := memoryBucket(scope, collection)
	bucket, ok := m.docs[name]
	if !ok {
		bucket = make(map[string]Document)
		m.docs[name] = bucket
	}
	bucket[key] = cloneDocument(Document{Key: key, Data: data, UpdatedAt: m.now()})
	return nil
}

func (m *Memory) Delete(ctx context.Context, scope Scope, collection, key string) error {
	if err := checkArgs(scope, collection, key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.docs[memoryBucket(scope, collection)], key)
	return nil
}

func (m *Memory) DropProfile(ctx context.Context, scope Scope) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := scope.String() + "/"
	for name := range m.docs {
		if strings.HasPrefix(name, prefix) {
			delete(m.docs, name)
		}
	}
	return nil
}

func (m *Memory) Close() error { return nil }

func cloneDocument(doc Document) Document {
	data := make([]byte, len(doc.Data))
	copy(data, doc.Data)
	doc.Data = data
	return doc
}
