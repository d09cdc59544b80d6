package store

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used in tests and local development. It
// mirrors S3 semantics where they matter to callers: ETags are the MD5 of the
// object body (single-part upload behavior) and listings are key-ordered.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memObject
}

type memObject struct {
	body         []byte
	meta         Meta
	lastModified time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memObject)}
}

func (m *MemoryStore) Put(_ context.Context, key string, body []byte, meta Meta) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf := make([]byte, len(body))
	copy(buf, body)
	m.objects[key] = memObject{body: buf, meta: meta, lastModified: time.Now()}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, ErrNotFound)
	}
	buf := make([]byte, len(obj.body))
	copy(buf, obj.body)
	return buf, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) List(_ context.Context, prefix string) ([]Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var objects []Object
	for key, obj := range m.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		sum := md5.Sum(obj.body)
		objects = append(objects, Object{
			Key:          key,
			Size:         int64(len(obj.body)),
			ETag:         hex.EncodeToString(sum[:]),
			LastModified: obj.lastModified,
		})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func (m *MemoryStore) ListPrefixes(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	for key := range m.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		name, _, found := strings.Cut(rest, "/")
		if !found || name == "" {
			continue
		}
		seen[name] = struct{}{}
	}

	prefixes := make([]string, 0, len(seen))
	for name := range seen {
		prefixes = append(prefixes, name)
	}
	sort.Strings(prefixes)
	return prefixes, nil
}

func (m *MemoryStore) CopyTree(ctx context.Context, srcPrefix, dstPrefix string) (int, error) {
	objects, err := m.List(ctx, srcPrefix)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copied := 0
	for _, obj := range objects {
		src := m.objects[obj.Key]
		dstKey := dstPrefix + strings.TrimPrefix(obj.Key, srcPrefix)
		buf := make([]byte, len(src.body))
		copy(buf, src.body)
		m.objects[dstKey] = memObject{body: buf, meta: src.meta, lastModified: time.Now()}
		copied++
	}
	return copied, nil
}

func (m *MemoryStore) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			delete(m.objects, key)
		}
	}
	return nil
}
