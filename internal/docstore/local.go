package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LocalBackend stores each collection as a JSON array in its own file under
// dir. A per-collection mutex serializes every read-modify-write cycle;
// without it two concurrent updates would both read the pre-update array and
// the second write would discard the first.
type LocalBackend struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocalBackend(dir string) (*LocalBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &LocalBackend{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

func (b *LocalBackend) lock(collection string) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.locks[collection]
	if !ok {
		l = &sync.Mutex{}
		b.locks[collection] = l
	}
	return l
}

func (b *LocalBackend) path(collection string) string {
	return filepath.Join(b.dir, storageKey(collection)+".json")
}

// read loads a collection file. Callers must hold the collection lock.
func (b *LocalBackend) read(collection string) ([]map[string]any, error) {
	raw, err := os.ReadFile(b.path(collection))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", collection, err)
	}
	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}
	return items, nil
}

// write persists a collection file. Callers must hold the collection lock.
func (b *LocalBackend) write(collection string, items []map[string]any) error {
	if items == nil {
		items = []map[string]any{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}
	if err := os.WriteFile(b.path(collection), raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", collection, err)
	}
	return nil
}

func (b *LocalBackend) Insert(ctx context.Context, collection string, data map[string]any) (Doc, error) {
	l := b.lock(collection)
	l.Lock()
	defer l.Unlock()

	items, err := b.read(collection)
	if err != nil {
		return Doc{}, err
	}

	now := time.Now().UTC()
	doc := Doc{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Data:      normalizeMap(data),
	}
	items = append(items, merged(doc))
	if err := b.write(collection, items); err != nil {
		return Doc{}, err
	}
	return doc, nil
}

func (b *LocalBackend) Get(ctx context.Context, collection, id string) (Doc, bool, error) {
	l := b.lock(collection)
	l.Lock()
	defer l.Unlock()

	items, err := b.read(collection)
	if err != nil {
		return Doc{}, false, err
	}
	for _, item := range items {
		if item[keyID] == id {
			return split(item), true, nil
		}
	}
	return Doc{}, false, nil
}

func (b *LocalBackend) List(ctx context.Context, collection string) ([]Doc, error) {
	l := b.lock(collection)
	l.Lock()
	defer l.Unlock()

	items, err := b.read(collection)
	if err != nil {
		return nil, err
	}
	return sortedDocs(items), nil
}

func (b *LocalBackend) Patch(ctx context.Context, collection, id string, fields map[string]any) (Doc, error) {
	l := b.lock(collection)
	l.Lock()
	defer l.Unlock()

	items, err := b.read(collection)
	if err != nil {
		return Doc{}, err
	}
	for i, item := range items {
		if item[keyID] != id {
			continue
		}
		for k, v := range normalizeMap(fields) {
			if k == keyID || k == keyCreatedAt || k == keyUpdatedAt {
				continue
			}
			item[k] = v
		}
		item[keyUpdatedAt] = time.Now().UTC().Format(time.RFC3339Nano)
		items[i] = item
		if err := b.write(collection, items); err != nil {
			return Doc{}, err
		}
		return split(item), nil
	}
	return Doc{}, ErrNotFound
}

func (b *LocalBackend) Delete(ctx context.Context, collection, id string) error {
	l := b.lock(collection)
	l.Lock()
	defer l.Unlock()

	items, err := b.read(collection)
	if err != nil {
		return err
	}
	kept := items[:0]
	for _, item := range items {
		if item[keyID] != id {
			kept = append(kept, item)
		}
	}
	return b.write(collection, kept)
}

func (b *LocalBackend) Query(ctx context.Context, collection string, conds []Condition) ([]Doc, error) {
	docs, err := b.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	out := make([]Doc, 0, len(docs))
	for _, doc := range docs {
		if matchesAll(merged(doc), conds) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (b *LocalBackend) Ping(ctx context.Context) error {
	return nil
}

func sortedDocs(items []map[string]any) []Doc {
	docs := make([]Doc, 0, len(items))
	for _, item := range items {
		docs = append(docs, split(item))
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	return docs
}
