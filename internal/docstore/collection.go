package docstore

import (
	"context"
	"encoding/json"
	"fmt"
)

// Collection gives typed access to one named collection. T must marshal to a
// JSON object whose id, createdAt, and updatedAt fields belong to the
// adapter; whatever the caller supplies for them is discarded and replaced
// with store-assigned values.
type Collection[T any] struct {
	store *Store
	name  string
}

func NewCollection[T any](store *Store, name string) *Collection[T] {
	return &Collection[T]{store: store, name: name}
}

func (c *Collection[T]) Name() string {
	return c.name
}

func (c *Collection[T]) Create(ctx context.Context, rec T) (T, error) {
	var zero T
	data, err := recordData(rec)
	if err != nil {
		return zero, err
	}
	doc, err := c.store.Insert(ctx, c.name, data)
	if err != nil {
		return zero, err
	}
	return decodeDoc[T](doc)
}

func (c *Collection[T]) All(ctx context.Context) ([]T, error) {
	docs, err := c.store.List(ctx, c.name)
	if err != nil {
		return nil, err
	}
	return decodeDocs[T](docs)
}

func (c *Collection[T]) Get(ctx context.Context, id string) (T, bool, error) {
	var zero T
	doc, ok, err := c.store.Get(ctx, c.name, id)
	if err != nil || !ok {
		return zero, false, err
	}
	rec, err := decodeDoc[T](doc)
	if err != nil {
		return zero, false, err
	}
	return rec, true, nil
}

// Update merges the given fields into the record and re-stamps updatedAt.
// Returns ErrNotFound when no record carries the id.
func (c *Collection[T]) Update(ctx context.Context, id string, fields map[string]any) (T, error) {
	var zero T
	doc, err := c.store.Patch(ctx, c.name, id, fields)
	if err != nil {
		return zero, err
	}
	return decodeDoc[T](doc)
}

// Delete is idempotent: removing an absent id is not an error.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return c.store.Delete(ctx, c.name, id)
}

func (c *Collection[T]) Find(ctx context.Context, conds ...Condition) ([]T, error) {
	docs, err := c.store.Query(ctx, c.name, conds)
	if err != nil {
		return nil, err
	}
	return decodeDocs[T](docs)
}

func recordData[T any](rec T) (map[string]any, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("record must be a JSON object: %w", err)
	}
	delete(m, keyID)
	delete(m, keyCreatedAt)
	delete(m, keyUpdatedAt)
	return m, nil
}

func decodeDoc[T any](doc Doc) (T, error) {
	var rec T
	raw, err := json.Marshal(merged(doc))
	if err != nil {
		return rec, fmt.Errorf("encode document: %w", err)
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

func decodeDocs[T any](docs []Doc) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		rec, err := decodeDoc[T](doc)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
