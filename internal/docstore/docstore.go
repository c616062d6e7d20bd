// Package docstore provides collection-scoped CRUD over JSON documents with
// a remote backend and a transparent local-file fallback.
package docstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Patch when no record carries the given id.
// Reads report absence through their ok result instead.
var ErrNotFound = errors.New("record not found")

// Doc is a stored document. ID and the two stamps are assigned by the
// backend; Data holds the domain fields only.
type Doc struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Data      map[string]any
}

type Op string

const (
	OpEq       Op = "=="
	OpNe       Op = "!="
	OpGt       Op = ">"
	OpGte      Op = ">="
	OpLt       Op = "<"
	OpLte      Op = "<="
	OpContains Op = "array-contains"
)

// Condition is a single field test. Conditions in a query are ANDed.
type Condition struct {
	Field string
	Op    Op
	Value any
}

func Where(field string, op Op, value any) Condition {
	return Condition{Field: field, Op: op, Value: value}
}

// Backend is one storage path for documents. List and Query return records
// newest first on every implementation.
type Backend interface {
	Insert(ctx context.Context, collection string, data map[string]any) (Doc, error)
	Get(ctx context.Context, collection, id string) (Doc, bool, error)
	List(ctx context.Context, collection string) ([]Doc, error)
	Patch(ctx context.Context, collection, id string, fields map[string]any) (Doc, error)
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, conds []Condition) ([]Doc, error)
	Ping(ctx context.Context) error
}

const (
	keyID        = "id"
	keyCreatedAt = "createdAt"
	keyUpdatedAt = "updatedAt"
)

// storageKey maps a collection name to its local storage key. The prefix is
// shared with the browser client this service replaced.
func storageKey(collection string) string {
	return "project_" + collection
}

// merged flattens a Doc into the single-object form records are stored and
// transported in.
func merged(doc Doc) map[string]any {
	out := make(map[string]any, len(doc.Data)+3)
	for k, v := range doc.Data {
		out[k] = v
	}
	out[keyID] = doc.ID
	out[keyCreatedAt] = doc.CreatedAt.Format(time.RFC3339Nano)
	out[keyUpdatedAt] = doc.UpdatedAt.Format(time.RFC3339Nano)
	return out
}

// split is the inverse of merged.
func split(m map[string]any) Doc {
	doc := Doc{Data: make(map[string]any, len(m))}
	for k, v := range m {
		switch k {
		case keyID:
			if s, ok := v.(string); ok {
				doc.ID = s
			}
		case keyCreatedAt:
			doc.CreatedAt = parseStamp(v)
		case keyUpdatedAt:
			doc.UpdatedAt = parseStamp(v)
		default:
			doc.Data[k] = v
		}
	}
	return doc
}

func parseStamp(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
