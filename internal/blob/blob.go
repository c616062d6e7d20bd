// Package blob stores document file content, keyed by document id. It
// mirrors the document store's shape: a remote object store tried first
// with a transparent local-disk fallback.
package blob

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when no content is stored under the id.
var ErrNotFound = errors.New("blob not found")

// Backend stores raw content under a document id.
type Backend interface {
	Put(ctx context.Context, id string, r io.Reader, size int64, contentType string) error
	// Get returns the content and its content type. The caller closes the
	// reader.
	Get(ctx context.Context, id string) (io.ReadCloser, string, error)
	Remove(ctx context.Context, id string) error
}
