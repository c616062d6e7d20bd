package blob

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalBackend keeps blobs as flat files under dir, with a sidecar JSON
// file holding the content type.
type LocalBackend struct {
	dir string
}

func NewLocalBackend(dir string) (*LocalBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &LocalBackend{dir: dir}, nil
}

type blobMeta struct {
	ContentType string `json:"contentType"`
}

func (b *LocalBackend) dataPath(id string) string {
	return filepath.Join(b.dir, id+".bin")
}

func (b *LocalBackend) metaPath(id string) string {
	return filepath.Join(b.dir, id+".meta.json")
}

func (b *LocalBackend) Put(ctx context.Context, id string, r io.Reader, size int64, contentType string) error {
	f, err := os.Create(b.dataPath(id))
	if err != nil {
		return fmt.Errorf("create blob file: %w", err)
	}
	_, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil {
		os.Remove(b.dataPath(id))
		return fmt.Errorf("write blob: %w", copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close blob file: %w", closeErr)
	}

	raw, err := json.Marshal(blobMeta{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("encode blob meta: %w", err)
	}
	if err := os.WriteFile(b.metaPath(id), raw, 0o644); err != nil {
		return fmt.Errorf("write blob meta: %w", err)
	}
	return nil
}

func (b *LocalBackend) Get(ctx context.Context, id string) (io.ReadCloser, string, error) {
	f, err := os.Open(b.dataPath(id))
	if os.IsNotExist(err) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("open blob: %w", err)
	}

	contentType := "application/octet-stream"
	if raw, err := os.ReadFile(b.metaPath(id)); err == nil {
		var meta blobMeta
		if json.Unmarshal(raw, &meta) == nil && meta.ContentType != "" {
			contentType = meta.ContentType
		}
	}
	return f, contentType, nil
}

// Remove is idempotent.
func (b *LocalBackend) Remove(ctx context.Context, id string) error {
	if err := os.Remove(b.dataPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove blob: %w", err)
	}
	if err := os.Remove(b.metaPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove blob meta: %w", err)
	}
	return nil
}
