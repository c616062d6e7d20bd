package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLocalPutGetRemove(t *testing.T) {
	b, err := NewLocalBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalBackend failed: %v", err)
	}
	ctx := context.Background()
	content := "blueprint bytes"

	if err := b.Put(ctx, "doc-1", strings.NewReader(content), int64(len(content)), "application/pdf"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	rc, contentType, err := b.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	got, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != content {
		t.Fatalf("content mismatch: %q", got)
	}
	if contentType != "application/pdf" {
		t.Fatalf("content type mismatch: %q", contentType)
	}

	if err := b.Remove(ctx, "doc-1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, _, err := b.Get(ctx, "doc-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}
	if err := b.Remove(ctx, "doc-1"); err != nil {
		t.Fatalf("second Remove failed: %v", err)
	}
}

func TestLocalGetMissing(t *testing.T) {
	b, err := NewLocalBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalBackend failed: %v", err)
	}
	if _, _, err := b.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type failingBlobBackend struct{}

var errBlobDown = errors.New("object store unreachable")

func (failingBlobBackend) Put(ctx context.Context, id string, r io.Reader, size int64, contentType string) error {
	return errBlobDown
}
func (failingBlobBackend) Get(ctx context.Context, id string) (io.ReadCloser, string, error) {
	return nil, "", errBlobDown
}
func (failingBlobBackend) Remove(ctx context.Context, id string) error {
	return errBlobDown
}

func TestStoreFallsBackToLocal(t *testing.T) {
	local, err := NewLocalBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalBackend failed: %v", err)
	}
	store := New(failingBlobBackend{}, local, zerolog.Nop())
	ctx := context.Background()

	if err := store.Put(ctx, "doc-1", bytes.NewReader([]byte("payload")), "text/plain"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	rc, contentType, err := store.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close()
	if string(got) != "payload" || contentType != "text/plain" {
		t.Fatalf("round trip mismatch: %q %q", got, contentType)
	}

	if store.FallbackCount() < 2 {
		t.Fatalf("expected fallbacks recorded, got %d", store.FallbackCount())
	}

	if err := store.Remove(ctx, "doc-1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, _, err := store.Get(ctx, "doc-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}
}

func TestStoreWithoutRemote(t *testing.T) {
	local, err := NewLocalBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalBackend failed: %v", err)
	}
	store := New(nil, local, zerolog.Nop())
	ctx := context.Background()

	if err := store.Put(ctx, "doc-1", strings.NewReader("x"), ""); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if store.FallbackCount() != 0 {
		t.Fatal("local-only operation must not count as a fallback")
	}
}
