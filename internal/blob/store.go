package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Store is the fallback facade over blob backends. Every operation tries
// the remote first and falls back to local disk on backend failure. A
// remote "not found" is authoritative and does not fall back.
type Store struct {
	remote Backend // may be nil
	local  Backend
	log    zerolog.Logger

	fallbacks atomic.Int64
}

func New(remote, local Backend, log zerolog.Logger) *Store {
	return &Store{remote: remote, local: local, log: log}
}

// FallbackCount reports how many operations were served by the local
// backend after a remote failure.
func (s *Store) FallbackCount() int64 {
	return s.fallbacks.Load()
}

func (s *Store) fellBack(op, id string, err error) {
	s.fallbacks.Add(1)
	s.log.Warn().Err(err).Str("op", op).Str("id", id).Msg("remote blob store failed, using local disk")
}

// Put buffers the content so it can be replayed against the local backend
// when the remote write fails mid-stream.
func (s *Store) Put(ctx context.Context, id string, r io.Reader, contentType string) error {
	buf, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read blob content: %w", err)
	}
	size := int64(len(buf))

	if s.remote != nil {
		if err := s.remote.Put(ctx, id, bytes.NewReader(buf), size, contentType); err == nil {
			return nil
		} else {
			s.fellBack("put", id, err)
		}
	}
	return s.local.Put(ctx, id, bytes.NewReader(buf), size, contentType)
}

func (s *Store) Get(ctx context.Context, id string) (io.ReadCloser, string, error) {
	if s.remote != nil {
		rc, contentType, err := s.remote.Get(ctx, id)
		if err == nil || errors.Is(err, ErrNotFound) {
			return rc, contentType, err
		}
		s.fellBack("get", id, err)
	}
	return s.local.Get(ctx, id)
}

func (s *Store) Remove(ctx context.Context, id string) error {
	if s.remote != nil {
		if err := s.remote.Remove(ctx, id); err != nil {
			s.fellBack("remove", id, err)
		}
	}
	// the local copy goes regardless, it may hold a fallback write
	return s.local.Remove(ctx, id)
}
