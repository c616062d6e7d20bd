package docstore

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Store is the facade callers use. Every operation tries the remote backend
// first and falls back to the local file store on failure. Remote outages
// are never surfaced to callers; each call re-attempts the remote path from
// scratch. A remote answer of "not found" is authoritative and does not
// trigger the fallback.
type Store struct {
	remote Backend // may be nil: local-only mode
	local  Backend
	log    zerolog.Logger

	fallbacks atomic.Int64
}

func New(remote, local Backend, log zerolog.Logger) *Store {
	return &Store{remote: remote, local: local, log: log}
}

// FallbackCount reports how many operations have fallen back to the local
// store since startup. Exposed so tests and the readiness endpoint can
// observe backend health instead of inferring it from side effects.
func (s *Store) FallbackCount() int64 {
	return s.fallbacks.Load()
}

// RemoteConfigured reports whether a remote backend is wired at all.
func (s *Store) RemoteConfigured() bool {
	return s.remote != nil
}

// PingRemote checks remote reachability. Local-only stores report an error.
func (s *Store) PingRemote(ctx context.Context) error {
	if s.remote == nil {
		return errors.New("no remote backend configured")
	}
	return s.remote.Ping(ctx)
}

func (s *Store) fellBack(collection, op string, err error) {
	s.fallbacks.Add(1)
	s.log.Warn().
		Str("collection", collection).
		Str("op", op).
		Err(err).
		Msg("remote store unavailable, using local fallback")
}

func (s *Store) Insert(ctx context.Context, collection string, data map[string]any) (Doc, error) {
	if s.remote != nil {
		doc, err := s.remote.Insert(ctx, collection, data)
		if err == nil {
			return doc, nil
		}
		s.fellBack(collection, "create", err)
	}
	return s.local.Insert(ctx, collection, data)
}

func (s *Store) Get(ctx context.Context, collection, id string) (Doc, bool, error) {
	if s.remote != nil {
		doc, ok, err := s.remote.Get(ctx, collection, id)
		if err == nil {
			return doc, ok, nil
		}
		s.fellBack(collection, "read_one", err)
	}
	return s.local.Get(ctx, collection, id)
}

func (s *Store) List(ctx context.Context, collection string) ([]Doc, error) {
	if s.remote != nil {
		docs, err := s.remote.List(ctx, collection)
		if err == nil {
			return docs, nil
		}
		s.fellBack(collection, "read_all", err)
	}
	return s.local.List(ctx, collection)
}

func (s *Store) Patch(ctx context.Context, collection, id string, fields map[string]any) (Doc, error) {
	if s.remote != nil {
		doc, err := s.remote.Patch(ctx, collection, id, fields)
		if err == nil || errors.Is(err, ErrNotFound) {
			return doc, err
		}
		s.fellBack(collection, "update", err)
	}
	return s.local.Patch(ctx, collection, id, fields)
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if s.remote != nil {
		err := s.remote.Delete(ctx, collection, id)
		if err == nil {
			return nil
		}
		s.fellBack(collection, "delete", err)
	}
	return s.local.Delete(ctx, collection, id)
}

func (s *Store) Query(ctx context.Context, collection string, conds []Condition) ([]Doc, error) {
	if s.remote != nil {
		docs, err := s.remote.Query(ctx, collection, conds)
		if err == nil {
			return docs, nil
		}
		s.fellBack(collection, "query", err)
	}
	return s.local.Query(ctx, collection, conds)
}
