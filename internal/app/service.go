// Package app wires the stores, identity gate, and domain services behind
// the HTTP surface.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"cornerstone/api/internal/auth"
	"cornerstone/api/internal/blob"
	"cornerstone/api/internal/config"
	"cornerstone/api/internal/docstore"
	"cornerstone/api/internal/identity"
	"cornerstone/api/internal/model"
	"cornerstone/api/internal/rbac"
	"cornerstone/api/internal/reports"
	"cornerstone/api/internal/search"
	"cornerstone/api/internal/services"
)

const sessionsCollection = "sessions"

// Session is what a signed-in client holds: a short-lived access token
// and a rotating refresh token.
type Session struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	UserID       string `json:"userId"`
	UserName     string `json:"userName"`
	Role         string `json:"role"`
}

type Service struct {
	cfg      config.Config
	log      zerolog.Logger
	gate     *identity.Gate
	store    *docstore.Store
	registry *services.Registry
	search   *search.Service
	blobs    *blob.Store
	reports  *reports.Service
}

func NewService(
	cfg config.Config,
	gate *identity.Gate,
	store *docstore.Store,
	registry *services.Registry,
	searchSvc *search.Service,
	blobs *blob.Store,
	log zerolog.Logger,
) *Service {
	return &Service{
		cfg:      cfg,
		log:      log,
		gate:     gate,
		store:    store,
		registry: registry,
		search:   searchSvc,
		blobs:    blobs,
		reports:  reports.NewService(registry.Finances),
	}
}

// Ping reports remote document store connectivity. A local-only deployment
// is always ready.
func (s *Service) Ping(ctx context.Context) error {
	if !s.store.RemoteConfigured() {
		return nil
	}
	return s.store.PingRemote(ctx)
}

func (s *Service) DemoMode() bool {
	return s.gate.DemoMode()
}

func (s *Service) FallbackCount() int64 {
	return s.store.FallbackCount()
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Role(role), action)
}

// SignIn authenticates through the identity gate and mints a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (Session, model.User, error) {
	user, err := s.gate.SignIn(ctx, email, password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return Session{}, model.User{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
		}
		return Session{}, model.User{}, err
	}

	session, err := s.mintSession(ctx, user.ID, user.DisplayName, user.Role)
	if err != nil {
		return Session{}, model.User{}, err
	}
	return session, user, nil
}

// Refresh rotates a refresh token. The old token is spent whether or not
// the rotation succeeds.
func (s *Service) Refresh(ctx context.Context, rawRefresh string) (Session, error) {
	hash := auth.HashToken(rawRefresh)
	docs, err := s.store.Query(ctx, sessionsCollection, []docstore.Condition{
		docstore.Where("refreshHash", docstore.OpEq, hash),
	})
	if err != nil {
		return Session{}, err
	}
	if len(docs) == 0 {
		return Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid", nil)
	}

	doc := docs[0]
	if err := s.store.Delete(ctx, sessionsCollection, doc.ID); err != nil {
		return Session{}, err
	}

	expires, _ := doc.Data["expiresAt"].(string)
	if deadline, err := time.Parse(time.RFC3339Nano, expires); err != nil || time.Now().After(deadline) {
		return Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token expired", nil)
	}

	userID, _ := doc.Data["userId"].(string)
	userName, _ := doc.Data["userName"].(string)
	role, _ := doc.Data["role"].(string)
	return s.mintSession(ctx, userID, userName, role)
}

// SignOut spends the refresh token and clears the gate session.
func (s *Service) SignOut(ctx context.Context, rawRefresh string) error {
	if rawRefresh != "" {
		hash := auth.HashToken(rawRefresh)
		docs, err := s.store.Query(ctx, sessionsCollection, []docstore.Condition{
			docstore.Where("refreshHash", docstore.OpEq, hash),
		})
		if err == nil {
			for _, doc := range docs {
				if err := s.store.Delete(ctx, sessionsCollection, doc.ID); err != nil {
					s.log.Warn().Err(err).Str("id", doc.ID).Msg("failed to delete session record")
				}
			}
		}
	}
	return s.gate.SignOut(ctx)
}

// SessionFromToken validates an access token and rebuilds the session
// identity from its claims.
func (s *Service) SessionFromToken(token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		UserID:   claims.UserID,
		UserName: claims.DisplayName,
		Role:     claims.Role,
	}, nil
}

func (s *Service) mintSession(ctx context.Context, userID, userName, role string) (Session, error) {
	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), userID, userName, role, s.cfg.AccessTTL())
	if err != nil {
		return Session{}, err
	}
	rawRefresh, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		return Session{}, err
	}

	expiresAt := time.Now().UTC().Add(s.cfg.RefreshTTL())
	if _, err := s.store.Insert(ctx, sessionsCollection, map[string]any{
		"refreshHash": hash,
		"userId":      userID,
		"userName":    userName,
		"role":        role,
		"expiresAt":   expiresAt,
	}); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: rawRefresh,
		UserID:       userID,
		UserName:     userName,
		Role:         role,
	}, nil
}
