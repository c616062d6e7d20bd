// Package identity resolves the current user session, preferring a remote
// identity provider and falling back to a fixed demo account table.
package identity

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cornerstone/api/internal/model"
)

// ErrInvalidCredentials is the single error kind surfaced for failed
// sign-ins on either path.
var ErrInvalidCredentials = errors.New("invalid credentials")

const mirrorFile = "demo_current_user.json"

// Gate owns the current session and its subscribers. Construct one per
// process and inject it; there is no package-level state.
type Gate struct {
	provider     Provider // may be nil
	mirrorPath   string
	probeTimeout time.Duration
	log          zerolog.Logger

	mu       sync.Mutex
	demoMode bool
	current  *model.User
	subs     map[int]func(*model.User)
	nextSub  int
}

func NewGate(provider Provider, dataDir string, probeTimeout time.Duration, log zerolog.Logger) *Gate {
	return &Gate{
		provider:     provider,
		mirrorPath:   filepath.Join(dataDir, mirrorFile),
		probeTimeout: probeTimeout,
		log:          log,
		subs:         make(map[int]func(*model.User)),
	}
}

// Initialize probes the remote provider within the probe timeout. Probe
// failures are swallowed: the gate switches to demo mode and tries to
// restore a previous session from the local mirror.
func (g *Gate) Initialize(ctx context.Context) {
	if g.provider != nil {
		probeCtx, cancel := context.WithTimeout(ctx, g.probeTimeout)
		err := g.provider.Probe(probeCtx)
		cancel()
		if err == nil {
			g.mu.Lock()
			g.demoMode = false
			g.mu.Unlock()
			g.log.Info().Msg("remote identity provider enabled")
			return
		}
		g.log.Warn().Err(err).Msg("identity provider unavailable, using demo mode")
	}

	g.mu.Lock()
	g.demoMode = true
	g.mu.Unlock()

	if user := g.loadMirror(); user != nil {
		g.setCurrent(user)
	}
}

// DemoMode reports whether the gate resolved to the demo account table.
func (g *Gate) DemoMode() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.demoMode
}

func (g *Gate) SignIn(ctx context.Context, email, password string) (model.User, error) {
	g.mu.Lock()
	demo := g.demoMode
	g.mu.Unlock()

	if !demo {
		user, err := g.provider.SignIn(ctx, email, password)
		if err != nil {
			return model.User{}, err
		}
		g.setCurrent(&user)
		return user, nil
	}

	for _, account := range demoAccounts() {
		if account.user.Email != email {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(account.password), []byte(password)) != 1 {
			return model.User{}, ErrInvalidCredentials
		}
		user := account.user
		now := time.Now().UTC()
		user.UpdatedAt = now
		user.LastLogin = &now
		if err := g.saveMirror(&user); err != nil {
			g.log.Warn().Err(err).Msg("failed to persist demo session")
		}
		g.setCurrent(&user)
		return user, nil
	}
	return model.User{}, ErrInvalidCredentials
}

func (g *Gate) SignOut(ctx context.Context) error {
	g.mu.Lock()
	demo := g.demoMode
	g.mu.Unlock()

	if !demo && g.provider != nil {
		if err := g.provider.SignOut(ctx); err != nil {
			g.log.Warn().Err(err).Msg("provider sign-out failed")
		}
	}
	if err := g.removeMirror(); err != nil {
		return err
	}
	g.setCurrent(nil)
	return nil
}

// CurrentUser returns the active session, or nil when signed out.
func (g *Gate) CurrentUser() *model.User {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// OnSessionChanged registers a subscriber, invokes it immediately with the
// current session, and returns an unsubscribe func.
func (g *Gate) OnSessionChanged(callback func(*model.User)) func() {
	g.mu.Lock()
	id := g.nextSub
	g.nextSub++
	g.subs[id] = callback
	current := g.current
	g.mu.Unlock()

	callback(current)

	return func() {
		g.mu.Lock()
		delete(g.subs, id)
		g.mu.Unlock()
	}
}

func (g *Gate) setCurrent(user *model.User) {
	g.mu.Lock()
	g.current = user
	callbacks := make([]func(*model.User), 0, len(g.subs))
	for _, cb := range g.subs {
		callbacks = append(callbacks, cb)
	}
	g.mu.Unlock()

	for _, cb := range callbacks {
		cb(user)
	}
}

func (g *Gate) saveMirror(user *model.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode session mirror: %w", err)
	}
	if err := os.WriteFile(g.mirrorPath, raw, 0o600); err != nil {
		return fmt.Errorf("write session mirror: %w", err)
	}
	return nil
}

func (g *Gate) loadMirror() *model.User {
	raw, err := os.ReadFile(g.mirrorPath)
	if err != nil {
		return nil
	}
	var user model.User
	if err := json.Unmarshal(raw, &user); err != nil {
		g.log.Warn().Err(err).Msg("failed to parse stored session, ignoring")
		return nil
	}
	return &user
}

func (g *Gate) removeMirror() error {
	if err := os.Remove(g.mirrorPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session mirror: %w", err)
	}
	return nil
}
