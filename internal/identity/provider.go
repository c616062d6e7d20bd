package identity

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"cornerstone/api/internal/auth"
	"cornerstone/api/internal/docstore"
	"cornerstone/api/internal/model"
	"cornerstone/api/internal/rbac"
)

// Provider is the remote identity boundary. Probe failures switch the gate
// into demo mode; sign-in failures surface as ErrInvalidCredentials.
type Provider interface {
	Probe(ctx context.Context) error
	SignIn(ctx context.Context, email, password string) (model.User, error)
	SignOut(ctx context.Context) error
}

const usersCollection = "users"

// StoreProvider authenticates against the users collection on the remote
// document store. It deliberately bypasses the fallback facade: when the
// remote store is down the gate should be in demo mode, not reading
// credentials from local files.
type StoreProvider struct {
	backend docstore.Backend
	log     zerolog.Logger
}

func NewStoreProvider(backend docstore.Backend, log zerolog.Logger) *StoreProvider {
	return &StoreProvider{backend: backend, log: log}
}

func (p *StoreProvider) Probe(ctx context.Context) error {
	return p.backend.Ping(ctx)
}

func (p *StoreProvider) SignIn(ctx context.Context, email, password string) (model.User, error) {
	docs, err := p.backend.Query(ctx, usersCollection, []docstore.Condition{
		docstore.Where("email", docstore.OpEq, email),
	})
	if err != nil {
		return model.User{}, err
	}
	if len(docs) == 0 {
		return model.User{}, ErrInvalidCredentials
	}

	doc := docs[0]
	hash, _ := doc.Data["passwordHash"].(string)
	if hash == "" || !auth.CheckPassword(hash, password) {
		return model.User{}, ErrInvalidCredentials
	}

	user := userFromDoc(doc)
	now := time.Now().UTC()
	if _, err := p.backend.Patch(ctx, usersCollection, doc.ID, map[string]any{"lastLogin": now}); err != nil {
		p.log.Warn().Err(err).Str("user", doc.ID).Msg("failed to stamp last login")
	} else {
		user.LastLogin = &now
	}
	return user, nil
}

func (p *StoreProvider) SignOut(ctx context.Context) error {
	return nil
}

// userFromDoc maps a stored profile into a session user. Missing role or
// permissions default to the least-privileged team member set.
func userFromDoc(doc docstore.Doc) model.User {
	role := rbac.Normalize(stringField(doc.Data, "role"))
	user := model.User{
		ID:          doc.ID,
		Email:       stringField(doc.Data, "email"),
		DisplayName: stringField(doc.Data, "displayName"),
		Role:        string(role),
		Department:  stringField(doc.Data, "department"),
		PhoneNumber: stringField(doc.Data, "phoneNumber"),
		IsActive:    true,
		Permissions: rbac.Permissions(role),
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
	if user.DisplayName == "" {
		user.DisplayName = "User"
	}
	if active, ok := doc.Data["isActive"].(bool); ok {
		user.IsActive = active
	}
	if perms, ok := doc.Data["permissions"].([]any); ok && len(perms) > 0 {
		out := make([]string, 0, len(perms))
		for _, p := range perms {
			if s, ok := p.(string); ok {
				out = append(out, s)
			}
		}
		user.Permissions = out
	}
	return user
}

func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}
