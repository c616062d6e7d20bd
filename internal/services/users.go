package services

import (
	"context"

	"cornerstone/api/internal/auth"
	"cornerstone/api/internal/docstore"
	"cornerstone/api/internal/model"
	"cornerstone/api/internal/rbac"
)

type UserService struct {
	col *docstore.Collection[model.User]
}

func NewUserService(store *docstore.Store) *UserService {
	return &UserService{col: docstore.NewCollection[model.User](store, "users")}
}

// Create normalizes the role, fills default permissions when none are
// given, and stores a bcrypt hash of the password. The hash lives in the
// raw document only; it is never decoded back into the model.
func (s *UserService) Create(ctx context.Context, u model.User, password string) (model.User, error) {
	role := rbac.Normalize(u.Role)
	u.Role = string(role)
	if len(u.Permissions) == 0 {
		u.Permissions = rbac.Permissions(role)
	}
	u.IsActive = true

	created, err := s.col.Create(ctx, u)
	if err != nil {
		return model.User{}, err
	}
	if password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return model.User{}, err
		}
		if _, err := s.col.Update(ctx, created.ID, map[string]any{"passwordHash": hash}); err != nil {
			return model.User{}, err
		}
	}
	return created, nil
}

func (s *UserService) All(ctx context.Context) ([]model.User, error) {
	return s.col.All(ctx)
}

func (s *UserService) Get(ctx context.Context, id string) (model.User, bool, error) {
	return s.col.Get(ctx, id)
}

func (s *UserService) Update(ctx context.Context, id string, fields map[string]any) (model.User, error) {
	return s.col.Update(ctx, id, fields)
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	return s.col.Delete(ctx, id)
}

func (s *UserService) ByRole(ctx context.Context, role string) ([]model.User, error) {
	return s.col.Find(ctx, docstore.Where("role", docstore.OpEq, role))
}

func (s *UserService) ByEmail(ctx context.Context, email string) (model.User, bool, error) {
	users, err := s.col.Find(ctx, docstore.Where("email", docstore.OpEq, email))
	if err != nil {
		return model.User{}, false, err
	}
	if len(users) == 0 {
		return model.User{}, false, nil
	}
	return users[0], true, nil
}
