package services

import (
	"context"

	"cornerstone/api/internal/docstore"
	"cornerstone/api/internal/model"
)

type ProjectService struct {
	col *docstore.Collection[model.Project]
}

func NewProjectService(store *docstore.Store) *ProjectService {
	return &ProjectService{col: docstore.NewCollection[model.Project](store, "projects")}
}

func (s *ProjectService) Create(ctx context.Context, p model.Project) (model.Project, error) {
	return s.col.Create(ctx, p)
}

func (s *ProjectService) All(ctx context.Context) ([]model.Project, error) {
	return s.col.All(ctx)
}

func (s *ProjectService) Get(ctx context.Context, id string) (model.Project, bool, error) {
	return s.col.Get(ctx, id)
}

func (s *ProjectService) Update(ctx context.Context, id string, fields map[string]any) (model.Project, error) {
	return s.col.Update(ctx, id, fields)
}

func (s *ProjectService) Delete(ctx context.Context, id string) error {
	return s.col.Delete(ctx, id)
}

func (s *ProjectService) ByStatus(ctx context.Context, status string) ([]model.Project, error) {
	return s.col.Find(ctx, docstore.Where("status", docstore.OpEq, status))
}

// WithMember returns projects whose team includes the user.
func (s *ProjectService) WithMember(ctx context.Context, userID string) ([]model.Project, error) {
	return s.col.Find(ctx, docstore.Where("teamMembers", docstore.OpContains, userID))
}
