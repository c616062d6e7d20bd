package services

import (
	"context"

	"cornerstone/api/internal/docstore"
	"cornerstone/api/internal/model"
)

type TaskService struct {
	col *docstore.Collection[model.Task]
}

func NewTaskService(store *docstore.Store) *TaskService {
	return &TaskService{col: docstore.NewCollection[model.Task](store, "tasks")}
}

func (s *TaskService) Create(ctx context.Context, task model.Task) (model.Task, error) {
	return s.col.Create(ctx, task)
}

func (s *TaskService) All(ctx context.Context) ([]model.Task, error) {
	return s.col.All(ctx)
}

func (s *TaskService) Get(ctx context.Context, id string) (model.Task, bool, error) {
	return s.col.Get(ctx, id)
}

func (s *TaskService) Update(ctx context.Context, id string, fields map[string]any) (model.Task, error) {
	return s.col.Update(ctx, id, fields)
}

func (s *TaskService) Delete(ctx context.Context, id string) error {
	return s.col.Delete(ctx, id)
}

func (s *TaskService) ByStatus(ctx context.Context, status string) ([]model.Task, error) {
	return s.col.Find(ctx, docstore.Where("status", docstore.OpEq, status))
}

func (s *TaskService) ByAssignee(ctx context.Context, assignee string) ([]model.Task, error) {
	return s.col.Find(ctx, docstore.Where("assignee", docstore.OpEq, assignee))
}

// Tagged returns tasks carrying the given tag.
func (s *TaskService) Tagged(ctx context.Context, tag string) ([]model.Task, error) {
	return s.col.Find(ctx, docstore.Where("tags", docstore.OpContains, tag))
}
