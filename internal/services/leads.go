package services

import (
	"context"

	"cornerstone/api/internal/docstore"
	"cornerstone/api/internal/model"
)

type LeadService struct {
	col *docstore.Collection[model.Lead]
}

func NewLeadService(store *docstore.Store) *LeadService {
	return &LeadService{col: docstore.NewCollection[model.Lead](store, "leads")}
}

func (s *LeadService) Create(ctx context.Context, lead model.Lead) (model.Lead, error) {
	return s.col.Create(ctx, lead)
}

func (s *LeadService) All(ctx context.Context) ([]model.Lead, error) {
	return s.col.All(ctx)
}

func (s *LeadService) Get(ctx context.Context, id string) (model.Lead, bool, error) {
	return s.col.Get(ctx, id)
}

func (s *LeadService) Update(ctx context.Context, id string, fields map[string]any) (model.Lead, error) {
	return s.col.Update(ctx, id, fields)
}

func (s *LeadService) Delete(ctx context.Context, id string) error {
	return s.col.Delete(ctx, id)
}

func (s *LeadService) ByStatus(ctx context.Context, status string) ([]model.Lead, error) {
	return s.col.Find(ctx, docstore.Where("status", docstore.OpEq, status))
}

func (s *LeadService) ByAssignee(ctx context.Context, userID string) ([]model.Lead, error) {
	return s.col.Find(ctx, docstore.Where("assignedTo", docstore.OpEq, userID))
}

// WorthAtLeast returns leads whose expected value meets the floor.
func (s *LeadService) WorthAtLeast(ctx context.Context, floor float64) ([]model.Lead, error) {
	return s.col.Find(ctx, docstore.Where("expectedValue", docstore.OpGte, floor))
}
