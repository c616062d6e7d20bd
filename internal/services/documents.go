package services

import (
	"context"

	"cornerstone/api/internal/docstore"
	"cornerstone/api/internal/model"
)

type DocumentService struct {
	col *docstore.Collection[model.Document]
}

func NewDocumentService(store *docstore.Store) *DocumentService {
	return &DocumentService{col: docstore.NewCollection[model.Document](store, "documents")}
}

func (s *DocumentService) Create(ctx context.Context, d model.Document) (model.Document, error) {
	return s.col.Create(ctx, d)
}

func (s *DocumentService) All(ctx context.Context) ([]model.Document, error) {
	return s.col.All(ctx)
}

func (s *DocumentService) Get(ctx context.Context, id string) (model.Document, bool, error) {
	return s.col.Get(ctx, id)
}

func (s *DocumentService) Update(ctx context.Context, id string, fields map[string]any) (model.Document, error) {
	return s.col.Update(ctx, id, fields)
}

func (s *DocumentService) Delete(ctx context.Context, id string) error {
	return s.col.Delete(ctx, id)
}

// Children lists the direct entries of a folder. An empty parent id means
// the root of the tree.
func (s *DocumentService) Children(ctx context.Context, parentID string) ([]model.Document, error) {
	return s.col.Find(ctx, docstore.Where("parentId", docstore.OpEq, parentID))
}

func (s *DocumentService) ByCategory(ctx context.Context, category string) ([]model.Document, error) {
	return s.col.Find(ctx, docstore.Where("category", docstore.OpEq, category))
}
