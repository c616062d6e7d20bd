package services

import (
	"context"
	"time"

	"cornerstone/api/internal/docstore"
	"cornerstone/api/internal/model"
)

type FinanceService struct {
	col *docstore.Collection[model.FinanceRecord]
}

func NewFinanceService(store *docstore.Store) *FinanceService {
	return &FinanceService{col: docstore.NewCollection[model.FinanceRecord](store, "finances")}
}

func (s *FinanceService) Create(ctx context.Context, rec model.FinanceRecord) (model.FinanceRecord, error) {
	return s.col.Create(ctx, rec)
}

func (s *FinanceService) All(ctx context.Context) ([]model.FinanceRecord, error) {
	return s.col.All(ctx)
}

func (s *FinanceService) Get(ctx context.Context, id string) (model.FinanceRecord, bool, error) {
	return s.col.Get(ctx, id)
}

func (s *FinanceService) Update(ctx context.Context, id string, fields map[string]any) (model.FinanceRecord, error) {
	return s.col.Update(ctx, id, fields)
}

func (s *FinanceService) Delete(ctx context.Context, id string) error {
	return s.col.Delete(ctx, id)
}

// ByType returns income or expense records only.
func (s *FinanceService) ByType(ctx context.Context, kind string) ([]model.FinanceRecord, error) {
	return s.col.Find(ctx, docstore.Where("type", docstore.OpEq, kind))
}

func (s *FinanceService) ByCategory(ctx context.Context, category string) ([]model.FinanceRecord, error) {
	return s.col.Find(ctx, docstore.Where("category", docstore.OpEq, category))
}

// InRange returns records whose date falls inside [from, to].
func (s *FinanceService) InRange(ctx context.Context, from, to time.Time) ([]model.FinanceRecord, error) {
	return s.col.Find(ctx,
		docstore.Where("date", docstore.OpGte, from),
		docstore.Where("date", docstore.OpLte, to),
	)
}
