// Package reports computes finance summaries and serializes them for
// export.
package reports

import (
	"context"
	"sort"

	"cornerstone/api/internal/model"
	"cornerstone/api/internal/services"
)

// BudgetSummary aggregates all finance records into totals and a
// per-category breakdown of spending.
type BudgetSummary struct {
	TotalIncome   float64            `json:"totalIncome"`
	TotalExpenses float64            `json:"totalExpenses"`
	Balance       float64            `json:"balance"`
	ByCategory    map[string]float64 `json:"byCategory"`
	RecordCount   int                `json:"recordCount"`
}

// MonthlyFlow is one month of income against expenses, keyed YYYY-MM.
type MonthlyFlow struct {
	Month    string  `json:"month"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Net      float64 `json:"net"`
}

type Service struct {
	finances *services.FinanceService
}

func NewService(finances *services.FinanceService) *Service {
	return &Service{finances: finances}
}

func (s *Service) BudgetSummary(ctx context.Context) (BudgetSummary, error) {
	records, err := s.finances.All(ctx)
	if err != nil {
		return BudgetSummary{}, err
	}
	return summarize(records), nil
}

func summarize(records []model.FinanceRecord) BudgetSummary {
	summary := BudgetSummary{
		ByCategory:  make(map[string]float64),
		RecordCount: len(records),
	}
	for _, r := range records {
		switch r.Type {
		case "income":
			summary.TotalIncome += r.Amount
		case "expense":
			summary.TotalExpenses += r.Amount
			category := r.Category
			if category == "" {
				category = "Uncategorized"
			}
			summary.ByCategory[category] += r.Amount
		}
	}
	summary.Balance = summary.TotalIncome - summary.TotalExpenses
	return summary
}

// MonthlyCashFlow buckets records by calendar month, oldest first.
func (s *Service) MonthlyCashFlow(ctx context.Context) ([]MonthlyFlow, error) {
	records, err := s.finances.All(ctx)
	if err != nil {
		return nil, err
	}
	return bucketByMonth(records), nil
}

func bucketByMonth(records []model.FinanceRecord) []MonthlyFlow {
	byMonth := make(map[string]*MonthlyFlow)
	for _, r := range records {
		month := r.Date.UTC().Format("2006-01")
		flow, ok := byMonth[month]
		if !ok {
			flow = &MonthlyFlow{Month: month}
			byMonth[month] = flow
		}
		switch r.Type {
		case "income":
			flow.Income += r.Amount
		case "expense":
			flow.Expenses += r.Amount
		}
	}

	out := make([]MonthlyFlow, 0, len(byMonth))
	for _, flow := range byMonth {
		flow.Net = flow.Income - flow.Expenses
		out = append(out, *flow)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}
