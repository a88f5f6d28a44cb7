package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/felipeimp22/persona-finances/internal/core"
)

// IncomeService manages month-scoped income records and the per-person
// income split.
type IncomeService struct {
	income    IncomeStore
	publisher ChangePublisher
	clock     Clock
}

func NewIncomeService(income IncomeStore, publisher ChangePublisher, clock Clock) *IncomeService {
	return &IncomeService{
		income:    income,
		publisher: publisher,
		clock:     clock,
	}
}

// CreateIncome records income for one person in one month.
func (s *IncomeService) CreateIncome(ctx context.Context, person core.Person, amount decimal.Decimal, incomeType core.IncomeType, month core.MonthKey, notes string) (core.Income, error) {
	now := s.clock.Now()
	i := core.Income{
		ID:        uuid.NewString(),
		Person:    person,
		Amount:    amount,
		Type:      incomeType,
		Month:     month,
		Notes:     notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := i.Validate(); err != nil {
		return core.Income{}, err
	}
	if err := s.income.CreateIncome(ctx, i); err != nil {
		return core.Income{}, fmt.Errorf("create income: %w", err)
	}

	slog.InfoContext(ctx, "Income recorded",
		"income_id", i.ID, "person", string(person), "month", month.String())
	notifyChange(ctx, s.publisher, ScopeIncome)
	return i, nil
}

func (s *IncomeService) GetIncome(ctx context.Context, id string) (core.Income, error) {
	return s.income.GetIncome(ctx, id)
}

// ListIncome lists income records, optionally filtered by person and month.
// An empty person matches both household members.
func (s *IncomeService) ListIncome(ctx context.Context, person core.Person, month *core.MonthKey) ([]core.Income, error) {
	return s.income.ListIncome(ctx, person, month)
}

func (s *IncomeService) UpdateIncome(ctx context.Context, i core.Income) (core.Income, error) {
	if err := i.Validate(); err != nil {
		return core.Income{}, err
	}
	i.UpdatedAt = s.clock.Now()
	if err := s.income.UpdateIncome(ctx, i); err != nil {
		return core.Income{}, fmt.Errorf("update income: %w", err)
	}
	notifyChange(ctx, s.publisher, ScopeIncome)
	return i, nil
}

func (s *IncomeService) DeleteIncome(ctx context.Context, id string) error {
	if err := s.income.DeleteIncome(ctx, id); err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	notifyChange(ctx, s.publisher, ScopeIncome)
	return nil
}

// MonthlyIncome returns the month's total with the per-person split.
func (s *IncomeService) MonthlyIncome(ctx context.Context, month core.MonthKey) (core.MonthlyIncome, error) {
	records, err := s.income.ListIncome(ctx, "", &month)
	if err != nil {
		return core.MonthlyIncome{}, fmt.Errorf("list income: %w", err)
	}

	mi := core.MonthlyIncome{Records: records}
	for _, r := range records {
		mi.Total = mi.Total.Add(r.Amount)
		switch r.Person {
		case core.PersonFelipe:
			mi.FelipeIncome = mi.FelipeIncome.Add(r.Amount)
		case core.PersonCarol:
			mi.CarolIncome = mi.CarolIncome.Add(r.Amount)
		}
	}
	return mi, nil
}
