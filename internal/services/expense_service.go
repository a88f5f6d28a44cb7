package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/felipeimp22/persona-finances/internal/core"
)

// ExpenseService manages the ad-hoc expense ledger. Expenses are additive
// records with no lifecycle; they only feed the dashboard aggregates.
type ExpenseService struct {
	expenses  ExpenseStore
	publisher ChangePublisher
	clock     Clock
}

func NewExpenseService(expenses ExpenseStore, publisher ChangePublisher, clock Clock) *ExpenseService {
	return &ExpenseService{
		expenses:  expenses,
		publisher: publisher,
		clock:     clock,
	}
}

// CreateExpense records a day-scoped expense.
func (s *ExpenseService) CreateExpense(ctx context.Context, description string, amount decimal.Decimal, date time.Time, category core.ExpenseCategory, paidBy core.Person, notes string) (core.Expense, error) {
	now := s.clock.Now()
	if date.IsZero() {
		date = now
	}
	e := core.Expense{
		ID:          uuid.NewString(),
		Description: description,
		Amount:      amount,
		Date:        date,
		Category:    category,
		PaidBy:      paidBy,
		Notes:       notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if err := s.expenses.CreateExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense recorded",
		"expense_id", e.ID, "category", string(category), "amount", amount.String())
	notifyChange(ctx, s.publisher, ScopeExpenses)
	return e, nil
}

func (s *ExpenseService) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	return s.expenses.GetExpense(ctx, id)
}

// ListExpensesForMonth lists the month's expenses, newest first as stored.
func (s *ExpenseService) ListExpensesForMonth(ctx context.Context, month core.MonthKey) ([]core.Expense, error) {
	return s.expenses.ListExpensesBetween(ctx, month.Start(), month.End())
}

func (s *ExpenseService) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e.UpdatedAt = s.clock.Now()
	if err := s.expenses.UpdateExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	notifyChange(ctx, s.publisher, ScopeExpenses)
	return e, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, id string) error {
	if err := s.expenses.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	notifyChange(ctx, s.publisher, ScopeExpenses)
	return nil
}
