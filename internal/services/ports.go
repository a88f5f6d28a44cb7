// Package services implements the month ledger engine: generating
// per-month bill instances, reconciling payments, aging overdue bills and
// computing summaries, plus the CRUD services the pages sit on.
package services

import (
	"context"
	"time"

	"github.com/felipeimp22/persona-finances/internal/core"
)

// Clock supplies "now" to everything that ages or projects; tests inject
// a fixed instant.
type Clock func() time.Time

// Now returns the clock's current time, falling back to the system clock
// for a nil Clock.
func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c()
}

// FixedBillStore persists recurring bill templates.
type FixedBillStore interface {
	CreateFixedBill(ctx context.Context, b core.FixedBill) error
	GetFixedBill(ctx context.Context, id string) (core.FixedBill, error)
	ListFixedBills(ctx context.Context, activeOnly bool) ([]core.FixedBill, error)
	UpdateFixedBill(ctx context.Context, b core.FixedBill) error
	DeleteFixedBill(ctx context.Context, id string) error
}

// OneTimeBillStore persists one-time bills. Creation also writes the
// instance for the bill's due month in the same transaction.
type OneTimeBillStore interface {
	CreateOneTimeBill(ctx context.Context, b core.OneTimeBill, inst core.BillInstance) error
	GetOneTimeBill(ctx context.Context, id string) (core.OneTimeBill, error)
	ListOneTimeBills(ctx context.Context, status core.BillStatus) ([]core.OneTimeBill, error)
	ListOneTimeBillsDueBetween(ctx context.Context, from, to time.Time, excludePaid bool) ([]core.OneTimeBill, error)
	UpdateOneTimeBill(ctx context.Context, b core.OneTimeBill) error
	DeleteOneTimeBill(ctx context.Context, id string) error
}

// PaymentStore persists the debts-flow payment ledger. Add and delete
// update the parent bill's payment state atomically.
type PaymentStore interface {
	AddPayment(ctx context.Context, p core.Payment, bill core.OneTimeBill) error
	GetPayment(ctx context.Context, id string) (core.Payment, error)
	ListPayments(ctx context.Context, billID string) ([]core.Payment, error)
	DeletePayment(ctx context.Context, paymentID string, bill core.OneTimeBill) error
}

// InstanceStore persists materialized bill instances.
type InstanceStore interface {
	InsertInstancesIfAbsent(ctx context.Context, month core.MonthKey, instances []core.BillInstance) (created int, skipped bool, err error)
	GetInstance(ctx context.Context, id string) (core.BillInstance, error)
	ListInstancesForMonth(ctx context.Context, month core.MonthKey) ([]core.BillInstance, error)
	ListInstancesBefore(ctx context.Context, month core.MonthKey, statuses []core.InstanceStatus) ([]core.BillInstance, error)
	ListOverdueInstances(ctx context.Context) ([]core.BillInstance, error)
	SaveInstancePayment(ctx context.Context, inst core.BillInstance, parent *core.OneTimeBill) error
	MarkInstanceOverdue(ctx context.Context, id string, daysOverdue int) error
	DeleteInstance(ctx context.Context, id string) error
}

// IncomeStore persists month-scoped income records.
type IncomeStore interface {
	CreateIncome(ctx context.Context, i core.Income) error
	GetIncome(ctx context.Context, id string) (core.Income, error)
	ListIncome(ctx context.Context, person core.Person, month *core.MonthKey) ([]core.Income, error)
	UpdateIncome(ctx context.Context, i core.Income) error
	DeleteIncome(ctx context.Context, id string) error
}

// ExpenseStore persists the ad-hoc expense ledger.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, e core.Expense) error
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	ListExpensesBetween(ctx context.Context, from, to time.Time) ([]core.Expense, error)
	UpdateExpense(ctx context.Context, e core.Expense) error
	DeleteExpense(ctx context.Context, id string) error
}

// WarningStore reads the pre-seeded budget warning rules.
type WarningStore interface {
	ListActiveBudgetWarnings(ctx context.Context) ([]core.BudgetWarning, error)
}

// ChangePublisher broadcasts that ledger data changed so caches and open
// views can refresh. Fire-and-forget: publish failures are logged, never
// surfaced to the user.
type ChangePublisher interface {
	PublishLedgerChanged(ctx context.Context, scope string) error
}
