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

// BillService manages fixed bill templates and one-time bills.
type BillService struct {
	fixed     FixedBillStore
	oneTime   OneTimeBillStore
	payments  PaymentStore
	publisher ChangePublisher
	clock     Clock
}

func NewBillService(
	fixed FixedBillStore,
	oneTime OneTimeBillStore,
	payments PaymentStore,
	publisher ChangePublisher,
	clock Clock,
) *BillService {
	return &BillService{
		fixed:     fixed,
		oneTime:   oneTime,
		payments:  payments,
		publisher: publisher,
		clock:     clock,
	}
}

// CreateFixedBill registers a recurring bill template. It takes effect from
// the next generated month; months generated before it exist are untouched.
func (s *BillService) CreateFixedBill(ctx context.Context, name string, amount decimal.Decimal, dueDay int, category string, createdBy core.Person) (core.FixedBill, error) {
	now := s.clock.Now()
	b := core.FixedBill{
		ID:        uuid.NewString(),
		Name:      name,
		Amount:    amount,
		DueDay:    dueDay,
		Category:  category,
		IsActive:  true,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := b.Validate(); err != nil {
		return core.FixedBill{}, err
	}
	if err := s.fixed.CreateFixedBill(ctx, b); err != nil {
		return core.FixedBill{}, fmt.Errorf("create fixed bill: %w", err)
	}

	slog.InfoContext(ctx, "Fixed bill created",
		"bill_id", b.ID, "name", b.Name, "due_day", b.DueDay)
	notifyChange(ctx, s.publisher, ScopeBills)
	return b, nil
}

func (s *BillService) GetFixedBill(ctx context.Context, id string) (core.FixedBill, error) {
	return s.fixed.GetFixedBill(ctx, id)
}

func (s *BillService) ListFixedBills(ctx context.Context, activeOnly bool) ([]core.FixedBill, error) {
	return s.fixed.ListFixedBills(ctx, activeOnly)
}

// UpdateFixedBill edits a template. Already-generated instances keep their
// snapshotted name and amount.
func (s *BillService) UpdateFixedBill(ctx context.Context, b core.FixedBill) (core.FixedBill, error) {
	if err := b.Validate(); err != nil {
		return core.FixedBill{}, err
	}
	b.UpdatedAt = s.clock.Now()
	if err := s.fixed.UpdateFixedBill(ctx, b); err != nil {
		return core.FixedBill{}, fmt.Errorf("update fixed bill: %w", err)
	}
	notifyChange(ctx, s.publisher, ScopeBills)
	return b, nil
}

// ToggleFixedBill flips a template between active and paused without
// deleting its history.
func (s *BillService) ToggleFixedBill(ctx context.Context, id string) (core.FixedBill, error) {
	b, err := s.fixed.GetFixedBill(ctx, id)
	if err != nil {
		return core.FixedBill{}, fmt.Errorf("get fixed bill: %w", err)
	}
	b.IsActive = !b.IsActive
	b.UpdatedAt = s.clock.Now()
	if err := s.fixed.UpdateFixedBill(ctx, b); err != nil {
		return core.FixedBill{}, fmt.Errorf("toggle fixed bill: %w", err)
	}

	slog.InfoContext(ctx, "Fixed bill toggled",
		"bill_id", b.ID, "is_active", b.IsActive)
	notifyChange(ctx, s.publisher, ScopeBills)
	return b, nil
}

func (s *BillService) DeleteFixedBill(ctx context.Context, id string) error {
	if err := s.fixed.DeleteFixedBill(ctx, id); err != nil {
		return fmt.Errorf("delete fixed bill: %w", err)
	}
	notifyChange(ctx, s.publisher, ScopeBills)
	return nil
}

// NewOneTimeBillInput carries the user-supplied fields of a new debt.
type NewOneTimeBillInput struct {
	Description string
	TotalAmount decimal.Decimal
	PaidAmount  decimal.Decimal
	DueDate     time.Time
	CreatedBy   core.Person
	Notes       string
	Category    string
}

// CreateOneTimeBill registers a debt and materializes its bill instance in
// the month the due date falls in, both in one transaction. The instance
// bills the full amount even when the debt starts with a paid amount; only
// month generation snapshots the remaining balance.
func (s *BillService) CreateOneTimeBill(ctx context.Context, in NewOneTimeBillInput) (core.OneTimeBill, error) {
	now := s.clock.Now()
	b := core.OneTimeBill{
		ID:          uuid.NewString(),
		Description: in.Description,
		TotalAmount: in.TotalAmount,
		PaidAmount:  in.PaidAmount,
		DueDate:     in.DueDate,
		Status:      core.DeriveBillStatus(in.PaidAmount, in.TotalAmount),
		CreatedBy:   in.CreatedBy,
		Notes:       in.Notes,
		Category:    in.Category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := b.Validate(); err != nil {
		return core.OneTimeBill{}, err
	}

	inst := core.BillInstance{
		ID:         uuid.NewString(),
		Source:     core.OneTimeSource(b.ID),
		Name:       b.Description,
		Amount:     b.TotalAmount,
		Category:   b.Category,
		DueDate:    b.DueDate,
		Month:      core.MonthKeyOf(b.DueDate),
		Status:     core.InstanceUnpaid,
		PaidAmount: decimal.Zero,
		CreatedBy:  b.CreatedBy,
		CreatedAt:  now,
	}

	if err := s.oneTime.CreateOneTimeBill(ctx, b, inst); err != nil {
		return core.OneTimeBill{}, fmt.Errorf("create one-time bill: %w", err)
	}

	slog.InfoContext(ctx, "One-time bill created",
		"bill_id", b.ID, "month", inst.Month.String(), "amount", b.TotalAmount.String())
	notifyChange(ctx, s.publisher, ScopeBills)
	return b, nil
}

func (s *BillService) GetOneTimeBill(ctx context.Context, id string) (core.OneTimeBill, error) {
	return s.oneTime.GetOneTimeBill(ctx, id)
}

// ListOneTimeBills lists debts, optionally filtered by status. An empty
// status lists everything.
func (s *BillService) ListOneTimeBills(ctx context.Context, status core.BillStatus) ([]core.OneTimeBill, error) {
	return s.oneTime.ListOneTimeBills(ctx, status)
}

// UpdateOneTimeBill edits a debt's descriptive fields and re-derives its
// status from the stored amounts.
func (s *BillService) UpdateOneTimeBill(ctx context.Context, b core.OneTimeBill) (core.OneTimeBill, error) {
	if err := b.Validate(); err != nil {
		return core.OneTimeBill{}, err
	}
	b.Status = core.DeriveBillStatus(b.PaidAmount, b.TotalAmount)
	b.UpdatedAt = s.clock.Now()
	if err := s.oneTime.UpdateOneTimeBill(ctx, b); err != nil {
		return core.OneTimeBill{}, fmt.Errorf("update one-time bill: %w", err)
	}
	notifyChange(ctx, s.publisher, ScopeBills)
	return b, nil
}

// DeleteOneTimeBill removes a debt with its payment ledger. Bill instances
// generated from it stay in their months and keep working; payments against
// them simply stop propagating to a parent.
func (s *BillService) DeleteOneTimeBill(ctx context.Context, id string) error {
	if err := s.oneTime.DeleteOneTimeBill(ctx, id); err != nil {
		return fmt.Errorf("delete one-time bill: %w", err)
	}
	notifyChange(ctx, s.publisher, ScopeBills)
	return nil
}

func (s *BillService) ListPayments(ctx context.Context, billID string) ([]core.Payment, error) {
	return s.payments.ListPayments(ctx, billID)
}
