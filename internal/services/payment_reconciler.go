package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/felipeimp22/persona-finances/internal/core"
)

// PaymentReconciler applies payments to bill instances and to the one-time
// bill payment ledger, keeping instance and parent bill in step. All dual
// writes happen inside a single storage transaction.
type PaymentReconciler struct {
	instances InstanceStore
	oneTime   OneTimeBillStore
	payments  PaymentStore
	publisher ChangePublisher
	clock     Clock
}

func NewPaymentReconciler(
	instances InstanceStore,
	oneTime OneTimeBillStore,
	payments PaymentStore,
	publisher ChangePublisher,
	clock Clock,
) *PaymentReconciler {
	return &PaymentReconciler{
		instances: instances,
		oneTime:   oneTime,
		payments:  payments,
		publisher: publisher,
		clock:     clock,
	}
}

// MarkInstancePaid records a full or partial payment against an instance.
// The amount must not exceed the instance's remaining balance. When the
// payment completes the instance, the paid date and payer are recorded and
// any overdue flag is cleared. Payments against instances of a one-time
// bill also advance the parent bill's paid amount.
func (r *PaymentReconciler) MarkInstancePaid(ctx context.Context, instanceID string, amount decimal.Decimal, paidBy core.Person, paidDate time.Time) (core.BillInstance, error) {
	if !amount.IsPositive() {
		return core.BillInstance{}, core.ErrInvalidAmount
	}
	if err := paidBy.Validate(); err != nil {
		return core.BillInstance{}, err
	}
	if paidDate.IsZero() {
		paidDate = r.clock.Now()
	}

	inst, err := r.instances.GetInstance(ctx, instanceID)
	if err != nil {
		return core.BillInstance{}, fmt.Errorf("get instance: %w", err)
	}
	if amount.GreaterThan(inst.Remaining()) {
		return core.BillInstance{}, core.ErrPaymentExceeds
	}

	inst.PaidAmount = inst.PaidAmount.Add(amount)
	inst.Status = core.DeriveInstanceStatus(inst.PaidAmount, inst.Amount, inst.IsOverdue)
	if inst.Status == core.InstancePaid {
		inst.PaidDate = &paidDate
		inst.PaidBy = paidBy
		inst.IsOverdue = false
		inst.DaysOverdue = 0
	}

	parent, err := r.parentBillAfterPayment(ctx, inst, amount)
	if err != nil {
		return core.BillInstance{}, err
	}

	if err := r.instances.SaveInstancePayment(ctx, inst, parent); err != nil {
		return core.BillInstance{}, fmt.Errorf("save instance payment: %w", err)
	}

	slog.InfoContext(ctx, "Instance payment recorded",
		"instance_id", inst.ID,
		"amount", amount.String(),
		"status", string(inst.Status),
		"paid_by", string(paidBy))
	notifyChange(ctx, r.publisher, ScopeInstances)
	return inst, nil
}

// parentBillAfterPayment returns the parent one-time bill with the payment
// applied, or nil when the instance has no one-time parent. A parent that
// was deleted after generation is skipped rather than failing the payment.
func (r *PaymentReconciler) parentBillAfterPayment(ctx context.Context, inst core.BillInstance, amount decimal.Decimal) (*core.OneTimeBill, error) {
	billID, ok := inst.Source.OneTimeBillID()
	if !ok {
		return nil, nil
	}

	bill, err := r.oneTime.GetOneTimeBill(ctx, billID)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Parent one-time bill missing, skipping propagation",
			"instance_id", inst.ID, "bill_id", billID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get parent bill: %w", err)
	}

	bill.PaidAmount = bill.PaidAmount.Add(amount)
	bill.Status = core.DeriveBillStatus(bill.PaidAmount, bill.TotalAmount)
	bill.UpdatedAt = r.clock.Now()
	return &bill, nil
}

// AddPayment appends a payment to a one-time bill's ledger and advances the
// bill's paid amount. The amount is not clamped to the remaining balance;
// overpaying simply drives the bill to paid with a negative remainder.
func (r *PaymentReconciler) AddPayment(ctx context.Context, billID string, amount decimal.Decimal, paidBy core.Person, date time.Time, notes string) (core.Payment, error) {
	if date.IsZero() {
		date = r.clock.Now()
	}
	p := core.Payment{
		ID:        uuid.NewString(),
		BillID:    billID,
		Amount:    amount,
		Date:      date,
		PaidBy:    paidBy,
		Notes:     notes,
		CreatedAt: r.clock.Now(),
	}
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}

	bill, err := r.oneTime.GetOneTimeBill(ctx, billID)
	if err != nil {
		return core.Payment{}, fmt.Errorf("get bill: %w", err)
	}
	bill.PaidAmount = bill.PaidAmount.Add(amount)
	bill.Status = core.DeriveBillStatus(bill.PaidAmount, bill.TotalAmount)
	bill.UpdatedAt = r.clock.Now()

	if err := r.payments.AddPayment(ctx, p, bill); err != nil {
		return core.Payment{}, fmt.Errorf("add payment: %w", err)
	}

	slog.InfoContext(ctx, "Payment added",
		"bill_id", billID,
		"payment_id", p.ID,
		"amount", amount.String(),
		"status", string(bill.Status))
	notifyChange(ctx, r.publisher, ScopeBills)
	return p, nil
}

// DeletePayment reverses a ledger payment, winding the parent bill's paid
// amount back. The result is floored at zero so reversing a payment that
// was larger than the recorded total cannot leave a negative paid amount.
func (r *PaymentReconciler) DeletePayment(ctx context.Context, paymentID string) error {
	p, err := r.payments.GetPayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("get payment: %w", err)
	}

	bill, err := r.oneTime.GetOneTimeBill(ctx, p.BillID)
	if err != nil {
		return fmt.Errorf("get bill: %w", err)
	}

	bill.PaidAmount = bill.PaidAmount.Sub(p.Amount)
	if bill.PaidAmount.IsNegative() {
		bill.PaidAmount = decimal.Zero
	}
	bill.Status = core.DeriveBillStatus(bill.PaidAmount, bill.TotalAmount)
	bill.UpdatedAt = r.clock.Now()

	if err := r.payments.DeletePayment(ctx, paymentID, bill); err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}

	slog.InfoContext(ctx, "Payment deleted",
		"bill_id", bill.ID,
		"payment_id", paymentID,
		"status", string(bill.Status))
	notifyChange(ctx, r.publisher, ScopeBills)
	return nil
}
