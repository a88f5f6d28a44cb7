package core

import "github.com/shopspring/decimal"

const (
	// One-time bill statuses.
	BillPending BillStatus = "pending"
	BillPartial BillStatus = "partial"
	BillPaid    BillStatus = "paid"

	// Bill instance statuses.
	InstanceUnpaid  InstanceStatus = "unpaid"
	InstancePartial InstanceStatus = "partial"
	InstancePaid    InstanceStatus = "paid"
	InstanceOverdue InstanceStatus = "overdue"
)

type (
	// BillStatus is the stored-but-derived status of a one-time bill.
	BillStatus string

	// InstanceStatus is the stored-but-derived status of a bill instance.
	InstanceStatus string
)

// DeriveBillStatus is the single status rule for one-time bills:
// paid >= total => paid; 0 < paid < total => partial; otherwise pending.
// Every mutation of PaidAmount must go through this function; statuses are
// stored only for query performance.
func DeriveBillStatus(paid, total decimal.Decimal) BillStatus {
	switch {
	case paid.GreaterThanOrEqual(total):
		return BillPaid
	case paid.IsPositive():
		return BillPartial
	default:
		return BillPending
	}
}

// DeriveInstanceStatus applies the same rule to a bill instance. An
// instance already flagged overdue stays overdue while nothing has been
// paid; reaching paid always clears the overdue state.
func DeriveInstanceStatus(paid, total decimal.Decimal, wasOverdue bool) InstanceStatus {
	switch {
	case paid.GreaterThanOrEqual(total):
		return InstancePaid
	case paid.IsPositive():
		return InstancePartial
	case wasOverdue:
		return InstanceOverdue
	default:
		return InstanceUnpaid
	}
}
