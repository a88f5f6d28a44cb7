package core

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	SourceFixed   SourceKind = "fixed"
	SourceOneTime SourceKind = "onetime"
)

type (
	// SourceKind distinguishes the two kinds of bill an instance
	// materializes.
	SourceKind string

	// InstanceSource links a bill instance to exactly one parent: a fixed
	// bill template or a one-time bill. The zero value is invalid, and
	// "both set" is unrepresentable.
	InstanceSource struct {
		kind SourceKind
		id   string
	}

	// BillInstance is the materialized, per-month occurrence of a fixed or
	// one-time bill; the unit the user actually marks paid. Name, amount
	// and category are snapshotted at generation time so later template
	// edits do not rewrite history.
	BillInstance struct {
		ID          string
		Source      InstanceSource
		Name        string
		Amount      decimal.Decimal
		Category    string
		DueDate     time.Time
		Month       MonthKey
		Status      InstanceStatus
		PaidAmount  decimal.Decimal
		PaidDate    *time.Time
		PaidBy      Person // empty until fully paid
		IsOverdue   bool
		DaysOverdue int
		CreatedBy   Person
		CreatedAt   time.Time
	}
)

var ErrInvalidSource = errors.New("bill instance must reference a fixed or one-time bill")

// FixedSource links an instance to a fixed bill template.
func FixedSource(id string) InstanceSource {
	return InstanceSource{kind: SourceFixed, id: id}
}

// OneTimeSource links an instance to a one-time bill.
func OneTimeSource(id string) InstanceSource {
	return InstanceSource{kind: SourceOneTime, id: id}
}

// Kind returns the source kind; empty for the zero value.
func (s InstanceSource) Kind() SourceKind {
	return s.kind
}

// FixedBillID returns the parent fixed-bill id, if this is a fixed source.
func (s InstanceSource) FixedBillID() (string, bool) {
	if s.kind == SourceFixed {
		return s.id, true
	}
	return "", false
}

// OneTimeBillID returns the parent one-time-bill id, if this is a one-time
// source.
func (s InstanceSource) OneTimeBillID() (string, bool) {
	if s.kind == SourceOneTime {
		return s.id, true
	}
	return "", false
}

func (s InstanceSource) Validate() error {
	if s.id == "" {
		return ErrInvalidSource
	}
	switch s.kind {
	case SourceFixed, SourceOneTime:
		return nil
	}
	return ErrInvalidSource
}

func (bi BillInstance) Validate() error {
	if err := bi.Source.Validate(); err != nil {
		return err
	}
	if bi.Name == "" {
		return ErrEmptyName
	}
	if !bi.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if bi.DueDate.IsZero() || bi.Month.IsZero() {
		return ErrZeroDate
	}
	return bi.CreatedBy.Validate()
}

// Remaining returns the unpaid balance of the instance, floored at zero.
func (bi BillInstance) Remaining() decimal.Decimal {
	rem := bi.Amount.Sub(bi.PaidAmount)
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}
