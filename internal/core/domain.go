package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	PersonFelipe Person = "felipe"
	PersonCarol  Person = "carol"
)

const (
	IncomeSalary    IncomeType = "salary"
	IncomeFreelance IncomeType = "freelance"
	IncomeBonus     IncomeType = "bonus"
	IncomeOther     IncomeType = "other"
)

const (
	CategoryFood          ExpenseCategory = "food"
	CategoryTransport     ExpenseCategory = "transport"
	CategoryEntertainment ExpenseCategory = "entertainment"
	CategoryShopping      ExpenseCategory = "shopping"
	CategoryBills         ExpenseCategory = "bills"
	CategoryOther         ExpenseCategory = "other"
)

const (
	WarningPercentage        WarningType = "percentage"
	WarningUpcomingBills     WarningType = "upcoming_bills"
	WarningInsufficientFunds WarningType = "insufficient_funds"
)

type (
	// Person identifies one of the two household members.
	Person string

	// IncomeType classifies an income record.
	IncomeType string

	// ExpenseCategory classifies an ad-hoc expense.
	ExpenseCategory string

	// WarningType identifies a budget warning rule.
	WarningType string

	// FixedBill is a recurring monthly obligation defined once as a template.
	FixedBill struct {
		ID        string
		Name      string
		Amount    decimal.Decimal
		DueDay    int // 1-31, clamped to the month when materialized
		Category  string
		IsActive  bool
		CreatedBy Person
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// OneTimeBill is a single payable obligation (a debt), payable in one
	// or more installments. Status is derived from paidAmount/totalAmount
	// via DeriveBillStatus and stored for query performance.
	OneTimeBill struct {
		ID          string
		Description string
		TotalAmount decimal.Decimal
		PaidAmount  decimal.Decimal
		DueDate     time.Time
		Status      BillStatus
		CreatedBy   Person
		Notes       string
		Category    string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// Payment is an immutable ledger record of a partial or full payment
	// against a one-time bill.
	Payment struct {
		ID        string
		BillID    string
		Amount    decimal.Decimal
		Date      time.Time
		PaidBy    Person
		Notes     string
		CreatedAt time.Time
	}

	// Income is a month-scoped income record for one person.
	Income struct {
		ID        string
		Person    Person
		Amount    decimal.Decimal
		Type      IncomeType
		Month     MonthKey
		Notes     string
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Expense is a purely additive record of ad-hoc spending on a
	// specific day.
	Expense struct {
		ID          string
		Description string
		Amount      decimal.Decimal
		Date        time.Time
		Category    ExpenseCategory
		PaidBy      Person
		Notes       string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// BudgetWarning is a pre-seeded warning rule read by the summarizer.
	BudgetWarning struct {
		ID        string
		Type      WarningType
		Threshold float64 // fraction, e.g. 0.8 = 80%
		IsActive  bool
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDueDay   = errors.New("due day must be between 1 and 31")
	ErrInvalidPerson   = errors.New("person must be felipe or carol")
	ErrInvalidCategory = errors.New("invalid expense category")
	ErrEmptyName       = errors.New("empty name")
	ErrZeroDate        = errors.New("date cannot be zero")
	ErrNotFound        = errors.New("not found")
	ErrPaymentExceeds  = errors.New("payment exceeds remaining balance")
)

// Validate reports whether p names one of the two household members.
func (p Person) Validate() error {
	if p != PersonFelipe && p != PersonCarol {
		return ErrInvalidPerson
	}
	return nil
}

func (c ExpenseCategory) Validate() error {
	switch c {
	case CategoryFood, CategoryTransport, CategoryEntertainment,
		CategoryShopping, CategoryBills, CategoryOther:
		return nil
	}
	return ErrInvalidCategory
}

func (t IncomeType) Validate() error {
	switch t {
	case IncomeSalary, IncomeFreelance, IncomeBonus, IncomeOther:
		return nil
	}
	return errors.New("invalid income type")
}

func (b FixedBill) Validate() error {
	if len(strings.TrimSpace(b.Name)) == 0 {
		return ErrEmptyName
	}
	if len(b.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if !b.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if b.DueDay < 1 || b.DueDay > 31 {
		return ErrInvalidDueDay
	}
	return b.CreatedBy.Validate()
}

func (b OneTimeBill) Validate() error {
	if len(strings.TrimSpace(b.Description)) == 0 {
		return ErrEmptyName
	}
	if len(b.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if !b.TotalAmount.IsPositive() {
		return ErrInvalidAmount
	}
	if b.PaidAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if b.DueDate.IsZero() {
		return ErrZeroDate
	}
	return b.CreatedBy.Validate()
}

// Remaining returns the unpaid balance, floored at zero for overpaid bills.
func (b OneTimeBill) Remaining() decimal.Decimal {
	rem := b.TotalAmount.Sub(b.PaidAmount)
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}

func (p Payment) Validate() error {
	if p.BillID == "" {
		return errors.New("payment requires a bill id")
	}
	if !p.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if p.Date.IsZero() {
		return ErrZeroDate
	}
	return p.PaidBy.Validate()
}

func (i Income) Validate() error {
	if err := i.Person.Validate(); err != nil {
		return err
	}
	if !i.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := i.Type.Validate(); err != nil {
		return err
	}
	if i.Month.IsZero() {
		return ErrZeroDate
	}
	return nil
}

func (e Expense) Validate() error {
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyName
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if e.Date.IsZero() {
		return ErrZeroDate
	}
	if err := e.Category.Validate(); err != nil {
		return err
	}
	return e.PaidBy.Validate()
}
