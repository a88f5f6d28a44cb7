package core

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type (
	// Severity grades a budget warning.
	Severity string

	// MonthSummary is the bill-centric view of one month: what is billed,
	// what is paid, and what has rolled over unpaid from earlier months.
	MonthSummary struct {
		CurrentMonthTotal    decimal.Decimal
		CurrentMonthPaid     decimal.Decimal
		CurrentMonthUnpaid   decimal.Decimal
		CurrentMonthCount    int
		OverdueTotal         decimal.Decimal
		OverdueCount         int
		TotalDue             decimal.Decimal
		TotalPaid            decimal.Decimal
		HasOverdue           bool
		IsOnTrack            bool
		CompletionPercentage float64
	}

	// DashboardTotals is the income/expense-centric aggregate of a month.
	DashboardTotals struct {
		TotalIncome       decimal.Decimal
		TotalFixedBills   decimal.Decimal
		TotalOneTimeBills decimal.Decimal
		TotalExpenses     decimal.Decimal
		TotalSpent        decimal.Decimal
		RemainingBalance  decimal.Decimal
		SpentPercentage   float64
		DailyAverage      decimal.Decimal
		ProjectedBalance  decimal.Decimal
	}

	// CategorySpending is one slice of the expense category breakdown.
	CategorySpending struct {
		Category   ExpenseCategory
		Amount     decimal.Decimal
		Percentage float64
	}

	// UpcomingBill is a bill (fixed or one-time) falling due within the
	// lookahead window, with its remaining amount.
	UpcomingBill struct {
		Name    string
		Amount  decimal.Decimal
		DueDate time.Time
		Kind    SourceKind
	}

	// Warning is a triggered budget warning.
	Warning struct {
		Type     WarningType
		Severity Severity
		Message  string
	}

	// FinancialSummary bundles the dashboard view of a month.
	FinancialSummary struct {
		Totals            DashboardTotals
		CategoryBreakdown []CategorySpending
		UpcomingBills     []UpcomingBill
		Warnings          []Warning
	}

	// MonthlyIncome is the per-person income split for a month.
	MonthlyIncome struct {
		Total        decimal.Decimal
		FelipeIncome decimal.Decimal
		CarolIncome  decimal.Decimal
		Records      []Income
	}
)
