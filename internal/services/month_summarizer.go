package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/felipeimp22/persona-finances/internal/core"
)

// onTrackUnpaidRatio is the fraction of the month's billed total that may
// still be unpaid for the month to count as on track.
const onTrackUnpaidRatio = 0.5

// MonthSummarizer computes the read-side views: the bill-centric month
// summary, the income/expense dashboard and the budget warnings.
type MonthSummarizer struct {
	fixed     FixedBillStore
	oneTime   OneTimeBillStore
	instances InstanceStore
	income    IncomeStore
	expenses  ExpenseStore
	warnings  WarningStore
	clock     Clock
}

func NewMonthSummarizer(
	fixed FixedBillStore,
	oneTime OneTimeBillStore,
	instances InstanceStore,
	income IncomeStore,
	expenses ExpenseStore,
	warnings WarningStore,
	clock Clock,
) *MonthSummarizer {
	return &MonthSummarizer{
		fixed:     fixed,
		oneTime:   oneTime,
		instances: instances,
		income:    income,
		expenses:  expenses,
		warnings:  warnings,
		clock:     clock,
	}
}

// SummarizeMonth builds the bill-centric view of a month: what is billed,
// what is settled, and what still hangs over from earlier months.
func (s *MonthSummarizer) SummarizeMonth(ctx context.Context, month core.MonthKey) (core.MonthSummary, error) {
	current, err := s.instances.ListInstancesForMonth(ctx, month)
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("list month instances: %w", err)
	}

	carried, err := s.instances.ListInstancesBefore(ctx, month,
		[]core.InstanceStatus{core.InstanceUnpaid, core.InstanceOverdue, core.InstancePartial})
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("list carried instances: %w", err)
	}

	var sum core.MonthSummary
	sum.CurrentMonthCount = len(current)
	for _, inst := range current {
		sum.CurrentMonthTotal = sum.CurrentMonthTotal.Add(inst.Amount)
		if inst.Status == core.InstancePaid {
			sum.CurrentMonthPaid = sum.CurrentMonthPaid.Add(inst.PaidAmount)
		} else {
			sum.CurrentMonthUnpaid = sum.CurrentMonthUnpaid.Add(inst.Amount.Sub(inst.PaidAmount))
		}
	}

	sum.OverdueCount = len(carried)
	for _, inst := range carried {
		sum.OverdueTotal = sum.OverdueTotal.Add(inst.Amount.Sub(inst.PaidAmount))
	}

	sum.TotalDue = sum.CurrentMonthUnpaid.Add(sum.OverdueTotal)
	sum.TotalPaid = sum.CurrentMonthPaid
	sum.HasOverdue = sum.OverdueCount > 0
	sum.CompletionPercentage = core.Percentage(sum.CurrentMonthPaid, sum.CurrentMonthTotal)

	halfTotal := sum.CurrentMonthTotal.Mul(decimal.NewFromFloat(onTrackUnpaidRatio))
	sum.IsOnTrack = !sum.HasOverdue && sum.CurrentMonthUnpaid.LessThanOrEqual(halfTotal)
	return sum, nil
}

// SummarizeFinancials builds the dashboard view of a month: totals,
// category breakdown, bills coming due within a week, and budget warnings.
func (s *MonthSummarizer) SummarizeFinancials(ctx context.Context, month core.MonthKey) (core.FinancialSummary, error) {
	var (
		incomeRecords []core.Income
		fixedBills    []core.FixedBill
		oneTimeBills  []core.OneTimeBill
		expenses      []core.Expense
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		incomeRecords, err = s.income.ListIncome(gctx, "", &month)
		return err
	})
	g.Go(func() error {
		var err error
		fixedBills, err = s.fixed.ListFixedBills(gctx, true)
		return err
	})
	g.Go(func() error {
		var err error
		oneTimeBills, err = s.oneTime.ListOneTimeBillsDueBetween(gctx, month.Start(), month.End(), false)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = s.expenses.ListExpensesBetween(gctx, month.Start(), month.End())
		return err
	})
	if err := g.Wait(); err != nil {
		return core.FinancialSummary{}, fmt.Errorf("fetch dashboard data: %w", err)
	}

	totals := s.computeTotals(month, incomeRecords, fixedBills, oneTimeBills, expenses)

	warnings, err := s.buildWarnings(ctx, month, totals)
	if err != nil {
		return core.FinancialSummary{}, err
	}

	return core.FinancialSummary{
		Totals:            totals,
		CategoryBreakdown: categoryBreakdown(expenses),
		UpcomingBills:     s.upcomingBills(month, fixedBills, oneTimeBills),
		Warnings:          warnings,
	}, nil
}

func (s *MonthSummarizer) computeTotals(month core.MonthKey, incomeRecords []core.Income, fixedBills []core.FixedBill, oneTimeBills []core.OneTimeBill, expenses []core.Expense) core.DashboardTotals {
	var t core.DashboardTotals
	for _, i := range incomeRecords {
		t.TotalIncome = t.TotalIncome.Add(i.Amount)
	}
	for _, b := range fixedBills {
		t.TotalFixedBills = t.TotalFixedBills.Add(b.Amount)
	}
	for _, b := range oneTimeBills {
		t.TotalOneTimeBills = t.TotalOneTimeBills.Add(b.TotalAmount.Sub(b.PaidAmount))
	}
	for _, e := range expenses {
		t.TotalExpenses = t.TotalExpenses.Add(e.Amount)
	}

	t.TotalSpent = t.TotalFixedBills.Add(t.TotalOneTimeBills).Add(t.TotalExpenses)
	t.RemainingBalance = t.TotalIncome.Sub(t.TotalSpent)
	t.SpentPercentage = core.Percentage(t.TotalSpent, t.TotalIncome)

	days := month.DaysInMonth()
	t.DailyAverage = t.TotalExpenses.Div(decimal.NewFromInt(int64(days)))

	// Project where the balance lands if ad-hoc spending keeps its pace
	// for the rest of the month.
	today := s.clock.Now()
	daysElapsed := today.Day()
	if today.After(month.End()) {
		daysElapsed = days
	}
	daysRemaining := days - daysElapsed
	if daysRemaining < 0 {
		daysRemaining = 0
	}
	t.ProjectedBalance = t.RemainingBalance.Sub(t.DailyAverage.Mul(decimal.NewFromInt(int64(daysRemaining))))
	return t
}

func categoryBreakdown(expenses []core.Expense) []core.CategorySpending {
	var total decimal.Decimal
	byCategory := make(map[core.ExpenseCategory]decimal.Decimal)
	for _, e := range expenses {
		total = total.Add(e.Amount)
		byCategory[e.Category] = byCategory[e.Category].Add(e.Amount)
	}

	breakdown := make([]core.CategorySpending, 0, len(byCategory))
	for cat, amount := range byCategory {
		breakdown = append(breakdown, core.CategorySpending{
			Category:   cat,
			Amount:     amount,
			Percentage: core.Percentage(amount, total),
		})
	}
	sort.Slice(breakdown, func(i, j int) bool {
		return breakdown[i].Amount.GreaterThan(breakdown[j].Amount)
	})
	return breakdown
}

// upcomingBills collects bills falling due within the next seven days.
// Fixed bill due days are applied to the viewed month without clamping, so
// a day past the month's end rolls over into the next month the same way
// the calendar does.
func (s *MonthSummarizer) upcomingBills(month core.MonthKey, fixedBills []core.FixedBill, oneTimeBills []core.OneTimeBill) []core.UpcomingBill {
	today := truncateDay(s.clock.Now())
	horizon := today.AddDate(0, 0, 7)

	upcoming := make([]core.UpcomingBill, 0)
	for _, b := range fixedBills {
		due := time.Date(month.Year(), month.Month(), b.DueDay, 0, 0, 0, 0, time.UTC)
		if !due.Before(today) && !due.After(horizon) {
			upcoming = append(upcoming, core.UpcomingBill{
				Name:    b.Name,
				Amount:  b.Amount,
				DueDate: due,
				Kind:    core.SourceFixed,
			})
		}
	}
	for _, b := range oneTimeBills {
		if b.Status == core.BillPaid {
			continue
		}
		due := truncateDay(b.DueDate)
		if !due.Before(today) && !due.After(horizon) {
			upcoming = append(upcoming, core.UpcomingBill{
				Name:    b.Description,
				Amount:  b.Remaining(),
				DueDate: due,
				Kind:    core.SourceOneTime,
			})
		}
	}
	sort.Slice(upcoming, func(i, j int) bool {
		return upcoming[i].DueDate.Before(upcoming[j].DueDate)
	})
	return upcoming
}

// buildWarnings evaluates the active warning rules against the month's
// totals.
func (s *MonthSummarizer) buildWarnings(ctx context.Context, month core.MonthKey, totals core.DashboardTotals) ([]core.Warning, error) {
	rules, err := s.warnings.ListActiveBudgetWarnings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list warning rules: %w", err)
	}

	warnings := make([]core.Warning, 0)
	for _, rule := range rules {
		if rule.Type != core.WarningPercentage || rule.Threshold <= 0 {
			continue
		}
		if totals.SpentPercentage >= rule.Threshold*100 {
			warnings = append(warnings, core.Warning{
				Type:     core.WarningPercentage,
				Severity: percentageSeverity(totals.SpentPercentage),
				Message: fmt.Sprintf("You've spent %.1f%% of your monthly income ($%s / $%s)",
					totals.SpentPercentage,
					core.FormatAmount(totals.TotalSpent),
					core.FormatAmount(totals.TotalIncome)),
			})
		}
	}

	today := truncateDay(s.clock.Now())

	dueSoon, err := s.oneTime.ListOneTimeBillsDueBetween(ctx, today, today.AddDate(0, 0, 3), true)
	if err != nil {
		return nil, fmt.Errorf("list bills due soon: %w", err)
	}
	if len(dueSoon) > 0 {
		var total decimal.Decimal
		for _, b := range dueSoon {
			total = total.Add(b.TotalAmount.Sub(b.PaidAmount))
		}
		warnings = append(warnings, core.Warning{
			Type:     core.WarningUpcomingBills,
			Severity: core.SeverityWarning,
			Message: fmt.Sprintf("You have %d bill(s) due in the next 3 days, totaling $%s",
				len(dueSoon), core.FormatAmount(total)),
		})
	}

	if totals.RemainingBalance.IsNegative() {
		warnings = append(warnings, core.Warning{
			Type:     core.WarningInsufficientFunds,
			Severity: core.SeverityCritical,
			Message: fmt.Sprintf("Your expenses exceed your income by $%s",
				core.FormatAmount(totals.RemainingBalance.Abs())),
		})
		return warnings, nil
	}

	remainingMonth, err := s.oneTime.ListOneTimeBillsDueBetween(ctx, today, month.End(), true)
	if err != nil {
		return nil, fmt.Errorf("list bills due this month: %w", err)
	}
	var remainingTotal decimal.Decimal
	for _, b := range remainingMonth {
		remainingTotal = remainingTotal.Add(b.TotalAmount.Sub(b.PaidAmount))
	}
	if totals.RemainingBalance.LessThan(remainingTotal) {
		warnings = append(warnings, core.Warning{
			Type:     core.WarningInsufficientFunds,
			Severity: core.SeverityWarning,
			Message: fmt.Sprintf("Your remaining balance ($%s) may not cover upcoming bills ($%s)",
				core.FormatAmount(totals.RemainingBalance),
				core.FormatAmount(remainingTotal)),
		})
	}
	return warnings, nil
}

func percentageSeverity(spentPercentage float64) core.Severity {
	switch {
	case spentPercentage >= 90:
		return core.SeverityCritical
	case spentPercentage >= 80:
		return core.SeverityWarning
	default:
		return core.SeverityInfo
	}
}
