package http

import (
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/felipeimp22/persona-finances/internal/core"
)

// handleDashboard renders the main page. Opening the dashboard also
// materializes the month's bill instances and refreshes overdue flags, so
// the page is always current without a worker having run.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	now := s.clock.Now()
	month := parseMonthKey(r, now)

	if err := s.svc.Tracker.InitializeMonth(r.Context(), month); err != nil {
		slog.ErrorContext(r.Context(), "Month initialization failed", "error", err, "month", month.String())
		// The page still renders; the summaries show whatever state exists.
	} else {
		s.invalidateMonth(month)
	}

	data := struct {
		Year      int
		Month     int
		MonthName string
		Person    string
	}{
		Year:      month.Year(),
		Month:     int(month.Month()),
		MonthName: month.Format("January 2006"),
		Person:    string(sessionPerson(r)),
	}

	s.renderTemplate(w, r, "dashboard.html", data)
}

// financialSummaryView is the template model for the dashboard partial.
type financialSummaryView struct {
	Year  int
	Month int

	TotalIncome      string
	TotalFixedBills  string
	TotalOneTime     string
	TotalExpenses    string
	TotalSpent       string
	RemainingBalance string
	SpentPercentage  int
	DailyAverage     string
	ProjectedBalance string
	Negative         bool

	Categories []categoryRow
	Upcoming   []upcomingRow
	Warnings   []warningRow
}

type categoryRow struct {
	Name   string
	Amount string
	Width  int
}

type upcomingRow struct {
	Name    string
	Amount  string
	DueDate string
	Kind    string
}

type warningRow struct {
	Severity string
	Message  string
}

// handleFinancialSummary renders the income/spending dashboard partial.
func (s *Server) handleFinancialSummary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	month := parseMonthKey(r, s.clock.Now())
	fin, err := s.getFinancialSummary(r.Context(), month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Financial summary error", "error", err, "month", month.String())
		_, _ = w.Write([]byte(`<section id="financial-summary" class="panel"><div class="placeholder">Could not load the financial summary</div></section>`))
		return
	}

	data := financialSummaryView{
		Year:             month.Year(),
		Month:            int(month.Month()),
		TotalIncome:      formatDollars(fin.Totals.TotalIncome),
		TotalFixedBills:  formatDollars(fin.Totals.TotalFixedBills),
		TotalOneTime:     formatDollars(fin.Totals.TotalOneTimeBills),
		TotalExpenses:    formatDollars(fin.Totals.TotalExpenses),
		TotalSpent:       formatDollars(fin.Totals.TotalSpent),
		RemainingBalance: formatDollars(fin.Totals.RemainingBalance),
		SpentPercentage:  int(fin.Totals.SpentPercentage),
		DailyAverage:     formatDollars(fin.Totals.DailyAverage),
		ProjectedBalance: formatDollars(fin.Totals.ProjectedBalance),
		Negative:         fin.Totals.RemainingBalance.IsNegative(),
	}

	// Scale category bars against the biggest category, like a legend.
	maxAmount := maxCategoryAmount(fin.CategoryBreakdown)
	for _, c := range fin.CategoryBreakdown {
		width := 0
		if maxAmount.IsPositive() && c.Amount.IsPositive() {
			width = int(core.Percentage(c.Amount, maxAmount))
			if width > 0 && width < 2 {
				width = 2
			}
			if width > 100 {
				width = 100
			}
		}
		data.Categories = append(data.Categories, categoryRow{
			Name:   string(c.Category),
			Amount: formatDollars(c.Amount),
			Width:  width,
		})
	}

	for _, u := range fin.UpcomingBills {
		data.Upcoming = append(data.Upcoming, upcomingRow{
			Name:    u.Name,
			Amount:  formatDollars(u.Amount),
			DueDate: u.DueDate.Format("Jan 2"),
			Kind:    string(u.Kind),
		})
	}

	for _, wrn := range fin.Warnings {
		data.Warnings = append(data.Warnings, warningRow{
			Severity: string(wrn.Severity),
			Message:  wrn.Message,
		})
	}

	s.renderTemplate(w, r, "financial_summary.html", data)
}

func maxCategoryAmount(breakdown []core.CategorySpending) decimal.Decimal {
	max := decimal.Zero
	for _, c := range breakdown {
		if c.Amount.GreaterThan(max) {
			max = c.Amount
		}
	}
	return max
}
