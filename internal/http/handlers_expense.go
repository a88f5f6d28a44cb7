package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/felipeimp22/persona-finances/internal/core"
)

type expenseRow struct {
	ID          string
	Description string
	Amount      string
	Date        string
	Category    string
	PaidBy      string
	Notes       string
}

// handleExpensesPage renders the ad-hoc spending page for a month.
func (s *Server) handleExpensesPage(w http.ResponseWriter, r *http.Request) {
	month := parseMonthKey(r, s.clock.Now())

	expenses, err := s.svc.Expenses.ListExpensesForMonth(r.Context(), month)
	if err != nil {
		slog.ErrorContext(r.Context(), "List expenses error", "error", err, "month", month.String())
	}

	data := struct {
		Person     string
		Year       int
		Month      int
		MonthName  string
		Rows       []expenseRow
		Categories []string
	}{
		Person:    string(sessionPerson(r)),
		Year:      month.Year(),
		Month:     int(month.Month()),
		MonthName: month.Format("January 2006"),
		Categories: []string{
			string(core.CategoryFood), string(core.CategoryTransport),
			string(core.CategoryEntertainment), string(core.CategoryShopping),
			string(core.CategoryBills), string(core.CategoryOther),
		},
	}

	for _, e := range expenses {
		data.Rows = append(data.Rows, expenseRow{
			ID:          e.ID,
			Description: e.Description,
			Amount:      formatDollars(e.Amount),
			Date:        e.Date.Format("Jan 2"),
			Category:    string(e.Category),
			PaidBy:      string(e.PaidBy),
			Notes:       e.Notes,
		})
	}

	s.renderTemplate(w, r, "expenses.html", data)
}

// handleCreateExpense records an ad-hoc expense.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	description := sanitizeInput(r.Form.Get("description"))
	category := core.ExpenseCategory(sanitizeInput(r.Form.Get("category")))
	paidBy := parsePerson(sanitizeInput(r.Form.Get("paid_by")), sessionPerson(r))
	notes := sanitizeInput(r.Form.Get("notes"))

	amount, err := core.ParseAmount(r.Form.Get("amount"))
	if err != nil {
		UnprocessableEntityError("Invalid amount").Write(w)
		return
	}

	var date time.Time
	if v := sanitizeInput(r.Form.Get("date")); v != "" {
		d, err := parseDate(v)
		if err != nil {
			UnprocessableEntityError("Invalid date").Write(w)
			return
		}
		date = d
	}

	exp, err := s.svc.Expenses.CreateExpense(r.Context(), description, amount, date, category, paidBy, notes)
	if err != nil {
		slog.ErrorContext(r.Context(), "Create expense failed", "error", err, "description", description)
		errorResponseFor(err).Write(w)
		return
	}

	month := core.MonthKeyOf(exp.Date)
	s.invalidateMonth(month)
	monthRefresh(NewHTMXResponse(), "expenses", month).
		TriggerFormReset().
		TriggerSuccessNotification(fmt.Sprintf("Recorded %s for %s", formatDollars(exp.Amount), exp.Description)).
		Write(w)
}

// handleDeleteExpense removes an expense record.
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	id := sanitizeInput(r.Form.Get("id"))
	if id == "" {
		BadRequestError("Missing expense id").Write(w)
		return
	}

	exp, err := s.svc.Expenses.GetExpense(r.Context(), id)
	if err != nil {
		errorResponseFor(err).Write(w)
		return
	}

	if err := s.svc.Expenses.DeleteExpense(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Delete expense failed", "error", err, "expense_id", id)
		errorResponseFor(err).Write(w)
		return
	}

	month := core.MonthKeyOf(exp.Date)
	s.invalidateMonth(month)
	monthRefresh(NewHTMXResponse(), "expenses", month).
		TriggerSuccessNotification("Expense removed").
		Write(w)
}
