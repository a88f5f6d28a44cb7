package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/felipeimp22/persona-finances/internal/core"
)

type incomeRow struct {
	ID     string
	Person string
	Amount string
	Type   string
	Notes  string
}

// handleIncomePage renders the income page with the month's records and
// the per-person split.
func (s *Server) handleIncomePage(w http.ResponseWriter, r *http.Request) {
	month := parseMonthKey(r, s.clock.Now())

	monthly, err := s.svc.Income.MonthlyIncome(r.Context(), month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Monthly income error", "error", err, "month", month.String())
	}

	data := struct {
		Person       string
		Year         int
		Month        int
		MonthName    string
		Total        string
		FelipeIncome string
		CarolIncome  string
		Rows         []incomeRow
		Types        []string
	}{
		Person:       string(sessionPerson(r)),
		Year:         month.Year(),
		Month:        int(month.Month()),
		MonthName:    month.Format("January 2006"),
		Total:        formatDollars(monthly.Total),
		FelipeIncome: formatDollars(monthly.FelipeIncome),
		CarolIncome:  formatDollars(monthly.CarolIncome),
		Types: []string{
			string(core.IncomeSalary), string(core.IncomeFreelance),
			string(core.IncomeBonus), string(core.IncomeOther),
		},
	}

	for _, rec := range monthly.Records {
		data.Rows = append(data.Rows, incomeRow{
			ID:     rec.ID,
			Person: string(rec.Person),
			Amount: formatDollars(rec.Amount),
			Type:   string(rec.Type),
			Notes:  rec.Notes,
		})
	}

	s.renderTemplate(w, r, "income.html", data)
}

// handleCreateIncome records income for a person and month.
func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	amount, err := core.ParseAmount(r.Form.Get("amount"))
	if err != nil {
		UnprocessableEntityError("Invalid amount").Write(w)
		return
	}

	person := parsePerson(sanitizeInput(r.Form.Get("person")), sessionPerson(r))
	incomeType := core.IncomeType(sanitizeInput(r.Form.Get("type")))
	notes := sanitizeInput(r.Form.Get("notes"))
	month := ParseMonthValues(r.Form, s.clock.Now())

	rec, err := s.svc.Income.CreateIncome(r.Context(), person, amount, incomeType, month, notes)
	if err != nil {
		slog.ErrorContext(r.Context(), "Create income failed", "error", err, "person", string(person))
		errorResponseFor(err).Write(w)
		return
	}

	s.invalidateMonth(month)
	monthRefresh(NewHTMXResponse(), "income", month).
		TriggerFormReset().
		TriggerSuccessNotification(fmt.Sprintf("Recorded %s for %s", formatDollars(rec.Amount), rec.Person)).
		Write(w)
}

// handleDeleteIncome removes an income record.
func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
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
		BadRequestError("Missing income id").Write(w)
		return
	}

	rec, err := s.svc.Income.GetIncome(r.Context(), id)
	if err != nil {
		errorResponseFor(err).Write(w)
		return
	}

	if err := s.svc.Income.DeleteIncome(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Delete income failed", "error", err, "income_id", id)
		errorResponseFor(err).Write(w)
		return
	}

	s.invalidateMonth(rec.Month)
	monthRefresh(NewHTMXResponse(), "income", rec.Month).
		TriggerSuccessNotification("Income record removed").
		Write(w)
}
