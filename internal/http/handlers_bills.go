package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/felipeimp22/persona-finances/internal/core"
	"github.com/felipeimp22/persona-finances/internal/services"
)

// fixedBillRow is one recurring bill template on the bills page.
type fixedBillRow struct {
	ID       string
	Name     string
	Amount   string
	DueDay   int
	Category string
	IsActive bool
}

// oneTimeBillRow is one debt on the bills page, with its payment history.
type oneTimeBillRow struct {
	ID          string
	Description string
	TotalAmount string
	PaidAmount  string
	Remaining   string
	DueDate     string
	Status      string
	Category    string
	Notes       string
	Payments    []paymentRow
}

type paymentRow struct {
	ID     string
	Amount string
	Date   string
	PaidBy string
	Notes  string
}

// handleBillsPage renders the bill management page: fixed templates on one
// side, one-time debts with their payment ledgers on the other.
func (s *Server) handleBillsPage(w http.ResponseWriter, r *http.Request) {
	fixed, err := s.svc.Bills.ListFixedBills(r.Context(), false)
	if err != nil {
		slog.ErrorContext(r.Context(), "List fixed bills error", "error", err)
	}
	oneTime, err := s.svc.Bills.ListOneTimeBills(r.Context(), "")
	if err != nil {
		slog.ErrorContext(r.Context(), "List one-time bills error", "error", err)
	}

	data := struct {
		Person  string
		Fixed   []fixedBillRow
		OneTime []oneTimeBillRow
	}{
		Person: string(sessionPerson(r)),
	}

	for _, b := range fixed {
		data.Fixed = append(data.Fixed, fixedBillRow{
			ID:       b.ID,
			Name:     b.Name,
			Amount:   formatDollars(b.Amount),
			DueDay:   b.DueDay,
			Category: b.Category,
			IsActive: b.IsActive,
		})
	}

	for _, b := range oneTime {
		row := oneTimeBillRow{
			ID:          b.ID,
			Description: b.Description,
			TotalAmount: formatDollars(b.TotalAmount),
			PaidAmount:  formatDollars(b.PaidAmount),
			Remaining:   formatDollars(b.Remaining()),
			DueDate:     b.DueDate.Format("2006-01-02"),
			Status:      string(b.Status),
			Category:    b.Category,
			Notes:       b.Notes,
		}
		payments, err := s.svc.Bills.ListPayments(r.Context(), b.ID)
		if err != nil {
			slog.ErrorContext(r.Context(), "List payments error", "error", err, "bill_id", b.ID)
		}
		for _, p := range payments {
			row.Payments = append(row.Payments, paymentRow{
				ID:     p.ID,
				Amount: formatDollars(p.Amount),
				Date:   p.Date.Format("2006-01-02"),
				PaidBy: string(p.PaidBy),
				Notes:  p.Notes,
			})
		}
		data.OneTime = append(data.OneTime, row)
	}

	s.renderTemplate(w, r, "bills.html", data)
}

// handleCreateFixedBill registers a recurring bill template.
func (s *Server) handleCreateFixedBill(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	category := sanitizeInput(r.Form.Get("category"))

	amount, err := core.ParseAmount(r.Form.Get("amount"))
	if err != nil {
		UnprocessableEntityError("Invalid amount").Write(w)
		return
	}

	dueDay, err := strconv.Atoi(sanitizeInput(r.Form.Get("due_day")))
	if err != nil {
		UnprocessableEntityError("Invalid due day").Write(w)
		return
	}

	createdBy := parsePerson(sanitizeInput(r.Form.Get("created_by")), sessionPerson(r))

	bill, err := s.svc.Bills.CreateFixedBill(r.Context(), name, amount, dueDay, category, createdBy)
	if err != nil {
		slog.ErrorContext(r.Context(), "Create fixed bill failed", "error", err, "name", name)
		errorResponseFor(err).Write(w)
		return
	}

	month := core.MonthKeyOf(s.clock.Now())
	NewHTMXResponse().
		TriggerLedgerChanged("bills", month.Year(), int(month.Month())).
		TriggerFormReset().
		TriggerSuccessNotification(fmt.Sprintf("Added %s, due on day %d", bill.Name, bill.DueDay)).
		Write(w)
}

// handleToggleFixedBill pauses or resumes a template. Instances already
// generated for the current month are untouched.
func (s *Server) handleToggleFixedBill(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	id := sanitizeInput(r.Form.Get("id"))
	if id == "" {
		BadRequestError("Missing bill id").Write(w)
		return
	}

	bill, err := s.svc.Bills.ToggleFixedBill(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "Toggle fixed bill failed", "error", err, "bill_id", id)
		errorResponseFor(err).Write(w)
		return
	}

	state := "paused"
	if bill.IsActive {
		state = "active"
	}

	month := core.MonthKeyOf(s.clock.Now())
	s.invalidateMonth(month)
	NewHTMXResponse().
		TriggerLedgerChanged("bills", month.Year(), int(month.Month())).
		TriggerSuccessNotification(fmt.Sprintf("%s is now %s", bill.Name, state)).
		Write(w)
}

// handleDeleteFixedBill removes a template. Existing instances keep their
// snapshots.
func (s *Server) handleDeleteFixedBill(w http.ResponseWriter, r *http.Request) {
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
		BadRequestError("Missing bill id").Write(w)
		return
	}

	if err := s.svc.Bills.DeleteFixedBill(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Delete fixed bill failed", "error", err, "bill_id", id)
		errorResponseFor(err).Write(w)
		return
	}

	month := core.MonthKeyOf(s.clock.Now())
	s.invalidateMonth(month)
	NewHTMXResponse().
		TriggerLedgerChanged("bills", month.Year(), int(month.Month())).
		TriggerSuccessNotification("Recurring bill removed").
		Write(w)
}

// handleCreateOneTimeBill registers a debt and its instance in the due
// month.
func (s *Server) handleCreateOneTimeBill(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	totalAmount, err := core.ParseAmount(r.Form.Get("total_amount"))
	if err != nil {
		UnprocessableEntityError("Invalid amount").Write(w)
		return
	}

	in := services.NewOneTimeBillInput{
		Description: sanitizeInput(r.Form.Get("description")),
		TotalAmount: totalAmount,
		CreatedBy:   parsePerson(sanitizeInput(r.Form.Get("created_by")), sessionPerson(r)),
		Notes:       sanitizeInput(r.Form.Get("notes")),
		Category:    sanitizeInput(r.Form.Get("category")),
	}

	if v := sanitizeInput(r.Form.Get("paid_amount")); v != "" {
		paid, err := core.ParseAmount(v)
		if err != nil {
			UnprocessableEntityError("Invalid paid amount").Write(w)
			return
		}
		in.PaidAmount = paid
	}

	dueDate, err := parseDate(sanitizeInput(r.Form.Get("due_date")))
	if err != nil {
		UnprocessableEntityError("Invalid due date").Write(w)
		return
	}
	in.DueDate = dueDate

	bill, err := s.svc.Bills.CreateOneTimeBill(r.Context(), in)
	if err != nil {
		slog.ErrorContext(r.Context(), "Create one-time bill failed", "error", err, "description", in.Description)
		errorResponseFor(err).Write(w)
		return
	}

	month := core.MonthKeyOf(bill.DueDate)
	s.invalidateMonth(month)
	monthRefresh(NewHTMXResponse(), "bills", month).
		TriggerFormReset().
		TriggerSuccessNotification(fmt.Sprintf("Added %s (%s due %s)", bill.Description, formatDollars(bill.Remaining()), bill.DueDate.Format("Jan 2"))).
		Write(w)
}

// handleDeleteOneTimeBill removes a debt and its payment history. Already
// generated instances survive with their snapshots.
func (s *Server) handleDeleteOneTimeBill(w http.ResponseWriter, r *http.Request) {
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
		BadRequestError("Missing bill id").Write(w)
		return
	}

	bill, err := s.svc.Bills.GetOneTimeBill(r.Context(), id)
	if err != nil {
		errorResponseFor(err).Write(w)
		return
	}

	if err := s.svc.Bills.DeleteOneTimeBill(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Delete one-time bill failed", "error", err, "bill_id", id)
		errorResponseFor(err).Write(w)
		return
	}

	month := core.MonthKeyOf(bill.DueDate)
	s.invalidateMonth(month)
	monthRefresh(NewHTMXResponse(), "bills", month).
		TriggerSuccessNotification(fmt.Sprintf("Removed %s", bill.Description)).
		Write(w)
}

// handleAddPayment records an installment against a one-time bill.
func (s *Server) handleAddPayment(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	billID := sanitizeInput(r.Form.Get("bill_id"))
	if billID == "" {
		BadRequestError("Missing bill id").Write(w)
		return
	}

	amount, err := core.ParseAmount(r.Form.Get("amount"))
	if err != nil {
		UnprocessableEntityError("Invalid amount").Write(w)
		return
	}

	paidBy := parsePerson(sanitizeInput(r.Form.Get("paid_by")), sessionPerson(r))
	notes := sanitizeInput(r.Form.Get("notes"))

	date := s.clock.Now()
	if v := sanitizeInput(r.Form.Get("date")); v != "" {
		if d, err := parseDate(v); err == nil {
			date = d
		}
	}

	payment, err := s.svc.Payments.AddPayment(r.Context(), billID, amount, paidBy, date, notes)
	if err != nil {
		slog.ErrorContext(r.Context(), "Add payment failed", "error", err, "bill_id", billID)
		errorResponseFor(err).Write(w)
		return
	}

	bill, err := s.svc.Bills.GetOneTimeBill(r.Context(), billID)
	if err == nil {
		s.invalidateMonth(core.MonthKeyOf(bill.DueDate))
	}

	month := core.MonthKeyOf(date)
	monthRefresh(NewHTMXResponse(), "bills", month).
		TriggerFormReset().
		TriggerSuccessNotification(fmt.Sprintf("Payment of %s recorded", formatDollars(payment.Amount))).
		Write(w)
}

// handleDeletePayment reverses a recorded installment.
func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	paymentID := sanitizeInput(r.Form.Get("id"))
	if paymentID == "" {
		BadRequestError("Missing payment id").Write(w)
		return
	}

	if err := s.svc.Payments.DeletePayment(r.Context(), paymentID); err != nil {
		slog.ErrorContext(r.Context(), "Delete payment failed", "error", err, "payment_id", paymentID)
		errorResponseFor(err).Write(w)
		return
	}

	// The payment's bill is gone from the request by now; drop every
	// cached month rather than tracking it back.
	s.InvalidateAll()

	month := core.MonthKeyOf(s.clock.Now())
	monthRefresh(NewHTMXResponse(), "bills", month).
		TriggerSuccessNotification("Payment removed").
		Write(w)
}
