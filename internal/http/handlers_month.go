package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/felipeimp22/persona-finances/internal/core"
)

// monthSummaryView is the template model for the bill status partial.
type monthSummaryView struct {
	Year  int
	Month int

	CurrentMonthTotal    string
	CurrentMonthPaid     string
	CurrentMonthUnpaid   string
	CurrentMonthCount    int
	OverdueTotal         string
	OverdueCount         int
	TotalDue             string
	HasOverdue           bool
	IsOnTrack            bool
	CompletionPercentage int
}

// handleMonthSummary renders the bill reconciliation partial.
func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	month := parseMonthKey(r, s.clock.Now())
	sum, err := s.getMonthSummary(r.Context(), month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Month summary error", "error", err, "month", month.String())
		_, _ = w.Write([]byte(`<section id="month-summary" class="panel"><div class="placeholder">Could not load the month summary</div></section>`))
		return
	}

	data := monthSummaryView{
		Year:                 month.Year(),
		Month:                int(month.Month()),
		CurrentMonthTotal:    formatDollars(sum.CurrentMonthTotal),
		CurrentMonthPaid:     formatDollars(sum.CurrentMonthPaid),
		CurrentMonthUnpaid:   formatDollars(sum.CurrentMonthUnpaid),
		CurrentMonthCount:    sum.CurrentMonthCount,
		OverdueTotal:         formatDollars(sum.OverdueTotal),
		OverdueCount:         sum.OverdueCount,
		TotalDue:             formatDollars(sum.TotalDue),
		HasOverdue:           sum.HasOverdue,
		IsOnTrack:            sum.IsOnTrack,
		CompletionPercentage: int(sum.CompletionPercentage),
	}

	s.renderTemplate(w, r, "month_summary.html", data)
}

// instanceRow is one bill instance in the month list.
type instanceRow struct {
	ID          string
	Name        string
	Category    string
	Amount      string
	Remaining   string
	DueDate     string
	Status      string
	PaidBy      string
	IsOverdue   bool
	DaysOverdue int
	IsPaid      bool
}

// handleInstanceList renders the month's bill instances.
func (s *Server) handleInstanceList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	month := parseMonthKey(r, s.clock.Now())
	instances, err := s.svc.Tracker.ListMonthInstances(r.Context(), month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Instance list error", "error", err, "month", month.String())
		_, _ = w.Write([]byte(`<div class="placeholder">Could not load the bill list</div>`))
		return
	}

	data := struct {
		Year  int
		Month int
		Rows  []instanceRow
	}{Year: month.Year(), Month: int(month.Month())}

	for _, inst := range instances {
		data.Rows = append(data.Rows, instanceRow{
			ID:          inst.ID,
			Name:        inst.Name,
			Category:    inst.Category,
			Amount:      formatDollars(inst.Amount),
			Remaining:   formatDollars(inst.Remaining()),
			DueDate:     inst.DueDate.Format("Jan 2"),
			Status:      string(inst.Status),
			PaidBy:      string(inst.PaidBy),
			IsOverdue:   inst.IsOverdue,
			DaysOverdue: inst.DaysOverdue,
			IsPaid:      inst.Status == core.InstancePaid,
		})
	}

	s.renderTemplate(w, r, "instance_list.html", data)
}

// handleMarkInstancePaid records a full or partial payment on an instance.
func (s *Server) handleMarkInstancePaid(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	instanceID := sanitizeInput(r.Form.Get("instance_id"))
	if instanceID == "" {
		BadRequestError("Missing instance id").Write(w)
		return
	}

	amount, err := core.ParseAmount(r.Form.Get("amount"))
	if err != nil {
		UnprocessableEntityError("Invalid amount").Write(w)
		return
	}

	paidBy := parsePerson(sanitizeInput(r.Form.Get("paid_by")), sessionPerson(r))

	paidDate := s.clock.Now()
	if v := sanitizeInput(r.Form.Get("paid_date")); v != "" {
		if d, err := parseDate(v); err == nil {
			paidDate = d
		}
	}

	inst, err := s.svc.Payments.MarkInstancePaid(r.Context(), instanceID, amount, paidBy, paidDate)
	if err != nil {
		slog.ErrorContext(r.Context(), "Mark instance paid failed", "error", err, "instance_id", instanceID)
		errorResponseFor(err).Write(w)
		return
	}

	s.invalidateMonth(inst.Month)

	message := fmt.Sprintf("Payment of %s recorded for %s", formatDollars(amount), inst.Name)
	if inst.Status == core.InstancePaid {
		message = fmt.Sprintf("%s is fully paid", inst.Name)
	}

	monthRefresh(NewHTMXResponse(), "instances", inst.Month).
		TriggerFormReset().
		TriggerSuccessNotification(message).
		Write(w)
}

// handleDeleteInstance removes one materialized bill instance.
func (s *Server) handleDeleteInstance(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	instanceID := sanitizeInput(r.Form.Get("instance_id"))
	if instanceID == "" {
		BadRequestError("Missing instance id").Write(w)
		return
	}

	inst, err := s.svc.Tracker.GetInstance(r.Context(), instanceID)
	if err != nil {
		errorResponseFor(err).Write(w)
		return
	}

	if err := s.svc.Tracker.DeleteInstance(r.Context(), instanceID); err != nil {
		slog.ErrorContext(r.Context(), "Delete instance failed", "error", err, "instance_id", instanceID)
		errorResponseFor(err).Write(w)
		return
	}

	s.invalidateMonth(inst.Month)

	monthRefresh(NewHTMXResponse(), "instances", inst.Month).
		TriggerSuccessNotification(fmt.Sprintf("Removed %s from the month", inst.Name)).
		Write(w)
}
