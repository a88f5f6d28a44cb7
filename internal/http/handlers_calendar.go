package http

import (
	"log/slog"
	"net/http"

	"github.com/felipeimp22/persona-finances/internal/core"
)

// calendarDay is one cell in the month grid.
type calendarDay struct {
	Day     int
	IsToday bool
	Bills   []calendarBill
}

type calendarBill struct {
	Name      string
	Remaining string
	IsPaid    bool
	IsOverdue bool
}

// overdueRow is one entry in the cross-month overdue list.
type overdueRow struct {
	ID          string
	Name        string
	Month       string
	Remaining   string
	DaysOverdue int
}

// handleCalendarPage renders the month grid with each instance placed on
// its due day, plus the overdue list across all months.
func (s *Server) handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	now := s.clock.Now()
	month := parseMonthKey(r, now)

	instances, err := s.svc.Tracker.ListMonthInstances(r.Context(), month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Calendar instance list error", "error", err, "month", month.String())
		InternalServerError("Could not load the calendar").Write(w)
		return
	}

	overdue, err := s.svc.Tracker.ListOverdueInstances(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Overdue list error", "error", err)
		InternalServerError("Could not load the calendar").Write(w)
		return
	}

	byDay := make(map[int][]calendarBill)
	for _, inst := range instances {
		if !month.Contains(inst.DueDate) {
			continue
		}
		day := inst.DueDate.Day()
		byDay[day] = append(byDay[day], calendarBill{
			Name:      inst.Name,
			Remaining: formatDollars(inst.Remaining()),
			IsPaid:    inst.Status == core.InstancePaid,
			IsOverdue: inst.IsOverdue,
		})
	}

	// Weeks start on Sunday; leading cells before day 1 stay empty.
	firstWeekday := int(month.Start().Weekday())
	days := month.DaysInMonth()
	cells := make([]calendarDay, firstWeekday, firstWeekday+days)
	for day := 1; day <= days; day++ {
		cells = append(cells, calendarDay{
			Day:     day,
			IsToday: month.Contains(now) && now.Day() == day,
			Bills:   byDay[day],
		})
	}
	for len(cells)%7 != 0 {
		cells = append(cells, calendarDay{})
	}
	weeks := make([][]calendarDay, 0, len(cells)/7)
	for i := 0; i < len(cells); i += 7 {
		weeks = append(weeks, cells[i:i+7])
	}

	overdueRows := make([]overdueRow, 0, len(overdue))
	for _, inst := range overdue {
		overdueRows = append(overdueRows, overdueRow{
			ID:          inst.ID,
			Name:        inst.Name,
			Month:       inst.Month.Format("January 2006"),
			Remaining:   formatDollars(inst.Remaining()),
			DaysOverdue: inst.DaysOverdue,
		})
	}

	prev := month.Prev()
	next := month.Next()
	data := struct {
		Year      int
		Month     int
		MonthName string
		Person    string
		PrevYear  int
		PrevMonth int
		NextYear  int
		NextMonth int
		Weeks     [][]calendarDay
		Overdue   []overdueRow
	}{
		Year:      month.Year(),
		Month:     int(month.Month()),
		MonthName: month.Format("January 2006"),
		Person:    string(sessionPerson(r)),
		PrevYear:  prev.Year(),
		PrevMonth: int(prev.Month()),
		NextYear:  next.Year(),
		NextMonth: int(next.Month()),
		Weeks:     weeks,
		Overdue:   overdueRows,
	}

	s.renderTemplate(w, r, "calendar.html", data)
}
