package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felipeimp22/persona-finances/internal/core"
	applog "github.com/felipeimp22/persona-finances/internal/log"
)

// OverdueSweeper flags unpaid instances from months before the current one
// as overdue and ages their day counters. Partially paid instances are left
// alone; only fully unpaid ones are swept.
type OverdueSweeper struct {
	instances InstanceStore
	publisher ChangePublisher
	clock     Clock
}

func NewOverdueSweeper(instances InstanceStore, publisher ChangePublisher, clock Clock) *OverdueSweeper {
	return &OverdueSweeper{
		instances: instances,
		publisher: publisher,
		clock:     clock,
	}
}

// SweepResult reports how many instances a sweep touched.
type SweepResult struct {
	Marked int
}

// Sweep marks every unpaid instance from before currentMonth as overdue.
// Running it repeatedly only moves the day counters forward.
func (s *OverdueSweeper) Sweep(ctx context.Context, currentMonth core.MonthKey) (SweepResult, error) {
	if currentMonth.IsZero() {
		return SweepResult{}, core.ErrZeroDate
	}

	candidates, err := s.instances.ListInstancesBefore(ctx, currentMonth,
		[]core.InstanceStatus{core.InstanceUnpaid, core.InstanceOverdue})
	if err != nil {
		return SweepResult{}, fmt.Errorf("list sweep candidates: %w", err)
	}

	today := s.clock.Now()
	marked := 0
	for _, inst := range candidates {
		days := daysBetween(inst.DueDate, today)
		if err := s.instances.MarkInstanceOverdue(ctx, inst.ID, days); err != nil {
			return SweepResult{Marked: marked}, fmt.Errorf("mark instance %s overdue: %w", inst.ID, err)
		}
		marked++
	}

	if marked > 0 {
		fields := applog.NewFields().
			WithComponent(applog.ComponentSweeper).
			WithOperation(applog.OpSweep).
			WithMonth(currentMonth.String())
		fields["marked"] = marked
		slog.InfoContext(ctx, "Overdue sweep complete", fields.ToSlice()...)
		notifyChange(ctx, s.publisher, ScopeInstances)
	}
	return SweepResult{Marked: marked}, nil
}

// daysBetween counts whole calendar days from due to now, floored at zero
// for due dates still in the future.
func daysBetween(due, now time.Time) int {
	d := truncateDay(now).Sub(truncateDay(due)) / (24 * time.Hour)
	if d < 0 {
		return 0
	}
	return int(d)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
