package services

import (
	"context"
	"testing"
	"time"

	"github.com/felipeimp22/persona-finances/internal/core"
)

func TestOverdueSweeper_Sweep(t *testing.T) {
	now := time.Date(2025, 2, 10, 8, 0, 0, 0, time.UTC)
	feb := core.NewMonthKey(2025, 2)
	jan := core.NewMonthKey(2025, 1)

	store := newMemStore()
	seedInstance(store, core.BillInstance{
		ID: "unpaid-jan", Source: core.FixedSource("fb-1"), Name: "Rent",
		Amount: dec("1200.00"), DueDate: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
		Month: jan, Status: core.InstanceUnpaid, CreatedBy: core.PersonFelipe,
	})
	seedInstance(store, core.BillInstance{
		ID: "partial-jan", Source: core.FixedSource("fb-2"), Name: "Water",
		Amount: dec("90.00"), PaidAmount: dec("40.00"),
		DueDate: time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
		Month:   jan, Status: core.InstancePartial, CreatedBy: core.PersonCarol,
	})
	seedInstance(store, core.BillInstance{
		ID: "paid-jan", Source: core.FixedSource("fb-3"), Name: "Internet",
		Amount: dec("60.00"), PaidAmount: dec("60.00"),
		DueDate: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Month:   jan, Status: core.InstancePaid, CreatedBy: core.PersonFelipe,
	})
	seedInstance(store, core.BillInstance{
		ID: "unpaid-feb", Source: core.FixedSource("fb-1"), Name: "Rent",
		Amount: dec("1200.00"), DueDate: time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC),
		Month: feb, Status: core.InstanceUnpaid, CreatedBy: core.PersonFelipe,
	})

	pub := &fakePublisher{}
	sweeper := NewOverdueSweeper(store, pub, fixedClock(now))

	res, err := sweeper.Sweep(context.Background(), feb)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if res.Marked != 1 {
		t.Fatalf("Marked = %d, want 1 (only the fully unpaid prior-month instance)", res.Marked)
	}

	ctx := context.Background()
	swept, _ := store.GetInstance(ctx, "unpaid-jan")
	if swept.Status != core.InstanceOverdue || !swept.IsOverdue {
		t.Errorf("unpaid prior instance not flagged: %+v", swept)
	}
	if swept.DaysOverdue != 36 {
		t.Errorf("days overdue = %d, want 36 (Jan 5 to Feb 10)", swept.DaysOverdue)
	}

	// The partial-status gap: a partially paid instance rolls past its
	// month without ever being aged.
	partial, _ := store.GetInstance(ctx, "partial-jan")
	if partial.Status != core.InstancePartial || partial.IsOverdue {
		t.Errorf("partial instance must not be swept: %+v", partial)
	}

	paid, _ := store.GetInstance(ctx, "paid-jan")
	if paid.Status != core.InstancePaid {
		t.Errorf("paid instance must not be swept: %+v", paid)
	}
	current, _ := store.GetInstance(ctx, "unpaid-feb")
	if current.Status != core.InstanceUnpaid {
		t.Errorf("current-month instance must not be swept: %+v", current)
	}
	if pub.published(ScopeInstances) != 1 {
		t.Errorf("expected one change event, got %d", pub.published(ScopeInstances))
	}
}

func TestOverdueSweeper_AgingIsMonotonic(t *testing.T) {
	jan := core.NewMonthKey(2025, 1)
	feb := core.NewMonthKey(2025, 2)

	store := newMemStore()
	seedInstance(store, core.BillInstance{
		ID: "inst", Source: core.FixedSource("fb-1"), Name: "Rent",
		Amount: dec("1200.00"), DueDate: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
		Month: jan, Status: core.InstanceUnpaid, CreatedBy: core.PersonFelipe,
	})
	ctx := context.Background()

	first := NewOverdueSweeper(store, nil, fixedClock(time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)))
	if _, err := first.Sweep(ctx, feb); err != nil {
		t.Fatalf("first Sweep() error = %v", err)
	}
	inst, _ := store.GetInstance(ctx, "inst")
	firstDays := inst.DaysOverdue

	second := NewOverdueSweeper(store, nil, fixedClock(time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC)))
	if _, err := second.Sweep(ctx, feb); err != nil {
		t.Fatalf("second Sweep() error = %v", err)
	}
	inst, _ = store.GetInstance(ctx, "inst")

	if inst.DaysOverdue < firstDays {
		t.Errorf("days overdue went backwards: %d then %d", firstDays, inst.DaysOverdue)
	}
	if inst.DaysOverdue != 46 {
		t.Errorf("days overdue = %d, want 46", inst.DaysOverdue)
	}
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		name string
		due  time.Time
		now  time.Time
		want int
	}{
		{
			name: "same day",
			due:  time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
			now:  time.Date(2025, 1, 5, 23, 0, 0, 0, time.UTC),
			want: 0,
		},
		{
			name: "one day late",
			due:  time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
			now:  time.Date(2025, 1, 6, 1, 0, 0, 0, time.UTC),
			want: 1,
		},
		{
			name: "due in the future floors at zero",
			due:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			now:  time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC),
			want: 0,
		},
		{
			name: "across month boundary",
			due:  time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
			now:  time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC),
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := daysBetween(tt.due, tt.now); got != tt.want {
				t.Errorf("daysBetween() = %d, want %d", got, tt.want)
			}
		})
	}
}
