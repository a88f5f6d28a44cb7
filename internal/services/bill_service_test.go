package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felipeimp22/persona-finances/internal/core"
)

func testBillService(store *memStore, now time.Time) (*BillService, *fakePublisher) {
	pub := &fakePublisher{}
	return NewBillService(store, store, store, pub, fixedClock(now)), pub
}

func TestBillService_CreateFixedBill(t *testing.T) {
	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	store := newMemStore()
	svc, pub := testBillService(store, now)
	ctx := context.Background()

	b, err := svc.CreateFixedBill(ctx, "Rent", dec("1200.00"), 5, "housing", core.PersonFelipe)
	if err != nil {
		t.Fatalf("CreateFixedBill() error = %v", err)
	}
	if b.ID == "" || !b.IsActive {
		t.Errorf("new bill = %+v, want id set and active", b)
	}
	if !b.CreatedAt.Equal(now) {
		t.Errorf("created at = %v, want clock time", b.CreatedAt)
	}
	if pub.published(ScopeBills) != 1 {
		t.Errorf("expected one change event, got %d", pub.published(ScopeBills))
	}

	tests := []struct {
		name   string
		bill   string
		amount string
		dueDay int
		person core.Person
		want   error
	}{
		{"empty name", "  ", "10.00", 5, core.PersonFelipe, core.ErrEmptyName},
		{"zero amount", "X", "0", 5, core.PersonFelipe, core.ErrInvalidAmount},
		{"due day zero", "X", "10.00", 0, core.PersonFelipe, core.ErrInvalidDueDay},
		{"due day 32", "X", "10.00", 32, core.PersonFelipe, core.ErrInvalidDueDay},
		{"unknown person", "X", "10.00", 5, "eve", core.ErrInvalidPerson},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateFixedBill(ctx, tt.bill, dec(tt.amount), tt.dueDay, "", tt.person)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBillService_ToggleFixedBill(t *testing.T) {
	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	store := newMemStore()
	svc, _ := testBillService(store, now)
	ctx := context.Background()

	b, err := svc.CreateFixedBill(ctx, "Gym", dec("50.00"), 1, "", core.PersonCarol)
	if err != nil {
		t.Fatalf("CreateFixedBill() error = %v", err)
	}

	toggled, err := svc.ToggleFixedBill(ctx, b.ID)
	if err != nil {
		t.Fatalf("ToggleFixedBill() error = %v", err)
	}
	if toggled.IsActive {
		t.Error("first toggle should deactivate")
	}
	toggled, err = svc.ToggleFixedBill(ctx, b.ID)
	if err != nil {
		t.Fatalf("second ToggleFixedBill() error = %v", err)
	}
	if !toggled.IsActive {
		t.Error("second toggle should reactivate")
	}

	if _, err := svc.ToggleFixedBill(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestBillService_CreateOneTimeBill(t *testing.T) {
	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	store := newMemStore()
	svc, _ := testBillService(store, now)
	ctx := context.Background()

	due := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	b, err := svc.CreateOneTimeBill(ctx, NewOneTimeBillInput{
		Description: "Car repair",
		TotalAmount: dec("800.00"),
		DueDate:     due,
		CreatedBy:   core.PersonFelipe,
		Category:    "transport",
	})
	if err != nil {
		t.Fatalf("CreateOneTimeBill() error = %v", err)
	}
	if b.Status != core.BillPending {
		t.Errorf("status = %v, want pending", b.Status)
	}

	// The instance is materialized into the due month immediately.
	instances, _ := store.ListInstancesForMonth(ctx, core.NewMonthKey(2025, 3))
	if len(instances) != 1 {
		t.Fatalf("due month has %d instances, want 1", len(instances))
	}
	inst := instances[0]
	if id, _ := inst.Source.OneTimeBillID(); id != b.ID {
		t.Errorf("instance source = %q, want %q", id, b.ID)
	}
	if !inst.Amount.Equal(dec("800.00")) || inst.Status != core.InstanceUnpaid {
		t.Errorf("instance = %+v, want full amount unpaid", inst)
	}
	if !inst.DueDate.Equal(due) {
		t.Errorf("instance due = %v, want %v", inst.DueDate, due)
	}
}

func TestBillService_CreateOneTimeBill_StartingPartial(t *testing.T) {
	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	store := newMemStore()
	svc, _ := testBillService(store, now)

	b, err := svc.CreateOneTimeBill(context.Background(), NewOneTimeBillInput{
		Description: "Loan",
		TotalAmount: dec("500.00"),
		PaidAmount:  dec("200.00"),
		DueDate:     time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		CreatedBy:   core.PersonCarol,
	})
	if err != nil {
		t.Fatalf("CreateOneTimeBill() error = %v", err)
	}
	if b.Status != core.BillPartial {
		t.Errorf("status = %v, want partial derived from amounts", b.Status)
	}

	// The auto-created instance still bills the full amount.
	instances, _ := store.ListInstancesForMonth(context.Background(), core.NewMonthKey(2025, 2))
	if len(instances) != 1 || !instances[0].Amount.Equal(dec("500.00")) {
		t.Fatalf("instances = %+v, want one with the full 500.00", instances)
	}
}

func TestBillService_DeleteOneTimeBill(t *testing.T) {
	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	store := newMemStore()
	svc, _ := testBillService(store, now)
	ctx := context.Background()

	b, err := svc.CreateOneTimeBill(ctx, NewOneTimeBillInput{
		Description: "Loan",
		TotalAmount: dec("500.00"),
		DueDate:     time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		CreatedBy:   core.PersonCarol,
	})
	if err != nil {
		t.Fatalf("CreateOneTimeBill() error = %v", err)
	}
	if err := svc.DeleteOneTimeBill(ctx, b.ID); err != nil {
		t.Fatalf("DeleteOneTimeBill() error = %v", err)
	}

	// The instance survives the parent, keeping its snapshot.
	instances, _ := store.ListInstancesForMonth(ctx, core.NewMonthKey(2025, 2))
	if len(instances) != 1 || instances[0].Name != "Loan" {
		t.Fatalf("instances after parent delete = %+v", instances)
	}
}
