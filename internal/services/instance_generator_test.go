package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/felipeimp22/persona-finances/internal/core"
)

func testGenerator(store *memStore, now time.Time) (*InstanceGenerator, *fakePublisher) {
	pub := &fakePublisher{}
	return NewInstanceGenerator(store, store, store, pub, fixedClock(now)), pub
}

func TestInstanceGenerator_GenerateMonth(t *testing.T) {
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	month := core.NewMonthKey(2025, 1)

	store := newMemStore()
	store.fixed["fb-rent"] = core.FixedBill{
		ID: "fb-rent", Name: "Rent", Amount: dec("1200.00"), DueDay: 5,
		Category: "housing", IsActive: true, CreatedBy: core.PersonFelipe,
	}
	store.fixed["fb-old"] = core.FixedBill{
		ID: "fb-old", Name: "Old gym", Amount: dec("50.00"), DueDay: 1,
		IsActive: false, CreatedBy: core.PersonCarol,
	}
	store.oneTime["ob-dentist"] = core.OneTimeBill{
		ID: "ob-dentist", Description: "Dentist", TotalAmount: dec("300.00"),
		PaidAmount: dec("100.00"), DueDate: time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC),
		Status: core.BillPartial, CreatedBy: core.PersonCarol,
	}
	store.oneTime["ob-settled"] = core.OneTimeBill{
		ID: "ob-settled", Description: "Settled", TotalAmount: dec("80.00"),
		PaidAmount: dec("80.00"), DueDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Status: core.BillPaid, CreatedBy: core.PersonFelipe,
	}

	gen, pub := testGenerator(store, now)

	res, err := gen.GenerateMonth(context.Background(), month)
	if err != nil {
		t.Fatalf("GenerateMonth() error = %v", err)
	}
	if res.Skipped {
		t.Fatal("first generation should not be skipped")
	}
	if res.Generated != 2 {
		t.Fatalf("Generated = %d, want 2 (active fixed + open one-time)", res.Generated)
	}
	if pub.published(ScopeInstances) != 1 {
		t.Errorf("expected one instances change event, got %d", pub.published(ScopeInstances))
	}

	instances, _ := store.ListInstancesForMonth(context.Background(), month)
	byName := make(map[string]core.BillInstance)
	for _, inst := range instances {
		byName[inst.Name] = inst
	}

	rent, ok := byName["Rent"]
	if !ok {
		t.Fatal("no instance generated for active fixed bill")
	}
	if id, _ := rent.Source.FixedBillID(); id != "fb-rent" {
		t.Errorf("rent instance fixed source = %q, want fb-rent", id)
	}
	if !rent.DueDate.Equal(time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("rent due date = %v", rent.DueDate)
	}
	if rent.Status != core.InstanceUnpaid || !rent.PaidAmount.IsZero() {
		t.Errorf("new instance not unpaid/zero: %v %v", rent.Status, rent.PaidAmount)
	}

	dentist, ok := byName["Dentist"]
	if !ok {
		t.Fatal("no instance generated for open one-time bill")
	}
	if !dentist.Amount.Equal(dec("200.00")) {
		t.Errorf("dentist amount = %s, want remaining balance 200.00", dentist.Amount)
	}

	if _, ok := byName["Old gym"]; ok {
		t.Error("inactive template must not generate")
	}
	if _, ok := byName["Settled"]; ok {
		t.Error("paid one-time bill must not generate")
	}
}

func TestInstanceGenerator_IdempotentPerMonth(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	month := core.NewMonthKey(2025, 3)

	store := newMemStore()
	store.fixed["fb-1"] = core.FixedBill{
		ID: "fb-1", Name: "Internet", Amount: dec("60.00"), DueDay: 10,
		IsActive: true, CreatedBy: core.PersonFelipe,
	}
	gen, _ := testGenerator(store, now)
	ctx := context.Background()

	if _, err := gen.GenerateMonth(ctx, month); err != nil {
		t.Fatalf("first GenerateMonth() error = %v", err)
	}

	// A template added after the month was generated must not appear in it.
	store.fixed["fb-2"] = core.FixedBill{
		ID: "fb-2", Name: "Streaming", Amount: dec("15.00"), DueDay: 1,
		IsActive: true, CreatedBy: core.PersonCarol,
	}

	res, err := gen.GenerateMonth(ctx, month)
	if err != nil {
		t.Fatalf("second GenerateMonth() error = %v", err)
	}
	if !res.Skipped || res.Generated != 0 {
		t.Fatalf("repeat generation = %+v, want skipped", res)
	}

	instances, _ := store.ListInstancesForMonth(ctx, month)
	if len(instances) != 1 {
		t.Fatalf("month has %d instances after repeat generation, want 1", len(instances))
	}
}

func TestInstanceGenerator_ClampsDueDay(t *testing.T) {
	tests := []struct {
		name  string
		month core.MonthKey
		want  time.Time
	}{
		{"february non-leap", core.NewMonthKey(2025, 2), time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)},
		{"february leap", core.NewMonthKey(2024, 2), time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{"april", core.NewMonthKey(2025, 4), time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)},
		{"december", core.NewMonthKey(2025, 12), time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			store.fixed["fb"] = core.FixedBill{
				ID: "fb", Name: "Card", Amount: decimal.New(100, 0), DueDay: 31,
				IsActive: true, CreatedBy: core.PersonFelipe,
			}
			gen, _ := testGenerator(store, tt.month.Start())

			if _, err := gen.GenerateMonth(context.Background(), tt.month); err != nil {
				t.Fatalf("GenerateMonth() error = %v", err)
			}
			instances, _ := store.ListInstancesForMonth(context.Background(), tt.month)
			if len(instances) != 1 {
				t.Fatalf("got %d instances, want 1", len(instances))
			}
			if !instances[0].DueDate.Equal(tt.want) {
				t.Errorf("due date = %v, want %v", instances[0].DueDate, tt.want)
			}
		})
	}
}

func TestInstanceGenerator_ZeroMonth(t *testing.T) {
	gen, _ := testGenerator(newMemStore(), time.Now())
	if _, err := gen.GenerateMonth(context.Background(), core.MonthKey{}); err == nil {
		t.Fatal("expected error for zero month")
	}
}
