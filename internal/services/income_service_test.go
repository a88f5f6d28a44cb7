package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felipeimp22/persona-finances/internal/core"
)

func TestIncomeService_CreateIncome(t *testing.T) {
	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	store := newMemStore()
	pub := &fakePublisher{}
	svc := NewIncomeService(store, pub, fixedClock(now))
	ctx := context.Background()
	jan := core.NewMonthKey(2025, 1)

	i, err := svc.CreateIncome(ctx, core.PersonFelipe, dec("3000.00"), core.IncomeSalary, jan, "")
	if err != nil {
		t.Fatalf("CreateIncome() error = %v", err)
	}
	if i.ID == "" {
		t.Error("income id not set")
	}
	if pub.published(ScopeIncome) != 1 {
		t.Errorf("expected one change event, got %d", pub.published(ScopeIncome))
	}

	if _, err := svc.CreateIncome(ctx, "stranger", dec("100.00"), core.IncomeSalary, jan, ""); !errors.Is(err, core.ErrInvalidPerson) {
		t.Errorf("unknown person: error = %v, want ErrInvalidPerson", err)
	}
	if _, err := svc.CreateIncome(ctx, core.PersonCarol, dec("100.00"), "gift", jan, ""); err == nil {
		t.Error("expected error for unknown income type")
	}
	if _, err := svc.CreateIncome(ctx, core.PersonCarol, dec("100.00"), core.IncomeBonus, core.MonthKey{}, ""); !errors.Is(err, core.ErrZeroDate) {
		t.Errorf("zero month: error = %v, want ErrZeroDate", err)
	}
}

func TestIncomeService_MonthlyIncome(t *testing.T) {
	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	store := newMemStore()
	svc := NewIncomeService(store, nil, fixedClock(now))
	ctx := context.Background()
	jan := core.NewMonthKey(2025, 1)
	feb := core.NewMonthKey(2025, 2)

	mustCreate := func(p core.Person, amount string, month core.MonthKey) {
		t.Helper()
		if _, err := svc.CreateIncome(ctx, p, dec(amount), core.IncomeSalary, month, ""); err != nil {
			t.Fatalf("CreateIncome() error = %v", err)
		}
	}
	mustCreate(core.PersonFelipe, "3000.00", jan)
	mustCreate(core.PersonFelipe, "500.00", jan)
	mustCreate(core.PersonCarol, "2000.00", jan)
	mustCreate(core.PersonCarol, "9999.00", feb)

	mi, err := svc.MonthlyIncome(ctx, jan)
	if err != nil {
		t.Fatalf("MonthlyIncome() error = %v", err)
	}
	if !mi.Total.Equal(dec("5500.00")) {
		t.Errorf("total = %s, want 5500.00", mi.Total)
	}
	if !mi.FelipeIncome.Equal(dec("3500.00")) {
		t.Errorf("felipe = %s, want 3500.00", mi.FelipeIncome)
	}
	if !mi.CarolIncome.Equal(dec("2000.00")) {
		t.Errorf("carol = %s, want 2000.00", mi.CarolIncome)
	}
	if len(mi.Records) != 3 {
		t.Errorf("records = %d, want 3", len(mi.Records))
	}
}
