package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestDeriveBillStatus(t *testing.T) {
	cases := []struct {
		name  string
		paid  string
		total string
		want  BillStatus
	}{
		{"nothing paid", "0", "100", BillPending},
		{"partial", "50", "100", BillPartial},
		{"one cent short", "99.99", "100", BillPartial},
		{"exactly paid", "100", "100", BillPaid},
		{"overpaid", "120", "100", BillPaid},
		{"tiny partial", "0.01", "100", BillPartial},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveBillStatus(dec(tc.paid), dec(tc.total))
			if got != tc.want {
				t.Errorf("DeriveBillStatus(%s, %s) = %s, want %s", tc.paid, tc.total, got, tc.want)
			}
		})
	}
}

func TestDeriveInstanceStatus(t *testing.T) {
	cases := []struct {
		name       string
		paid       string
		total      string
		wasOverdue bool
		want       InstanceStatus
	}{
		{"nothing paid", "0", "100", false, InstanceUnpaid},
		{"nothing paid while overdue", "0", "100", true, InstanceOverdue},
		{"partial", "40", "100", false, InstancePartial},
		{"partial while overdue", "40", "100", true, InstancePartial},
		{"paid clears overdue", "100", "100", true, InstancePaid},
		{"overpaid", "150", "100", false, InstancePaid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveInstanceStatus(dec(tc.paid), dec(tc.total), tc.wasOverdue)
			if got != tc.want {
				t.Errorf("DeriveInstanceStatus(%s, %s, %v) = %s, want %s",
					tc.paid, tc.total, tc.wasOverdue, got, tc.want)
			}
		})
	}
}
