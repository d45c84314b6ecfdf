package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func mustTx(t *testing.T, id int64, amount string, typ TransactionType) Transaction {
	t.Helper()
	a, err := ParseAmount(amount)
	if err != nil {
		t.Fatalf("parse %s: %v", amount, err)
	}
	tx, err := NewTransaction(id, a, typ, NewDate(2024, 1, 1))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return tx
}

func TestComputeSummary(t *testing.T) {
	cases := []struct {
		name    string
		list    []Transaction
		income  string
		expense string
		balance string
	}{
		{"empty", nil, "0", "0", "0"},
		{"income only", []Transaction{mustTx(t, 1, "100", Income)}, "100", "0", "100"},
		{"mixed", []Transaction{mustTx(t, 1, "100", Income), mustTx(t, 2, "40", Expense)}, "100", "40", "60"},
		{"negative", []Transaction{mustTx(t, 1, "10.5", Income), mustTx(t, 2, "20.25", Expense)}, "10.5", "20.25", "-9.75"},
		{"decimals stay exact", []Transaction{mustTx(t, 1, "0.1", Income), mustTx(t, 2, "0.2", Income)}, "0.3", "0", "0.3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := ComputeSummary(tc.list)
			check := func(label string, got decimal.Decimal, want string) {
				if !got.Equal(decimal.RequireFromString(want)) {
					t.Fatalf("%s = %s, want %s", label, got, want)
				}
			}
			check("income", s.TotalIncome, tc.income)
			check("expense", s.TotalExpense, tc.expense)
			check("balance", s.Balance, tc.balance)
			if !s.Balance.Equal(s.TotalIncome.Sub(s.TotalExpense)) {
				t.Fatalf("balance invariant violated: %+v", s)
			}
		})
	}
}

func TestSummaryPositive(t *testing.T) {
	if !ComputeSummary(nil).Positive() {
		t.Fatal("zero balance should be positive-styled")
	}
	neg := ComputeSummary([]Transaction{mustTx(t, 1, "1", Expense)})
	if neg.Positive() {
		t.Fatal("negative balance should not be positive-styled")
	}
}
