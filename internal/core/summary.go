package core

import "github.com/shopspring/decimal"

// Summary is the derived income/expense/balance triple shown on the cards.
type Summary struct {
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	Balance      decimal.Decimal
}

// ComputeSummary folds the list into totals. It is recomputed on every call.
func ComputeSummary(list []Transaction) Summary {
	income := decimal.Zero
	expense := decimal.Zero
	for _, tx := range list {
		switch tx.Type {
		case Income:
			income = income.Add(tx.Amount.Decimal)
		case Expense:
			expense = expense.Add(tx.Amount.Decimal)
		}
	}
	return Summary{
		TotalIncome:  income,
		TotalExpense: expense,
		Balance:      income.Sub(expense),
	}
}

// Positive reports whether the balance is zero or above.
func (s Summary) Positive() bool {
	return !s.Balance.IsNegative()
}
