package ledger

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"famledger/internal/core"
)

// Summary holds income and expense totals. Balance is always Income - Expense;
// build values with NewSummary.
type Summary struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Balance decimal.Decimal
}

// NewSummary derives the balance from the two totals.
func NewSummary(income, expense decimal.Decimal) Summary {
	return Summary{Income: income, Expense: expense, Balance: income.Sub(expense)}
}

// Aggregate sums amounts labelled exactly Income or Expense. Other categories
// count towards neither total.
func Aggregate(txs []core.Transaction) Summary {
	income, expense := decimal.Zero, decimal.Zero
	for _, tx := range txs {
		switch {
		case tx.IsIncome():
			income = income.Add(tx.Amount)
		case tx.IsExpense():
			expense = expense.Add(tx.Amount)
		}
	}
	return NewSummary(income, expense)
}

// MarshalJSON renders totals as JSON numbers.
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Income  json.Number `json:"income"`
		Expense json.Number `json:"expense"`
		Balance json.Number `json:"balance"`
	}{
		Income:  json.Number(s.Income.String()),
		Expense: json.Number(s.Expense.String()),
		Balance: json.Number(s.Balance.String()),
	})
}
