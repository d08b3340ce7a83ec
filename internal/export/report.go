// Package export renders a filtered ledger view as a spreadsheet, a PDF or an
// HTML e-mail. Every adapter receives rows in chronological order.
package export

import (
	"time"

	"famledger/internal/core"
	"famledger/internal/ledger"
)

// Report is one export: the rows of a query and their totals.
type Report struct {
	GeneratedAt time.Time
	Window      ledger.Window
	Items       []core.Transaction
	Summary     ledger.Summary
}

// NewReport wraps rows that are already in chronological order.
func NewReport(items []core.Transaction, window ledger.Window, summary ledger.Summary, now time.Time) Report {
	return Report{
		GeneratedAt: now,
		Window:      window,
		Items:       items,
		Summary:     summary,
	}
}

// row is the four column projection every format shares.
type row struct {
	Date        string
	Category    string
	Description string
	Amount      float64
	AmountText  string
	Expense     bool
}

func (r Report) rows() []row {
	out := make([]row, len(r.Items))
	for i, tx := range r.Items {
		amount, _ := tx.Amount.Float64()
		out[i] = row{
			Date:        tx.Date.DMY(),
			Category:    tx.Category,
			Description: tx.Description,
			Amount:      amount,
			AmountText:  core.FormatAmount(tx.Amount),
			Expense:     tx.IsExpense(),
		}
	}
	return out
}

var columns = []string{"Date", "Category", "Description", "Amount"}
