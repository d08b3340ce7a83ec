package ledger

import (
	"slices"

	"famledger/internal/core"
)

// Apply returns the transactions of txs that fall inside w and match category,
// in display order: the reverse of txs, so the most recently appended record
// comes first. An empty category or "All" matches every category; any other
// value must equal the transaction category exactly.
//
// txs is not modified.
func Apply(txs []core.Transaction, w Window, category string) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for i := len(txs) - 1; i >= 0; i-- {
		tx := txs[i]
		if !matchCategory(tx.Category, category) {
			continue
		}
		if !w.Contains(tx.Date) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// Chronological reverses a display-ordered result back into store order, the
// order export adapters render.
func Chronological(display []core.Transaction) []core.Transaction {
	out := slices.Clone(display)
	slices.Reverse(out)
	return out
}

func matchCategory(have, want string) bool {
	return want == "" || want == core.CategoryAll || have == want
}
