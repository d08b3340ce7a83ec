package ledger

import (
	"testing"

	"github.com/shopspring/decimal"

	"famledger/internal/core"
)

func tx(id, date, category string, amount int64) core.Transaction {
	d, _ := core.ParseDate(date)
	return core.Transaction{
		ID:       id,
		Date:     d,
		Category: category,
		Amount:   decimal.NewFromInt(amount),
	}
}

func ids(txs []core.Transaction) []string {
	out := make([]string, len(txs))
	for i, t := range txs {
		out[i] = t.ID
	}
	return out
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sample() []core.Transaction {
	return []core.Transaction{
		tx("1", "2024-01-01", core.CategoryIncome, 1000),
		tx("2", "15/01/2024", core.CategoryExpense, 400),
		tx("3", "2024-02-29", core.CategoryExpense, 50),
		tx("4", "10/5/2024", "income", 70),
		tx("5", "garbage", core.CategoryIncome, 999),
		tx("6", "2023-12-31", "Gift", 20),
	}
}

func TestApply_AllReturnsEverythingInDisplayOrder(t *testing.T) {
	txs := sample()
	got := Apply(txs, Resolve(Spec{Mode: ModeAll}, today, FallbackOpen), "")
	if len(got) != len(txs) {
		t.Fatalf("len = %d, want %d", len(got), len(txs))
	}
	want := []string{"6", "5", "4", "3", "2", "1"}
	if !sameIDs(ids(got), want) {
		t.Errorf("order = %v, want %v", ids(got), want)
	}
}

func TestApply_DateWindow(t *testing.T) {
	txs := sample()
	tests := []struct {
		name string
		spec Spec
		want []string
	}{
		{"january 2024", Spec{Mode: ModeMonth, Year: "2024", FromMonth: "1"}, []string{"2", "1"}},
		{"leap day included", Spec{Mode: ModeMonth, Year: "2024", FromMonth: "2"}, []string{"3"}},
		{"exact date alternate encoding", Spec{Mode: ModeExactDate, FromDate: "2024-05-10"}, []string{"4"}},
		{"year 2023", Spec{Mode: ModeYear, Year: "2023"}, []string{"6"}},
		{"range open start", Spec{Mode: ModeRange, ToDate: "2024-01-01"}, []string{"6", "1"}},
		{"inclusive bounds", Spec{Mode: ModeRange, FromDate: "2024-01-15", ToDate: "2024-02-29"}, []string{"3", "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(txs, Resolve(tt.spec, today, FallbackOpen), "")
			if !sameIDs(ids(got), tt.want) {
				t.Errorf("got %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func TestApply_CorruptDateExcludedOnlyWhenBounded(t *testing.T) {
	txs := sample()

	bounded := Apply(txs, Resolve(Spec{Mode: ModeRange, FromDate: "1900-01-01"}, today, FallbackOpen), "")
	for _, tx := range bounded {
		if tx.ID == "5" {
			t.Fatal("record with unparseable date passed a bounded window")
		}
	}
	if len(bounded) != len(txs)-1 {
		t.Errorf("len = %d, want %d", len(bounded), len(txs)-1)
	}

	open := Apply(txs, AllTime(), "")
	if len(open) != len(txs) {
		t.Errorf("unbounded window dropped records: %v", ids(open))
	}
}

func TestApply_CategoryGate(t *testing.T) {
	txs := sample()
	tests := []struct {
		category string
		want     []string
	}{
		{"Income", []string{"5", "1"}},
		{"income", []string{"4"}},
		{"INCOME", []string{}},
		{"Gift", []string{"6"}},
		{"All", []string{"6", "5", "4", "3", "2", "1"}},
		{"", []string{"6", "5", "4", "3", "2", "1"}},
	}
	for _, tt := range tests {
		got := Apply(txs, AllTime(), tt.category)
		if !sameIDs(ids(got), tt.want) {
			t.Errorf("category %q: got %v, want %v", tt.category, ids(got), tt.want)
		}
	}
}

func TestApply_BothGates(t *testing.T) {
	w := Resolve(Spec{Mode: ModeYear, Year: "2024"}, today, FallbackOpen)
	got := Apply(sample(), w, core.CategoryExpense)
	if want := []string{"3", "2"}; !sameIDs(ids(got), want) {
		t.Fatalf("got %v, want %v", ids(got), want)
	}
}

func TestApply_EmptyFallbackMatchesNothing(t *testing.T) {
	w := Resolve(Spec{Mode: ModeMonth, FromMonth: "14"}, today, FallbackEmpty)
	if got := Apply(sample(), w, ""); len(got) != 0 {
		t.Fatalf("got %v, want none", ids(got))
	}
	w = Resolve(Spec{Mode: ModeMonth, FromMonth: "14"}, today, FallbackOpen)
	if got := Apply(sample(), w, ""); len(got) != len(sample()) {
		t.Fatalf("open fallback: got %d records", len(got))
	}
}

func TestApply_DoesNotModifyInput(t *testing.T) {
	txs := sample()
	before := ids(txs)
	_ = Apply(txs, AllTime(), "")
	if !sameIDs(ids(txs), before) {
		t.Fatal("input reordered")
	}
}

func TestChronological(t *testing.T) {
	txs := sample()
	display := Apply(txs, AllTime(), "")
	if got := ids(Chronological(display)); !sameIDs(got, ids(txs)) {
		t.Fatalf("got %v, want %v", got, ids(txs))
	}
	if ids(display)[0] != "6" {
		t.Error("Chronological modified its input")
	}
}
