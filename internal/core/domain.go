package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category labels. Only Income and Expense take part in aggregation; any other
// label is kept and displayed as is.
const (
	CategoryIncome  = "Income"
	CategoryExpense = "Expense"
	// CategoryAll is the filter sentinel meaning "every category".
	CategoryAll = "All"
)

type (
	Date struct {
		time.Time
	}

	// Transaction is the canonical in-memory ledger record.
	Transaction struct {
		ID          string
		Date        Date // zero when the stored value could not be parsed
		Category    string
		Description string
		Amount      decimal.Decimal
		RecordedAt  time.Time
	}

	// TransactionInput carries the mutable fields of a transaction as received
	// from a client, before normalization.
	TransactionInput struct {
		Date        string
		Category    string
		Description string
		Amount      any
	}
)

var (
	ErrEmptyCategory   = errors.New("empty category")
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrDescriptionLong = errors.New("description too long (max 500 characters)")
	ErrEmptyID         = errors.New("empty transaction id")
)

const maxDescriptionRunes = 500

// NewDate creates a new Date from year, month, day. Out of range components are
// normalized the way time.Date does (month 13 is January of the next year).
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t as seen in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// Today returns the current calendar date in loc.
func Today(now time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(now.In(loc))
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// IsEmpty reports whether the date is unset.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// DMY renders the date as DD/MM/YYYY, the ledger's display encoding.
func (d Date) DMY() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("02/01/2006")
}

// Before and After compare calendar dates only.
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

// AddDays returns the date shifted by n days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// IsIncome reports whether the transaction counts towards the income total.
func (t Transaction) IsIncome() bool { return t.Category == CategoryIncome }

// IsExpense reports whether the transaction counts towards the expense total.
func (t Transaction) IsExpense() bool { return t.Category == CategoryExpense }

// Normalize turns client input into a transaction body. The date goes through
// the lenient normalizer, so an empty or malformed date becomes today.
func (in TransactionInput) Normalize(today Date) (Transaction, error) {
	tx := Transaction{
		Date:        NormalizeDate(in.Date, today),
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		Amount:      ParseAmount(in.Amount),
	}
	if err := tx.Validate(); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// Validate checks the fields a client is allowed to set.
func (t Transaction) Validate() error {
	if t.Category == "" {
		return ErrEmptyCategory
	}
	if t.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if len([]rune(t.Description)) > maxDescriptionRunes {
		return ErrDescriptionLong
	}
	return nil
}
