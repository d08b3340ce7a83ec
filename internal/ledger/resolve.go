package ledger

import (
	"errors"
	"fmt"
	"strings"

	"famledger/internal/core"
)

// FallbackPolicy decides what Resolve returns when a spec cannot be turned into
// a valid window.
type FallbackPolicy int

const (
	// FallbackOpen widens the window to all time.
	FallbackOpen FallbackPolicy = iota
	// FallbackEmpty returns a window that matches nothing.
	FallbackEmpty
)

func (p FallbackPolicy) String() string {
	if p == FallbackEmpty {
		return "empty"
	}
	return "open"
}

// ParseFallbackPolicy accepts "open" or "empty" (case-insensitive).
func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "open":
		return FallbackOpen, nil
	case "empty":
		return FallbackEmpty, nil
	default:
		return FallbackOpen, fmt.Errorf("unknown filter fallback %q (want open or empty)", s)
	}
}

var (
	ErrMonthOutOfRange = errors.New("month out of range 1..12")
	ErrMonthsInverted  = errors.New("fromMonth after toMonth")
	ErrYearOutOfRange  = errors.New("year out of range 1..9999")
)

// Bound is one end of a window. The zero Bound is unbounded.
type Bound struct {
	date    core.Date
	bounded bool
}

// Unbounded returns an open end.
func Unbounded() Bound { return Bound{} }

// At returns an end fixed on d.
func At(d core.Date) Bound { return Bound{date: d, bounded: true} }

// Bounded reports whether the end is fixed.
func (b Bound) Bounded() bool { return b.bounded }

// Date returns the fixed date; ok is false for an open end.
func (b Bound) Date() (core.Date, bool) { return b.date, b.bounded }

func (b Bound) String() string {
	if !b.bounded {
		return "unbounded"
	}
	return b.date.String()
}

// Window is an inclusive calendar-date interval.
type Window struct {
	From, To Bound

	// Empty is set when a fallback chose to match nothing.
	Empty bool
	// Fallback holds the reason resolution fell back, nil otherwise.
	Fallback error
}

// AllTime is the unbounded window.
func AllTime() Window { return Window{} }

// Between returns the inclusive window [from, to].
func Between(from, to core.Date) Window {
	return Window{From: At(from), To: At(to)}
}

// IsBounded reports whether either end is fixed.
func (w Window) IsBounded() bool { return w.From.bounded || w.To.bounded }

// Contains reports whether d falls inside w. A zero date is never inside a
// bounded window.
func (w Window) Contains(d core.Date) bool {
	if w.Empty {
		return false
	}
	if !w.IsBounded() {
		return true
	}
	if d.IsEmpty() {
		return false
	}
	if w.From.bounded && d.Before(w.From.date) {
		return false
	}
	if w.To.bounded && d.After(w.To.date) {
		return false
	}
	return true
}

func (w Window) String() string {
	if w.Empty {
		return "[empty]"
	}
	return "[" + w.From.String() + ", " + w.To.String() + "]"
}

// Resolve derives the date window for spec, using today for defaults and
// lenient date parsing. It never fails: a spec that cannot be resolved yields
// the fallback window chosen by policy, with Fallback set to the cause.
func Resolve(spec Spec, today core.Date, policy FallbackPolicy) Window {
	w, err := resolve(spec, today)
	if err == nil {
		return w
	}
	if policy == FallbackEmpty {
		return Window{Empty: true, Fallback: err}
	}
	return Window{Fallback: err}
}

func resolve(spec Spec, today core.Date) (Window, error) {
	switch spec.Mode {
	case ModeExactDate:
		d := core.NormalizeDate(spec.FromDate, today)
		return Between(d, d), nil

	case ModeRange:
		var w Window
		if strings.TrimSpace(spec.FromDate) != "" {
			w.From = At(core.NormalizeDate(spec.FromDate, today))
		}
		if strings.TrimSpace(spec.ToDate) != "" {
			w.To = At(core.NormalizeDate(spec.ToDate, today))
		}
		return w, nil

	case ModeMonth:
		year := intOr(spec.Year, today.Year())
		from := intOr(spec.FromMonth, 1)
		to := intOr(spec.ToMonth, from)
		return monthSpan(year, from, to)

	case ModeQuarter:
		year := intOr(spec.Year, today.Year())
		q := min(max(intOr(spec.Quarter, 1), 1), 4)
		first := (q-1)*3 + 1
		return monthSpan(year, first, first+2)

	case ModeYear:
		return monthSpan(intOr(spec.Year, today.Year()), 1, 12)

	default:
		return AllTime(), nil
	}
}

// monthSpan covers the first day of month from through the last day of month
// to, both in year.
func monthSpan(year, from, to int) (Window, error) {
	if year < 1 || year > 9999 {
		return Window{}, fmt.Errorf("%w: %d", ErrYearOutOfRange, year)
	}
	for _, m := range [...]int{from, to} {
		if m < 1 || m > 12 {
			return Window{}, fmt.Errorf("%w: %d", ErrMonthOutOfRange, m)
		}
	}
	if from > to {
		return Window{}, fmt.Errorf("%w: %d > %d", ErrMonthsInverted, from, to)
	}
	return Between(core.NewDate(year, from, 1), lastDayOfMonth(year, to)), nil
}

// lastDayOfMonth is day 0 of the following month.
func lastDayOfMonth(year, month int) core.Date {
	return core.NewDate(year, month+1, 0)
}
