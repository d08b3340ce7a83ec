package core

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	isoDatePattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	dmyDatePattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
)

// ParseDate interprets s as a calendar date.
//
// Two encodings are read positionally: YYYY-MM-DD and D/M/YYYY (one or two digit
// day and month, four digit year). Components are normalized like time.Date, so
// 2024-02-30 reads as 2024-03-01. Anything else goes through a generic parser;
// ok is false when that fails too or s is empty.
func ParseDate(s string) (Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, false
	}
	if m := isoDatePattern.FindStringSubmatch(s); m != nil {
		return NewDate(atoi(m[1]), atoi(m[2]), atoi(m[3])), true
	}
	if m := dmyDatePattern.FindStringSubmatch(s); m != nil {
		return NewDate(atoi(m[3]), atoi(m[2]), atoi(m[1])), true
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return Date{}, false
	}
	return DateOf(t), true
}

// NormalizeDate is the lenient form of ParseDate used for filter boundaries and
// client input: empty or unparseable input yields today instead of failing.
func NormalizeDate(s string, today Date) Date {
	if d, ok := ParseDate(s); ok {
		return d
	}
	return today
}

// atoi is only called on regexp-matched digit groups.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
