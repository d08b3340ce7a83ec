// Package ledger implements the filtering and aggregation engine: it turns a
// filter request into an inclusive date window, applies that window and an
// optional category to a snapshot of transactions, and reduces the result to
// income/expense totals. Every function here is pure.
package ledger

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Mode selects how a Spec is turned into a Window.
type Mode string

const (
	ModeAll       Mode = "all"
	ModeExactDate Mode = "exact-date"
	ModeRange     Mode = "range"
	ModeMonth     Mode = "month"
	ModeQuarter   Mode = "quarter"
	ModeYear      Mode = "year"
)

// modeAliases maps the legacy client vocabulary onto modes.
var modeAliases = map[string]Mode{
	"date":  ModeExactDate,
	"exact": ModeExactDate,
	"day":   ModeExactDate,
}

// ParseMode maps a request value onto a Mode. Unknown values map to ModeAll.
func ParseMode(s string) Mode {
	s = strings.ToLower(strings.TrimSpace(s))
	switch m := Mode(s); m {
	case ModeAll, ModeExactDate, ModeRange, ModeMonth, ModeQuarter, ModeYear:
		return m
	}
	if m, ok := modeAliases[s]; ok {
		return m
	}
	return ModeAll
}

// Spec is a declarative filter request. Numeric fields stay raw so that the
// resolver can apply "value or default" coercion itself.
type Spec struct {
	Mode      Mode
	Category  string
	FromDate  string
	ToDate    string
	Year      string
	FromMonth string
	ToMonth   string
	Quarter   string
}

// specKeys lists each field's canonical key followed by accepted aliases.
var specKeys = []struct {
	keys []string
	set  func(*Spec, string)
}{
	{[]string{"mode"}, func(s *Spec, v string) { s.Mode = ParseMode(v) }},
	{[]string{"category", "type"}, func(s *Spec, v string) { s.Category = v }},
	{[]string{"fromDate", "dateFrom", "from"}, func(s *Spec, v string) { s.FromDate = v }},
	{[]string{"toDate", "dateTo", "to"}, func(s *Spec, v string) { s.ToDate = v }},
	{[]string{"year"}, func(s *Spec, v string) { s.Year = v }},
	{[]string{"fromMonth", "monthFrom"}, func(s *Spec, v string) { s.FromMonth = v }},
	{[]string{"toMonth", "monthTo"}, func(s *Spec, v string) { s.ToMonth = v }},
	{[]string{"quarter"}, func(s *Spec, v string) { s.Quarter = v }},
}

// ParseSpec reads a filter request from query or form values. All keys are
// optional; the first non-empty key among a field's aliases wins.
func ParseSpec(values url.Values) Spec {
	return parseSpec(values.Get)
}

// SpecFromMap reads a filter request from a decoded JSON object, where values
// may be strings or numbers.
func SpecFromMap(m map[string]any) Spec {
	return parseSpec(func(key string) string {
		switch val := m[key].(type) {
		case nil:
			return ""
		case string:
			return val
		case float64:
			return strconv.FormatFloat(val, 'f', -1, 64)
		default:
			return fmt.Sprint(val)
		}
	})
}

func parseSpec(lookup func(string) string) Spec {
	spec := Spec{Mode: ModeAll}
	for _, field := range specKeys {
		for _, key := range field.keys {
			if v := strings.TrimSpace(lookup(key)); v != "" {
				field.set(&spec, v)
				break
			}
		}
	}
	return spec
}

// Values renders the spec back into canonical query parameters.
func (s Spec) Values() url.Values {
	v := url.Values{}
	set := func(key, val string) {
		if val != "" {
			v.Set(key, val)
		}
	}
	set("mode", string(s.Mode))
	set("category", s.Category)
	set("fromDate", s.FromDate)
	set("toDate", s.ToDate)
	set("year", s.Year)
	set("fromMonth", s.FromMonth)
	set("toMonth", s.ToMonth)
	set("quarter", s.Quarter)
	return v
}

// intOr is the "value or default" coercion: missing, empty or non-numeric
// input yields def.
func intOr(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int(f)) {
		return int(f)
	}
	return def
}
