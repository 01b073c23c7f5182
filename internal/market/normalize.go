package market

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Absent marks a field that has no source column.
const Absent = -1

// Columns maps each canonical field to a cell index, or Absent.
type Columns [NumFields]int

// NoColumns returns a map with every field Absent.
func NoColumns() Columns {
	var c Columns
	for i := range c {
		c[i] = Absent
	}
	return c
}

// With returns a copy of c with f mapped to idx.
func (c Columns) With(f Field, idx int) Columns {
	c[f] = idx
	return c
}

// Has reports whether f is mapped.
func (c Columns) Has(f Field) bool { return c[f] != Absent }

// ListingColumns is the fixed layout of the LuSE market-data table:
// company, ticker, last, change, volume, value.
var ListingColumns = NoColumns().
	With(FieldCompany, 0).
	With(FieldTicker, 1).
	With(FieldLast, 2).
	With(FieldChange, 3).
	With(FieldVolume, 4).
	With(FieldValue, 5)

// FromCells builds a row from one HTML table row. It returns false for rows
// with fewer than minCells non-blank cells; those are headers, separators
// or junk. Absent or out-of-range columns read as empty.
func FromCells(cells []string, cols Columns, minCells int) (Row, bool) {
	usable := 0
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			usable++
		}
	}
	if usable == 0 || usable < minCells {
		return Row{}, false
	}
	var vals [NumFields]any
	for f, idx := range cols {
		if idx < 0 || idx >= len(cells) {
			continue
		}
		vals[f] = cells[idx]
	}
	return build(vals), true
}

// Aliases lists, per field, the record keys tried in order. Keys match
// case-insensitively.
type Aliases [NumFields][]string

// RecordAliases covers the field names seen on the structured listings feed.
var RecordAliases = Aliases{
	FieldTicker:  {"ticker", "symbol", "code", "securityCode", "shortName"},
	FieldCompany: {"securityName", "company", "companyName", "name", "security", "issuer"},
	FieldLast:    {"lastPrice", "last", "price", "closingPrice", "close"},
	FieldBid:     {"bid", "bestBid", "bidPrice"},
	FieldAsk:     {"ask", "bestAsk", "askPrice", "offer"},
	FieldChange:  {"change", "percentChange", "changePercent", "pctChange"},
	FieldVolume:  {"volume", "tradedVolume", "totalVolume"},
	FieldValue:   {"value", "turnover", "tradedValue"},
}

// FromRecord builds a row from a decoded JSON object. Records with fewer
// than minFields present fields are skipped.
func FromRecord(rec map[string]any, aliases Aliases, minFields int) (Row, bool) {
	lower := make(map[string]any, len(rec))
	for k, v := range rec {
		lower[strings.ToLower(k)] = v
	}
	var vals [NumFields]any
	usable := 0
	for f, keys := range aliases {
		for _, k := range keys {
			v, ok := lower[strings.ToLower(k)]
			if !ok || isBlank(v) {
				continue
			}
			vals[f] = v
			usable++
			break
		}
	}
	if usable == 0 || usable < minFields {
		return Row{}, false
	}
	return build(vals), true
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	}
	return false
}

// build applies the shared field rules: text trimmed, numerics coerced,
// ticker falls back to the company when missing, and value is the supplied
// turnover if any, else last*volume, else empty.
func build(v [NumFields]any) Row {
	r := Row{
		Ticker:  text(v[FieldTicker]),
		Company: text(v[FieldCompany]),
		Last:    Coerce(v[FieldLast]),
		Bid:     Coerce(v[FieldBid]),
		Ask:     Coerce(v[FieldAsk]),
		Change:  change(v[FieldChange]),
		Volume:  Coerce(v[FieldVolume]).nonNegative().truncated(),
		Value:   Coerce(v[FieldValue]).nonNegative(),
	}
	if r.Ticker == "" {
		r.Ticker = r.Company
	}
	if !r.Value.Valid() && r.Last.Valid() && r.Volume.Valid() {
		r.Value = finite(r.Last.d.Mul(r.Volume.d)).nonNegative()
	}
	return r
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// change keeps textual changes as-is and renders numeric ones as a signed
// two-decimal percentage.
func change(v any) string {
	switch v.(type) {
	case nil, string:
		return text(v)
	}
	n := Coerce(v)
	if !n.Valid() {
		return text(v)
	}
	return formatPercent(n.d)
}

func formatPercent(d decimal.Decimal) string {
	s := d.StringFixed(2)
	if !d.IsNegative() {
		s = "+" + s
	}
	return s + "%"
}
