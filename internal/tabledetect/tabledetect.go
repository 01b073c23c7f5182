// Package tabledetect picks the market-data table out of a page that may
// carry several tables (navigation, indices, announcements).
package tabledetect

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/chamatitus-cpu/luse-price-api/internal/market"
)

// ErrNoTable is returned when no table qualifies.
var ErrNoTable = errors.New("no table found")

// Keywords are the case-insensitive header substrings that identify each
// canonical column.
var Keywords = [market.NumFields][]string{
	market.FieldTicker:  {"ticker", "symbol"},
	market.FieldCompany: {"company", "name"},
	market.FieldLast:    {"last", "price"},
	market.FieldBid:     {"bid"},
	market.FieldAsk:     {"ask"},
	market.FieldChange:  {"change", "%"},
	market.FieldVolume:  {"volume"},
	market.FieldValue:   {"value", "turnover"},
}

// required fields a header must carry for the keyword policy.
var required = []market.Field{market.FieldTicker, market.FieldCompany, market.FieldLast}

// claimOrder decides which field a header cell belongs to when it matches
// several ("Price Change %", "Bid Price").
var claimOrder = []market.Field{
	market.FieldTicker,
	market.FieldChange,
	market.FieldVolume,
	market.FieldValue,
	market.FieldBid,
	market.FieldAsk,
	market.FieldLast,
	market.FieldCompany,
}

// MaxHeader returns the table with the most th cells. Ties keep the first.
func MaxHeader(doc *goquery.Document) (*goquery.Selection, error) {
	var target *goquery.Selection
	best := 0
	doc.Find("table").Each(func(_ int, t *goquery.Selection) {
		if n := t.Find("th").Length(); n > best {
			best = n
			target = t
		}
	})
	if target == nil {
		return nil, ErrNoTable
	}
	return target, nil
}

// ByKeywords returns the first table whose header names the ticker, company
// and last-price columns, with the column map read from that header.
func ByKeywords(doc *goquery.Document) (*goquery.Selection, market.Columns, error) {
	var (
		found *goquery.Selection
		cols  = market.NoColumns()
	)
	doc.Find("table").EachWithBreak(func(_ int, t *goquery.Selection) bool {
		c := MatchColumns(HeaderCells(t))
		for _, f := range required {
			if !c.Has(f) {
				return true
			}
		}
		found, cols = t, c
		return false
	})
	if found == nil {
		return nil, market.NoColumns(), ErrNoTable
	}
	return found, cols, nil
}

// HeaderCells returns the text of the table's header row: the first row of
// thead, or the first row of the table when there is no thead.
func HeaderCells(t *goquery.Selection) []string {
	row := t.Find("thead tr").First()
	if row.Length() == 0 {
		row = t.Find("tr").First()
	}
	var out []string
	row.Find("th, td").Each(func(_ int, c *goquery.Selection) {
		out = append(out, strings.TrimSpace(c.Text()))
	})
	return out
}

// MatchColumns maps header texts to canonical fields. A header cell is
// claimed by at most one field, and each field takes the first cell that
// matches it. Unmatched fields stay market.Absent.
func MatchColumns(headers []string) market.Columns {
	cols := market.NoColumns()
	for i, h := range headers {
		h = strings.ToLower(h)
		for _, f := range claimOrder {
			if cols.Has(f) || !containsAny(h, Keywords[f]) {
				continue
			}
			cols[f] = i
			break
		}
	}
	return cols
}

// DataRows returns the td texts of every body row. Rows made only of th
// cells come back empty and are dropped by the normalizer.
func DataRows(t *goquery.Selection) [][]string {
	var rows [][]string
	t.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td").Map(func(_ int, td *goquery.Selection) string {
			return strings.TrimSpace(td.Text())
		})
		rows = append(rows, cells)
	})
	return rows
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
