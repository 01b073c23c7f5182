// Package market holds the canonical LuSE price table: the eight-column row
// every provider is normalized into, numeric coercion, and the static
// fallback table served when no upstream source answers.
package market

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Field indexes a canonical column.
type Field int

const (
	FieldTicker Field = iota
	FieldCompany
	FieldLast
	FieldBid
	FieldAsk
	FieldChange
	FieldVolume
	FieldValue

	NumFields = 8
)

// Header is the literal first row of every served table.
var Header = [NumFields]string{"Ticker", "Company", "Last", "Bid", "Ask", "Change", "Volume", "Value"}

func (f Field) String() string {
	if f < 0 || int(f) >= NumFields {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return Header[f]
}

// Row is one security in canonical column order.
type Row struct {
	Ticker  string
	Company string
	Last    Number
	Bid     Number
	Ask     Number
	Change  string
	Volume  Number
	Value   Number
}

// Cells returns the row as positional values matching Header.
func (r Row) Cells() []any {
	return []any{r.Ticker, r.Company, r.Last, r.Bid, r.Ask, r.Change, r.Volume, r.Value}
}

func (r Row) MarshalJSON() ([]byte, error) { return json.Marshal(r.Cells()) }

// UnmarshalJSON reads an 8-column row, or the 5-column
// Ticker/Company/Last/Bid/Ask subset with the rest left empty.
func (r *Row) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("market: decode row: %w", err)
	}
	if len(raw) != NumFields && len(raw) != 5 {
		return fmt.Errorf("market: row has %d columns, want %d or 5", len(raw), NumFields)
	}
	var out Row
	texts := []*string{&out.Ticker, &out.Company}
	for i, dst := range texts {
		*dst = rawText(raw[i])
	}
	nums := []*Number{&out.Last, &out.Bid, &out.Ask}
	for i, dst := range nums {
		if err := dst.UnmarshalJSON(raw[int(FieldLast)+i]); err != nil {
			return err
		}
	}
	if len(raw) == NumFields {
		out.Change = rawText(raw[FieldChange])
		if err := out.Volume.UnmarshalJSON(raw[FieldVolume]); err != nil {
			return err
		}
		if err := out.Value.UnmarshalJSON(raw[FieldValue]); err != nil {
			return err
		}
	}
	*r = out
	return nil
}

func rawText(b json.RawMessage) string {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return s
	}
	if string(b) == "null" {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// Table is a list of canonical rows. It serializes with Header as row 0.
type Table []Row

func (t Table) MarshalJSON() ([]byte, error) {
	out := make([]any, 0, len(t)+1)
	out = append(out, Header)
	for _, r := range t {
		out = append(out, r)
	}
	return json.Marshal(out)
}

// UnmarshalJSON expects the header row first and drops it.
func (t *Table) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("market: decode table: %w", err)
	}
	if len(raw) == 0 {
		return fmt.Errorf("market: table is missing its header row")
	}
	var head []string
	if err := json.Unmarshal(raw[0], &head); err != nil || len(head) == 0 || head[0] != Header[0] {
		return fmt.Errorf("market: first row is not the header")
	}
	rows := make(Table, 0, len(raw)-1)
	for _, r := range raw[1:] {
		var row Row
		if err := row.UnmarshalJSON(r); err != nil {
			return err
		}
		rows = append(rows, row)
	}
	*t = rows
	return nil
}

// Clone returns a copy that shares no backing array with t.
func (t Table) Clone() Table {
	if t == nil {
		return nil
	}
	out := make(Table, len(t))
	copy(out, t)
	return out
}
